package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
)

// MaxCommentContentLength is the longest comment body accepted, in characters.
const MaxCommentContentLength = 5000

// Comment is a note attached to a ticket. Comments are immutable once stored.
type Comment struct {
	ID        int64
	TicketID  int64
	UserID    int64
	Username  string
	Content   string
	CreatedAt time.Time
}

// CommentParams holds the input needed to build a new comment.
type CommentParams struct {
	TicketID int64
	UserID   int64
	Username string
	Content  string
}

// NewComment validates params and returns a comment ready for persistence.
// Content is trimmed; ID and CreatedAt are assigned by the store.
func NewComment(params CommentParams) (*Comment, error) {
	if params.UserID <= 0 {
		return nil, apperrors.ErrAuthorRequired
	}
	if params.TicketID <= 0 {
		return nil, apperrors.ErrTicketIDRequired
	}

	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, apperrors.ErrCommentContentRequired
	}
	if utf8.RuneCountInString(content) > MaxCommentContentLength {
		return nil, apperrors.ErrCommentContentTooLong
	}

	return &Comment{
		TicketID: params.TicketID,
		UserID:   params.UserID,
		Username: params.Username,
		Content:  content,
	}, nil
}
