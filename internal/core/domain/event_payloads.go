package domain

import (
	"time"
)

// CommentSnapshot matches the API response shape for comments.
type CommentSnapshot struct {
	ID        int64  `json:"id"`
	TicketID  int64  `json:"ticketId"`
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// TicketSnapshot matches the API response shape for tickets.
type TicketSnapshot struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedBy   int64  `json:"createdBy"`
	CreatedAt   string `json:"createdAt"`
}

// NewCommentSnapshot builds a comment snapshot from a domain comment.
func NewCommentSnapshot(comment *Comment) CommentSnapshot {
	return CommentSnapshot{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		UserID:    comment.UserID,
		Username:  comment.Username,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// NewCommentSnapshots maps comments in order. The result is never nil so it
// encodes as [] rather than null.
func NewCommentSnapshots(comments []*Comment) []CommentSnapshot {
	out := make([]CommentSnapshot, 0, len(comments))
	for _, comment := range comments {
		out = append(out, NewCommentSnapshot(comment))
	}
	return out
}

// NewTicketSnapshot builds a ticket snapshot from a domain ticket.
func NewTicketSnapshot(ticket *Ticket) TicketSnapshot {
	return TicketSnapshot{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      string(ticket.Status),
		CreatedBy:   ticket.CreatedBy,
		CreatedAt:   ticket.CreatedAt.UTC().Format(time.RFC3339),
	}
}
