package domain_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComment(t *testing.T) {
	valid := domain.CommentParams{TicketID: 42, UserID: 7, Username: "alice", Content: "hello"}

	tests := []struct {
		name    string
		mutate  func(p *domain.CommentParams)
		wantErr error
	}{
		{"valid", func(p *domain.CommentParams) {}, nil},
		{"empty content", func(p *domain.CommentParams) { p.Content = "" }, apperrors.ErrCommentContentRequired},
		{"whitespace content", func(p *domain.CommentParams) { p.Content = " \n\t " }, apperrors.ErrCommentContentRequired},
		{"content too long", func(p *domain.CommentParams) {
			p.Content = strings.Repeat("é", domain.MaxCommentContentLength+1)
		}, apperrors.ErrCommentContentTooLong},
		{"missing author", func(p *domain.CommentParams) { p.UserID = 0 }, apperrors.ErrAuthorRequired},
		{"missing ticket", func(p *domain.CommentParams) { p.TicketID = 0 }, apperrors.ErrTicketIDRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := valid
			tt.mutate(&params)

			comment, err := domain.NewComment(params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, comment)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(42), comment.TicketID)
			assert.Equal(t, int64(7), comment.UserID)
			assert.Equal(t, "alice", comment.Username)
			assert.Equal(t, "hello", comment.Content)
		})
	}
}

func TestNewComment_TrimsContent(t *testing.T) {
	comment, err := domain.NewComment(domain.CommentParams{
		TicketID: 1, UserID: 1, Username: "bob", Content: "  replaced the battery \n",
	})
	require.NoError(t, err)
	assert.Equal(t, "replaced the battery", comment.Content)
}

func TestCommentEvents_WireShape(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	comment := &domain.Comment{
		ID: 3, TicketID: 42, UserID: 7, Username: "alice", Content: "hello", CreatedAt: createdAt,
	}

	raw, err := json.Marshal(domain.NewCommentEvent(comment))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "NEW_COMMENT",
		"data": {
			"id": 3,
			"ticketId": 42,
			"userId": 7,
			"username": "alice",
			"content": "hello",
			"createdAt": "2024-03-01T12:00:00Z"
		}
	}`, string(raw))

	raw, err = json.Marshal(domain.InitCommentsEvent(42, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"INIT_COMMENTS","data":[]}`, string(raw))
}
