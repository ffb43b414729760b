package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
	"github.com/lorrc/repair-desk-backend/internal/core/ports"
)

const commentColumns = `id, ticket_id, user_id, username, content, created_at`

// CommentRepository handles database operations for comments.
type CommentRepository struct {
	pool *pgxpool.Pool
}

// Ensure implementation matches the interface.
var _ ports.CommentRepository = (*CommentRepository)(nil)

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(pool *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{pool: pool}
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var c domain.Comment
	if err := row.Scan(&c.ID, &c.TicketID, &c.UserID, &c.Username, &c.Content, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create persists a new comment. The database assigns ID and CreatedAt. A
// ticket that does not exist yields ErrTicketNotFound.
func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	const query = `
INSERT INTO ticket_comments (ticket_id, user_id, username, content)
VALUES ($1, $2, $3, $4)
RETURNING ` + commentColumns

	created, err := scanComment(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		comment.TicketID,
		comment.UserID,
		comment.Username,
		comment.Content,
	))
	if err != nil {
		if violates(err, pgForeignKeyViolation, ticketCommentsTicketFK) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return created, nil
}

// ListByTicketID retrieves all comments for a ticket, oldest first. Ties on
// created_at fall back to insertion order.
func (r *CommentRepository) ListByTicketID(ctx context.Context, ticketID int64) ([]*domain.Comment, error) {
	const query = `
SELECT ` + commentColumns + `
FROM ticket_comments
WHERE ticket_id = $1
ORDER BY created_at ASC, id ASC`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*domain.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
