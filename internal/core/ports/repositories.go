package ports

import (
	"context"

	"github.com/lorrc/repair-desk-backend/internal/core/domain"
)

// UserRepository persists shop users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// TicketRepository persists tickets. GetByID returns errors.ErrTicketNotFound
// when no row matches.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
}

// CommentRepository is the comment store. ListByTicketID returns comments
// oldest first; Create assigns ID and CreatedAt.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	ListByTicketID(ctx context.Context, ticketID int64) ([]*domain.Comment, error)
}
