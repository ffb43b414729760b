package ports

import (
	"context"

	"github.com/lorrc/repair-desk-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.User, error)
}

// CreateTicketParams defines the required input for creating a new ticket.
type CreateTicketParams struct {
	Title       string
	Description string
	ActorID     int64
}

// TicketService defines the ticket operations comments depend on.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error)
}

// CreateCommentParams defines the input for creating a comment. The author
// fields come from the authenticated session, never from the request body.
type CreateCommentParams struct {
	TicketID   int64
	AuthorID   int64
	AuthorName string
	Content    string
}

// CommentService defines the port for comment-related business logic.
type CommentService interface {
	CreateComment(ctx context.Context, params CreateCommentParams) (*domain.Comment, error)
	ListComments(ctx context.Context, ticketID int64) ([]*domain.Comment, error)
	// Snapshot lists comments without checking that the ticket exists.
	Snapshot(ctx context.Context, ticketID int64) ([]*domain.Comment, error)
}

// EventBroadcaster fans an event out to the live subscribers of its ticket.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
