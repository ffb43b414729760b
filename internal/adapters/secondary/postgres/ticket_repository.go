package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
	"github.com/lorrc/repair-desk-backend/internal/core/ports"
)

const ticketColumns = `id, title, description, status, created_by, created_at`

// TicketRepository is the secondary adapter for ticket persistence.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// Ensure TicketRepository implements the ports.TicketRepository interface.
var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t           domain.Ticket
		description pgtype.Text
		status      string
	)
	if err := row.Scan(&t.ID, &t.Title, &description, &status, &t.CreatedBy, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	t.Description = fromText(description)
	t.Status = domain.TicketStatus(status)
	return &t, nil
}

// Create persists a new ticket entity.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	const query = `
INSERT INTO tickets (title, description, status, created_by)
VALUES ($1, $2, $3, $4)
RETURNING ` + ticketColumns

	status := ticket.Status
	if status == "" {
		status = domain.StatusOpen
	}

	created, err := scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		ticket.Title,
		toText(ticket.Description),
		string(status),
		ticket.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	return created, nil
}

// GetByID retrieves a single ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	return scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
}
