package services

import (
	"context"

	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
	"github.com/lorrc/repair-desk-backend/internal/core/ports"
)

// TicketService implements the ticket operations the comment stream needs.
type TicketService struct {
	ticketRepo ports.TicketRepository
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service
func NewTicketService(ticketRepo ports.TicketRepository) ports.TicketService {
	return &TicketService{ticketRepo: ticketRepo}
}

// CreateTicket validates and stores a new ticket owned by the actor.
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	if params.ActorID <= 0 {
		return nil, apperrors.ErrUnauthorized
	}

	ticket, err := domain.NewTicket(domain.TicketParams{
		Title:       params.Title,
		Description: params.Description,
		CreatedBy:   params.ActorID,
	})
	if err != nil {
		return nil, err
	}

	return s.ticketRepo.Create(ctx, ticket)
}

// GetTicket retrieves a ticket by ID.
func (s *TicketService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	if ticketID <= 0 {
		return nil, apperrors.ErrTicketNotFound
	}
	return s.ticketRepo.GetByID(ctx, ticketID)
}
