package domain

import (
	"strings"
	"time"

	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
)

// Field limits for tickets.
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 10000
)

// TicketStatus represents the possible states of a repair ticket.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "OPEN"
	StatusInProgress TicketStatus = "IN_PROGRESS"
	StatusCompleted  TicketStatus = "COMPLETED"
	StatusCancelled  TicketStatus = "CANCELLED"
)

// IsValid reports whether s is a known status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Ticket is a repair job. Comments hang off tickets by ID.
type Ticket struct {
	ID          int64
	Title       string
	Description string
	Status      TicketStatus
	CreatedBy   int64
	CreatedAt   time.Time
}

// TicketParams holds input for creating a ticket.
type TicketParams struct {
	Title       string
	Description string
	CreatedBy   int64
}

// Validate checks ticket params and collects every field error.
func (p TicketParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	title := strings.TrimSpace(p.Title)
	if title == "" {
		errs.Add("title", "Title is required")
	} else if len(title) > MaxTitleLength {
		errs.Add("title", "Title must be 255 characters or less")
	}

	if len(p.Description) > MaxDescriptionLength {
		errs.Add("description", "Description must be 10000 characters or less")
	}

	if p.CreatedBy <= 0 {
		errs.Add("createdBy", "Creator is required")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewTicket is a factory function to create a valid new ticket.
func NewTicket(params TicketParams) (*Ticket, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Ticket{
		Title:       strings.TrimSpace(params.Title),
		Description: params.Description,
		Status:      StatusOpen,
		CreatedBy:   params.CreatedBy,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
