package services_test

import (
	"context"
	"testing"

	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
	"github.com/lorrc/repair-desk-backend/internal/core/mocks"
	"github.com/lorrc/repair-desk-backend/internal/core/ports"
	"github.com/lorrc/repair-desk-backend/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTicketService_CreateTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(repo)

		repo.On("Create", ctx, mock.MatchedBy(func(tk *domain.Ticket) bool {
			return tk.Title == "Cracked screen" && tk.CreatedBy == 7 && tk.Status == domain.StatusOpen
		})).Return(&domain.Ticket{ID: 42, Title: "Cracked screen", CreatedBy: 7, Status: domain.StatusOpen}, nil)

		ticket, err := svc.CreateTicket(ctx, ports.CreateTicketParams{
			Title:   "Cracked screen",
			ActorID: 7,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(42), ticket.ID)
		repo.AssertExpectations(t)
	})

	t.Run("anonymous actor", func(t *testing.T) {
		repo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(repo)

		_, err := svc.CreateTicket(ctx, ports.CreateTicketParams{Title: "Battery"})

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid title", func(t *testing.T) {
		repo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(repo)

		_, err := svc.CreateTicket(ctx, ports.CreateTicketParams{Title: "", ActorID: 7})

		var validationErr *apperrors.ValidationErrors
		assert.ErrorAs(t, err, &validationErr)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestTicketService_GetTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(repo)
		repo.On("GetByID", ctx, int64(42)).Return(&domain.Ticket{ID: 42}, nil)

		ticket, err := svc.GetTicket(ctx, 42)

		require.NoError(t, err)
		assert.Equal(t, int64(42), ticket.ID)
	})

	t.Run("non-positive id is not found", func(t *testing.T) {
		repo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(repo)

		_, err := svc.GetTicket(ctx, 0)

		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}
