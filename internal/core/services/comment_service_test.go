package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
	"github.com/lorrc/repair-desk-backend/internal/core/mocks"
	"github.com/lorrc/repair-desk-backend/internal/core/ports"
	"github.com/lorrc/repair-desk-backend/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type commentFixture struct {
	comments    *mocks.MockCommentRepository
	tickets     *mocks.MockTicketRepository
	tx          *mocks.MockTransactionManager
	broadcaster *mocks.MockEventBroadcaster
	svc         ports.CommentService
}

func newCommentFixture() *commentFixture {
	f := &commentFixture{
		comments:    mocks.NewMockCommentRepository(),
		tickets:     mocks.NewMockTicketRepository(),
		tx:          mocks.NewMockTransactionManager(),
		broadcaster: mocks.NewMockEventBroadcaster(),
	}
	f.tx.On("WithTransaction", mock.Anything).Return()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = services.NewCommentService(f.comments, f.tickets, f.tx, f.broadcaster, logger)
	return f
}

func TestCommentService_CreateComment(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("persists then broadcasts", func(t *testing.T) {
		f := newCommentFixture()

		var order []string
		f.tickets.On("GetByID", ctx, int64(42)).Return(&domain.Ticket{ID: 42}, nil)
		f.comments.On("Create", ctx, mock.MatchedBy(func(c *domain.Comment) bool {
			return c.TicketID == 42 && c.UserID == 7 && c.Username == "alice" && c.Content == "hello"
		})).Run(func(mock.Arguments) {
			order = append(order, "persist")
		}).Return(&domain.Comment{
			ID: 1, TicketID: 42, UserID: 7, Username: "alice", Content: "hello", CreatedAt: createdAt,
		}, nil)
		f.broadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			snap, ok := e.Data.(domain.CommentSnapshot)
			return e.Type == domain.EventNewComment && e.TicketID == 42 && ok && snap.ID == 1
		})).Run(func(mock.Arguments) {
			order = append(order, "broadcast")
		}).Return(nil)

		comment, err := f.svc.CreateComment(ctx, ports.CreateCommentParams{
			TicketID: 42, AuthorID: 7, AuthorName: "alice", Content: "  hello  ",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(1), comment.ID)
		assert.Equal(t, "hello", comment.Content)
		assert.Equal(t, []string{"persist", "broadcast"}, order)
		f.tickets.AssertExpectations(t)
		f.comments.AssertExpectations(t)
		f.broadcaster.AssertNumberOfCalls(t, "Broadcast", 1)
	})

	t.Run("unauthenticated caller touches nothing", func(t *testing.T) {
		f := newCommentFixture()

		comment, err := f.svc.CreateComment(ctx, ports.CreateCommentParams{
			TicketID: 42, Content: "hello",
		})

		assert.Nil(t, comment)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		f.tx.AssertNotCalled(t, "WithTransaction", mock.Anything)
		f.comments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.broadcaster.AssertNotCalled(t, "Broadcast", mock.Anything)
	})

	t.Run("blank content is a validation error", func(t *testing.T) {
		f := newCommentFixture()

		comment, err := f.svc.CreateComment(ctx, ports.CreateCommentParams{
			TicketID: 42, AuthorID: 7, AuthorName: "alice", Content: " \t\n",
		})

		assert.Nil(t, comment)
		assert.ErrorIs(t, err, apperrors.ErrCommentContentRequired)
		f.tickets.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		f.comments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.broadcaster.AssertNotCalled(t, "Broadcast", mock.Anything)
	})

	t.Run("missing ticket is not found and not broadcast", func(t *testing.T) {
		f := newCommentFixture()
		f.tickets.On("GetByID", ctx, int64(999)).Return(nil, apperrors.ErrTicketNotFound)

		comment, err := f.svc.CreateComment(ctx, ports.CreateCommentParams{
			TicketID: 999, AuthorID: 7, AuthorName: "alice", Content: "hello",
		})

		assert.Nil(t, comment)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
		f.comments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.broadcaster.AssertNotCalled(t, "Broadcast", mock.Anything)
	})

	t.Run("store failure is surfaced and not broadcast", func(t *testing.T) {
		f := newCommentFixture()
		dbErr := errors.New("connection reset")
		f.tickets.On("GetByID", ctx, int64(42)).Return(&domain.Ticket{ID: 42}, nil)
		f.comments.On("Create", ctx, mock.Anything).Return(nil, dbErr)

		comment, err := f.svc.CreateComment(ctx, ports.CreateCommentParams{
			TicketID: 42, AuthorID: 7, AuthorName: "alice", Content: "hello",
		})

		assert.Nil(t, comment)
		assert.ErrorIs(t, err, dbErr)
		f.broadcaster.AssertNotCalled(t, "Broadcast", mock.Anything)
	})

	t.Run("broadcast error does not fail the request", func(t *testing.T) {
		f := newCommentFixture()
		f.tickets.On("GetByID", ctx, int64(42)).Return(&domain.Ticket{ID: 42}, nil)
		f.comments.On("Create", ctx, mock.Anything).
			Return(&domain.Comment{ID: 9, TicketID: 42, UserID: 7, Username: "alice", Content: "hello"}, nil)
		f.broadcaster.On("Broadcast", mock.Anything).Return(errors.New("marshal failed"))

		comment, err := f.svc.CreateComment(ctx, ports.CreateCommentParams{
			TicketID: 42, AuthorID: 7, AuthorName: "alice", Content: "hello",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(9), comment.ID)
	})

	t.Run("broadcast panic does not fail the request", func(t *testing.T) {
		f := newCommentFixture()
		f.tickets.On("GetByID", ctx, int64(42)).Return(&domain.Ticket{ID: 42}, nil)
		f.comments.On("Create", ctx, mock.Anything).
			Return(&domain.Comment{ID: 10, TicketID: 42, UserID: 7, Username: "alice", Content: "hello"}, nil)
		f.broadcaster.On("Broadcast", mock.Anything).Run(func(mock.Arguments) {
			panic("boom")
		}).Return(nil)

		comment, err := f.svc.CreateComment(ctx, ports.CreateCommentParams{
			TicketID: 42, AuthorID: 7, AuthorName: "alice", Content: "hello",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(10), comment.ID)
	})
}

func TestCommentService_ListComments(t *testing.T) {
	ctx := context.Background()

	t.Run("returns comments in store order", func(t *testing.T) {
		f := newCommentFixture()
		stored := []*domain.Comment{{ID: 1, TicketID: 5}, {ID: 2, TicketID: 5}}
		f.tickets.On("GetByID", ctx, int64(5)).Return(&domain.Ticket{ID: 5}, nil)
		f.comments.On("ListByTicketID", ctx, int64(5)).Return(stored, nil)

		comments, err := f.svc.ListComments(ctx, 5)

		require.NoError(t, err)
		assert.Equal(t, stored, comments)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		f := newCommentFixture()
		f.tickets.On("GetByID", ctx, int64(6)).Return(nil, apperrors.ErrTicketNotFound)

		_, err := f.svc.ListComments(ctx, 6)

		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
		f.comments.AssertNotCalled(t, "ListByTicketID", mock.Anything, mock.Anything)
	})
}

func TestCommentService_Snapshot_SkipsTicketLookup(t *testing.T) {
	ctx := context.Background()
	f := newCommentFixture()
	f.comments.On("ListByTicketID", ctx, int64(77)).Return([]*domain.Comment{}, nil)

	comments, err := f.svc.Snapshot(ctx, 77)

	require.NoError(t, err)
	assert.Empty(t, comments)
	f.tickets.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}
