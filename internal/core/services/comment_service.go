package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
	"github.com/lorrc/repair-desk-backend/internal/core/ports"
)

// CommentService implements the business logic for comments and bridges
// comment creation into the realtime stream.
type CommentService struct {
	commentRepo ports.CommentRepository
	ticketRepo  ports.TicketRepository
	txManager   ports.TransactionManager
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger
}

// Ensure implementation matches the interface.
var _ ports.CommentService = (*CommentService)(nil)

// NewCommentService creates a new service for comment logic.
func NewCommentService(
	commentRepo ports.CommentRepository,
	ticketRepo ports.TicketRepository,
	txManager ports.TransactionManager,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) ports.CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		ticketRepo:  ticketRepo,
		txManager:   txManager,
		broadcaster: broadcaster,
		logger:      logger.With("component", "comment_service"),
	}
}

// CreateComment validates and persists a comment, then pushes it to every
// subscriber of the ticket. The broadcast only runs after the transaction
// has committed; its failures are logged and never returned.
func (s *CommentService) CreateComment(ctx context.Context, params ports.CreateCommentParams) (*domain.Comment, error) {
	// 1. The caller must be identified before anything else happens.
	if params.AuthorID <= 0 {
		return nil, apperrors.ErrUnauthorized
	}

	if params.TicketID <= 0 {
		return nil, apperrors.ErrTicketNotFound
	}

	// 2. Validate the body before touching storage.
	comment, err := domain.NewComment(domain.CommentParams{
		TicketID: params.TicketID,
		UserID:   params.AuthorID,
		Username: params.AuthorName,
		Content:  params.Content,
	})
	if err != nil {
		return nil, err
	}

	// 3. Ticket lookup and insert commit together.
	var created *domain.Comment
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.ticketRepo.GetByID(ctx, comment.TicketID); err != nil {
			return err
		}

		created, err = s.commentRepo.Create(ctx, comment)
		if err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 4. Fan out to live viewers.
	s.publish(domain.NewCommentEvent(created))

	return created, nil
}

// ListComments returns the ticket's comments oldest first.
func (s *CommentService) ListComments(ctx context.Context, ticketID int64) ([]*domain.Comment, error) {
	if ticketID <= 0 {
		return nil, apperrors.ErrTicketNotFound
	}
	if _, err := s.ticketRepo.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByTicketID(ctx, ticketID)
}

// Snapshot returns the ticket's comments oldest first without checking the
// ticket exists; an unknown ticket yields an empty slice.
func (s *CommentService) Snapshot(ctx context.Context, ticketID int64) ([]*domain.Comment, error) {
	return s.commentRepo.ListByTicketID(ctx, ticketID)
}

// publish hands the event to the broadcaster. The comment is already
// committed, so nothing here may fail the request.
func (s *CommentService) publish(event domain.Event) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("broadcast panicked",
				"event_type", event.Type,
				"ticket_id", event.TicketID,
				"panic", p,
			)
		}
	}()

	if err := s.broadcaster.Broadcast(event); err != nil {
		s.logger.Error("broadcast failed",
			"event_type", event.Type,
			"ticket_id", event.TicketID,
			"error", err,
		)
	}
}
