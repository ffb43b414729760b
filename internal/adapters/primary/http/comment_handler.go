package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/repair-desk-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/repair-desk-backend/internal/adapters/primary/validation"
	"github.com/lorrc/repair-desk-backend/internal/auth"
	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	"github.com/lorrc/repair-desk-backend/internal/core/ports"
)

// CommentHandler handles HTTP requests for comments.
type CommentHandler struct {
	commentService ports.CommentService
	errorHandler   *ErrorHandler
	createLimiter  func(http.Handler) http.Handler
	logger         *slog.Logger
}

// NewCommentHandler creates a new CommentHandler. createLimiter wraps the
// create endpoint and may be nil.
func NewCommentHandler(
	commentService ports.CommentService,
	errorHandler *ErrorHandler,
	createLimiter func(http.Handler) http.Handler,
	logger *slog.Logger,
) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		errorHandler:   errorHandler,
		createLimiter:  createLimiter,
		logger:         logger.With("handler", "comment"),
	}
}

// Router sets up a new chi Router for comment routes.
func (h *CommentHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the comment-specific endpoints.
// These routes are relative to /api/v1/tickets/{ticketID}/comments
func (h *CommentHandler) RegisterRoutes(r chi.Router) {
	if h.createLimiter != nil {
		r.With(h.createLimiter).Post("/", h.HandleCreateComment)
	} else {
		r.Post("/", h.HandleCreateComment)
	}
	r.Get("/", h.HandleListComments)
}

// --- Request DTOs ---

// CreateCommentRequest defines the expected JSON body for creating a comment
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// Validate validates the create comment request
func (r *CreateCommentRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("content", r.Content).
		MaxLength("content", r.Content, domain.MaxCommentContentLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// --- Handlers ---

// HandleCreateComment stores a comment and returns it. Live subscribers of
// the ticket receive it through the service's broadcaster.
func (h *CommentHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := validation.ParseID("ticketID", chi.URLParam(r, "ticketID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[CreateCommentRequest](w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	comment, err := h.commentService.CreateComment(r.Context(), ports.CreateCommentParams{
		TicketID:   ticketID,
		AuthorID:   claims.UserID,
		AuthorName: claims.Username,
		Content:    req.Content,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "comment created",
		"comment_id", comment.ID,
		"ticket_id", ticketID,
	)

	WriteCreated(w, domain.NewCommentSnapshot(comment))
}

// HandleListComments returns a ticket's comments oldest first.
func (h *CommentHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireClaims(w, r); !ok {
		return
	}

	ticketID, err := validation.ParseID("ticketID", chi.URLParam(r, "ticketID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	comments, err := h.commentService.ListComments(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, domain.NewCommentSnapshots(comments))
}

// requireClaims extracts user claims from the request context, writing a
// 401 when they are absent.
func requireClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}
