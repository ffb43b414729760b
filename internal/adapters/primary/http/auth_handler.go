package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/repair-desk-backend/internal/adapters/primary/validation"
	"github.com/lorrc/repair-desk-backend/internal/auth"
	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	"github.com/lorrc/repair-desk-backend/internal/core/ports"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	authService  ports.AuthService
	tokenManager *auth.TokenManager
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService ports.AuthService,
	tokenManager *auth.TokenManager,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenManager: tokenManager,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "auth"),
	}
}

// RegisterRoutes registers the /auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
}

// CredentialsRequest is the body for both register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates the credentials request
func (r *CredentialsRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("username", r.Username).
		MaxLength("username", r.Username, domain.MaxUsernameLength)
	v.Required("password", r.Password)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UserDTO is the public view of a user.
type UserDTO struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	Token     string  `json:"token"`
	TokenType string  `json:"tokenType"`
	ExpiresIn int64   `json:"expiresIn"`
	User      UserDTO `json:"user"`
}

func toUserDTO(user *domain.User) UserDTO {
	dto := UserDTO{ID: user.ID, Username: user.Username}
	if !user.CreatedAt.IsZero() {
		dto.CreatedAt = user.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

// HandleRegister handles POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := h.authService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user registered", "user_id", user.ID)

	h.writeToken(w, r, http.StatusCreated, user)
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.writeToken(w, r, http.StatusOK, user)
}

func (h *AuthHandler) decodeCredentials(w http.ResponseWriter, r *http.Request) (*CredentialsRequest, bool) {
	req, err := validation.DecodeAndValidate[CredentialsRequest](w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return nil, false
	}
	return req, true
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, r *http.Request, status int, user *domain.User) {
	token, err := h.tokenManager.GenerateToken(user.ID, user.Username)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, status, TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.tokenManager.TTL().Seconds()),
		User:      toUserDTO(user),
	})
}
