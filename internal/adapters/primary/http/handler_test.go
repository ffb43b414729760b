package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	mw "github.com/lorrc/repair-desk-backend/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/lorrc/repair-desk-backend/internal/adapters/primary/websocket"
	"github.com/lorrc/repair-desk-backend/internal/adapters/secondary/memory"
	"github.com/lorrc/repair-desk-backend/internal/auth"
	"github.com/lorrc/repair-desk-backend/internal/config"
	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	"github.com/lorrc/repair-desk-backend/internal/core/services"
)

// testAPI is the REST and stream surface wired over the in-memory store.
type testAPI struct {
	router *chi.Mux
	store  *memory.Store
	hub    *wsAdapter.Hub
	tm     *auth.TokenManager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	hub := wsAdapter.NewHub(wsAdapter.DefaultHubConfig(), logger, nil)
	tm := auth.NewTokenManager("test-secret", time.Hour)
	cfg := &config.Config{
		WebSocket: config.WebSocketConfig{RequireAuth: true},
		App:       config.AppConfig{Environment: "development"},
	}

	authService := services.NewAuthService(store.Users())
	ticketService := services.NewTicketService(store.Tickets())
	commentService := services.NewCommentService(store.Comments(), store.Tickets(), store.TxManager(), hub, logger)

	errorHandler := NewErrorHandler(logger)
	commentHandler := NewCommentHandler(commentService, errorHandler, nil, logger)
	ticketHandler := NewTicketHandler(ticketService, commentHandler, errorHandler, logger)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	NewHealthHandler(store, hub.Registry(), "test").RegisterRoutes(r)
	r.Get("/ws", NewWebSocketHandler(hub, commentService, tm, cfg, logger).ServeHTTP)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", NewAuthHandler(authService, tm, errorHandler, logger).RegisterRoutes)
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tm))
			r.Route("/me", NewMeHandler(store.Users(), errorHandler, logger).RegisterRoutes)
			r.Route("/tickets", ticketHandler.RegisterRoutes)
			r.Get("/realtime/stats", NewRealtimeHandler(hub).HandleStats)
		})
	})

	return &testAPI{router: r, store: store, hub: hub, tm: tm}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns its token.
func (a *testAPI) register(t *testing.T, username string) TokenResponse {
	t.Helper()
	rec := a.do(t, stdhttp.MethodPost, "/api/v1/auth/register", "", CredentialsRequest{
		Username: username,
		Password: "Password1",
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())

	var resp TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func (a *testAPI) createTicket(t *testing.T, token string) domain.TicketSnapshot {
	t.Helper()
	rec := a.do(t, stdhttp.MethodPost, "/api/v1/tickets", token, CreateTicketRequest{
		Title:       "Cracked screen",
		Description: "Left corner",
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())

	var ticket domain.TicketSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ticket))
	return ticket
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}
