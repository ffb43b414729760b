package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	mw "github.com/lorrc/repair-desk-backend/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/lorrc/repair-desk-backend/internal/adapters/primary/websocket"
	"github.com/lorrc/repair-desk-backend/internal/auth"
	"github.com/lorrc/repair-desk-backend/internal/config"
)

// WebSocketHandler upgrades comment stream requests and hands them to the hub.
type WebSocketHandler struct {
	hub         *wsAdapter.Hub
	source      wsAdapter.SnapshotSource
	tm          *auth.TokenManager
	requireAuth bool
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *wsAdapter.Hub,
	source wsAdapter.SnapshotSource,
	tm *auth.TokenManager,
	cfg *config.Config,
	logger *slog.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		hub:         hub,
		source:      source,
		tm:          tm,
		requireAuth: cfg.WebSocket.RequireAuth,
		logger:      logger.With("handler", "websocket"),
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg),
	}

	return handler
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *WebSocketHandler) makeOriginChecker(cfg *config.Config) func(r *http.Request) bool {
	allowedOrigins := cfg.WebSocket.AllowedOrigins
	development := cfg.IsDevelopment()

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// In development mode, allow all origins (but log a warning)
		if development {
			if origin != "" {
				h.logger.Debug("allowing websocket origin in development mode",
					"origin", origin,
					"remote_addr", r.RemoteAddr,
				)
			}
			return true
		}

		// No origin header (same-origin request or non-browser client)
		if origin == "" {
			return true
		}

		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			h.logger.Warn("failed to parse websocket origin",
				"origin", origin,
				"error", err,
			)
			return false
		}

		if originAllowed(parsedOrigin.Host, allowedOrigins) {
			return true
		}

		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
			"allowed_origins", allowedOrigins,
		)
		return false
	}
}

// originAllowed matches host against exact entries and "*.example.com"
// wildcard entries. A wildcard also matches the bare domain.
func originAllowed(host string, allowed []string) bool {
	for _, entry := range allowed {
		if strings.HasPrefix(entry, "*.") {
			if strings.HasSuffix(host, entry[1:]) || host == entry[2:] {
				return true
			}
		} else if host == entry {
			return true
		}
	}
	return false
}

// ServeHTTP handles GET /ws?ticketId=<id>&token=<jwt>. Authentication is
// checked before the upgrade; the ticket id is checked by the hub after it,
// so a bad id is reported as a close frame.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var userID int64
	if h.requireAuth {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			h.logger.WarnContext(ctx, "websocket connection rejected: missing token",
				"remote_addr", r.RemoteAddr,
			)
			WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error: "Missing authentication token",
				Code:  "UNAUTHORIZED",
			})
			return
		}

		claims, err := h.tm.ValidateToken(tokenString)
		if err != nil {
			h.logger.WarnContext(ctx, "websocket connection rejected: invalid token",
				"remote_addr", r.RemoteAddr,
				"error", err,
			)
			WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error: "Invalid or expired token",
				Code:  "UNAUTHORIZED",
			})
			return
		}
		userID = claims.UserID
		ctx = mw.ContextWithClaims(ctx, claims)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		h.logger.WarnContext(ctx, "failed to upgrade websocket connection", "error", err)
		return
	}

	h.hub.Serve(ctx, conn, r.URL.Query().Get("ticketId"), userID, h.source)
}

// RealtimeHandler exposes live stream statistics.
type RealtimeHandler struct {
	hub *wsAdapter.Hub
}

// NewRealtimeHandler creates a new RealtimeHandler.
func NewRealtimeHandler(hub *wsAdapter.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// HandleStats handles GET /realtime/stats
func (h *RealtimeHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.hub.Stats())
}
