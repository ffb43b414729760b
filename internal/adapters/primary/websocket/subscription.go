package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
)

// SnapshotSource loads a ticket's comment history, oldest first.
type SnapshotSource interface {
	Snapshot(ctx context.Context, ticketID int64) ([]*domain.Comment, error)
}

// State is the lifecycle stage of one comment stream.
type State int

const (
	StateConnecting State = iota
	StateRegistered
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateRegistered:
		return "REGISTERED"
	case StateStreaming:
		return "STREAMING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Rejection reasons recorded when a stream is closed during the handshake.
const (
	rejectTicketID = "invalid_ticket_id"
	rejectSnapshot = "snapshot_failed"
	rejectShutdown = "shutting_down"
)

// ParseTicketID reads the ticketId query value. It must be a positive integer.
func ParseTicketID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperrors.ErrTicketIDMissing
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ErrTicketIDInvalid
	}
	return id, nil
}

// Serve runs one comment stream on an upgraded connection and returns once
// it has closed.
//
// The connection is registered before the snapshot is read, so a comment
// committed during the handshake is never missed; it may appear both in
// INIT_COMMENTS and as a NEW_COMMENT. The snapshot is written before the
// write pump starts, so it is always the first frame.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, rawTicketID string, userID int64, source SnapshotSource) {
	logger := h.logger.With(
		"remote_addr", conn.RemoteAddr().String(),
		"user_id", userID,
	)

	if h.Closing() {
		h.metrics.StreamRejected(rejectShutdown)
		h.reject(conn, websocket.CloseGoingAway, "server shutting down")
		return
	}

	ticketID, err := ParseTicketID(rawTicketID)
	if err != nil {
		logger.Warn("rejecting comment stream",
			"ticket_id_raw", rawTicketID,
			"error", err,
		)
		h.metrics.StreamRejected(rejectTicketID)
		h.reject(conn, websocket.ClosePolicyViolation, err.Error())
		return
	}

	logger = logger.With("ticket_id", ticketID)
	client := newClient(conn, ticketID, userID, h.cfg, logger)
	state := StateConnecting

	h.Subscribe(ticketID, client)
	state = h.transition(logger, state, StateRegistered)

	defer func() {
		h.Unsubscribe(ticketID, client)
		h.transition(logger, state, StateClosed)
	}()

	comments, err := source.Snapshot(ctx, ticketID)
	if err != nil {
		logger.Error("failed to load comment snapshot", "error", err)
		h.metrics.StreamRejected(rejectSnapshot)
		h.reject(conn, websocket.CloseInternalServerErr, "could not load comments")
		return
	}

	frame, err := json.Marshal(domain.InitCommentsEvent(ticketID, comments))
	if err != nil {
		logger.Error("failed to encode comment snapshot", "error", err)
		h.metrics.StreamRejected(rejectSnapshot)
		h.reject(conn, websocket.CloseInternalServerErr, "could not load comments")
		return
	}
	if err := client.writeFrame(frame); err != nil {
		logger.Debug("failed to write comment snapshot", "error", err)
		_ = conn.Close()
		return
	}

	state = h.transition(logger, state, StateStreaming)
	h.metrics.StreamOpened()

	go client.writePump()
	client.readPump()

	client.Close()
	<-client.stopped
}

func (h *Hub) transition(logger *slog.Logger, from, to State) State {
	logger.Debug("comment stream state", "from", from.String(), "to", to.String())
	return to
}

// reject closes a connection that never reached the streaming state.
func (h *Hub) reject(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(h.cfg.WriteWait)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
	_ = conn.Close()
}
