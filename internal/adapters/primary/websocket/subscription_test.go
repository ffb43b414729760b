package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotFunc func(ctx context.Context, ticketID int64) ([]*domain.Comment, error)

func (f snapshotFunc) Snapshot(ctx context.Context, ticketID int64) ([]*domain.Comment, error) {
	return f(ctx, ticketID)
}

type frame struct {
	Type domain.EventType `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newStreamServer(t *testing.T, hub *Hub, source SnapshotSource) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(r.Context(), conn, r.URL.Query().Get("ticketId"), 7, source)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var f frame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func readCloseCode(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		require.True(t, errors.As(err, &closeErr), "expected close frame, got %v", err)
		return closeErr.Code
	}
}

func history(ticketID int64, ids ...int64) []*domain.Comment {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	out := make([]*domain.Comment, 0, len(ids))
	for i, id := range ids {
		out = append(out, &domain.Comment{
			ID:        id,
			TicketID:  ticketID,
			UserID:    3,
			Username:  "tech",
			Content:   "note",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

func TestServe_SnapshotThenLiveComments(t *testing.T) {
	hub := newTestHub()
	srv := newStreamServer(t, hub, snapshotFunc(func(_ context.Context, ticketID int64) ([]*domain.Comment, error) {
		assert.Equal(t, int64(42), ticketID)
		return history(42, 1, 2), nil
	}))

	conn := dial(t, srv, "?ticketId=42")

	initial := readFrame(t, conn)
	assert.Equal(t, domain.EventInitComments, initial.Type)
	var snapshot []domain.CommentSnapshot
	require.NoError(t, json.Unmarshal(initial.Data, &snapshot))
	require.Len(t, snapshot, 2)
	assert.Equal(t, int64(1), snapshot[0].ID)
	assert.Equal(t, int64(2), snapshot[1].ID)

	require.Eventually(t, func() bool { return hub.Registry().CountFor(42) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast(commentEvent(3, 42)))
	next := readFrame(t, conn)
	assert.Equal(t, domain.EventNewComment, next.Type)
	var live domain.CommentSnapshot
	require.NoError(t, json.Unmarshal(next.Data, &live))
	assert.Equal(t, int64(3), live.ID)
}

func TestServe_EmptyHistory(t *testing.T) {
	hub := newTestHub()
	srv := newStreamServer(t, hub, snapshotFunc(func(context.Context, int64) ([]*domain.Comment, error) {
		return nil, nil
	}))

	conn := dial(t, srv, "?ticketId=8")

	initial := readFrame(t, conn)
	assert.Equal(t, domain.EventInitComments, initial.Type)
	assert.JSONEq(t, `[]`, string(initial.Data))
}

func TestServe_CommentDuringHandshakeFollowsSnapshot(t *testing.T) {
	hub := newTestHub()
	started := make(chan struct{})
	release := make(chan struct{})

	srv := newStreamServer(t, hub, snapshotFunc(func(context.Context, int64) ([]*domain.Comment, error) {
		close(started)
		<-release
		return history(42, 1), nil
	}))

	conn := dial(t, srv, "?ticketId=42")

	<-started
	// Already registered while the snapshot is loading.
	require.Equal(t, 1, hub.Registry().CountFor(42))
	require.NoError(t, hub.Broadcast(commentEvent(2, 42)))
	close(release)

	assert.Equal(t, domain.EventInitComments, readFrame(t, conn).Type)
	assert.Equal(t, domain.EventNewComment, readFrame(t, conn).Type)
}

func TestServe_TwoViewersBothReceive(t *testing.T) {
	hub := newTestHub()
	srv := newStreamServer(t, hub, snapshotFunc(func(context.Context, int64) ([]*domain.Comment, error) {
		return nil, nil
	}))

	first := dial(t, srv, "?ticketId=5")
	second := dial(t, srv, "?ticketId=5")
	readFrame(t, first)
	readFrame(t, second)
	require.Eventually(t, func() bool { return hub.Registry().CountFor(5) == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast(commentEvent(11, 5)))

	assert.Equal(t, domain.EventNewComment, readFrame(t, first).Type)
	assert.Equal(t, domain.EventNewComment, readFrame(t, second).Type)
}

func TestServe_ClientCloseUnregisters(t *testing.T) {
	hub := newTestHub()
	srv := newStreamServer(t, hub, snapshotFunc(func(context.Context, int64) ([]*domain.Comment, error) {
		return nil, nil
	}))

	conn := dial(t, srv, "?ticketId=42")
	readFrame(t, conn)
	require.Equal(t, 1, hub.Registry().CountFor(42))

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	_ = conn.Close()

	require.Eventually(t, func() bool { return hub.Registry().CountFor(42) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, hub.Broadcast(commentEvent(1, 42)))
}

func TestServe_RejectsBadTicketID(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing", ""},
		{"empty", "?ticketId="},
		{"not a number", "?ticketId=abc"},
		{"zero", "?ticketId=0"},
		{"negative", "?ticketId=-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := newTestHub()
			var calls atomic.Int32
			srv := newStreamServer(t, hub, snapshotFunc(func(context.Context, int64) ([]*domain.Comment, error) {
				calls.Add(1)
				return nil, nil
			}))

			conn := dial(t, srv, tt.query)

			assert.Equal(t, websocket.ClosePolicyViolation, readCloseCode(t, conn))
			assert.Equal(t, 0, hub.Registry().ConnectionCount())
			assert.Zero(t, calls.Load())
		})
	}
}

func TestServe_SnapshotFailureClosesStream(t *testing.T) {
	hub := newTestHub()
	srv := newStreamServer(t, hub, snapshotFunc(func(context.Context, int64) ([]*domain.Comment, error) {
		return nil, errors.New("db down")
	}))

	conn := dial(t, srv, "?ticketId=42")

	assert.Equal(t, websocket.CloseInternalServerErr, readCloseCode(t, conn))
	require.Eventually(t, func() bool { return hub.Registry().ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestServe_ShutdownClosesStreams(t *testing.T) {
	hub := newTestHub()
	srv := newStreamServer(t, hub, snapshotFunc(func(context.Context, int64) ([]*domain.Comment, error) {
		return nil, nil
	}))

	conn := dial(t, srv, "?ticketId=42")
	readFrame(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))

	assert.Equal(t, websocket.CloseGoingAway, readCloseCode(t, conn))
	assert.Equal(t, 0, hub.Registry().ConnectionCount())

	late := dial(t, srv, "?ticketId=42")
	assert.Equal(t, websocket.CloseGoingAway, readCloseCode(t, late))
}

func TestParseTicketID(t *testing.T) {
	id, err := ParseTicketID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ParseTicketID("")
	assert.ErrorIs(t, err, apperrors.ErrTicketIDMissing)

	_, err = ParseTicketID("4.2")
	assert.ErrorIs(t, err, apperrors.ErrTicketIDInvalid)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "CONNECTING", StateConnecting.String())
	assert.Equal(t, "REGISTERED", StateRegistered.String())
	assert.Equal(t, "STREAMING", StateStreaming.String())
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}
