package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/repair-desk-backend/internal/config"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg := config.FromEnv()
	require.NoError(t, cfg.Validate())

	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a
}

func TestApp_Routes(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodGet, "/health/ready", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/v1/me", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/realtime/stats", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/tickets/1/comments", `{"content":"hi"}`, http.StatusUnauthorized},
		{http.MethodGet, "/ws?ticketId=1", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/auth/register", `{"username":"alice","password":"Password1"}`, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			rec := httptest.NewRecorder()
			a.router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, body))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestApp_MetricsExposeRealtimeCollectors(t *testing.T) {
	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "repair_desk_realtime_connections")
}

func TestApp_CORSPreflight(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tickets", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestApp_HubShutdownWithNoStreams(t *testing.T) {
	a := newTestApp(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, a.hub.Shutdown(ctx))
	assert.True(t, a.hub.Closing())
}
