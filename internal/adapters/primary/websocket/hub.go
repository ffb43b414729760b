package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	"github.com/lorrc/repair-desk-backend/internal/core/ports"
	"github.com/lorrc/repair-desk-backend/internal/infrastructure/metrics"
)

// HubConfig holds the per-connection transport settings.
type HubConfig struct {
	// SendBuffer is the number of frames queued per client before it is
	// considered too slow and dropped.
	SendBuffer int

	// WriteWait bounds every write to the peer.
	WriteWait time.Duration

	// PongWait is how long the read side waits for the next pong.
	PongWait time.Duration

	// PingPeriod must be less than PongWait.
	PingPeriod time.Duration

	// MaxMessageSize caps frames read from the peer.
	MaxMessageSize int64
}

// DefaultHubConfig returns the settings used when none are configured.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SendBuffer:     256,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 1024,
	}
}

func (c HubConfig) withDefaults() HubConfig {
	d := DefaultHubConfig()
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = (c.PongWait * 9) / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	return c
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Tickets     int `json:"tickets"`
	Connections int `json:"connections"`
}

// Hub fans ticket events out to every connection registered for the ticket.
type Hub struct {
	registry *Registry
	cfg      HubConfig
	metrics  *metrics.Realtime
	logger   *slog.Logger
	closing  atomic.Bool
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a hub with an empty registry. m may be nil.
func NewHub(cfg HubConfig, logger *slog.Logger, m *metrics.Realtime) *Hub {
	return &Hub{
		registry: NewRegistry(),
		cfg:      cfg.withDefaults(),
		metrics:  m,
		logger:   logger.With("component", "websocket_hub"),
	}
}

// Registry returns the hub's connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Stats reports how many tickets and connections are live.
func (h *Hub) Stats() Stats {
	return Stats{
		Tickets:     h.registry.TicketCount(),
		Connections: h.registry.ConnectionCount(),
	}
}

// Subscribe registers sub for the ticket's events.
func (h *Hub) Subscribe(ticketID int64, sub Subscriber) {
	h.registry.Register(ticketID, sub)
	h.recordActive()
}

// Unsubscribe removes sub from the ticket. Safe to call more than once.
func (h *Hub) Unsubscribe(ticketID int64, sub Subscriber) {
	h.registry.Unregister(ticketID, sub)
	h.recordActive()
}

// Broadcast serialises the event once and hands the frame to every
// subscriber of event.TicketID. Delivery failures are logged and skipped;
// only a serialisation failure is returned.
func (h *Hub) Broadcast(event domain.Event) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	subs := h.registry.ConnectionsFor(event.TicketID)
	h.metrics.Broadcast(string(event.Type), len(subs))

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"ticket_id", event.TicketID,
		"client_count", len(subs),
	)

	for _, sub := range subs {
		h.deliver(event, sub, frame)
	}
	return nil
}

func (h *Hub) deliver(event domain.Event, sub Subscriber, frame []byte) {
	defer func() {
		if p := recover(); p != nil {
			h.metrics.Delivery(metrics.DeliveryClosed)
			h.logger.Error("subscriber send panicked",
				"ticket_id", event.TicketID,
				"panic", p,
			)
		}
	}()

	err := sub.Send(frame)
	switch {
	case err == nil:
		h.metrics.Delivery(metrics.DeliveryOK)
	case errors.Is(err, ErrSendBufferFull):
		// The connection's own teardown unregisters it.
		h.metrics.Delivery(metrics.DeliveryDropped)
		h.logger.Warn("client send buffer full, closing",
			"ticket_id", event.TicketID,
			"event_type", event.Type,
		)
		sub.Close()
	default:
		h.metrics.Delivery(metrics.DeliveryClosed)
		h.logger.Debug("skipping closed client",
			"ticket_id", event.TicketID,
			"error", err,
		)
	}
}

// Shutdown closes every registered connection and waits for them to
// unregister, or for ctx to end. New streams are refused from the first call.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.closing.Store(true)

	for _, subs := range h.registry.All() {
		for _, sub := range subs {
			sub.Close()
		}
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		if h.registry.ConnectionCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			h.logger.Warn("hub shutdown timed out",
				"remaining_connections", h.registry.ConnectionCount(),
			)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Closing reports whether Shutdown has been called.
func (h *Hub) Closing() bool {
	return h.closing.Load()
}

func (h *Hub) recordActive() {
	h.metrics.SetActive(h.registry.TicketCount(), h.registry.ConnectionCount())
}
