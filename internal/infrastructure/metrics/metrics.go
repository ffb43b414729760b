package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "repair_desk"

// Delivery outcomes recorded per subscriber send.
const (
	DeliveryOK      = "ok"
	DeliveryDropped = "dropped"
	DeliveryClosed  = "closed"
)

// Realtime holds the collectors for the comment stream. A nil *Realtime is
// valid and records nothing.
type Realtime struct {
	registry *prometheus.Registry

	activeConnections prometheus.Gauge
	activeTickets     prometheus.Gauge
	streamsOpened     prometheus.Counter
	rejected          *prometheus.CounterVec
	events            *prometheus.CounterVec
	deliveries        *prometheus.CounterVec
	broadcastFanout   prometheus.Histogram
}

// NewRealtime registers the stream collectors, plus the Go and process
// collectors, on a fresh registry.
func NewRealtime() *Realtime {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Realtime{
		registry: reg,
		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Registered comment stream connections.",
		}),
		activeTickets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "tickets",
			Help:      "Tickets with at least one live viewer.",
		}),
		streamsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "streams_opened_total",
			Help:      "Streams that reached the snapshot stage.",
		}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "streams_rejected_total",
			Help:      "Streams closed during the handshake, by reason.",
		}, []string{"reason"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Events handed to the broadcaster, by type.",
		}, []string{"type"}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "deliveries_total",
			Help:      "Per-subscriber sends, by outcome.",
		}, []string{"result"}),
		broadcastFanout: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "broadcast_fanout",
			Help:      "Subscribers targeted per broadcast.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
	}
}

// SetActive records the current registry size.
func (m *Realtime) SetActive(tickets, connections int) {
	if m == nil {
		return
	}
	m.activeTickets.Set(float64(tickets))
	m.activeConnections.Set(float64(connections))
}

func (m *Realtime) StreamOpened() {
	if m == nil {
		return
	}
	m.streamsOpened.Inc()
}

func (m *Realtime) StreamRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// Broadcast records one event and the number of subscribers it targeted.
func (m *Realtime) Broadcast(eventType string, fanout int) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
	m.broadcastFanout.Observe(float64(fanout))
}

func (m *Realtime) Delivery(result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Realtime) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Realtime) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
