// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for the relay. Every Metrics owns its registry so
// several relays (and tests) can coexist in one process.

package control

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Close reasons used for ConnectionsClosed.
const (
	CloseReasonEOF       = "eof"
	CloseReasonReadError = "read_error"
	CloseReasonShutdown  = "shutdown"
)

// Metrics holds the relay counters and gauges.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsAccepted prometheus.Counter
	ConnectionsClosed   *prometheus.CounterVec
	ConnectionsOpen     prometheus.Gauge
	MessagesReceived    prometheus.Counter
	BytesReceived       prometheus.Counter
	MessagesForwarded   prometheus.Counter
	MessagesDropped     prometheus.Counter
	ReadErrors          prometheus.Counter
	DatagramsTruncated  prometheus.Counter
	Rearms              prometheus.Counter
	WritableEvents      prometheus.Counter
	PendingMessages     prometheus.Gauge
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logrelay_connections_accepted_total",
			Help: "Connections accepted on stream listeners",
		}),
		ConnectionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logrelay_connections_closed_total",
			Help: "Connections torn down by reason",
		}, []string{"reason"}),
		ConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logrelay_connections_open",
			Help: "Live connections in the slot table",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logrelay_messages_received_total",
			Help: "Payloads enqueued from local reads",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logrelay_bytes_received_total",
			Help: "Bytes enqueued from local reads",
		}),
		MessagesForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logrelay_messages_forwarded_total",
			Help: "Payloads handed to the outbound socket",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logrelay_messages_dropped_total",
			Help: "Payloads dropped because sendto failed",
		}),
		ReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logrelay_read_errors_total",
			Help: "Failed reads on connections and datagram listeners",
		}),
		DatagramsTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logrelay_datagrams_truncated_total",
			Help: "Datagrams larger than the receive buffer, forwarded truncated",
		}),
		Rearms: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logrelay_rearms_total",
			Help: "One-shot write interest re-arm requests",
		}),
		WritableEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logrelay_writable_events_total",
			Help: "Writable notifications delivered for the outbound socket",
		}),
		PendingMessages: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logrelay_pending_messages",
			Help: "Payloads waiting for the next writable notification",
		}),
	}
	m.registry.MustRegister(
		m.ConnectionsAccepted,
		m.ConnectionsClosed,
		m.ConnectionsOpen,
		m.MessagesReceived,
		m.BytesReceived,
		m.MessagesForwarded,
		m.MessagesDropped,
		m.ReadErrors,
		m.DatagramsTruncated,
		m.Rearms,
		m.WritableEvents,
		m.PendingMessages,
	)
	return m
}

// Registry exposes the underlying registry, e.g. for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
