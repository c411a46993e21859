package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a bus host.
type Metrics struct {
	// HTTP metrics (debug API)
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Transfer metrics
	TransfersTotal   *prometheus.CounterVec
	TransferBytes    prometheus.Histogram
	TransferDuration prometheus.Histogram

	// Allocator metrics
	AllocFailures prometheus.Counter

	// Connection metrics
	ConnectionsActive prometheus.Gauge
	MessagesQueued    prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector registered on reg. A nil
// registerer uses a fresh registry, which keeps repeated construction
// in tests from colliding on metric names.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "membus_http_requests_total",
				Help: "Total number of debug API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "membus_http_request_duration_seconds",
				Help:    "Debug API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),

		TransfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "membus_transfers_total",
				Help: "Total number of cross-space transfers by outcome",
			},
			[]string{"status"},
		),
		TransferBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "membus_transfer_bytes",
				Help:    "Transfer payload size in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 10),
			},
		),
		TransferDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "membus_transfer_duration_seconds",
				Help:    "Transfer duration in seconds",
				Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
			},
		),

		AllocFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "membus_slot_alloc_failures_total",
				Help: "Slot allocations rejected for lack of buffer space",
			},
		),

		ConnectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "membus_connections_active",
				Help: "Connections currently registered with the host",
			},
		),
		MessagesQueued: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "membus_messages_queued",
				Help: "Delivered messages not yet consumed by receivers",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "membus_uptime_seconds",
				Help: "Host uptime in seconds",
			},
		),
	}
}

// RecordTransfer records one composed transfer.
func (m *Metrics) RecordTransfer(status string, bytes uint64, duration time.Duration) {
	m.TransfersTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		m.TransferBytes.Observe(float64(bytes))
	}
	m.TransferDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records one debug API request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
