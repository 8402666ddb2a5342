// Package metrics provides Prometheus metrics for the bus and lifecycle layers.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the collectors shared by every worker process.
type Metrics struct {
	MessagesPublished *prometheus.CounterVec
	MessagesConsumed  *prometheus.CounterVec
	MessagesAcked     *prometheus.CounterVec
	MessagesNacked    *prometheus.CounterVec
	HandlerDuration   *prometheus.HistogramVec
	InFlight          prometheus.Gauge
	RequestsReplayed  *prometheus.CounterVec
}

// New creates a Metrics instance registered against the default registerer.
func New(service string) *Metrics {
	return NewWithRegistry(service, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against a custom registerer.
func NewWithRegistry(service string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bus_messages_published_total",
				Help: "Total number of messages published.",
			},
			[]string{"service", "message_type", "destination"},
		),
		MessagesConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bus_messages_consumed_total",
				Help: "Total number of messages delivered to a handler.",
			},
			[]string{"service", "message_type"},
		),
		MessagesAcked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bus_messages_acked_total",
				Help: "Total number of messages acknowledged.",
			},
			[]string{"service", "message_type"},
		),
		MessagesNacked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bus_messages_nacked_total",
				Help: "Total number of messages nacked, labeled by requeue decision.",
			},
			[]string{"service", "message_type", "requeue"},
		),
		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bus_handler_duration_seconds",
				Help:    "Duration of processor handler execution.",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"service", "message_type"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bus_handlers_in_flight",
				Help: "Current number of handlers executing concurrently.",
			},
		),
		RequestsReplayed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requests_replayed_total",
				Help: "Total number of requests republished by the replay controller.",
			},
			[]string{"service"},
		),
	}

	registerer.MustRegister(
		m.MessagesPublished,
		m.MessagesConsumed,
		m.MessagesAcked,
		m.MessagesNacked,
		m.HandlerDuration,
		m.InFlight,
		m.RequestsReplayed,
	)

	return m
}
