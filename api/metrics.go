package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the REST server's Prometheus instruments.
type Metrics struct {
	Requests  *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Submitted prometheus.Counter
}

// NewMetrics creates the server metrics and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "example_l2", Subsystem: "api", Name: "requests_total",
			Help: "REST requests by route and status code.",
		}, []string{"route", "code"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "example_l2", Subsystem: "api", Name: "request_duration_seconds",
			Help:    "REST request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Submitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "example_l2", Subsystem: "api", Name: "transactions_forwarded_total",
			Help: "Transactions forwarded to the sequencer.",
		}),
	}
}
