package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "example_l2"

// Metrics are the executor's Prometheus instruments.
type Metrics struct {
	BlocksExecuted   prometheus.Counter
	BlocksSkipped    prometheus.Counter
	BatchesSubmitted prometheus.Counter
	BatchesAbandoned prometheus.Counter
	SubmitFailures   prometheus.Counter
	SnapshotsDropped prometheus.Counter
	VerifiedHeight   prometheus.Gauge
	Phase            prometheus.Gauge
	BlockDuration    prometheus.Histogram
}

// NewMetrics creates the executor metrics and registers them with reg. A
// nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BlocksExecuted: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "executor", Name: "blocks_executed_total",
			Help: "Sequenced blocks applied to the ledger.",
		}),
		BlocksSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "executor", Name: "blocks_skipped_total",
			Help: "Sequenced blocks skipped for lack of a namespace proof.",
		}),
		BatchesSubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "executor", Name: "batches_submitted_total",
			Help: "Batch proofs accepted by the settlement contract.",
		}),
		BatchesAbandoned: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "executor", Name: "batches_abandoned_total",
			Help: "Batch proofs given up on as stale or after the attempt limit.",
		}),
		SubmitFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "executor", Name: "submit_failures_total",
			Help: "Failed batch proof submission attempts.",
		}),
		SnapshotsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "executor", Name: "snapshots_dropped_total",
			Help: "Ledger snapshots a subscriber missed because its channel was full.",
		}),
		VerifiedHeight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "executor", Name: "verified_height",
			Help: "Last sequenced block covered by an accepted batch proof.",
		}),
		Phase: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "executor", Name: "phase",
			Help: "Current executor phase (0 waiting, 1 fetching, 2 applying, 3 aggregating, 4 submitting).",
		}),
		BlockDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "executor", Name: "block_duration_seconds",
			Help:    "Time to verify and apply one block.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
}
