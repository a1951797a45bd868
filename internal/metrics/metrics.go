// Package metrics exposes Prometheus instrumentation for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics owns its registry; the status server serves it on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	StoreUpserts   *prometheus.CounterVec
	FeedReconnects *prometheus.CounterVec
	SnapshotErrors prometheus.Counter
	QuoteCycles    prometheus.Counter
	BatchesOK      prometheus.Counter
	BatchesFailed  prometheus.Counter
	TxResults      *prometheus.CounterVec
	SubmitLatency  prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		StoreUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_upserts_total",
			Help: "Entity upserts applied to the state store, by kind.",
		}, []string{"kind"}),
		FeedReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_reconnects_total",
			Help: "Feed client reconnects triggered by the supervisor, by feed.",
		}, []string{"feed"}),
		SnapshotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapshot_pull_errors_total",
			Help: "REST snapshot pulls that failed.",
		}),
		QuoteCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quote_cycles_total",
			Help: "Quoting engine cycles executed.",
		}),
		BatchesOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batch_submissions_total",
			Help: "Batch instructions accepted by the venue.",
		}),
		BatchesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batch_submission_failures_total",
			Help: "Batch instructions that failed to submit.",
		}),
		TxResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_results_total",
			Help: "Transaction confirmation outcomes, by result.",
		}, []string{"result"}),
		SubmitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batch_submission_latency_seconds",
			Help:    "Batch submission latency in seconds.",
			Buckets: prometheus.LinearBuckets(0.01, 0.05, 20),
		}),
	}
	m.registry.MustRegister(
		m.StoreUpserts,
		m.FeedReconnects,
		m.SnapshotErrors,
		m.QuoteCycles,
		m.BatchesOK,
		m.BatchesFailed,
		m.TxResults,
		m.SubmitLatency,
	)
	return m
}

// Registry returns the registry backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
