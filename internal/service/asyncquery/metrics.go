package asyncquery

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transaction and sweep outcomes.
const (
	outcomeCommitted  = "committed"
	outcomeRolledBack = "rolled_back"
	outcomePanic      = "panic"
	outcomeSuccess    = "success"
	outcomeError      = "error"
)

// Metrics holds the Prometheus collectors for the lifecycle manager and the
// cleaner. A nil *Metrics records nothing.
type Metrics struct {
	transactions  *prometheus.CounterVec
	txDuration    *prometheus.HistogramVec
	statusUpdates *prometheus.CounterVec
	deleted       prometheus.Counter
	results       prometheus.Counter
	sweeps        *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		transactions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "asyncq_transactions_total",
			Help: "Store transactions run by the lifecycle manager, by operation and outcome",
		}, []string{"op", "outcome"}),
		txDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asyncq_transaction_duration_seconds",
			Help:    "Duration of lifecycle manager transactions",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		statusUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "asyncq_status_updates_total",
			Help: "Async query records moved to a status",
		}, []string{"status"}),
		deleted: f.NewCounter(prometheus.CounterOpts{
			Name: "asyncq_records_deleted_total",
			Help: "Async query records deleted together with their results",
		}),
		results: f.NewCounter(prometheus.CounterOpts{
			Name: "asyncq_results_created_total",
			Help: "Async query results created",
		}),
		sweeps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "asyncq_sweeps_total",
			Help: "Cleaner sweeps run, by sweep and outcome",
		}, []string{"sweep", "outcome"}),
	}
}

func (m *Metrics) observeTransaction(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(op, outcome).Inc()
	m.txDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) statusUpdated(status string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.statusUpdates.WithLabelValues(status).Add(float64(n))
}

func (m *Metrics) recordsDeleted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.deleted.Add(float64(n))
}

func (m *Metrics) resultCreated() {
	if m == nil {
		return
	}
	m.results.Inc()
}

func (m *Metrics) sweepDone(sweep string, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	m.sweeps.WithLabelValues(sweep, outcome).Inc()
}
