package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledger"

// Metrics holds ledger and store collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Business Metrics
	TransactionsRecorded *prometheus.CounterVec
	BatchesRecorded      prometheus.Counter
	LedgerResets         prometheus.Counter
	BalanceQueries       *prometheus.CounterVec

	// Store Metrics
	StoreQueryDuration *prometheus.HistogramVec
	StoreQueriesTotal  *prometheus.CounterVec
	StoreRetries       *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransactionsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_recorded_total",
				Help:      "Total number of transactions written to the ledger",
			},
			[]string{"transaction_type"},
		),
		BatchesRecorded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_recorded_total",
				Help:      "Total number of committed insert batches",
			},
		),
		LedgerResets: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resets_total",
				Help:      "Total number of full ledger clears",
			},
		),
		BalanceQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "balance_queries_total",
				Help:      "Total number of balance derivations",
			},
			[]string{"status"},
		),

		StoreQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_query_duration_seconds",
				Help:      "Duration of store operations in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		),
		StoreQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_queries_total",
				Help:      "Total number of store operations",
			},
			[]string{"operation", "status"},
		),
		StoreRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_retries_total",
				Help:      "Total number of retried store operations after transient conflicts",
			},
			[]string{"operation"},
		),
	}
}

// RegisterDBStats exposes connection pool statistics (open, in use, idle, waits).
func RegisterDBStats(reg prometheus.Registerer, db *sql.DB, dbName string) error {
	return reg.Register(collectors.NewDBStatsCollector(db, dbName))
}

// --- Recording Methods ---

func (m *Metrics) RecordTransactionsRecorded(txType string, count int) {
	if m == nil {
		return
	}
	m.TransactionsRecorded.WithLabelValues(txType).Add(float64(count))
}

func (m *Metrics) RecordBatch() {
	if m == nil {
		return
	}
	m.BatchesRecorded.Inc()
}

func (m *Metrics) RecordLedgerReset() {
	if m == nil {
		return
	}
	m.LedgerResets.Inc()
}

func (m *Metrics) RecordBalanceQuery(status string) {
	if m == nil {
		return
	}
	m.BalanceQueries.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordStoreQuery(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StoreQueriesTotal.WithLabelValues(operation, status).Inc()
	m.StoreQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordStoreRetry(operation string) {
	if m == nil {
		return
	}
	m.StoreRetries.WithLabelValues(operation).Inc()
}
