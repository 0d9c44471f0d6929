// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Listener metrics
	BlocksProcessed    prometheus.Counter
	SlotsSkipped       prometheus.Counter
	SlotErrors         *prometheus.CounterVec
	CurrentSlot        prometheus.Gauge
	TipSlot            prometheus.Gauge
	BlockProcessingLag prometheus.Histogram

	// Classifier metrics
	TransactionsMatched prometheus.Counter
	RayLogsDecoded      prometheus.Counter
	TradesClassified    *prometheus.CounterVec
	TradesSkipped       *prometheus.CounterVec
	TradesStored        prometheus.Counter
	PoolsCreated        prometheus.Counter
	BatchFailures       prometheus.Counter

	// Oracle metrics
	SOLPriceUSD       prometheus.Gauge
	OracleFetchErrors prometheus.Counter

	// Auto-sell metrics
	AutoSellEntries  prometheus.Gauge
	InFlightSells    prometheus.Gauge
	SellsTriggered   *prometheus.CounterVec
	SellsCompleted   *prometheus.CounterVec
	PriceFetchErrors prometheus.Counter

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
	HTTPLatency    *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg registers on the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "raydium_engine"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		BlocksProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "blocks_processed_total",
			Help:      "Total number of blocks fetched and classified",
		}),
		SlotsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "slots_skipped_total",
			Help:      "Total number of slots reported as skipped by the RPC node",
		}),
		SlotErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "slot_errors_total",
			Help:      "Total number of slot fetch errors by kind",
		}, []string{"kind"}),
		CurrentSlot: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "current_slot",
			Help:      "Slot the listener is currently processing",
		}),
		TipSlot: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "tip_slot",
			Help:      "Latest slot announced by slotSubscribe",
		}),
		BlockProcessingLag: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "block_processing_seconds",
			Help:      "Time spent fetching and classifying one block",
			Buckets:   prometheus.DefBuckets,
		}),

		TransactionsMatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "transactions_matched_total",
			Help:      "Total number of successful transactions carrying Raydium ray_log lines",
		}),
		RayLogsDecoded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "ray_logs_decoded_total",
			Help:      "Total number of ray_log payloads decoded",
		}),
		TradesClassified: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "trades_classified_total",
			Help:      "Total number of trades classified by transaction type",
		}, []string{"type"}),
		TradesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "trades_skipped_total",
			Help:      "Total number of ray_log events dropped by reason",
		}, []string{"reason"}),
		TradesStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "trades_stored_total",
			Help:      "Total number of trades written to storage",
		}),
		PoolsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "pools_created_total",
			Help:      "Total number of pool creation records written",
		}),
		BatchFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "batch_failures_total",
			Help:      "Total number of per-block batch inserts that failed",
		}),

		SOLPriceUSD: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "sol_price_usd",
			Help:      "Last fetched SOL price in USD",
		}),
		OracleFetchErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed SOL price refreshes",
		}),

		AutoSellEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "autosell",
			Name:      "entries",
			Help:      "Number of cached auto-sell entries",
		}),
		InFlightSells: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "autosell",
			Name:      "in_flight_sells",
			Help:      "Number of sell orders currently executing",
		}),
		SellsTriggered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autosell",
			Name:      "sells_triggered_total",
			Help:      "Total number of sell orders emitted by trigger",
		}, []string{"trigger"}),
		SellsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autosell",
			Name:      "sells_completed_total",
			Help:      "Total number of sell orders finished by status",
		}, []string{"status"}),
		PriceFetchErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autosell",
			Name:      "price_fetch_errors_total",
			Help:      "Total number of failed token price polls",
		}),

		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_latency_seconds",
			Help:      "Outbound HTTP API latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"api"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a /metrics handler serving the given gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveRPC records RPC call latency. Safe on a nil receiver.
func (m *Metrics) ObserveRPC(method string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveHTTP records outbound API latency. Safe on a nil receiver.
func (m *Metrics) ObserveHTTP(api string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPLatency.WithLabelValues(api).Observe(elapsed.Seconds())
}

// RecordDBQuery records database query metrics. Safe on a nil receiver.
func (m *Metrics) RecordDBQuery(database, operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(elapsed.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordSkip counts an event dropped by the classifier. Safe on a nil receiver.
func (m *Metrics) RecordSkip(reason string) {
	if m == nil {
		return
	}
	m.TradesSkipped.WithLabelValues(reason).Inc()
}
