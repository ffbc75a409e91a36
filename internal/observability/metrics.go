// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Sync metrics
	SyncRunsTotal         *prometheus.CounterVec
	TransactionsFetched   prometheus.Counter
	TransactionsStored    prometheus.Counter
	TransactionsRejected  *prometheus.CounterVec
	SyncDuration          *prometheus.HistogramVec
	SourceRequestLatency  *prometheus.HistogramVec

	// Pipeline metrics
	PipelineRunsTotal  *prometheus.CounterVec
	PipelineDuration   *prometheus.HistogramVec
	MetricsComputed    prometheus.Counter
	ForecastsGenerated prometheus.Counter
	AlertsTriggered    prometheus.Counter
	ReportsGenerated   prometheus.Counter

	// AI metrics
	AICallsTotal   *prometheus.CounterVec
	AICallLatency  prometheus.Histogram
	AIQuotaDenials prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSync     prometheus.Gauge
	LastSuccessfulPipeline prometheus.Gauge
	ConnectedWSClients     prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "aurix"
	}

	return &Metrics{
		// Sync metrics
		SyncRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of data source sync runs by kind and status",
		}, []string{"kind", "status"}),
		TransactionsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "transactions_fetched_total",
			Help:      "Total number of raw transactions fetched from sources",
		}),
		TransactionsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "transactions_stored_total",
			Help:      "Total number of transactions stored to database",
		}),
		TransactionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "transactions_rejected_total",
			Help:      "Total number of transactions rejected by reason",
		}, []string{"reason"}),
		SyncDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Data source sync duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		SourceRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "source_request_latency_seconds",
			Help:      "External source API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by phase and status",
		}, []string{"phase", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		MetricsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "metrics_computed_total",
			Help:      "Total number of daily metric points computed",
		}),
		ForecastsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "forecasts_generated_total",
			Help:      "Total number of forecasts generated",
		}),
		AlertsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "alerts_triggered_total",
			Help:      "Total number of alert rules triggered",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// AI metrics
		AICallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "calls_total",
			Help:      "Total number of LLM calls by prompt and status",
		}, []string{"prompt", "status"}),
		AICallLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "call_latency_seconds",
			Help:      "LLM call latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),
		AIQuotaDenials: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "quota_denials_total",
			Help:      "Total number of LLM calls denied by tenant quota",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulSync: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sync_timestamp",
			Help:      "Unix timestamp of last successful data source sync",
		}),
		LastSuccessfulPipeline: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
		ConnectedWSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "connected_ws_clients",
			Help:      "Number of currently connected websocket clients",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSyncRun increments the sync run counter.
func RecordSyncRun(kind, status string) {
	DefaultMetrics.SyncRunsTotal.WithLabelValues(kind, status).Inc()
}

// RecordTransactionsStored adds to the stored transactions counter.
func RecordTransactionsStored(n int) {
	DefaultMetrics.TransactionsStored.Add(float64(n))
}

// RecordTransactionsFetched adds to the fetched transactions counter.
func RecordTransactionsFetched(n int) {
	DefaultMetrics.TransactionsFetched.Add(float64(n))
}

// RecordTransactionRejected increments the rejection counter for a reason.
func RecordTransactionRejected(reason string) {
	DefaultMetrics.TransactionsRejected.WithLabelValues(reason).Inc()
}

// RecordPipelineRun increments the pipeline run counter.
func RecordPipelineRun(phase, status string) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
}

// RecordAICall increments the LLM call counter.
func RecordAICall(prompt, status string) {
	DefaultMetrics.AICallsTotal.WithLabelValues(prompt, status).Inc()
}

// RecordAIQuotaDenial increments the quota denial counter.
func RecordAIQuotaDenial() {
	DefaultMetrics.AIQuotaDenials.Inc()
}

// RecordAlertTriggered increments the alerts triggered counter.
func RecordAlertTriggered() {
	DefaultMetrics.AlertsTriggered.Inc()
}

// RecordForecastGenerated increments the forecasts generated counter.
func RecordForecastGenerated() {
	DefaultMetrics.ForecastsGenerated.Inc()
}

// RecordMetricsComputed adds to the computed metric points counter.
func RecordMetricsComputed(n int) {
	DefaultMetrics.MetricsComputed.Add(float64(n))
}

// RecordReportGenerated increments the reports generated counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}
