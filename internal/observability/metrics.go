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
	// Validation metrics
	ValidationDecisions *prometheus.CounterVec
	RuleViolations      *prometheus.CounterVec

	// Trade metrics
	TradeRuns          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	WalletOutcomes     *prometheus.CounterVec
	QuoteAttempts      *prometheus.CounterVec
	ConfirmationStates *prometheus.CounterVec
	VenuesExcluded     *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency  *prometheus.HistogramVec
	RPCCallErrors   *prometheus.CounterVec
	HTTPCallLatency *prometheus.HistogramVec

	// Notification metrics
	NotificationsSent *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulTrade prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_token_trader"
	}

	return &Metrics{
		// Validation metrics
		ValidationDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "decisions_total",
			Help:      "Total number of validation decisions by outcome",
		}, []string{"outcome"}),
		RuleViolations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "rule_violations_total",
			Help:      "Total number of rule violations by rule",
		}, []string{"rule"}),

		// Trade metrics
		TradeRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "runs_total",
			Help:      "Total number of trade runs by side and status",
		}, []string{"side", "status"}),
		RunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "run_duration_seconds",
			Help:      "Trade run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"side"}),
		WalletOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "wallet_outcomes_total",
			Help:      "Total number of per-wallet outcomes by side and error kind",
		}, []string{"side", "kind"}),
		QuoteAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "quote_attempts_total",
			Help:      "Total number of quote requests by result",
		}, []string{"result"}),
		ConfirmationStates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "confirmation_states_total",
			Help:      "Total number of terminal confirmation states",
		}, []string{"state"}),
		VenuesExcluded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "venues_excluded_total",
			Help:      "Total number of venue exclusions derived from failed transactions",
		}, []string{"venue"}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),
		HTTPCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "call_latency_seconds",
			Help:      "External HTTP API latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),

		// Notification metrics
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Total number of notifications by channel and status",
		}, []string{"channel", "status"}),

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
		LastSuccessfulTrade: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_trade_timestamp",
			Help:      "Unix timestamp of last confirmed trade",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordValidation records a validation decision and its violated rules.
func RecordValidation(outcome string, violatedRules []string) {
	DefaultMetrics.ValidationDecisions.WithLabelValues(outcome).Inc()
	for _, rule := range violatedRules {
		DefaultMetrics.RuleViolations.WithLabelValues(rule).Inc()
	}
}

// RecordTradeRun records a finished trade run.
func RecordTradeRun(side, status string, durationSeconds float64) {
	DefaultMetrics.TradeRuns.WithLabelValues(side, status).Inc()
	DefaultMetrics.RunDuration.WithLabelValues(side).Observe(durationSeconds)
}

// RecordWalletOutcome records a per-wallet result. kind is empty on success.
func RecordWalletOutcome(side, kind string) {
	if kind == "" {
		kind = "none"
	}
	DefaultMetrics.WalletOutcomes.WithLabelValues(side, kind).Inc()
}

// RecordQuoteAttempt records a single quote request.
func RecordQuoteAttempt(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	DefaultMetrics.QuoteAttempts.WithLabelValues(result).Inc()
}

// RecordConfirmation records a terminal confirmation state.
func RecordConfirmation(state string) {
	DefaultMetrics.ConfirmationStates.WithLabelValues(state).Inc()
}

// RecordExcludedVenues increments the exclusion counter for each venue.
func RecordExcludedVenues(venues []string) {
	for _, v := range venues {
		DefaultMetrics.VenuesExcluded.WithLabelValues(v).Inc()
	}
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCError records a failed RPC call.
func RecordRPCError(method string) {
	DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
}

// RecordHTTPLatency records latency of an external HTTP API call.
func RecordHTTPLatency(service, operation string, seconds float64) {
	DefaultMetrics.HTTPCallLatency.WithLabelValues(service, operation).Observe(seconds)
}

// RecordNotification records a notification delivery attempt.
func RecordNotification(channel string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	DefaultMetrics.NotificationsSent.WithLabelValues(channel, status).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// MarkTradeSucceeded sets the last successful trade timestamp.
func MarkTradeSucceeded(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulTrade.Set(float64(unixSeconds))
}
