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
	// Watch metrics
	SignalsParsed          *prometheus.CounterVec
	WSReconnects           prometheus.Counter
	PollingFallback        prometheus.Gauge
	StaleWallets           prometheus.Gauge
	TransactionFetchErrors prometheus.Counter

	// Trading metrics
	TradesExecuted *prometheus.CounterVec
	SignalsSkipped *prometheus.CounterVec
	OpenPositions  prometheus.Gauge
	TradePnLUSD    prometheus.Histogram

	// Chain metrics
	RPCCallLatency *prometheus.HistogramVec
	ConfirmLatency prometheus.Histogram

	// Health metrics
	LastSignalTimestamp prometheus.Gauge
	UptimeSeconds       prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_soldier"
	}

	return &Metrics{
		// Watch metrics
		SignalsParsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "signals_parsed_total",
			Help:      "Total number of whale activities parsed by action",
		}, []string{"action"}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "ws_reconnects_total",
			Help:      "Total number of websocket reconnects",
		}),
		PollingFallback: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "polling_fallback_active",
			Help:      "1 when the monitor runs on the polling fallback transport",
		}),
		StaleWallets: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "stale_wallets",
			Help:      "Number of watched wallets with no recent activity",
		}),
		TransactionFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "transaction_fetch_errors_total",
			Help:      "Total number of failed transaction lookups after retries",
		}),

		// Trading metrics
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trader",
			Name:      "trades_executed_total",
			Help:      "Total number of swap attempts by action and status",
		}, []string{"action", "status"}),
		SignalsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trader",
			Name:      "signals_skipped_total",
			Help:      "Total number of signals skipped by gate",
		}, []string{"reason"}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trader",
			Name:      "open_positions",
			Help:      "Current number of open positions",
		}),
		TradePnLUSD: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trader",
			Name:      "trade_pnl_usd",
			Help:      "Realized P&L per closed position in USD",
			Buckets:   []float64{-50, -20, -10, -5, -2, -1, 0, 1, 2, 5, 10, 20, 50},
		}),

		// Chain metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ConfirmLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "confirm_latency_seconds",
			Help:      "Time from submission to confirmation in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 45, 60},
		}),

		// Health metrics
		LastSignalTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_signal_timestamp",
			Help:      "Unix timestamp of the last parsed whale activity",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSignalParsed increments the parsed signal counter and bumps the
// last-signal timestamp.
func RecordSignalParsed(action string, unixTime float64) {
	DefaultMetrics.SignalsParsed.WithLabelValues(action).Inc()
	DefaultMetrics.LastSignalTimestamp.Set(unixTime)
}

// RecordWSReconnect increments the websocket reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// SetPollingFallback flags whether the polling fallback is active.
func SetPollingFallback(active bool) {
	if active {
		DefaultMetrics.PollingFallback.Set(1)
	} else {
		DefaultMetrics.PollingFallback.Set(0)
	}
}

// SetStaleWallets updates the stale wallet gauge.
func SetStaleWallets(n int) {
	DefaultMetrics.StaleWallets.Set(float64(n))
}

// RecordTrade records one swap attempt outcome.
func RecordTrade(action string, success bool) {
	status := "failure"
	if success {
		status = "success"
	}
	DefaultMetrics.TradesExecuted.WithLabelValues(action, status).Inc()
}

// RecordSkip records a signal rejected by an entry gate.
func RecordSkip(reason string) {
	DefaultMetrics.SignalsSkipped.WithLabelValues(reason).Inc()
}

// SetOpenPositions updates the open position gauge.
func SetOpenPositions(n int) {
	DefaultMetrics.OpenPositions.Set(float64(n))
}

// RecordPnL records a realized P&L observation.
func RecordPnL(usd float64) {
	DefaultMetrics.TradePnLUSD.Observe(usd)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
