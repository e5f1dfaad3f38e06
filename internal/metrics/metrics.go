// Package metrics exposes prometheus counters for ledger activity.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "rewards_ledger"

// Metrics holds the service collectors.
type Metrics struct {
	registry    *prometheus.Registry
	entries     *prometheus.CounterVec
	amounts     *prometheus.CounterVec
	claims      *prometheus.CounterVec
	withdrawals *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	requests    *prometheus.CounterVec
	durations   *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_total",
			Help:      "Committed ledger entries by category and direction.",
		}, []string{"category", "direction"}),
		amounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_amount_total",
			Help:      "Absolute committed ledger amounts by category and direction.",
		}, []string{"category", "direction"}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Daily login and game claims by kind and outcome.",
		}, []string{"kind", "outcome"}),
		withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawal_transitions_total",
			Help:      "Withdrawal requests entering each status.",
		}, []string{"status"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrency_conflicts_total",
			Help:      "Lock or serialization conflicts by operation.",
		}, []string{"operation"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	registry.MustRegister(m.entries, m.amounts, m.claims, m.withdrawals, m.conflicts, m.requests, m.durations)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// LedgerEntry records a committed transaction.
func (m *Metrics) LedgerEntry(category string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	direction := "credit"
	if amount.IsNegative() {
		direction = "debit"
	}
	m.entries.WithLabelValues(category, direction).Inc()
	m.amounts.WithLabelValues(category, direction).Add(amount.Abs().InexactFloat64())
}

// Claim records a daily claim attempt by outcome (granted, rejected or failed).
func (m *Metrics) Claim(kind, outcome string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(kind, outcome).Inc()
}

// Withdrawal records a withdrawal entering status.
func (m *Metrics) Withdrawal(status string) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(status).Inc()
}

// Conflict records a concurrency conflict hit by operation.
func (m *Metrics) Conflict(operation string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(operation).Inc()
}

// Request records a served HTTP request.
func (m *Metrics) Request(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, http.StatusText(status)).Inc()
	m.durations.WithLabelValues(route, method).Observe(d.Seconds())
}
