// Package metrics holds the Prometheus collectors of the ledger.
//
// A nil *Metrics is valid and records nothing, so the ledger and the
// middleware can run without a registry in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "splitledger"

// Metrics groups every collector the service exports.
type Metrics struct {
	rpcRequests        *prometheus.CounterVec
	rpcDuration        *prometheus.HistogramVec
	settlementsCreated prometheus.Counter
	repayments         *prometheus.CounterVec
	balanceFailures    prometheus.Counter
	balanceDuration    prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		settlementsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_created_total",
			Help:      "Settlements persisted together with their transaction.",
		}),
		repayments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repayments_total",
			Help:      "Repayment attempts by outcome.",
		}, []string{"outcome"}),
		balanceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_group_failures_total",
			Help:      "Groups that failed to load while aggregating total balances.",
		}),
		balanceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "total_balances_duration_seconds",
			Help:      "Time to aggregate a user's balances across groups.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.rpcRequests,
		m.rpcDuration,
		m.settlementsCreated,
		m.repayments,
		m.balanceFailures,
		m.balanceDuration,
	)
	return m
}

// ObserveRPC records one finished RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(d.Seconds())
}

// SettlementsCreated adds n newly persisted settlements.
func (m *Metrics) SettlementsCreated(n int) {
	if m == nil {
		return
	}
	m.settlementsCreated.Add(float64(n))
}

// Repayment records a repayment attempt; outcome is "settled", "already_settled",
// "not_found" or "error".
func (m *Metrics) Repayment(outcome string) {
	if m == nil {
		return
	}
	m.repayments.WithLabelValues(outcome).Inc()
}

// BalanceAggregation records one total-balance aggregation and how many
// groups failed in it.
func (m *Metrics) BalanceAggregation(d time.Duration, failed int) {
	if m == nil {
		return
	}
	m.balanceDuration.Observe(d.Seconds())
	m.balanceFailures.Add(float64(failed))
}
