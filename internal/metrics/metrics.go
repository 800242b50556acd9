// Package metrics exposes Prometheus collectors for settlement activity.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tabsettle"

// Metrics groups every collector the service records.
type Metrics struct {
	ExpensesAdded       prometheus.Counter
	SettlementsProposed prometheus.Counter
	LegsConfirmed       prometheus.Counter
	TabsSettled         prometheus.Counter
	TransferMatches     *prometheus.CounterVec
	RPCRequests         *prometheus.CounterVec
	RPCDuration         *prometheus.HistogramVec
}

// New creates collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExpensesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_added_total",
			Help:      "Expenses recorded on open tabs.",
		}),
		SettlementsProposed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_proposed_total",
			Help:      "Settlements created from tab balances.",
		}),
		LegsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_legs_confirmed_total",
			Help:      "Settlement legs confirmed by an external reference.",
		}),
		TabsSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tabs_settled_total",
			Help:      "Tabs whose every settlement leg is confirmed.",
		}),
		TransferMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_matches_total",
			Help:      "Observed transfers by match result.",
		}, []string{"result"}),
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
	}

	reg.MustRegister(
		m.ExpensesAdded,
		m.SettlementsProposed,
		m.LegsConfirmed,
		m.TabsSettled,
		m.TransferMatches,
		m.RPCRequests,
		m.RPCDuration,
	)
	return m
}

func (m *Metrics) ExpenseAdded() {
	if m != nil {
		m.ExpensesAdded.Inc()
	}
}

func (m *Metrics) SettlementProposed() {
	if m != nil {
		m.SettlementsProposed.Inc()
	}
}

func (m *Metrics) LegConfirmed() {
	if m != nil {
		m.LegsConfirmed.Inc()
	}
}

func (m *Metrics) TabSettled() {
	if m != nil {
		m.TabsSettled.Inc()
	}
}

// TransferMatched records whether an observed transfer resolved to a pending leg.
func (m *Metrics) TransferMatched(matched bool) {
	if m == nil {
		return
	}
	result := "unmatched"
	if matched {
		result = "matched"
	}
	m.TransferMatches.WithLabelValues(result).Inc()
}

// RPC records one completed call.
func (m *Metrics) RPC(procedure, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RPCRequests.WithLabelValues(procedure, code).Inc()
	m.RPCDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}
