package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ExpenseAdded()
	m.SettlementProposed()
	m.LegConfirmed()
	m.LegConfirmed()
	m.TabSettled()
	m.TransferMatched(true)
	m.TransferMatched(false)
	m.TransferMatched(false)
	m.RPC("/tabsettle.v1.TabService/CreateTab", "ok", 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExpensesAdded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SettlementsProposed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LegsConfirmed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TabsSettled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransferMatches.WithLabelValues("matched")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TransferMatches.WithLabelValues("unmatched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCRequests.WithLabelValues("/tabsettle.v1.TabService/CreateTab", "ok")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ExpenseAdded()
		m.SettlementProposed()
		m.LegConfirmed()
		m.TabSettled()
		m.TransferMatched(true)
		m.RPC("p", "ok", time.Second)
	})
}
