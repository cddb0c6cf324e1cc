package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SettlementsCreated(3)
	m.Repayment("settled")
	m.Repayment("already_settled")
	m.BalanceAggregation(10*time.Millisecond, 2)
	m.ObserveRPC("/splitledger.v1.TransactionService/CreateTransaction", "ok", time.Millisecond)

	tests := []struct {
		name string
		want float64
	}{
		{"splitledger_settlements_created_total", 3},
		{"splitledger_repayments_total", 2},
		{"splitledger_balance_group_failures_total", 2},
		{"splitledger_rpc_requests_total", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := counterValue(t, reg, tt.name); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.SettlementsCreated(1)
	m.Repayment("settled")
	m.BalanceAggregation(time.Second, 1)
	m.ObserveRPC("p", "ok", time.Second)
}
