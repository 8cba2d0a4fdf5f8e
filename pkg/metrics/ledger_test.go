package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestLedgerMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)
	m.IncMutation("ORDER")
	m.IncMutation("ORDER")
	m.IncClamped("ORDER")
	m.IncConflict("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "nightshift_stock_ledger_mutations_total", "kind", "ORDER"); err != nil || got != 2 {
		t.Fatalf("expected 2 mutations, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "nightshift_stock_ledger_clamped_total", "kind", "ORDER"); err != nil || got != 1 {
		t.Fatalf("expected 1 clamp, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "nightshift_stock_ledger_conflicts_total", "resource", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown resource label, got %f (%v)", got, err)
	}
}

func TestLedgerMetricsNilSafe(t *testing.T) {
	var m *LedgerMetrics
	m.IncMutation("ORDER")
	m.IncClamped("ORDER")
	m.IncConflict("item_lock")

	NewLedgerMetrics(nil).IncMutation("ORDER")
}
