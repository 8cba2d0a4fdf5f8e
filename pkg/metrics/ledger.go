package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics records stock ledger activity.
type LedgerMetrics struct {
	mutations *prometheus.CounterVec
	clamped   *prometheus.CounterVec
	conflicts *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_ledger_mutations_total",
		Help:      "Stock quantity mutations by entry kind.",
	}, []string{"kind"})
	clamped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_ledger_clamped_total",
		Help:      "Deductions clamped because requested quantity exceeded stock.",
	}, []string{"kind"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_ledger_conflicts_total",
		Help:      "Lock or version contention on serialized resources.",
	}, []string{"resource"})
	reg.MustRegister(mutations, clamped, conflicts)
	return &LedgerMetrics{
		mutations: mutations,
		clamped:   clamped,
		conflicts: conflicts,
	}
}

// IncMutation counts one committed ledger entry.
func (m *LedgerMetrics) IncMutation(kind string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncClamped counts a deduction that applied less than requested.
func (m *LedgerMetrics) IncClamped(kind string) {
	if m == nil || m.clamped == nil {
		return
	}
	m.clamped.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncConflict counts contention on the named resource ("item_lock", "item_version", "sequence").
func (m *LedgerMetrics) IncConflict(resource string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(resource)).Inc()
}
