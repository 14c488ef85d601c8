package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts knowledge base activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Asserted  *prometheus.CounterVec
	Derived   *prometheus.CounterVec
	Merged    *prometheus.CounterVec
	Retracted *prometheus.CounterVec
	Cascaded  prometheus.Counter
	Queries   *prometheus.CounterVec
}

// New creates the counters and registers them with reg when reg is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Asserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reason_asserted_total",
			Help: "Items asserted by callers, by kind",
		}, []string{"kind"}),
		Derived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reason_derived_total",
			Help: "New items produced by forward chaining, by kind",
		}, []string{"kind"}),
		Merged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reason_merged_total",
			Help: "Insertions merged into an existing item, by kind",
		}, []string{"kind"}),
		Retracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reason_retracted_total",
			Help: "Retract calls by outcome",
		}, []string{"outcome"}),
		Cascaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reason_cascade_removed_total",
			Help: "Derived items removed because they lost all support",
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reason_queries_total",
			Help: "Ask calls by outcome",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Asserted, m.Derived, m.Merged, m.Retracted, m.Cascaded, m.Queries)
	}
	return m
}

func (m *Metrics) IncAsserted(kind string) {
	if m != nil {
		m.Asserted.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncDerived(kind string) {
	if m != nil {
		m.Derived.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncMerged(kind string) {
	if m != nil {
		m.Merged.WithLabelValues(kind).Inc()
	}
}

// IncRetracted records a retract outcome: "removed", "unasserted" or "missing".
func (m *Metrics) IncRetracted(outcome string) {
	if m != nil {
		m.Retracted.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncCascaded() {
	if m != nil {
		m.Cascaded.Inc()
	}
}

// IncQuery records an ask outcome: "hit", "miss" or "invalid".
func (m *Metrics) IncQuery(outcome string) {
	if m != nil {
		m.Queries.WithLabelValues(outcome).Inc()
	}
}
