package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics tracks contention inside the transactional core.
type EngineMetrics struct {
	conflicts    *prometheus.CounterVec
	exhausted    *prometheus.CounterVec
	availability *prometheus.GaugeVec
	overdue      prometheus.Gauge
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_tx_conflicts_total",
		Help: "Transaction attempts aborted by a concurrent-modification conflict.",
	}, []string{"operation"})
	exhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_tx_retries_exhausted_total",
		Help: "Operations that gave up after the bounded retry ceiling.",
	}, []string{"operation"})
	availability := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "item_available_quantity",
		Help: "Stock currently available per item (total minus pending reservations).",
	}, []string{"item"})
	overdue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reservations_overdue",
		Help: "Pending reservations past their scheduled return date.",
	})
	reg.MustRegister(conflicts, exhausted, availability, overdue)
	return &EngineMetrics{
		conflicts:    conflicts,
		exhausted:    exhausted,
		availability: availability,
		overdue:      overdue,
	}
}

// IncConflict records one aborted transaction attempt for the named operation.
func (m *EngineMetrics) IncConflict(operation string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncRetriesExhausted records an operation that surfaced a conflict to its caller.
func (m *EngineMetrics) IncRetriesExhausted(operation string) {
	if m == nil || m.exhausted == nil {
		return
	}
	m.exhausted.WithLabelValues(normalizeLabel(operation)).Inc()
}

// SetAvailability publishes the derived availability for one item.
func (m *EngineMetrics) SetAvailability(item string, available int) {
	if m == nil || m.availability == nil {
		return
	}
	m.availability.WithLabelValues(normalizeLabel(item)).Set(float64(available))
}

// SetOverdue publishes the current count of overdue pending reservations.
func (m *EngineMetrics) SetOverdue(count int) {
	if m == nil || m.overdue == nil {
		return
	}
	m.overdue.Set(float64(count))
}
