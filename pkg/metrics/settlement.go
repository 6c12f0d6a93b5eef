package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics tracks invoice orchestration outcomes.
type SettlementMetrics struct {
	duration *prometheus.HistogramVec
	created  *prometheus.CounterVec
	failed   *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on reg. A nil registerer yields
// a no-op recorder.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_invoice_duration_seconds",
		Help:    "Duration of invoice creation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_invoice_created_total",
		Help: "Invoices committed.",
	}, []string{"kind"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_invoice_failed_total",
		Help: "Invoice creations aborted, by error code.",
	}, []string{"kind", "code"})
	reg.MustRegister(duration, created, failed)
	return &SettlementMetrics{
		duration: duration,
		created:  created,
		failed:   failed,
	}
}

// ObserveDuration records how long one orchestration of kind took.
func (m *SettlementMetrics) ObserveDuration(kind string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

// IncCreated counts a committed invoice.
func (m *SettlementMetrics) IncCreated(kind string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncFailed counts an aborted orchestration.
func (m *SettlementMetrics) IncFailed(kind, code string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(kind), normalizeLabel(code)).Inc()
}
