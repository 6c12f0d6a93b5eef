package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample returns the series of family name whose labels include every pair in want.
func sample(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range m.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			matched := true
			for k, v := range want {
				if labels[k] != v {
					matched = false
					break
				}
			}
			if matched {
				return m
			}
		}
	}
	t.Fatalf("no %s series with labels %v", name, want)
	return nil
}

func TestHTTPMetricsRecordsRoutePatterns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	route := "/api/admin/v1/redemptions/{redemptionId}"
	m.Observe("PATCH", route, 200, 250*time.Millisecond)
	m.Observe("PATCH", route, 422, 10*time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	assert.Equal(t, 1.0, sample(t, reg, "http_requests_total", map[string]string{"status": "422"}).GetCounter().GetValue())
	assert.Equal(t, 1.0, sample(t, reg, "http_requests_total", map[string]string{"route": "unknown"}).GetCounter().GetValue())

	hist := sample(t, reg, "http_request_duration_seconds", map[string]string{"route": route}).GetHistogram()
	assert.EqualValues(t, 2, hist.GetSampleCount())
	assert.InDelta(t, 0.26, hist.GetSampleSum(), 1e-9)
}

func TestSettlementMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)
	m.ObserveDuration("negotiation", 40*time.Millisecond)
	m.IncCreated("negotiation")
	m.IncFailed("payment", "CONFLICT")
	m.IncFailed("payment", "")

	assert.Equal(t, 1.0, sample(t, reg, "settlement_invoice_created_total", map[string]string{"kind": "negotiation"}).GetCounter().GetValue())
	assert.Equal(t, 1.0, sample(t, reg, "settlement_invoice_failed_total", map[string]string{"kind": "payment", "code": "CONFLICT"}).GetCounter().GetValue())
	assert.Equal(t, 1.0, sample(t, reg, "settlement_invoice_failed_total", map[string]string{"code": "unknown"}).GetCounter().GetValue())
	assert.InDelta(t, 0.04, sample(t, reg, "settlement_invoice_duration_seconds", map[string]string{"kind": "negotiation"}).GetHistogram().GetSampleSum(), 1e-9)
}

func TestRecordersWithoutRegistryAreNoops(t *testing.T) {
	assert.NotPanics(t, func() {
		NewHTTPMetrics(nil).Observe("GET", "/health/live", 200, time.Millisecond)
		var h *HTTPMetrics
		h.Observe("GET", "/health/live", 200, time.Millisecond)

		s := NewSettlementMetrics(nil)
		s.IncCreated("negotiation")
		s.IncFailed("negotiation", "CONFLICT")
		s.ObserveDuration("negotiation", time.Second)
		var nilSettlement *SettlementMetrics
		nilSettlement.IncCreated("payment")
	})
}
