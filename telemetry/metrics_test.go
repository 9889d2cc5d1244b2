package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsRecordGeneration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	for gen := 0; gen < 3; gen++ {
		rec := GenerationRecord{Gen: gen, Infected: 10 + gen, PropHorizontal: 0.25, EnergyMean: 1.5, WallTimeMS: 40}
		if err := m.WriteGeneration(rec); err != nil {
			t.Fatalf("WriteGeneration: %v", err)
		}
	}
	if err := m.WriteNetwork(NetworkRecord{Edges: 17}); err != nil {
		t.Fatalf("WriteNetwork: %v", err)
	}

	if got := testutil.ToFloat64(m.Generations); got != 3 {
		t.Errorf("generations_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.Infected); got != 12 {
		t.Errorf("infected_agents = %v, want 12", got)
	}
	if got := testutil.ToFloat64(m.HorizontalRatio); got != 0.25 {
		t.Errorf("horizontal_infection_ratio = %v, want 0.25", got)
	}
	if got := testutil.ToFloat64(m.NetworkEdges); got != 17 {
		t.Errorf("network_edges = %v, want 17", got)
	}
	if count := histogramSampleCount(t, reg, "pathomove_generation_duration_seconds"); count != 3 {
		t.Errorf("generation_duration sample_count = %d, want 3", count)
	}
}

func TestMetricsReuseRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	second, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("second NewMetrics: %v", err)
	}

	_ = first.WriteGeneration(GenerationRecord{})
	if got := testutil.ToFloat64(second.Generations); got != 1 {
		t.Errorf("shared counter = %v, want 1", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	_ = m.WriteGeneration(GenerationRecord{Infected: 4})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"pathomove_generations_total 1", "pathomove_infected_agents 4"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsNil(t *testing.T) {
	var m *Metrics
	if err := m.WriteGeneration(GenerationRecord{}); err != nil {
		t.Errorf("nil WriteGeneration: %v", err)
	}
	if err := m.WriteNetwork(NetworkRecord{}); err != nil {
		t.Errorf("nil WriteNetwork: %v", err)
	}
}

func histogramSampleCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name || mf.GetType() != dto.MetricType_HISTOGRAM {
			continue
		}
		var total uint64
		for _, metric := range mf.GetMetric() {
			total += metric.GetHistogram().GetSampleCount()
		}
		return total
	}
	t.Fatalf("histogram %s not found", name)
	return 0
}
