package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes per-generation progress as Prometheus collectors.
// A nil Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	Generations        prometheus.Counter
	Infected           prometheus.Gauge
	HorizontalRatio    prometheus.Gauge
	MeanEnergy         prometheus.Gauge
	NetworkEdges       prometheus.Gauge
	GenerationDuration prometheus.Histogram
}

// NewMetrics registers collectors against reg, defaulting to the global
// registry when nil. Collectors already registered under the same name are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{gatherer: gatherer}
	var err error

	if m.Generations, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pathomove_generations_total",
		Help: "Number of completed generations.",
	}), "pathomove_generations_total"); err != nil {
		return nil, err
	}
	if m.Infected, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pathomove_infected_agents",
		Help: "Infected agents at the end of the last generation.",
	}), "pathomove_infected_agents"); err != nil {
		return nil, err
	}
	if m.HorizontalRatio, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pathomove_horizontal_infection_ratio",
		Help: "Fraction of infections acquired from neighbours in the last generation.",
	}), "pathomove_horizontal_infection_ratio"); err != nil {
		return nil, err
	}
	if m.MeanEnergy, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pathomove_mean_energy",
		Help: "Mean agent energy at the end of the last generation.",
	}), "pathomove_mean_energy"); err != nil {
		return nil, err
	}
	if m.NetworkEdges, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pathomove_network_edges",
		Help: "Edges in the association network of the last generation.",
	}), "pathomove_network_edges"); err != nil {
		return nil, err
	}
	if m.GenerationDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathomove_generation_duration_seconds",
		Help:    "Wall time per generation in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}), "pathomove_generation_duration_seconds"); err != nil {
		return nil, err
	}

	return m, nil
}

// WriteGeneration updates the generation collectors.
func (m *Metrics) WriteGeneration(rec GenerationRecord) error {
	if m == nil {
		return nil
	}
	m.Generations.Inc()
	m.Infected.Set(float64(rec.Infected))
	m.HorizontalRatio.Set(rec.PropHorizontal)
	m.MeanEnergy.Set(rec.EnergyMean)
	m.GenerationDuration.Observe((time.Duration(rec.WallTimeMS) * time.Millisecond).Seconds())
	return nil
}

// WriteNetwork updates the network collectors.
func (m *Metrics) WriteNetwork(rec NetworkRecord) error {
	if m == nil {
		return nil
	}
	m.NetworkEdges.Set(float64(rec.Edges))
	return nil
}

// Handler exposes a ready-to-use /metrics handler.
func (m *Metrics) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if m != nil && m.gatherer != nil {
		gatherer = m.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return g, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
