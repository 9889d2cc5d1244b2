package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one generation.
const (
	PhaseSetup        = "setup"
	PhaseMovement     = "movement"
	PhaseForaging     = "foraging"
	PhaseAssociation  = "association"
	PhasePathogen     = "pathogen"
	PhaseReproduction = "reproduction"
	PhaseTelemetry    = "telemetry"
)

var phases = []string{
	PhaseSetup, PhaseMovement, PhaseForaging, PhaseAssociation,
	PhasePathogen, PhaseReproduction, PhaseTelemetry,
}

// PerfSample holds timing data for a single generation.
type PerfSample struct {
	GenDuration time.Duration
	Phases      map[string]time.Duration
}

// PerfCollector tracks per-phase wall time over a rolling window of generations.
// A nil collector records nothing.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	genStart      time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of generations to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 10
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartGeneration begins timing a new generation.
func (p *PerfCollector) StartGeneration() {
	if p == nil {
		return
	}
	p.genStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase, ending the previous one.
// Re-entering a phase accumulates into its total.
func (p *PerfCollector) StartPhase(phase string) {
	if p == nil || phase == p.lastPhase {
		return
	}
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndGeneration finishes timing the current generation and records the sample.
func (p *PerfCollector) EndGeneration() PerfSample {
	if p == nil {
		return PerfSample{}
	}
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	sample := PerfSample{
		GenDuration: now.Sub(p.genStart),
		Phases:      p.currentPhases,
	}

	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.lastPhase = ""
	return sample
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgGenDuration time.Duration
	MinGenDuration time.Duration
	MaxGenDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total generation time
	PhasePct map[string]float64

	GensPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p == nil || p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total time.Duration
	var minGen, maxGen time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.GenDuration

		if i == 0 || s.GenDuration < minGen {
			minGen = s.GenDuration
		}
		if s.GenDuration > maxGen {
			maxGen = s.GenDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var gensPerSec float64
	if avg > 0 {
		gensPerSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgGenDuration: avg,
		MinGenDuration: minGen,
		MaxGenDuration: maxGen,
		PhaseAvg:       phaseAvg,
		PhasePct:       phasePct,
		GensPerSecond:  gensPerSec,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_gen_ms", s.AvgGenDuration.Milliseconds(),
		"min_gen_ms", s.MinGenDuration.Milliseconds(),
		"max_gen_ms", s.MaxGenDuration.Milliseconds(),
		"gens_per_sec", s.GensPerSecond,
	}

	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_gen_ms", s.AvgGenDuration.Milliseconds()),
		slog.Int64("min_gen_ms", s.MinGenDuration.Milliseconds()),
		slog.Int64("max_gen_ms", s.MaxGenDuration.Milliseconds()),
		slog.Float64("gens_per_sec", s.GensPerSecond),
	}

	for phase, pct := range s.PhasePct {
		attrs = append(attrs, slog.Float64(phase+"_pct", pct))
	}

	return slog.GroupValue(attrs...)
}

// PerfRecord is the flat CSV form of one generation's phase timings.
type PerfRecord struct {
	Gen            int   `csv:"gen"`
	GenUS          int64 `csv:"gen_us"`
	SetupUS        int64 `csv:"setup_us"`
	MovementUS     int64 `csv:"movement_us"`
	ForagingUS     int64 `csv:"foraging_us"`
	AssociationUS  int64 `csv:"association_us"`
	PathogenUS     int64 `csv:"pathogen_us"`
	ReproductionUS int64 `csv:"reproduction_us"`
	TelemetryUS    int64 `csv:"telemetry_us"`
}

// ToRecord converts a sample to a flat CSV-friendly struct.
func (s PerfSample) ToRecord(gen int) PerfRecord {
	return PerfRecord{
		Gen:            gen,
		GenUS:          s.GenDuration.Microseconds(),
		SetupUS:        s.Phases[PhaseSetup].Microseconds(),
		MovementUS:     s.Phases[PhaseMovement].Microseconds(),
		ForagingUS:     s.Phases[PhaseForaging].Microseconds(),
		AssociationUS:  s.Phases[PhaseAssociation].Microseconds(),
		PathogenUS:     s.Phases[PhasePathogen].Microseconds(),
		ReproductionUS: s.Phases[PhaseReproduction].Microseconds(),
		TelemetryUS:    s.Phases[PhaseTelemetry].Microseconds(),
	}
}
