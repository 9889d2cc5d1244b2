// Package sim runs generations of the population on a landscape.
//
// A generation runs on two clocks over simulated time [0, tmax). Event times
// are drawn from an exponential distribution with rate equal to the total
// activity of the population. Crossing a forage boundary runs a foraging
// phase for every agent followed by association counting and one pathogen
// pass. Crossing a movement checkpoint moves one activity-weighted agent.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pthm-cable/pathomove/agents"
	"github.com/pthm-cable/pathomove/network"
	"github.com/pthm-cable/pathomove/random"
	"github.com/pthm-cable/pathomove/telemetry"
)

// ErrInvalidArgument is returned for rejected scheduler parameters.
var ErrInvalidArgument = errors.New("sim: invalid argument")

// DefaultMoveIncrement is the spacing of movement checkpoints.
const DefaultMoveIncrement = 0.1

// DefaultCompetitionCost is the flat energy cost paid by every agent per generation.
const DefaultCompetitionCost float32 = 0.0001

// Params configures the generation loop.
type Params struct {
	TMax            float64 // length of a generation in simulated time
	ForageInterval  float64 // spacing of forage boundaries
	MoveIncrement   float64 // spacing of movement checkpoints
	MoveCost        float32
	CompetitionCost float32
	RangeAssoc      float32 // association radius
	CostInfect      float32 // energy cost per unit infection duration

	// Pathogen seeding: InitialInfections agents are infected at the start of
	// every generation from IntroductionGen on. A negative IntroductionGen disables it.
	InitialInfections int
	IntroductionGen   int

	// NetworkMinWeight is the association count at which a pair counts as an edge
	// in network summaries.
	NetworkMinWeight int

	// Mutate is applied to inherited traits; nil inherits unchanged.
	Mutate agents.Mutator

	// LogEvery logs a generation summary every LogEvery generations (0 = never).
	LogEvery int

	// FirstGen numbers the first generation Evolve runs, for resumed runs.
	FirstGen int

	// PerfWindow is the number of generations phase timings are averaged over.
	PerfWindow int
}

// DefaultParams returns the reference parameter set.
func DefaultParams() Params {
	return Params{
		TMax:              100,
		ForageInterval:    1,
		MoveIncrement:     DefaultMoveIncrement,
		MoveCost:          0.001,
		CompetitionCost:   DefaultCompetitionCost,
		RangeAssoc:        1,
		CostInfect:        0.0025,
		InitialInfections: 4,
		IntroductionGen:   -1,
		NetworkMinWeight:  1,
	}
}

// Validate checks every parameter.
func (p Params) Validate() error {
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"tmax", p.TMax},
		{"forage interval", p.ForageInterval},
		{"move increment", p.MoveIncrement},
	} {
		if !(c.v > 0) || math.IsInf(c.v, 0) {
			return fmt.Errorf("%w: %s %v must be positive and finite", ErrInvalidArgument, c.name, c.v)
		}
	}

	for _, c := range []struct {
		name string
		v    float32
	}{
		{"move cost", p.MoveCost},
		{"competition cost", p.CompetitionCost},
		{"association range", p.RangeAssoc},
		{"infection cost", p.CostInfect},
	} {
		if !(c.v >= 0) {
			return fmt.Errorf("%w: %s %v must be non-negative", ErrInvalidArgument, c.name, c.v)
		}
	}

	if p.InitialInfections < 0 {
		return fmt.Errorf("%w: initial infections %d", ErrInvalidArgument, p.InitialInfections)
	}
	if p.NetworkMinWeight < 1 {
		return fmt.Errorf("%w: network minimum weight %d", ErrInvalidArgument, p.NetworkMinWeight)
	}
	if p.LogEvery < 0 {
		return fmt.Errorf("%w: log interval %d", ErrInvalidArgument, p.LogEvery)
	}
	if p.FirstGen < 0 {
		return fmt.Errorf("%w: first generation %d", ErrInvalidArgument, p.FirstGen)
	}
	return nil
}

// Introduces reports whether the pathogen is seeded in generation gen.
func (p Params) Introduces(gen int) bool {
	return p.InitialInfections > 0 && p.IntroductionGen >= 0 && gen >= p.IntroductionGen
}

// Sink receives the records of each completed generation.
type Sink interface {
	WriteGeneration(telemetry.GenerationRecord) error
	WriteNetwork(telemetry.NetworkRecord) error
}

// PerfSink is implemented by sinks that also accept phase timings.
type PerfSink interface {
	WritePerf(telemetry.PerfRecord) error
}

// GenerationResult is the outcome of one generation.
type GenerationResult struct {
	Record  telemetry.GenerationRecord
	Network telemetry.NetworkRecord
	Perf    telemetry.PerfSample

	// Next is the offspring population.
	Next *agents.Population
}

// Scheduler runs generations with a fixed parameter set and random source.
type Scheduler struct {
	params Params
	src    *random.Source
	logger *slog.Logger
	perf   *telemetry.PerfCollector
}

// New creates a scheduler. A nil logger uses slog.Default().
func New(params Params, src *random.Source, logger *slog.Logger) (*Scheduler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidArgument)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		params: params,
		src:    src,
		logger: logger,
		perf:   telemetry.NewPerfCollector(params.PerfWindow),
	}, nil
}

// Params returns the scheduler parameters.
func (s *Scheduler) Params() Params {
	return s.params
}

// Perf returns the phase timing collector.
func (s *Scheduler) Perf() *telemetry.PerfCollector {
	return s.perf
}

// RunGeneration runs generation gen of pop on food, counting associations
// into net, and reproduces. pop is left in its end-of-generation state.
func (s *Scheduler) RunGeneration(gen int, pop *agents.Population, food agents.Resources, net *network.Network) (GenerationResult, error) {
	if net.N() != pop.Size() {
		return GenerationResult{}, fmt.Errorf("%w: network has %d vertices, population %d agents",
			ErrInvalidArgument, net.N(), pop.Size())
	}

	p := s.params
	s.perf.StartGeneration()
	s.perf.StartPhase(telemetry.PhaseSetup)

	pop.InitPos(food, s.src)
	pop.Shuffle(s.src)

	introduced := p.Introduces(gen)
	if introduced {
		k := min(p.InitialInfections, pop.Size())
		if err := pop.IntroducePathogen(k, s.src); err != nil {
			return GenerationResult{}, fmt.Errorf("seeding pathogen: %w", err)
		}
	}

	// Without activity there is nothing to sample; only foraging runs.
	var movers *random.Categorical
	rate := 0.0
	if pop.Size() > 0 {
		var err error
		movers, err = s.src.NewCategorical(pop.Activity)
		switch {
		case errors.Is(err, random.ErrZeroWeight):
			movers = nil
		case err != nil:
			return GenerationResult{}, fmt.Errorf("building movement sampler: %w", err)
		default:
			rate = movers.Total()
		}
	}

	var (
		t             float64
		lastEvent     float64
		lastForage    float64
		nextForage    = p.ForageInterval
		nextMove      float64
		moveEvents    int
		moves         int
		foragePhases  int
		eaten         int
		newInfections int
	)

	for t < p.TMax {
		if movers != nil {
			t += s.src.Exponential(rate)
		} else {
			t = nextForage
		}
		if t >= p.TMax {
			break
		}
		lastEvent = t

		if t >= nextForage {
			s.perf.StartPhase(telemetry.PhaseForaging)
			food.CountAvailable()
			food.Deplete(t - lastForage)
			eaten += pop.ForageAll(food, t)
			pop.UpdateIndex()

			s.perf.StartPhase(telemetry.PhaseAssociation)
			if err := pop.CountAssoc(net, p.RangeAssoc); err != nil {
				return GenerationResult{}, fmt.Errorf("counting associations: %w", err)
			}

			s.perf.StartPhase(telemetry.PhasePathogen)
			newInfections += pop.PathogenSpread(s.src)
			pop.CountInfected()

			foragePhases++
			lastForage = t
			nextForage = nextBoundary(t, p.ForageInterval)
		}

		if movers != nil && t >= nextMove {
			s.perf.StartPhase(telemetry.PhaseMovement)
			id := movers.Sample()
			if pop.Move(id, food, t, p.MoveCost, s.src) {
				moves++
			}
			moveEvents++
			nextMove = nextBoundary(t, p.MoveIncrement)
		}
	}

	s.perf.StartPhase(telemetry.PhasePathogen)
	pop.PathogenCost(p.CostInfect)
	pop.CountInfected()

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	rec := telemetry.NewGenerationRecord(gen, pop)
	rec.SimTime = lastEvent
	rec.MoveEvents = moveEvents
	rec.Moves = moves
	rec.ForagePhases = foragePhases
	rec.FoodEaten = eaten
	rec.NewInfections = newInfections
	rec.PathogenIntroduced = introduced
	netRec := telemetry.NewNetworkRecord(gen, net.Summarize(p.NetworkMinWeight))

	s.perf.StartPhase(telemetry.PhaseReproduction)
	pop.CompetitionCosts(p.CompetitionCost)
	next, err := pop.Reproduce(s.src, p.Mutate)
	if err != nil {
		return GenerationResult{}, fmt.Errorf("reproducing generation %d: %w", gen, err)
	}

	sample := s.perf.EndGeneration()
	rec.WallTimeMS = sample.GenDuration.Milliseconds()

	return GenerationResult{
		Record:  rec,
		Network: netRec,
		Perf:    sample,
		Next:    next,
	}, nil
}

// nextBoundary returns the first multiple of step strictly after t.
func nextBoundary(t, step float64) float64 {
	b := math.Floor(t/step)*step + step
	if b <= t {
		b += step
	}
	return b
}

// Evolve runs genmax generations starting from pop, handing each
// generation's records to sink (which may be nil). A fresh association
// network is built per generation. Returns the final offspring population.
func (s *Scheduler) Evolve(genmax int, pop *agents.Population, food agents.Resources, sink Sink) (*agents.Population, error) {
	if genmax < 0 {
		return nil, fmt.Errorf("%w: generation count %d", ErrInvalidArgument, genmax)
	}

	perfSink, _ := sink.(PerfSink)
	start := time.Now()

	first := s.params.FirstGen
	for gen := first; gen < first+genmax; gen++ {
		net, err := network.New(pop.Size())
		if err != nil {
			return nil, fmt.Errorf("building network: %w", err)
		}

		res, err := s.RunGeneration(gen, pop, food, net)
		if err != nil {
			return nil, err
		}

		if sink != nil {
			if err := sink.WriteGeneration(res.Record); err != nil {
				return nil, fmt.Errorf("writing generation %d: %w", gen, err)
			}
			if err := sink.WriteNetwork(res.Network); err != nil {
				return nil, fmt.Errorf("writing network %d: %w", gen, err)
			}
		}
		if perfSink != nil {
			if err := perfSink.WritePerf(res.Perf.ToRecord(gen)); err != nil {
				return nil, fmt.Errorf("writing perf %d: %w", gen, err)
			}
		}

		if s.params.LogEvery > 0 && (gen-first)%s.params.LogEvery == 0 {
			s.logger.Info("generation", "stats", res.Record, "network", res.Network)
		}

		pop = res.Next
	}

	s.logger.Info("evolution complete",
		"generations", genmax,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"perf", s.perf.Stats(),
	)
	return pop, nil
}
