package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pthm-cable/pathomove/agents"
	"github.com/pthm-cable/pathomove/config"
	"github.com/pthm-cable/pathomove/landscape"
	"github.com/pthm-cable/pathomove/random"
	"github.com/pthm-cable/pathomove/sim"
	"github.com/pthm-cable/pathomove/telemetry"
)

// Options are the command-line overrides for a run.
type Options struct {
	Seed        uint64 // 0 = config, then clock
	Generations int    // 0 = config
	OutputDir   string
	DBPath      string
	MetricsAddr string
	Resume      string // snapshot to start from
	LogStats    bool
}

// simParams maps the config onto scheduler parameters.
func simParams(cfg *config.Config, logStats bool) sim.Params {
	p := sim.Params{
		TMax:              cfg.Simulation.TMax,
		ForageInterval:    cfg.Simulation.ForageInterval,
		MoveIncrement:     cfg.Simulation.MoveIncrement,
		MoveCost:          cfg.Derived.MoveCost32,
		CompetitionCost:   cfg.Derived.CompCost32,
		RangeAssoc:        cfg.Derived.RangeAgents32,
		CostInfect:        cfg.Derived.CostInfect32,
		InitialInfections: cfg.Pathogen.InitialInfections,
		IntroductionGen:   cfg.Pathogen.IntroductionGen,
		NetworkMinWeight:  cfg.Telemetry.NetworkMinWeight,
		Mutate:            agents.NoMutation,
		PerfWindow:        cfg.Telemetry.PerfWindow,
	}
	if cfg.Mutation.Rate > 0 {
		p.Mutate = agents.CauchyMutator(cfg.Mutation.Rate, cfg.Mutation.Scale)
	}
	if logStats {
		p.LogEvery = cfg.Telemetry.LogEvery
	}
	return p
}

// newWorld builds the founding population and the food landscape.
func newWorld(cfg *config.Config, src *random.Source) (*agents.Population, *landscape.Landscape, error) {
	food, err := landscape.New(cfg.Landscape.Items, cfg.Derived.LandSize32, cfg.Landscape.RegenTime)
	if err != nil {
		return nil, nil, fmt.Errorf("creating landscape: %w", err)
	}
	if err := food.InitResources(cfg.Landscape.Clusters, cfg.Landscape.Dispersal, src); err != nil {
		return nil, nil, fmt.Errorf("placing resources: %w", err)
	}

	pop, err := agents.NewPopulation(
		cfg.Population.Size,
		cfg.Derived.RangeAgents32,
		cfg.Derived.RangeFood32,
		cfg.Population.HandlingTime,
		cfg.Pathogen.PTransmit,
		agents.WithMoveDistance(cfg.Derived.MoveDistance32),
		agents.WithMoveChoices(cfg.Movement.Choices),
		agents.WithFoodValue(cfg.Derived.FoodValue32),
		agents.WithBranching(cfg.Spatial.MinChildren, cfg.Spatial.MaxChildren),
		agents.WithWorkers(cfg.Population.Workers),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating population: %w", err)
	}
	if err := pop.SetTrait(src, agents.TraitInit{
		CoefRange: cfg.Traits.CoefRange,
		Activity:  cfg.Traits.Activity,
	}); err != nil {
		return nil, nil, fmt.Errorf("seeding traits: %w", err)
	}
	return pop, food, nil
}

// Run executes one experiment and writes its outputs.
func Run(cfg *config.Config, opts Options, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Simulation.Seed
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	generations := opts.Generations
	if generations == 0 {
		generations = cfg.Simulation.Generations
	}

	src := random.New(seed)
	pop, food, err := newWorld(cfg, src)
	if err != nil {
		return err
	}

	params := simParams(cfg, opts.LogStats)
	if opts.Resume != "" {
		snap, err := telemetry.LoadSnapshot(opts.Resume)
		if err != nil {
			return err
		}
		if err := snap.Apply(pop); err != nil {
			return fmt.Errorf("resuming from %s: %w", opts.Resume, err)
		}
		params.FirstGen = snap.Gen
		logger.Info("resumed", "snapshot", opts.Resume, "gen", snap.Gen)
	}

	sched, err := sim.New(params, src, logger)
	if err != nil {
		return err
	}

	out, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		return err
	}

	cfgYAML, err := cfg.YAML()
	if err != nil {
		return err
	}
	store, err := telemetry.OpenStore(opts.DBPath, seed, cfgYAML)
	if err != nil {
		return err
	}
	defer store.Close()

	bookmarks := telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory, logger)
	sinks := telemetry.Multi{bookmarks}
	if out != nil {
		sinks = append(sinks, out)
	}
	if store != nil {
		sinks = append(sinks, store)
	}

	if opts.MetricsAddr != "" {
		metrics, err := telemetry.NewMetrics(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		sinks = append(sinks, metrics)
		stop := serveMetrics(opts.MetricsAddr, metrics.Handler(), logger)
		defer stop()
	}

	logger.Info("starting simulation",
		"seed", seed,
		"generations", generations,
		"first_gen", params.FirstGen,
		"population", pop.Size(),
		"food_items", food.NItems(),
		"output_dir", out.Dir(),
		"run_id", store.RunID(),
	)

	final, err := sched.Evolve(generations, pop, food, sinks)
	if err != nil {
		return err
	}

	logger.Info("bookmarks", "count", len(bookmarks.Bookmarks()))

	if path, err := out.WriteSnapshot(telemetry.NewSnapshot(params.FirstGen+generations, seed, final)); err != nil {
		return err
	} else if path != "" {
		logger.Info("snapshot saved", "path", path)
	}
	return nil
}

// serveMetrics exposes handler on addr until the returned stop function is called.
func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
