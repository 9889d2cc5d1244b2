package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/pthm-cable/pathomove/config"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = config, then time-based)")
	generations := flag.Int("generations", 0, "Generations to run (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config and snapshot")
	dbPath := flag.String("db", "", "SQLite database for run records (empty = disabled)")
	metricsAddr := flag.String("metrics-addr", "", "Address to serve Prometheus metrics on (empty = disabled)")
	resume := flag.String("resume", "", "Snapshot file to resume from")
	logStats := flag.Bool("log-stats", false, "Output generation stats via slog")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	opts := Options{
		Seed:        *seed,
		Generations: *generations,
		OutputDir:   *outputDir,
		DBPath:      *dbPath,
		MetricsAddr: *metricsAddr,
		Resume:      *resume,
		LogStats:    *logStats,
	}
	if err := Run(config.Cfg(), opts, logger); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}
