package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/pathomove/config"
	"github.com/pthm-cable/pathomove/telemetry"
)

func smallConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "small.yaml")
	overlay := `simulation:
  generations: 3
  tmax: 5
population:
  size: 12
landscape:
  items: 30
  size: 10
  regen_time: 2
  clusters: 3
pathogen:
  initial_infections: 2
  introduction_gen: 1
`
	if err := os.WriteFile(path, []byte(overlay), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSimParams(t *testing.T) {
	cfg := smallConfig(t)
	p := simParams(cfg, false)
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.TMax != 5 || p.IntroductionGen != 1 || p.InitialInfections != 2 {
		t.Errorf("params = %+v", p)
	}
	if p.LogEvery != 0 {
		t.Errorf("LogEvery = %d without -log-stats, want 0", p.LogEvery)
	}
	if simParams(cfg, true).LogEvery != cfg.Telemetry.LogEvery {
		t.Error("LogEvery not taken from config with -log-stats")
	}
}

func TestRunWritesOutputs(t *testing.T) {
	cfg := smallConfig(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")

	err := Run(cfg, Options{Seed: 11, OutputDir: dir, DBPath: db}, quietLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, name := range []string{"gen_data.csv", "network.csv", "perf.csv", "config.yaml", "snapshot_gen_3.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}

	snap, err := telemetry.LoadSnapshot(filepath.Join(dir, "snapshot_gen_3.json"))
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snap.Seed != 11 || len(snap.Agents) != 12 {
		t.Errorf("snapshot seed/agents = %d/%d, want 11/12", snap.Seed, len(snap.Agents))
	}

	// Resume into a second directory, continuing the generation count.
	dir2 := t.TempDir()
	err = Run(cfg, Options{
		Seed:        12,
		Generations: 2,
		OutputDir:   dir2,
		Resume:      filepath.Join(dir, "snapshot_gen_3.json"),
	}, quietLogger())
	if err != nil {
		t.Fatalf("Run resumed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir2, "snapshot_gen_5.json")); err != nil {
		t.Errorf("resumed snapshot: %v", err)
	}
}

func TestRunResumeSizeMismatch(t *testing.T) {
	cfg := smallConfig(t)
	dir := t.TempDir()
	if err := Run(cfg, Options{Seed: 1, Generations: 1, OutputDir: dir}, quietLogger()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	cfg.Population.Size = 13
	err := Run(cfg, Options{Seed: 2, Generations: 1, Resume: filepath.Join(dir, "snapshot_gen_1.json")}, quietLogger())
	if err == nil {
		t.Error("expected error resuming into a different population size")
	}
}

func TestRunWithoutOutputs(t *testing.T) {
	cfg := smallConfig(t)
	if err := Run(cfg, Options{Seed: 3, Generations: 1}, quietLogger()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
