// Package config provides configuration loading with embedded defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned by Validate for out-of-range parameters.
var ErrInvalid = errors.New("invalid config")

// Config holds all simulation parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Population PopulationConfig `yaml:"population"`
	Traits     TraitsConfig     `yaml:"traits"`
	Landscape  LandscapeConfig  `yaml:"landscape"`
	Energy     EnergyConfig     `yaml:"energy"`
	Movement   MovementConfig   `yaml:"movement"`
	Pathogen   PathogenConfig   `yaml:"pathogen"`
	Mutation   MutationConfig   `yaml:"mutation"`
	Spatial    SpatialConfig    `yaml:"spatial"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	Derived DerivedConfig `yaml:"-"`
}

type SimulationConfig struct {
	Seed           uint64  `yaml:"seed"`            // 0 = derive from the clock
	Generations    int     `yaml:"generations"`
	TMax           float64 `yaml:"tmax"`            // Simulated time per generation
	ForageInterval float64 `yaml:"forage_interval"` // Time between forage phases
	MoveIncrement  float64 `yaml:"move_increment"`  // Move rounds are aligned to multiples of this
}

type PopulationConfig struct {
	Size         int     `yaml:"size"`
	RangeAgents  float64 `yaml:"range_agents"`
	RangeFood    float64 `yaml:"range_food"`
	HandlingTime float64 `yaml:"handling_time"`
	Workers      int     `yaml:"workers"` // 0 = GOMAXPROCS
}

type TraitsConfig struct {
	CoefRange float64 `yaml:"coef_range"`
	Activity  float64 `yaml:"activity"`
}

type LandscapeConfig struct {
	Items     int     `yaml:"items"`
	Size      float64 `yaml:"size"`
	RegenTime float64 `yaml:"regen_time"`
	Clusters  int     `yaml:"clusters"`
	Dispersal float64 `yaml:"dispersal"`
}

type EnergyConfig struct {
	FoodValue       float64 `yaml:"food_value"`
	MoveCost        float64 `yaml:"move_cost"`
	CompetitionCost float64 `yaml:"competition_cost"` // Flat cost per agent per generation
}

type MovementConfig struct {
	Distance float64 `yaml:"distance"`
	Choices  int     `yaml:"choices"` // Candidate sites scored per move
}

type PathogenConfig struct {
	PTransmit         float64 `yaml:"p_transmit"`
	CostInfect        float64 `yaml:"cost_infect"`
	InitialInfections int     `yaml:"initial_infections"`
	IntroductionGen   int     `yaml:"introduction_gen"` // -1 = never
}

type MutationConfig struct {
	Rate  float64 `yaml:"rate"`
	Scale float64 `yaml:"scale"` // Cauchy scale
}

type SpatialConfig struct {
	MinChildren int `yaml:"min_children"`
	MaxChildren int `yaml:"max_children"`
}

type TelemetryConfig struct {
	NetworkMinWeight int `yaml:"network_min_weight"`
	LogEvery         int `yaml:"log_every"`
	PerfWindow       int `yaml:"perf_window"`
	BookmarkHistory  int `yaml:"bookmark_history"` // Generations of history for bookmark detection
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	RangeAgents32  float32
	RangeFood32    float32
	LandSize32     float32
	FoodValue32    float32
	MoveCost32     float32
	MoveDistance32 float32
	CompCost32     float32
	CostInfect32   float32
	ItemDensity    float64 // Items per unit area
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// Validate checks parameter ranges.
func (c *Config) Validate() error {
	checks := []struct {
		ok   bool
		name string
		val  any
	}{
		{c.Simulation.Generations >= 0, "simulation.generations", c.Simulation.Generations},
		{c.Simulation.TMax > 0, "simulation.tmax", c.Simulation.TMax},
		{c.Simulation.ForageInterval > 0, "simulation.forage_interval", c.Simulation.ForageInterval},
		{c.Simulation.MoveIncrement > 0, "simulation.move_increment", c.Simulation.MoveIncrement},
		{c.Population.Size >= 0, "population.size", c.Population.Size},
		{c.Population.RangeAgents >= 0, "population.range_agents", c.Population.RangeAgents},
		{c.Population.RangeFood >= 0, "population.range_food", c.Population.RangeFood},
		{c.Population.HandlingTime >= 0, "population.handling_time", c.Population.HandlingTime},
		{c.Population.Workers >= 0, "population.workers", c.Population.Workers},
		{c.Traits.CoefRange >= 0, "traits.coef_range", c.Traits.CoefRange},
		{c.Traits.Activity >= 0, "traits.activity", c.Traits.Activity},
		{c.Landscape.Items >= 0, "landscape.items", c.Landscape.Items},
		{c.Landscape.Size > 0, "landscape.size", c.Landscape.Size},
		{c.Landscape.RegenTime >= 0, "landscape.regen_time", c.Landscape.RegenTime},
		{c.Landscape.Clusters >= 1, "landscape.clusters", c.Landscape.Clusters},
		{c.Landscape.Dispersal >= 0, "landscape.dispersal", c.Landscape.Dispersal},
		{c.Energy.MoveCost >= 0, "energy.move_cost", c.Energy.MoveCost},
		{c.Energy.CompetitionCost >= 0, "energy.competition_cost", c.Energy.CompetitionCost},
		{c.Movement.Distance >= 0, "movement.distance", c.Movement.Distance},
		{c.Movement.Choices >= 1, "movement.choices", c.Movement.Choices},
		{c.Pathogen.PTransmit >= 0 && c.Pathogen.PTransmit <= 1, "pathogen.p_transmit", c.Pathogen.PTransmit},
		{c.Pathogen.CostInfect >= 0, "pathogen.cost_infect", c.Pathogen.CostInfect},
		{c.Pathogen.InitialInfections >= 0, "pathogen.initial_infections", c.Pathogen.InitialInfections},
		{c.Pathogen.IntroductionGen >= -1, "pathogen.introduction_gen", c.Pathogen.IntroductionGen},
		{c.Mutation.Rate >= 0 && c.Mutation.Rate <= 1, "mutation.rate", c.Mutation.Rate},
		{c.Mutation.Scale >= 0, "mutation.scale", c.Mutation.Scale},
		{c.Spatial.MinChildren >= 1 && c.Spatial.MinChildren <= c.Spatial.MaxChildren, "spatial.min_children", c.Spatial.MinChildren},
		{c.Telemetry.NetworkMinWeight >= 1, "telemetry.network_min_weight", c.Telemetry.NetworkMinWeight},
		{c.Telemetry.LogEvery >= 0, "telemetry.log_every", c.Telemetry.LogEvery},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("%w: %s = %v", ErrInvalid, chk.name, chk.val)
		}
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.RangeAgents32 = float32(c.Population.RangeAgents)
	c.Derived.RangeFood32 = float32(c.Population.RangeFood)
	c.Derived.LandSize32 = float32(c.Landscape.Size)
	c.Derived.FoodValue32 = float32(c.Energy.FoodValue)
	c.Derived.MoveCost32 = float32(c.Energy.MoveCost)
	c.Derived.MoveDistance32 = float32(c.Movement.Distance)
	c.Derived.CompCost32 = float32(c.Energy.CompetitionCost)
	c.Derived.CostInfect32 = float32(c.Pathogen.CostInfect)
	c.Derived.ItemDensity = float64(c.Landscape.Items) / (c.Landscape.Size * c.Landscape.Size)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// YAML returns the configuration as a YAML document.
func (c *Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	return string(data), nil
}
