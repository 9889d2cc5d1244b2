package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/pathomove/agents"
	"github.com/pthm-cable/pathomove/network"
)

// GenerationRecord summarises one generation, sampled after pathogen costs
// and before reproduction.
type GenerationRecord struct {
	Gen     int     `csv:"gen"`
	PopSize int     `csv:"pop_size"`
	SimTime float64 `csv:"sim_time"`

	// Event counts during the generation
	MoveEvents    int `csv:"move_events"`
	Moves         int `csv:"moves"`
	ForagePhases  int `csv:"forage_phases"`
	FoodEaten     int `csv:"food_eaten"`
	NewInfections int `csv:"new_infections"`

	// Infection state at generation end
	PathogenIntroduced bool    `csv:"pathogen_introduced"`
	Infected           int     `csv:"n_infected"`
	PropHorizontal     float64 `csv:"p_src_horizontal"`

	// Energy distribution
	EnergyMean float64 `csv:"energy_mean"`
	EnergySD   float64 `csv:"energy_sd"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Movement strategy
	CoefNbrsMean  float64 `csv:"coef_nbrs_mean"`
	CoefNbrsSD    float64 `csv:"coef_nbrs_sd"`
	CoefFoodMean  float64 `csv:"coef_food_mean"`
	CoefFoodSD    float64 `csv:"coef_food_sd"`
	CoefNbrs2Mean float64 `csv:"coef_nbrs2_mean"`
	CoefNbrs2SD   float64 `csv:"coef_nbrs2_sd"`
	CoefFood2Mean float64 `csv:"coef_food2_mean"`
	CoefFood2SD   float64 `csv:"coef_food2_sd"`
	ActivityMean  float64 `csv:"activity_mean"`
	ActivitySD    float64 `csv:"activity_sd"`

	// Sociality
	StayMean   float64 `csv:"stay_mean"`
	AssocMean  float64 `csv:"assoc_mean"`
	DegreeMean float64 `csv:"degree_mean"`

	WallTimeMS int64 `csv:"wall_time_ms"`
}

// NetworkRecord is the association network summary of one generation.
type NetworkRecord struct {
	Gen              int     `csv:"gen"`
	Vertices         int     `csv:"vertices"`
	Edges            int     `csv:"edges"`
	Interactions     int     `csv:"interactions"`
	MeanDegree       float64 `csv:"mean_degree"`
	MeanStrength     float64 `csv:"mean_strength"`
	Density          float64 `csv:"density"`
	Components       int     `csv:"components"`
	LargestComponent int     `csv:"largest_component"`
}

// Summary holds the moments and percentiles of a sample.
type Summary struct {
	Mean, SD      float64
	P10, P50, P90 float64
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeStats calculates mean, sample standard deviation and percentiles.
// The standard deviation of fewer than two values is 0.
func ComputeStats(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}

	var s Summary
	if n == 1 {
		s.Mean = values[0]
	} else {
		s.Mean, s.SD = stat.MeanStdDev(values, nil)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	s.P10 = Percentile(sorted, 0.10)
	s.P50 = Percentile(sorted, 0.50)
	s.P90 = Percentile(sorted, 0.90)
	return s
}

func float64s[T float32 | int](values []T) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// NewGenerationRecord samples the state of pop. Event counts and timings are
// left for the caller to fill in.
func NewGenerationRecord(gen int, pop *agents.Population) GenerationRecord {
	energy := ComputeStats(float64s(pop.Energy))
	nbrs := ComputeStats(float64s(pop.CoefNbrs))
	food := ComputeStats(float64s(pop.CoefFood))
	nbrs2 := ComputeStats(float64s(pop.CoefNbrs2))
	food2 := ComputeStats(float64s(pop.CoefFood2))
	activity := ComputeStats(pop.Activity)

	return GenerationRecord{
		Gen:            gen,
		PopSize:        pop.Size(),
		Infected:       pop.NInfected(),
		PropHorizontal: pop.PropSrcInfection(),
		EnergyMean:     energy.Mean,
		EnergySD:       energy.SD,
		EnergyP10:      energy.P10,
		EnergyP50:      energy.P50,
		EnergyP90:      energy.P90,
		CoefNbrsMean:   nbrs.Mean,
		CoefNbrsSD:     nbrs.SD,
		CoefFoodMean:   food.Mean,
		CoefFoodSD:     food.SD,
		CoefNbrs2Mean:  nbrs2.Mean,
		CoefNbrs2SD:    nbrs2.SD,
		CoefFood2Mean:  food2.Mean,
		CoefFood2SD:    food2.SD,
		ActivityMean:   activity.Mean,
		ActivitySD:     activity.SD,
		StayMean:       mean(float64s(pop.Counter)),
		AssocMean:      mean(float64s(pop.Associations)),
		DegreeMean:     mean(float64s(pop.Degree)),
	}
}

// NewNetworkRecord converts a network summary into a record for generation gen.
func NewNetworkRecord(gen int, s network.Summary) NetworkRecord {
	return NetworkRecord{
		Gen:              gen,
		Vertices:         s.Vertices,
		Edges:            s.Edges,
		Interactions:     s.Interactions,
		MeanDegree:       s.MeanDegree,
		MeanStrength:     s.MeanStrength,
		Density:          sanitize(s.Density),
		Components:       s.Components,
		LargestComponent: s.LargestComponent,
	}
}

// sanitize maps NaN and infinities to 0 so records stay writable.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// LogValue implements slog.LogValuer for structured logging.
func (r GenerationRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("gen", r.Gen),
		slog.Int("pop_size", r.PopSize),
		slog.Float64("sim_time", r.SimTime),
		slog.Int("move_events", r.MoveEvents),
		slog.Int("moves", r.Moves),
		slog.Int("forage_phases", r.ForagePhases),
		slog.Int("food_eaten", r.FoodEaten),
		slog.Int("new_infections", r.NewInfections),
		slog.Bool("pathogen_introduced", r.PathogenIntroduced),
		slog.Int("n_infected", r.Infected),
		slog.Float64("p_src_horizontal", r.PropHorizontal),
		slog.Float64("energy_mean", r.EnergyMean),
		slog.Float64("energy_p50", r.EnergyP50),
		slog.Float64("coef_nbrs_mean", r.CoefNbrsMean),
		slog.Float64("coef_food_mean", r.CoefFoodMean),
		slog.Float64("activity_mean", r.ActivityMean),
		slog.Float64("assoc_mean", r.AssocMean),
		slog.Float64("degree_mean", r.DegreeMean),
		slog.Int64("wall_time_ms", r.WallTimeMS),
	)
}

// LogValue implements slog.LogValuer for structured logging.
func (r NetworkRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("gen", r.Gen),
		slog.Int("edges", r.Edges),
		slog.Int("interactions", r.Interactions),
		slog.Float64("mean_degree", r.MeanDegree),
		slog.Float64("density", r.Density),
		slog.Int("components", r.Components),
		slog.Int("largest_component", r.LargestComponent),
	)
}
