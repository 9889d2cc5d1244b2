// Package agents holds the population state and the behaviour that reads and writes it:
// movement, foraging, association counting, reproduction and pathogen transmission.
//
// State is kept as parallel per-agent slices indexed 0..N-1. N is fixed for the
// lifetime of a Population; reproduction builds a new Population.
package agents

import (
	"math"

	"github.com/pthm-cable/pathomove/random"
	"github.com/pthm-cable/pathomove/spatial"
)

// InitialEnergy is the energy every agent starts a generation with.
const InitialEnergy float32 = 0.001

// Movement defaults.
const (
	DefaultMoveDistance float32 = 1.0
	DefaultMoveChoices          = 3
	DefaultFoodValue    float32 = 1.0
)

// Source is the origin of an agent's infection.
type Source int

const (
	SourceNone       Source = iota // uninfected
	SourceVertical                 // seeded at generation start
	SourceHorizontal               // transmitted by a neighbour
)

func (s Source) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceVertical:
		return "vertical"
	case SourceHorizontal:
		return "horizontal"
	}
	return "unknown"
}

// Population is the agent set of one generation.
// The exported slices all have length Size() and must not be resized.
type Population struct {
	n int

	X, Y   []float32
	Energy []float32

	// Movement coefficients: neighbours, food, neighbours squared, food squared.
	CoefNbrs  []float32
	CoefFood  []float32
	CoefNbrs2 []float32
	CoefFood2 []float32

	// Activity weights the chance an agent is picked to move.
	Activity []float64

	Counter      []int // times an agent chose to stay put
	Associations []int // total proximity events
	Degree       []int // distinct partners

	Infected     []bool
	TimeInfected []int
	SrcInfect    []Source

	// Order is the traversal order from the last Shuffle.
	Order []int

	handlingUntil []float64

	rangeAgents  float32
	rangeFood    float32
	handlingTime float64
	pTransmit    float64
	nInfected    int

	moveDistance float32
	moveChoices  int
	foodValue    float32
	scorer       Scorer
	minChildren  int
	maxChildren  int
	workers      int

	index   *spatial.Index
	nbrBuf  []int
	foodBuf []int
}

// Option configures a Population.
type Option func(*Population)

// WithMoveDistance sets the step length of a move.
func WithMoveDistance(d float32) Option {
	return func(p *Population) { p.moveDistance = d }
}

// WithMoveChoices sets how many candidate sites are scored per move.
func WithMoveChoices(k int) Option {
	return func(p *Population) { p.moveChoices = k }
}

// WithFoodValue sets the energy gained per food item.
func WithFoodValue(v float32) Option {
	return func(p *Population) { p.foodValue = v }
}

// WithScorer replaces the site scoring policy.
func WithScorer(s Scorer) Option {
	return func(p *Population) { p.scorer = s }
}

// WithBranching sets the spatial index node branching.
func WithBranching(minChildren, maxChildren int) Option {
	return func(p *Population) {
		p.minChildren = minChildren
		p.maxChildren = maxChildren
	}
}

// WithWorkers caps the goroutines used for neighbour snapshots (0 = GOMAXPROCS).
func WithWorkers(n int) Option {
	return func(p *Population) { p.workers = n }
}

// NewPopulation creates a population of size agents with zeroed traits at the origin.
func NewPopulation(size int, rangeAgents, rangeFood float32, handlingTime, pTransmit float64, opts ...Option) (*Population, error) {
	if size < 0 {
		return nil, invalidf("population size %d", size)
	}
	if rangeAgents < 0 || isNaN32(rangeAgents) {
		return nil, invalidf("agent sensory range %v", rangeAgents)
	}
	if rangeFood < 0 || isNaN32(rangeFood) {
		return nil, invalidf("food sensory range %v", rangeFood)
	}
	if handlingTime < 0 || math.IsNaN(handlingTime) {
		return nil, invalidf("handling time %v", handlingTime)
	}
	if !(pTransmit >= 0 && pTransmit <= 1) {
		return nil, invalidf("transmission probability %v outside [0, 1]", pTransmit)
	}

	p := &Population{
		rangeAgents:  rangeAgents,
		rangeFood:    rangeFood,
		handlingTime: handlingTime,
		pTransmit:    pTransmit,
		moveDistance: DefaultMoveDistance,
		moveChoices:  DefaultMoveChoices,
		foodValue:    DefaultFoodValue,
		scorer:       LinearQuadratic,
		minChildren:  spatial.DefaultMinChildren,
		maxChildren:  spatial.DefaultMaxChildren,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.moveDistance < 0 || p.moveChoices < 0 || p.workers < 0 {
		return nil, invalidf("movement distance %v, choices %d, workers %d", p.moveDistance, p.moveChoices, p.workers)
	}
	if p.scorer == nil {
		return nil, invalidf("nil scorer")
	}
	index, err := spatial.New(p.minChildren, p.maxChildren)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	p.index = index

	p.allocate(size)
	p.UpdateIndex()
	return p, nil
}

// allocate sizes every per-agent slice to n and sets initial values.
func (p *Population) allocate(n int) {
	p.n = n
	p.X = make([]float32, n)
	p.Y = make([]float32, n)
	p.Energy = make([]float32, n)
	p.CoefNbrs = make([]float32, n)
	p.CoefFood = make([]float32, n)
	p.CoefNbrs2 = make([]float32, n)
	p.CoefFood2 = make([]float32, n)
	p.Activity = make([]float64, n)
	p.Counter = make([]int, n)
	p.Associations = make([]int, n)
	p.Degree = make([]int, n)
	p.Infected = make([]bool, n)
	p.TimeInfected = make([]int, n)
	p.SrcInfect = make([]Source, n)
	p.Order = make([]int, n)
	p.handlingUntil = make([]float64, n)

	for i := 0; i < n; i++ {
		p.Energy[i] = InitialEnergy
		p.Activity[i] = 1
		p.Order[i] = i
	}
	p.nInfected = 0
}

// Size returns the number of agents.
func (p *Population) Size() int {
	return p.n
}

// RangeAgents returns the neighbour sensory range.
func (p *Population) RangeAgents() float32 { return p.rangeAgents }

// RangeFood returns the food sensory range.
func (p *Population) RangeFood() float32 { return p.rangeFood }

// HandlingTime returns the time an agent is busy after eating.
func (p *Population) HandlingTime() float64 { return p.handlingTime }

// PTransmit returns the per-contact transmission probability.
func (p *Population) PTransmit() float64 { return p.pTransmit }

// Index returns the population's spatial index.
func (p *Population) Index() *spatial.Index { return p.index }

// Agent is a read-only snapshot of one agent.
type Agent struct {
	X, Y         float32
	Energy       float32
	Coef         [4]float32
	Activity     float64
	Counter      int
	Associations int
	Degree       int
	Infected     bool
	TimeInfected int
	Source       Source
}

// Agent returns a snapshot of agent i.
func (p *Population) Agent(i int) Agent {
	return Agent{
		X:            p.X[i],
		Y:            p.Y[i],
		Energy:       p.Energy[i],
		Coef:         p.Coefs(i),
		Activity:     p.Activity[i],
		Counter:      p.Counter[i],
		Associations: p.Associations[i],
		Degree:       p.Degree[i],
		Infected:     p.Infected[i],
		TimeInfected: p.TimeInfected[i],
		Source:       p.SrcInfect[i],
	}
}

// Coefs returns agent i's movement coefficients in scorer order.
func (p *Population) Coefs(i int) [4]float32 {
	return [4]float32{p.CoefNbrs[i], p.CoefFood[i], p.CoefNbrs2[i], p.CoefFood2[i]}
}

// TraitInit controls the initial trait draw of a founding generation.
type TraitInit struct {
	CoefRange float64 // coefficients uniform in [-CoefRange, CoefRange)
	Activity  float64 // initial activity of every agent
}

// SetTrait draws founding traits.
func (p *Population) SetTrait(src *random.Source, init TraitInit) error {
	if init.CoefRange < 0 || init.Activity < 0 {
		return invalidf("trait init %+v", init)
	}
	for i := 0; i < p.n; i++ {
		if init.CoefRange > 0 {
			p.CoefNbrs[i] = float32(src.Uniform(-init.CoefRange, init.CoefRange))
			p.CoefFood[i] = float32(src.Uniform(-init.CoefRange, init.CoefRange))
			p.CoefNbrs2[i] = float32(src.Uniform(-init.CoefRange, init.CoefRange))
			p.CoefFood2[i] = float32(src.Uniform(-init.CoefRange, init.CoefRange))
		}
		p.Activity[i] = init.Activity
	}
	return nil
}

// InitPos scatters agents uniformly over the landscape and rebuilds the index.
func (p *Population) InitPos(food Resources, src *random.Source) {
	size := float64(food.Size())
	for i := 0; i < p.n; i++ {
		p.X[i] = spatial.Wrap(float32(src.Uniform(0, size)), food.Size())
		p.Y[i] = spatial.Wrap(float32(src.Uniform(0, size)), food.Size())
		p.handlingUntil[i] = 0
	}
	p.UpdateIndex()
}

// SetPositions places agent i at (xs[i], ys[i]) and rebuilds the index.
func (p *Population) SetPositions(xs, ys []float32) error {
	if len(xs) != p.n || len(ys) != p.n {
		return invalidf("got %d/%d coordinates for %d agents", len(xs), len(ys), p.n)
	}
	copy(p.X, xs)
	copy(p.Y, ys)
	p.UpdateIndex()
	return nil
}

// Shuffle regenerates Order as a fresh uniform permutation.
func (p *Population) Shuffle(src *random.Source) {
	for i := range p.Order {
		p.Order[i] = i
	}
	src.Shuffle(p.Order)
}

// UpdateIndex rebuilds the spatial index from current positions.
func (p *Population) UpdateIndex() {
	p.index.Rebuild(p.X, p.Y)
}

// CountFood returns the available food items within food range of (x, y).
func (p *Population) CountFood(food Resources, x, y float32) (int, []int) {
	ids := food.Nearby(nil, x, y, p.rangeFood)
	return len(ids), ids
}

// CountAgents returns the agents within sensory range of (x, y). Agents
// located exactly at (x, y) are treated as the querying agent and excluded;
// use CountAgentsFor when the querier is known and may share its position.
func (p *Population) CountAgents(x, y float32) (int, []int) {
	found := p.index.QueryRadius(nil, x, y, p.rangeAgents, spatial.NoExclude)
	ids := found[:0]
	for _, id := range found {
		if p.X[id] == x && p.Y[id] == y {
			continue
		}
		ids = append(ids, id)
	}
	return len(ids), ids
}

// CountAgentsFor returns the agents within sensory range of (x, y) seen by
// agent id. Only id itself is excluded, so co-located agents are counted.
func (p *Population) CountAgentsFor(id int, x, y float32) (int, []int) {
	ids := p.index.QueryRadius(nil, x, y, p.rangeAgents, id)
	return len(ids), ids
}

// Neighbours returns the agents within sensory range of agent i, excluding i.
func (p *Population) Neighbours(i int) []int {
	_, ids := p.CountAgentsFor(i, p.X[i], p.Y[i])
	return ids
}

// CompetitionCosts subtracts a flat cost from every agent.
func (p *Population) CompetitionCosts(cost float32) {
	for i := range p.Energy {
		p.Energy[i] -= cost
	}
}

func isNaN32(v float32) bool {
	return v != v
}
