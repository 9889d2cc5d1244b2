package agents

import (
	"errors"
	"reflect"
	"testing"

	"github.com/pthm-cable/pathomove/landscape"
	"github.com/pthm-cable/pathomove/network"
	"github.com/pthm-cable/pathomove/random"
)

// newTestPop builds a population or fails the test.
func newTestPop(t *testing.T, n int, rangeAgents float32, pTransmit float64, opts ...Option) *Population {
	t.Helper()
	p, err := NewPopulation(n, rangeAgents, 1, 0, pTransmit, opts...)
	if err != nil {
		t.Fatalf("NewPopulation(%d): %v", n, err)
	}
	return p
}

// newTestFood builds a landscape with items at the given positions.
func newTestFood(t *testing.T, size float32, regen float64, xs, ys []float32) *landscape.Landscape {
	t.Helper()
	l, err := landscape.New(len(xs), size, regen)
	if err != nil {
		t.Fatalf("landscape.New: %v", err)
	}
	if err := l.SetPositions(xs, ys); err != nil {
		t.Fatalf("SetPositions: %v", err)
	}
	return l
}

func TestNewPopulationArrayLengths(t *testing.T) {
	for _, n := range []int{0, 1, 2, 17, 250} {
		p := newTestPop(t, n, 1, 0.1)
		lengths := map[string]int{
			"X":            len(p.X),
			"Y":            len(p.Y),
			"Energy":       len(p.Energy),
			"CoefNbrs":     len(p.CoefNbrs),
			"CoefFood":     len(p.CoefFood),
			"CoefNbrs2":    len(p.CoefNbrs2),
			"CoefFood2":    len(p.CoefFood2),
			"Activity":     len(p.Activity),
			"Counter":      len(p.Counter),
			"Associations": len(p.Associations),
			"Degree":       len(p.Degree),
			"Infected":     len(p.Infected),
			"TimeInfected": len(p.TimeInfected),
			"SrcInfect":    len(p.SrcInfect),
			"Order":        len(p.Order),
		}
		for name, l := range lengths {
			if l != n {
				t.Errorf("n=%d: len(%s) = %d", n, name, l)
			}
		}
		if p.Size() != n {
			t.Errorf("Size = %d, want %d", p.Size(), n)
		}
	}
}

func TestNewPopulationRejectsInvalid(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		rangeAg   float32
		rangeFood float32
		handling  float64
		pTransmit float64
		opts      []Option
	}{
		{"negative size", -1, 1, 1, 0, 0.5, nil},
		{"negative agent range", 5, -1, 1, 0, 0.5, nil},
		{"negative food range", 5, 1, -1, 0, 0.5, nil},
		{"negative handling", 5, 1, 1, -1, 0.5, nil},
		{"probability above one", 5, 1, 1, 0, 1.5, nil},
		{"probability below zero", 5, 1, 1, 0, -0.1, nil},
		{"bad branching", 5, 1, 1, 0, 0.5, []Option{WithBranching(8, 4)}},
		{"negative move choices", 5, 1, 1, 0, 0.5, []Option{WithMoveChoices(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPopulation(tt.size, tt.rangeAg, tt.rangeFood, tt.handling, tt.pTransmit, tt.opts...)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
			if p != nil {
				t.Error("population returned alongside error")
			}
		})
	}
}

func TestCountAgentsScenario(t *testing.T) {
	p := newTestPop(t, 4, 2, 0)
	if err := p.SetPositions([]float32{0, 1, 10, 11}, []float32{0, 0, 10, 10}); err != nil {
		t.Fatal(err)
	}

	n, ids := p.CountAgents(0, 0)
	if n != 1 || !reflect.DeepEqual(ids, []int{1}) {
		t.Errorf("CountAgents(0,0) = %d %v, want 1 [1]", n, ids)
	}
	n, ids = p.CountAgents(10, 10)
	if n != 1 || !reflect.DeepEqual(ids, []int{3}) {
		t.Errorf("CountAgents(10,10) = %d %v, want 1 [3]", n, ids)
	}
	if got := p.Neighbours(2); !reflect.DeepEqual(got, []int{3}) {
		t.Errorf("Neighbours(2) = %v, want [3]", got)
	}
}

func TestCountAgentsColocated(t *testing.T) {
	p := newTestPop(t, 3, 2, 0)
	if err := p.SetPositions([]float32{5, 5, 6}, []float32{5, 5, 5}); err != nil {
		t.Fatal(err)
	}

	n, ids := p.CountAgentsFor(0, p.X[0], p.Y[0])
	if n != 2 || !reflect.DeepEqual(ids, []int{1, 2}) {
		t.Errorf("CountAgentsFor(0) = %d %v, want 2 [1 2]", n, ids)
	}
	if got := p.Neighbours(0); !reflect.DeepEqual(got, ids) {
		t.Errorf("Neighbours(0) = %v, CountAgentsFor(0) = %v", got, ids)
	}
	// A candidate site away from the agent still excludes only the agent.
	if n, ids := p.CountAgentsFor(2, 5, 5); n != 2 || !reflect.DeepEqual(ids, []int{0, 1}) {
		t.Errorf("CountAgentsFor(2, 5, 5) = %d %v, want 2 [0 1]", n, ids)
	}
	// The point query cannot tell agent 1 from the querier at (5, 5).
	if n, ids := p.CountAgents(5, 5); n != 1 || !reflect.DeepEqual(ids, []int{2}) {
		t.Errorf("CountAgents(5, 5) = %d %v, want 1 [2]", n, ids)
	}
}

func TestCountFood(t *testing.T) {
	p := newTestPop(t, 1, 1, 0)
	food := newTestFood(t, 10, 1, []float32{0.5, 3}, []float32{0, 0})
	n, ids := p.CountFood(food, 0, 0)
	if n != 1 || !reflect.DeepEqual(ids, []int{0}) {
		t.Errorf("CountFood = %d %v, want 1 [0]", n, ids)
	}
}

func TestShuffleRegenerates(t *testing.T) {
	p := newTestPop(t, 30, 1, 0)
	src := random.New(3)
	p.Shuffle(src)
	first := append([]int(nil), p.Order...)
	p.Shuffle(src)
	if reflect.DeepEqual(first, p.Order) {
		t.Error("two shuffles produced the same order")
	}
	seen := make([]bool, 30)
	for _, id := range p.Order {
		seen[id] = true
	}
	for i, ok := range seen {
		if !ok {
			t.Fatalf("agent %d missing from order", i)
		}
	}
}

func TestInitPosWithinLandscape(t *testing.T) {
	p := newTestPop(t, 100, 1, 0)
	food := newTestFood(t, 25, 1, nil, nil)
	p.InitPos(food, random.New(8))
	for i := 0; i < p.Size(); i++ {
		if p.X[i] < 0 || p.X[i] >= 25 || p.Y[i] < 0 || p.Y[i] >= 25 {
			t.Fatalf("agent %d at (%v, %v) outside landscape", i, p.X[i], p.Y[i])
		}
	}
	if p.Index().Len() != 100 {
		t.Errorf("index holds %d agents, want 100", p.Index().Len())
	}
}

func TestCountAssoc(t *testing.T) {
	p := newTestPop(t, 4, 2, 0)
	if err := p.SetPositions([]float32{0, 1, 10, 11}, []float32{0, 0, 10, 10}); err != nil {
		t.Fatal(err)
	}
	net, _ := network.New(4)

	for i := 0; i < 3; i++ {
		if err := p.CountAssoc(net, 2); err != nil {
			t.Fatalf("CountAssoc: %v", err)
		}
	}

	if got := net.Get(0, 1); got != 3 {
		t.Errorf("pair (0,1) = %d, want 3", got)
	}
	if got := net.Get(0, 2); got != 0 {
		t.Errorf("pair (0,2) = %d, want 0", got)
	}
	if !reflect.DeepEqual(p.Associations, []int{3, 3, 3, 3}) {
		t.Errorf("Associations = %v, want [3 3 3 3]", p.Associations)
	}
	if !reflect.DeepEqual(p.Degree, []int{1, 1, 1, 1}) {
		t.Errorf("Degree = %v, want [1 1 1 1]", p.Degree)
	}
}

func TestCountAssocParallelMatchesSerial(t *testing.T) {
	src := random.New(21)
	food := newTestFood(t, 30, 1, nil, nil)

	serial := newTestPop(t, 400, 2, 0, WithWorkers(1))
	serial.InitPos(food, src)
	parallel := newTestPop(t, 400, 2, 0, WithWorkers(4))
	if err := parallel.SetPositions(serial.X, serial.Y); err != nil {
		t.Fatal(err)
	}

	netA, _ := network.New(400)
	netB, _ := network.New(400)
	if err := serial.CountAssoc(netA, 2); err != nil {
		t.Fatal(err)
	}
	if err := parallel.CountAssoc(netB, 2); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(serial.Associations, parallel.Associations) {
		t.Error("parallel association counts differ from serial")
	}
	if netA.Total() != netB.Total() {
		t.Errorf("network totals differ: %d vs %d", netA.Total(), netB.Total())
	}
}

func TestCountAssocSizeMismatch(t *testing.T) {
	p := newTestPop(t, 4, 2, 0)
	net, _ := network.New(3)
	if err := p.CountAssoc(net, 2); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestCompetitionCosts(t *testing.T) {
	p := newTestPop(t, 3, 1, 0)
	p.CompetitionCosts(0.5)
	for i, e := range p.Energy {
		if e != InitialEnergy-0.5 {
			t.Errorf("agent %d energy = %v, want %v", i, e, InitialEnergy-0.5)
		}
	}
}
