package agents

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/pathomove/random"
	"github.com/pthm-cable/pathomove/spatial"
)

// Mutator returns an offspring's value for an inherited trait.
type Mutator func(trait float64, src *random.Source) float64

// NoMutation passes traits through unchanged.
func NoMutation(trait float64, _ *random.Source) float64 {
	return trait
}

// CauchyMutator perturbs a trait with probability rate by a Cauchy step of the given scale.
func CauchyMutator(rate, scale float64) Mutator {
	return func(trait float64, src *random.Source) float64 {
		if src.Bernoulli(rate) {
			return trait + src.Cauchy(0, scale)
		}
		return trait
	}
}

// HandleFitness returns each agent's reproduction weight: its energy, floored at zero.
func (p *Population) HandleFitness() []float64 {
	fitness := make([]float64, p.n)
	for i, e := range p.Energy {
		f := float64(e)
		if f < 0 {
			f = 0
		}
		invariant(f >= 0, "non-negative fitness", "agent %d has fitness %v (energy %v)", i, f, e)
		fitness[i] = f
	}
	return fitness
}

// Reproduce samples the next generation: N parents drawn with replacement in
// proportion to fitness, uniformly if no agent has positive fitness. Offspring
// inherit coefficients and activity through mutate and start at their parent's
// position with fresh energy, counters and infection state.
func (p *Population) Reproduce(src *random.Source, mutate Mutator) (*Population, error) {
	if mutate == nil {
		mutate = NoMutation
	}

	next, err := p.sibling()
	if err != nil {
		return nil, err
	}
	if p.n == 0 {
		return next, nil
	}

	parents, err := src.NewCategorical(p.HandleFitness())
	if errors.Is(err, random.ErrZeroWeight) {
		uniform := make([]float64, p.n)
		for i := range uniform {
			uniform[i] = 1
		}
		parents, err = src.NewCategorical(uniform)
	}
	if err != nil {
		return nil, fmt.Errorf("building parent sampler: %w", err)
	}

	for i := 0; i < p.n; i++ {
		parent := parents.Sample()
		next.X[i] = p.X[parent]
		next.Y[i] = p.Y[parent]
		next.CoefNbrs[i] = float32(mutate(float64(p.CoefNbrs[parent]), src))
		next.CoefFood[i] = float32(mutate(float64(p.CoefFood[parent]), src))
		next.CoefNbrs2[i] = float32(mutate(float64(p.CoefNbrs2[parent]), src))
		next.CoefFood2[i] = float32(mutate(float64(p.CoefFood2[parent]), src))
		next.Activity[i] = max(mutate(p.Activity[parent], src), 0)
	}

	invariant(next.n == p.n && len(next.X) == p.n, "fixed population size",
		"offspring generation has %d agents, parents %d", len(next.X), p.n)
	next.UpdateIndex()
	return next, nil
}

// sibling returns a fresh population with p's configuration and size.
func (p *Population) sibling() (*Population, error) {
	index, err := spatial.New(p.minChildren, p.maxChildren)
	if err != nil {
		return nil, err
	}
	next := &Population{
		rangeAgents:  p.rangeAgents,
		rangeFood:    p.rangeFood,
		handlingTime: p.handlingTime,
		pTransmit:    p.pTransmit,
		moveDistance: p.moveDistance,
		moveChoices:  p.moveChoices,
		foodValue:    p.foodValue,
		scorer:       p.scorer,
		minChildren:  p.minChildren,
		maxChildren:  p.maxChildren,
		workers:      p.workers,
		index:        index,
	}
	next.allocate(p.n)
	return next, nil
}
