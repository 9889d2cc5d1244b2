// Package random provides the seeded pseudo-random source shared by the simulation.
//
// A single Source is created per run and passed explicitly to every component
// that samples. Given the same seed and the same call order, a run is reproducible.
package random

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrInvalidWeights is returned when a weight vector contains negative or NaN entries.
	ErrInvalidWeights = errors.New("random: invalid weights")
	// ErrZeroWeight is returned when a weight vector sums to zero.
	ErrZeroWeight = errors.New("random: total weight is zero")
)

// pcgStream is the second PCG word; fixed so only the seed varies between runs.
const pcgStream = 0x9e3779b97f4a7c15

// Source wraps a PCG generator and exposes the distributions the simulation needs.
type Source struct {
	seed uint64
	src  rand.Source
	rng  *rand.Rand
}

// New creates a source seeded with seed.
func New(seed uint64) *Source {
	src := rand.NewPCG(seed, pcgStream)
	return &Source{
		seed: seed,
		src:  src,
		rng:  rand.New(src),
	}
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() uint64 {
	return s.seed
}

// Float64 returns a uniform value in [0, 1).
func (s *Source) Float64() float64 {
	return s.rng.Float64()
}

// Intn returns a uniform integer in [0, n). Panics if n <= 0.
func (s *Source) Intn(n int) int {
	return s.rng.IntN(n)
}

// Uniform returns a uniform value in [min, max).
func (s *Source) Uniform(min, max float64) float64 {
	return distuv.Uniform{Min: min, Max: max, Src: s.src}.Rand()
}

// Exponential returns an exponential waiting time with the given rate (mean 1/rate).
// A non-positive rate yields +Inf: the event never happens.
func (s *Source) Exponential(rate float64) float64 {
	if rate <= 0 {
		return math.Inf(1)
	}
	return distuv.Exponential{Rate: rate, Src: s.src}.Rand()
}

// Bernoulli returns true with probability p. p is clamped to [0, 1].
func (s *Source) Bernoulli(p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	return distuv.Bernoulli{P: p, Src: s.src}.Rand() == 1
}

// Normal returns a normally distributed value.
func (s *Source) Normal(mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: s.src}.Rand()
}

// Cauchy returns a Cauchy distributed value (Student's t with one degree of freedom).
func (s *Source) Cauchy(loc, scale float64) float64 {
	return distuv.StudentsT{Mu: loc, Sigma: scale, Nu: 1, Src: s.src}.Rand()
}

// Shuffle permutes order in place (Fisher-Yates).
func (s *Source) Shuffle(order []int) {
	s.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
}

// Categorical samples indices with replacement, with probability proportional to weight.
type Categorical struct {
	dist  distuv.Categorical
	n     int
	total float64
}

// NewCategorical builds a sampler over weights. The weights slice is not retained.
func (s *Source) NewCategorical(weights []float64) (*Categorical, error) {
	var total float64
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight %d is %v", ErrInvalidWeights, i, w)
		}
		total += w
	}
	if total == 0 {
		return nil, ErrZeroWeight
	}
	return &Categorical{
		dist:  distuv.NewCategorical(weights, s.src),
		n:     len(weights),
		total: total,
	}, nil
}

// Sample draws one index.
func (c *Categorical) Sample() int {
	return int(c.dist.Rand())
}

// Len returns the number of categories.
func (c *Categorical) Len() int {
	return c.n
}

// Total returns the sum of the weights the sampler was built from.
func (c *Categorical) Total() float64 {
	return c.total
}
