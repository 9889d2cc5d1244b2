package agents

import (
	"math"

	"github.com/pthm-cable/pathomove/random"
	"github.com/pthm-cable/pathomove/spatial"
)

// Scorer rates a site from the agent's coefficients and the neighbour and
// food counts sensed there. Coefficients are ordered as Population.Coefs.
type Scorer func(coef [4]float32, nbrs, food int) float32

// LinearQuadratic is the default site score:
// c1*nbrs + c2*food + c3*nbrs^2 + c4*food^2.
func LinearQuadratic(coef [4]float32, nbrs, food int) float32 {
	n := float32(nbrs)
	f := float32(food)
	return coef[0]*n + coef[1]*f + coef[2]*n*n + coef[3]*f*f
}

// Busy reports whether agent id is still handling food at time t.
func (p *Population) Busy(id int, t float64) bool {
	return p.handlingUntil[id] > t
}

// siteScore evaluates (x, y) for agent id, ignoring id itself as a neighbour.
func (p *Population) siteScore(id int, food Resources, x, y float32) float32 {
	p.nbrBuf = p.index.QueryRadius(p.nbrBuf, x, y, p.rangeAgents, id)
	p.foodBuf = food.Nearby(p.foodBuf, x, y, p.rangeFood)
	return p.scorer(p.Coefs(id), len(p.nbrBuf), len(p.foodBuf))
}

// Move lets agent id pick the best of its current site and a set of random
// candidate sites one step away. Ties keep the agent in place, which counts
// as stationary behaviour. Moving costs moveCost energy; the spatial index is
// updated for the moved agent. Agents busy handling food do not move.
// Returns true if the agent changed position.
func (p *Population) Move(id int, food Resources, t float64, moveCost float32, src *random.Source) bool {
	if p.Busy(id, t) {
		return false
	}

	size := food.Size()
	x0, y0 := p.X[id], p.Y[id]
	bestX, bestY := x0, y0
	best := p.siteScore(id, food, x0, y0)
	moved := false

	for c := 0; c < p.moveChoices; c++ {
		angle := src.Uniform(0, 2*math.Pi)
		cx := spatial.Wrap(x0+p.moveDistance*float32(math.Cos(angle)), size)
		cy := spatial.Wrap(y0+p.moveDistance*float32(math.Sin(angle)), size)
		if s := p.siteScore(id, food, cx, cy); s > best {
			best = s
			bestX, bestY = cx, cy
			moved = true
		}
	}

	if !moved {
		p.Counter[id]++
		return false
	}

	p.X[id], p.Y[id] = bestX, bestY
	p.Energy[id] -= moveCost
	p.index.Update(id, bestX, bestY)
	return true
}
