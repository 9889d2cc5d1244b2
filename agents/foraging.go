package agents

import (
	"github.com/pthm-cable/pathomove/spatial"
)

// Forage lets agent id eat the nearest available food item in range at time t.
// The agent gains the food value and is busy for the handling time.
// Returns true if an item was eaten.
func (p *Population) Forage(id int, food Resources, t float64) bool {
	if p.Busy(id, t) {
		return false
	}

	x, y := p.X[id], p.Y[id]
	p.foodBuf = food.Nearby(p.foodBuf, x, y, p.rangeFood)
	if len(p.foodBuf) == 0 {
		return false
	}

	// Nearest item; ids are sorted so ties go to the lowest id
	target := -1
	var bestDist float32
	for _, fid := range p.foodBuf {
		fx, fy := food.Position(fid)
		d := spatial.Distance(x, y, fx, fy)
		if target < 0 || d < bestDist {
			target, bestDist = fid, d
		}
	}

	if !food.Consume(target) {
		return false
	}
	p.Energy[id] += p.foodValue
	p.handlingUntil[id] = t + p.handlingTime
	return true
}

// ForageAll lets every agent forage once in Order. Returns the number of items eaten.
func (p *Population) ForageAll(food Resources, t float64) int {
	eaten := 0
	for _, id := range p.Order {
		if p.Forage(id, food, t) {
			eaten++
		}
	}
	return eaten
}
