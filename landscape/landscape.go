// Package landscape provides the food resource landscape agents forage on.
package landscape

import (
	"errors"
	"fmt"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/pathomove/components"
	"github.com/pthm-cable/pathomove/random"
	"github.com/pthm-cable/pathomove/spatial"
)

// ErrInvalidArgument is returned for out-of-range construction parameters.
var ErrInvalidArgument = errors.New("landscape: invalid argument")

// Item is a read-only view of one food item.
type Item struct {
	X, Y      float32
	Counter   float64
	Available bool
}

// Landscape is a set of food items with positions and regeneration counters.
// Items are stored as ECS entities; an item is available once its counter has run down to zero.
type Landscape struct {
	size      float32
	regenTime float64

	world     *ecs.World
	mapper    *ecs.Map2[components.FoodPosition, components.Regrowth]
	filter    *ecs.Filter1[components.Regrowth]
	posMap    *ecs.Map1[components.FoodPosition]
	regrowMap *ecs.Map1[components.Regrowth]

	// items[i] is the entity of item i; the item index is built from FoodPosition.
	items      []ecs.Entity
	index      *spatial.Index
	nAvailable int
	scratch    []int
}

// New creates a landscape of nItems food items on a square of side size.
// Consumed items take regenTime to become available again.
// All items start at the origin and available; call InitResources or SetPositions to place them.
func New(nItems int, size float32, regenTime float64) (*Landscape, error) {
	if nItems < 0 {
		return nil, fmt.Errorf("%w: item count %d", ErrInvalidArgument, nItems)
	}
	if !(size > 0) {
		return nil, fmt.Errorf("%w: landscape size %v", ErrInvalidArgument, size)
	}
	if regenTime < 0 || math.IsNaN(regenTime) {
		return nil, fmt.Errorf("%w: regeneration time %v", ErrInvalidArgument, regenTime)
	}

	world := ecs.NewWorld()
	l := &Landscape{
		size:      size,
		regenTime: regenTime,
		world:     world,
		mapper:    ecs.NewMap2[components.FoodPosition, components.Regrowth](world),
		filter:    ecs.NewFilter1[components.Regrowth](world),
		posMap:    ecs.NewMap1[components.FoodPosition](world),
		regrowMap: ecs.NewMap1[components.Regrowth](world),
		items:     make([]ecs.Entity, nItems),
		index:     spatial.MustNew(spatial.DefaultMinChildren, spatial.DefaultMaxChildren),
	}

	for i := range l.items {
		pos := components.FoodPosition{}
		regrow := components.Regrowth{Available: true}
		l.items[i] = l.mapper.NewEntity(&pos, &regrow)
	}
	l.nAvailable = nItems
	l.index.Rebuild(make([]float32, nItems), make([]float32, nItems))

	return l, nil
}

// InitResources places items in clusters. Cluster centres are uniform on the
// landscape; each item is drawn around a random centre with normal spread dispersal.
func (l *Landscape) InitResources(clusters int, dispersal float64, src *random.Source) error {
	if clusters < 1 {
		return fmt.Errorf("%w: cluster count %d", ErrInvalidArgument, clusters)
	}
	if dispersal < 0 {
		return fmt.Errorf("%w: dispersal %v", ErrInvalidArgument, dispersal)
	}

	size := float64(l.size)
	centreX := make([]float64, clusters)
	centreY := make([]float64, clusters)
	for c := 0; c < clusters; c++ {
		centreX[c] = src.Uniform(0, size)
		centreY[c] = src.Uniform(0, size)
	}

	xs := make([]float32, len(l.items))
	ys := make([]float32, len(l.items))
	for i := range l.items {
		c := src.Intn(clusters)
		x, y := centreX[c], centreY[c]
		if dispersal > 0 {
			x = src.Normal(x, dispersal)
			y = src.Normal(y, dispersal)
		}
		xs[i] = spatial.Wrap(float32(x), l.size)
		ys[i] = spatial.Wrap(float32(y), l.size)
	}

	return l.SetPositions(xs, ys)
}

// SetPositions places item i at (xs[i], ys[i]) and rebuilds the item index.
func (l *Landscape) SetPositions(xs, ys []float32) error {
	if len(xs) != len(l.items) || len(ys) != len(l.items) {
		return fmt.Errorf("%w: got %d/%d coordinates for %d items", ErrInvalidArgument, len(xs), len(ys), len(l.items))
	}
	for i, e := range l.items {
		pos := l.posMap.Get(e)
		pos.X, pos.Y = xs[i], ys[i]
	}
	l.index.Rebuild(xs, ys)
	return nil
}

// CountAvailable refreshes every item's availability flag and the available count.
func (l *Landscape) CountAvailable() {
	l.nAvailable = 0
	query := l.filter.Query()
	for query.Next() {
		regrow := query.Get()
		regrow.Available = regrow.Counter <= 0
		if regrow.Available {
			l.nAvailable++
		}
	}
}

// Deplete runs down every regenerating item's counter by elapsed simulated time.
func (l *Landscape) Deplete(elapsed float64) {
	if elapsed <= 0 {
		return
	}
	query := l.filter.Query()
	for query.Next() {
		regrow := query.Get()
		if regrow.Counter > 0 {
			regrow.Counter -= elapsed
		}
	}
}

// Nearby appends to dst the ids of available items within r of (x, y), sorted by id.
func (l *Landscape) Nearby(dst []int, x, y, r float32) []int {
	dst = dst[:0]
	l.scratch = l.index.QueryRadius(l.scratch, x, y, r, spatial.NoExclude)
	for _, id := range l.scratch {
		if l.regrowMap.Get(l.items[id]).Available {
			dst = append(dst, id)
		}
	}
	return dst
}

// Consume marks item id as eaten and starts its regeneration counter.
// Returns false if the item was not available.
func (l *Landscape) Consume(id int) bool {
	regrow := l.regrowMap.Get(l.items[id])
	if !regrow.Available {
		return false
	}
	regrow.Available = false
	regrow.Counter = l.regenTime
	l.nAvailable--
	return true
}

// Position returns the position of item id.
func (l *Landscape) Position(id int) (x, y float32) {
	pos := l.posMap.Get(l.items[id])
	return pos.X, pos.Y
}

// Counter returns the regeneration counter of item id.
func (l *Landscape) Counter(id int) float64 {
	return l.regrowMap.Get(l.items[id]).Counter
}

// Item returns a snapshot of item id.
func (l *Landscape) Item(id int) Item {
	e := l.items[id]
	pos := l.posMap.Get(e)
	regrow := l.regrowMap.Get(e)
	return Item{X: pos.X, Y: pos.Y, Counter: regrow.Counter, Available: regrow.Available}
}

// NItems returns the number of food items.
func (l *Landscape) NItems() int {
	return len(l.items)
}

// NAvailable returns the available count as of the last CountAvailable or Consume.
func (l *Landscape) NAvailable() int {
	return l.nAvailable
}

// Size returns the side length of the landscape.
func (l *Landscape) Size() float32 {
	return l.size
}

// RegenTime returns the regeneration time of consumed items.
func (l *Landscape) RegenTime() float64 {
	return l.regenTime
}

// Reset makes every item available again. Used between independent runs on one landscape.
func (l *Landscape) Reset() {
	query := l.filter.Query()
	for query.Next() {
		regrow := query.Get()
		regrow.Counter = 0
		regrow.Available = true
	}
	l.nAvailable = len(l.items)
}
