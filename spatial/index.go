// Package spatial provides an R-tree index over indexed 2D points.
package spatial

import (
	"fmt"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
)

// NoExclude disables self-exclusion in QueryRadius.
const NoExclude = -1

// Default branching for the tree (fan-out 16).
const (
	DefaultMinChildren = 8
	DefaultMaxChildren = 16
)

// pointTolerance is the half-width of the box each point is stored as.
// The tree needs non-degenerate rectangles; exact distances are checked afterwards.
const pointTolerance = 1e-6

// entry is one indexed point.
type entry struct {
	id   int
	x, y float32
	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

func newEntry(id int, x, y float32) *entry {
	return &entry{
		id:   id,
		x:    x,
		y:    y,
		rect: rtreego.Point{float64(x), float64(y)}.ToRect(pointTolerance),
	}
}

// Index is an R-tree mapping point positions to their index.
// It is not safe for concurrent mutation; concurrent QueryRadius calls are
// safe as long as no Rebuild or Update is in flight.
type Index struct {
	minChildren int
	maxChildren int
	tree        *rtreego.Rtree
	entries     []*entry
}

// New creates an empty index with the given node branching.
func New(minChildren, maxChildren int) (*Index, error) {
	if minChildren < 1 || maxChildren < 2*minChildren {
		return nil, fmt.Errorf("spatial: invalid branching min=%d max=%d", minChildren, maxChildren)
	}
	return &Index{
		minChildren: minChildren,
		maxChildren: maxChildren,
		tree:        rtreego.NewTree(2, minChildren, maxChildren),
	}, nil
}

// MustNew is like New but panics on invalid branching.
func MustNew(minChildren, maxChildren int) *Index {
	idx, err := New(minChildren, maxChildren)
	if err != nil {
		panic(err)
	}
	return idx
}

// Rebuild clears the index and inserts point i at (xs[i], ys[i]) for every i.
func (idx *Index) Rebuild(xs, ys []float32) {
	if len(xs) != len(ys) {
		panic(fmt.Sprintf("spatial: coordinate length mismatch %d != %d", len(xs), len(ys)))
	}

	if cap(idx.entries) < len(xs) {
		idx.entries = make([]*entry, len(xs))
	}
	idx.entries = idx.entries[:len(xs)]

	objs := make([]rtreego.Spatial, len(xs))
	for i := range xs {
		e := newEntry(i, xs[i], ys[i])
		idx.entries[i] = e
		objs[i] = e
	}

	// Bulk load
	idx.tree = rtreego.NewTree(2, idx.minChildren, idx.maxChildren, objs...)
}

// Update moves point i to (x, y). The point must have been inserted by Rebuild.
func (idx *Index) Update(i int, x, y float32) {
	old := idx.entries[i]
	if old.x == x && old.y == y {
		return
	}
	idx.tree.Delete(old)
	e := newEntry(i, x, y)
	idx.entries[i] = e
	idx.tree.Insert(e)
}

// Len returns the number of indexed points.
func (idx *Index) Len() int {
	return idx.tree.Size()
}

// QueryRadius appends to dst the indices of every point within r of (x, y),
// skipping exclude. Results are sorted by index. Reuse dst to avoid allocations.
// Distances are planar: points near opposite landscape edges are not neighbours.
func (idx *Index) QueryRadius(dst []int, x, y, r float32, exclude int) []int {
	dst = dst[:0]
	if r < 0 || idx.tree.Size() == 0 {
		return dst
	}

	bb := rtreego.Point{float64(x), float64(y)}.ToRect(float64(r) + pointTolerance)
	for _, obj := range idx.tree.SearchIntersect(bb) {
		e := obj.(*entry)
		if e.id == exclude {
			continue
		}
		if Distance(x, y, e.x, e.y) <= r {
			dst = append(dst, e.id)
		}
	}

	sort.Ints(dst)
	return dst
}

// Distance returns the Euclidean distance between two points in single precision.
func Distance(x1, y1, x2, y2 float32) float32 {
	dx := x1 - x2
	dy := y1 - y2
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}

// Wrap maps v into [0, size) on a torus.
func Wrap(v, size float32) float32 {
	w := float32(math.Mod(float64(v), float64(size)))
	if w < 0 {
		w += size
	}
	if w >= size {
		w = 0
	}
	return w
}
