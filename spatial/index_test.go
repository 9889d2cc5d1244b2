package spatial

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestNewRejectsBadBranching(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
	}{
		{"zero min", 0, 16},
		{"max too small", 8, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.min, tt.max); err == nil {
				t.Errorf("New(%d, %d) succeeded, want error", tt.min, tt.max)
			}
		})
	}
}

func TestQueryRadiusExcludesSelf(t *testing.T) {
	idx := MustNew(DefaultMinChildren, DefaultMaxChildren)
	xs := []float32{0, 1, 10, 11}
	ys := []float32{0, 0, 10, 10}
	idx.Rebuild(xs, ys)

	tests := []struct {
		name string
		id   int
		want []int
	}{
		{"agent 0", 0, []int{1}},
		{"agent 1", 1, []int{0}},
		{"agent 2", 2, []int{3}},
		{"agent 3", 3, []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.QueryRadius(nil, xs[tt.id], ys[tt.id], 2, tt.id)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("QueryRadius = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryRadiusBoundaryInclusive(t *testing.T) {
	idx := MustNew(DefaultMinChildren, DefaultMaxChildren)
	idx.Rebuild([]float32{0, 3}, []float32{0, 4})

	got := idx.QueryRadius(nil, 0, 0, 5, NoExclude)
	if !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("QueryRadius r=5 = %v, want [0 1]", got)
	}
	got = idx.QueryRadius(nil, 0, 0, 4.99, NoExclude)
	if !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("QueryRadius r=4.99 = %v, want [0]", got)
	}
}

func TestQueryRadiusCoincidentPoints(t *testing.T) {
	idx := MustNew(DefaultMinChildren, DefaultMaxChildren)
	idx.Rebuild([]float32{5, 5}, []float32{5, 5})

	got := idx.QueryRadius(nil, 5, 5, 1, 0)
	if !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("QueryRadius = %v, want [1]", got)
	}
}

func TestRebuildDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n := 300
	xs := make([]float32, n)
	ys := make([]float32, n)
	for i := range xs {
		xs[i] = rng.Float32() * 50
		ys[i] = rng.Float32() * 50
	}

	idx := MustNew(DefaultMinChildren, DefaultMaxChildren)
	idx.Rebuild(xs, ys)
	first := make([][]int, n)
	for i := range xs {
		first[i] = idx.QueryRadius(nil, xs[i], ys[i], 3, i)
	}

	idx.Rebuild(xs, ys)
	for i := range xs {
		got := idx.QueryRadius(nil, xs[i], ys[i], 3, i)
		if !reflect.DeepEqual(got, first[i]) {
			t.Fatalf("agent %d: neighbours changed after rebuild: %v vs %v", i, got, first[i])
		}
	}
}

func TestQueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 500
	xs := make([]float32, n)
	ys := make([]float32, n)
	for i := range xs {
		xs[i] = rng.Float32() * 100
		ys[i] = rng.Float32() * 100
	}
	idx := MustNew(DefaultMinChildren, DefaultMaxChildren)
	idx.Rebuild(xs, ys)

	const r = 6
	for i := 0; i < n; i += 17 {
		var want []int
		for j := range xs {
			if j != i && Distance(xs[i], ys[i], xs[j], ys[j]) <= r {
				want = append(want, j)
			}
		}
		got := idx.QueryRadius(nil, xs[i], ys[i], r, i)
		if len(got) != len(want) {
			t.Fatalf("agent %d: got %d neighbours, want %d", i, len(got), len(want))
		}
		for k := range want {
			if got[k] != want[k] {
				t.Fatalf("agent %d: got %v, want %v", i, got, want)
			}
		}
	}
}

func TestUpdateMovesPoint(t *testing.T) {
	idx := MustNew(DefaultMinChildren, DefaultMaxChildren)
	idx.Rebuild([]float32{0, 1, 2}, []float32{0, 0, 0})

	idx.Update(1, 20, 20)

	if idx.Len() != 3 {
		t.Fatalf("Len = %d, want 3", idx.Len())
	}
	got := idx.QueryRadius(nil, 0, 0, 1.5, 0)
	if len(got) != 0 {
		t.Errorf("stale neighbour after update: %v", got)
	}
	got = idx.QueryRadius(nil, 20, 20, 0.5, NoExclude)
	if !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("QueryRadius at new position = %v, want [1]", got)
	}
}

func TestEmptyIndex(t *testing.T) {
	idx := MustNew(DefaultMinChildren, DefaultMaxChildren)
	idx.Rebuild(nil, nil)
	if got := idx.QueryRadius(nil, 0, 0, 10, NoExclude); len(got) != 0 {
		t.Errorf("empty index returned %v", got)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		v, size, want float32
	}{
		{5, 10, 5},
		{12, 10, 2},
		{-1, 10, 9},
		{10, 10, 0},
	}
	for _, tt := range tests {
		if got := Wrap(tt.v, tt.size); got != tt.want {
			t.Errorf("Wrap(%v, %v) = %v, want %v", tt.v, tt.size, got, tt.want)
		}
	}
}

func TestQueryRadiusPlanarAcrossSeam(t *testing.T) {
	idx := MustNew(DefaultMinChildren, DefaultMaxChildren)
	// 0.2 apart on a torus of side 10, 9.8 apart in the plane.
	idx.Rebuild([]float32{Wrap(-0.1, 10), 0.1}, []float32{5, 5})

	if got := idx.QueryRadius(nil, 0.1, 5, 1, 1); len(got) != 0 {
		t.Errorf("QueryRadius across the seam = %v, want none", got)
	}
	if got := idx.QueryRadius(nil, 9.9, 5, 1, NoExclude); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("QueryRadius(9.9, 5) = %v, want [0]", got)
	}
}
