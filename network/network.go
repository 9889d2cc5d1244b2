// Package network accumulates pairwise association counts between agents.
//
// Counts are stored as the upper triangle of an N x N matrix in a single
// contiguous slice: row i holds pairs (i, i+1..N-1), so there are N-1 rows and
// N(N-1)/2 counters in total.
package network

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for a negative vertex count.
var ErrInvalidArgument = errors.New("network: invalid argument")

// Network is the association triangle for one generation.
type Network struct {
	n      int
	counts []int
}

// New creates an empty association triangle for n agents.
func New(n int) (*Network, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: vertex count %d", ErrInvalidArgument, n)
	}
	net := &Network{
		n:      n,
		counts: make([]int, TriangleSize(n)),
	}
	if n >= 2 && net.RowLen(0) != n-1 {
		panic(fmt.Sprintf("network: association triangle row 0 has %d entries, want %d", net.RowLen(0), n-1))
	}
	if len(net.counts) != n*(n-1)/2 {
		panic(fmt.Sprintf("network: association triangle has %d entries, want %d", len(net.counts), n*(n-1)/2))
	}
	return net, nil
}

// TriangleSize returns the number of unordered pairs among n vertices.
func TriangleSize(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// N returns the number of vertices.
func (net *Network) N() int {
	return net.n
}

// Len returns the number of pair counters.
func (net *Network) Len() int {
	return len(net.counts)
}

// Rows returns the number of triangle rows.
func (net *Network) Rows() int {
	if net.n < 1 {
		return 0
	}
	return net.n - 1
}

// RowLen returns the number of counters in row i.
func (net *Network) RowLen(i int) int {
	return net.n - (i + 1)
}

// Offset maps the unordered pair (i, j), i != j, to its flat position.
func (net *Network) Offset(i, j int) int {
	if i > j {
		i, j = j, i
	}
	if i == j || i < 0 || j >= net.n {
		panic(fmt.Sprintf("network: invalid pair (%d, %d) for %d vertices", i, j, net.n))
	}
	return i*(2*net.n-i-1)/2 + (j - i - 1)
}

// Add increments the count for pair (i, j) and returns the new count.
func (net *Network) Add(i, j int) int {
	off := net.Offset(i, j)
	net.counts[off]++
	return net.counts[off]
}

// Get returns the count for pair (i, j).
func (net *Network) Get(i, j int) int {
	return net.counts[net.Offset(i, j)]
}

// Row returns row i of the triangle. The slice aliases the backing array.
func (net *Network) Row(i int) []int {
	start := net.Offset(i, i+1)
	return net.counts[start : start+net.RowLen(i)]
}

// Degree returns the number of distinct partners of vertex i.
func (net *Network) Degree(i int) int {
	var d int
	for j := 0; j < net.n; j++ {
		if j != i && net.Get(i, j) > 0 {
			d++
		}
	}
	return d
}

// Strength returns the total association count of vertex i.
func (net *Network) Strength(i int) int {
	var s int
	for j := 0; j < net.n; j++ {
		if j != i {
			s += net.Get(i, j)
		}
	}
	return s
}

// Total returns the sum of all pair counts.
func (net *Network) Total() int {
	var s int
	for _, c := range net.counts {
		s += c
	}
	return s
}

// Reset zeroes every counter.
func (net *Network) Reset() {
	clear(net.counts)
}
