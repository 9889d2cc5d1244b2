package network

import (
	"log/slog"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Summary holds network measures for one generation.
type Summary struct {
	Vertices         int
	Edges            int
	Interactions     int
	MeanDegree       float64
	MeanStrength     float64
	Density          float64
	Components       int
	LargestComponent int
}

// Graph builds a weighted undirected graph with an edge for every pair
// associated at least minWeight times. Every vertex is present.
func (net *Network) Graph(minWeight int) *simple.WeightedUndirectedGraph {
	if minWeight < 1 {
		minWeight = 1
	}
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < net.n; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < net.Rows(); i++ {
		for k, c := range net.Row(i) {
			if c < minWeight {
				continue
			}
			j := i + 1 + k
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(i), T: simple.Node(j), W: float64(c)})
		}
	}
	return g
}

// Summarize computes network measures over edges of weight at least minWeight.
func (net *Network) Summarize(minWeight int) Summary {
	s := Summary{Vertices: net.n, Interactions: net.Total()}
	if net.n == 0 {
		return s
	}

	g := net.Graph(minWeight)
	s.Edges = g.Edges().Len()

	var strength float64
	edges := g.WeightedEdges()
	for edges.Next() {
		strength += edges.WeightedEdge().Weight()
	}

	s.MeanDegree = 2 * float64(s.Edges) / float64(net.n)
	s.MeanStrength = 2 * strength / float64(net.n)
	if pairs := TriangleSize(net.n); pairs > 0 {
		s.Density = float64(s.Edges) / float64(pairs)
	}

	components := topo.ConnectedComponents(g)
	s.Components = len(components)
	for _, c := range components {
		if len(c) > s.LargestComponent {
			s.LargestComponent = len(c)
		}
	}
	return s
}

// LogValue implements slog.LogValuer.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("edges", s.Edges),
		slog.Int("interactions", s.Interactions),
		slog.Float64("mean_degree", s.MeanDegree),
		slog.Float64("density", s.Density),
		slog.Int("components", s.Components),
		slog.Int("largest_component", s.LargestComponent),
	)
}
