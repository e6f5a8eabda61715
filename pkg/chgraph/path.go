package chgraph

import "github.com/Lesstat/ppts/pkg/costmath"

// PathSplit decomposes a path into maximal segments, each explainable by a
// single preference.
type PathSplit struct {
	Cuts                  []int
	Alphas                []costmath.Preference
	PerSegmentCosts       []costmath.CostVector
	PerSegmentScalarCosts []float64
}

// Path is a node/edge sequence with its aggregated cost and, optionally, a
// user-supplied or algorithm-computed splitting decomposition.
type Path struct {
	ID        any
	Nodes     []uint32
	Edges     []uint32
	TotalCost costmath.CostVector
	UserSplit *PathSplit
	AlgoSplit *PathSplit
}

// SubPathCost returns the sum of edge costs of path.Edges[start:end].
func (p *Path) SubPathCost(g *CHGraph, start, end int) costmath.CostVector {
	return g.EdgeCost(p.Edges[start:end])
}

// QueryResult is the outcome of a single shortest-path query: the unpacked
// (non-shortcut) edges, their summed cost vector, and the scalarized cost.
type QueryResult struct {
	Edges  []uint32
	Cost   costmath.CostVector
	Scalar float64
}

// PathFinder runs one point-to-point shortest-path query under a
// preference. Implemented by bidijkstra.Query; kept as an interface here so
// chgraph need not import the search package.
type PathFinder interface {
	Find(g *CHGraph, source, target uint32, alpha costmath.Preference) (QueryResult, bool)
}

// FindShortestPath runs pf between each consecutive pair of waypoints and
// concatenates the resulting unpacked edges into a single Path. It fails
// (returns false) if any consecutive pair is unreachable.
func (g *CHGraph) FindShortestPath(pf PathFinder, id any, via []uint32, alpha costmath.Preference) (*Path, bool) {
	if len(via) < 2 {
		return nil, false
	}
	var allEdges []uint32
	cuts := make([]int, 0, len(via)-1)
	segCosts := make([]costmath.CostVector, 0, len(via)-1)
	segScalar := make([]float64, 0, len(via)-1)
	total := costmath.Zero(g.Dim)

	for i := 0; i+1 < len(via); i++ {
		res, ok := pf.Find(g, via[i], via[i+1], alpha)
		if !ok {
			return nil, false
		}
		allEdges = append(allEdges, res.Edges...)
		cuts = append(cuts, len(allEdges))
		segCosts = append(segCosts, res.Cost)
		segScalar = append(segScalar, res.Scalar)
		costmath.AddInPlace(total, res.Cost)
	}

	nodes := make([]uint32, 0, len(allEdges)+1)
	for _, e := range allEdges {
		nodes = append(nodes, g.Edges[e].Source)
	}
	nodes = append(nodes, via[len(via)-1])

	return &Path{
		ID:        id,
		Nodes:     nodes,
		Edges:     allEdges,
		TotalCost: total,
		UserSplit: &PathSplit{
			Cuts:                  cuts,
			Alphas:                []costmath.Preference{alpha},
			PerSegmentCosts:       segCosts,
			PerSegmentScalarCosts: segScalar,
		},
	}, true
}
