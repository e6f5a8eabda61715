package chgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lesstat/ppts/pkg/costmath"
)

// stubFinder answers Find with a canned QueryResult per (source, target)
// pair, keyed by a [source, target] array, so FindShortestPath's waypoint
// concatenation can be tested without a real search.
type stubFinder struct {
	results map[[2]uint32]QueryResult
}

func (f *stubFinder) Find(g *CHGraph, source, target uint32, alpha costmath.Preference) (QueryResult, bool) {
	res, ok := f.results[[2]uint32{source, target}]
	return res, ok
}

func buildThreeNodeLine(t *testing.T) *CHGraph {
	t.Helper()
	nodes := []Node{{ID: 0, CHLevel: 2}, {ID: 1, CHLevel: 1}, {ID: 2, CHLevel: 0}}
	edges := []Edge{
		{ID: 0, Source: 0, Target: 1, Cost: costmath.CostVector{1}},
		{ID: 1, Source: 1, Target: 2, Cost: costmath.CostVector{1}},
	}
	g, err := Build(nodes, edges, 1)
	require.NoError(t, err)
	return g
}

func TestFindShortestPathConcatenatesWaypointSegments(t *testing.T) {
	g := buildThreeNodeLine(t)
	finder := &stubFinder{results: map[[2]uint32]QueryResult{
		{0, 1}: {Edges: []uint32{0}, Cost: costmath.CostVector{1}, Scalar: 1},
		{1, 2}: {Edges: []uint32{1}, Cost: costmath.CostVector{1}, Scalar: 1},
	}}

	alpha := costmath.Preference{1}
	path, ok := g.FindShortestPath(finder, "trip-1", []uint32{0, 1, 2}, alpha)
	require.True(t, ok)

	assert.Equal(t, "trip-1", path.ID)
	assert.Equal(t, []uint32{0, 1}, path.Edges)
	assert.Equal(t, costmath.CostVector{2}, path.TotalCost)
	require.NotNil(t, path.UserSplit)
	assert.Equal(t, []int{1, 2}, path.UserSplit.Cuts)
	assert.Equal(t, []uint32{0, 1, 2}, path.Nodes)
}

func TestFindShortestPathFailsWhenAWaypointPairIsUnreachable(t *testing.T) {
	g := buildThreeNodeLine(t)
	finder := &stubFinder{results: map[[2]uint32]QueryResult{
		{0, 1}: {Edges: []uint32{0}, Cost: costmath.CostVector{1}, Scalar: 1},
	}}

	_, ok := g.FindShortestPath(finder, "trip-2", []uint32{0, 1, 2}, costmath.Preference{1})
	assert.False(t, ok)
}

func TestFindShortestPathRequiresAtLeastTwoWaypoints(t *testing.T) {
	g := buildThreeNodeLine(t)
	finder := &stubFinder{results: map[[2]uint32]QueryResult{}}

	_, ok := g.FindShortestPath(finder, "trip-3", []uint32{0}, costmath.Preference{1})
	assert.False(t, ok)
}

func TestSubPathCostSumsEdgeRange(t *testing.T) {
	nodes := []Node{{ID: 0, CHLevel: 0}, {ID: 1, CHLevel: 1}, {ID: 2, CHLevel: 2}}
	edges := []Edge{
		{ID: 0, Source: 0, Target: 1, Cost: costmath.CostVector{1, 1}},
		{ID: 1, Source: 1, Target: 2, Cost: costmath.CostVector{2, 2}},
	}
	g, err := Build(nodes, edges, 2)
	require.NoError(t, err)

	p := &Path{Edges: []uint32{0, 1}}
	assert.Equal(t, costmath.CostVector{3, 3}, p.SubPathCost(g, 0, 2))
	assert.Equal(t, costmath.CostVector{1, 1}, p.SubPathCost(g, 0, 1))
}
