package trajectory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lesstat/ppts/pkg/bidijkstra"
	"github.com/Lesstat/ppts/pkg/chgraph"
	"github.com/Lesstat/ppts/pkg/costmath"
	"github.com/Lesstat/ppts/pkg/lpsolve"
	"github.com/Lesstat/ppts/pkg/preference"
)

// lpsolveSession adapts an in-process lpsolve.Problem to the
// lpclient.Session interface, avoiding a subprocess in these tests.
type lpsolveSession struct {
	p *lpsolve.Problem
}

func newLPSolveSession(dim int) *lpsolveSession {
	return &lpsolveSession{p: lpsolve.New(dim)}
}

func (s *lpsolveSession) Reset() error { s.p.Reset(); return nil }

func (s *lpsolveSession) AddConstraint(c costmath.CostVector) error {
	s.p.AddConstraint([]float64(c))
	return nil
}

func (s *lpsolveSession) Solve() (costmath.Preference, float64, bool, error) {
	alpha, delta, ok, err := s.p.Solve()
	if !ok || err != nil {
		return nil, 0, ok, err
	}
	return costmath.Preference(alpha), delta, true, nil
}

func newAnalyzer(t *testing.T, g *chgraph.CHGraph) *Analyzer {
	t.Helper()
	finder := bidijkstra.NewQuery(g.NumNodes())
	session := newLPSolveSession(g.Dim)
	est := preference.New(g, finder, session)
	return NewAnalyzer(est)
}

func uniformNodes(n int) []chgraph.Node {
	nodes := make([]chgraph.Node, n)
	for i := range nodes {
		nodes[i] = chgraph.Node{ID: uint32(i), CHLevel: 0}
	}
	return nodes
}

func oneCost() costmath.CostVector { return costmath.CostVector{1, 1} }

// TestNoNonOptimalSubpath mirrors a single-edge trajectory with no
// alternative route: nothing can be non-optimal.
func TestNoNonOptimalSubpath(t *testing.T) {
	nodes := uniformNodes(2)
	edges := []chgraph.Edge{
		{ID: 0, Source: 0, Target: 1, Cost: oneCost()},
	}
	g, err := chgraph.Build(nodes, edges, 2)
	require.NoError(t, err)

	a := newAnalyzer(t, g)
	path := &chgraph.Path{Nodes: []uint32{0, 1}, Edges: []uint32{0}}

	nonOpts, err := a.FindNonOptimalSegments(path)
	require.NoError(t, err)
	assert.Empty(t, nonOpts)
}

// TestSingleNonOptimalSubpath mirrors a 5-node line with a 1->3 edge that
// skips node 2 at half the cost of the two-edge detour ({1,1} against
// {2,2}), so no preference explains the recorded via-node-2 trajectory
// segment [1,3).
func TestSingleNonOptimalSubpath(t *testing.T) {
	nodes := uniformNodes(5)
	edges := []chgraph.Edge{
		{ID: 0, Source: 0, Target: 1, Cost: oneCost()},
		{ID: 1, Source: 1, Target: 2, Cost: oneCost()},
		{ID: 2, Source: 2, Target: 3, Cost: oneCost()},
		{ID: 3, Source: 3, Target: 4, Cost: oneCost()},
		{ID: 4, Source: 1, Target: 3, Cost: oneCost()}, // skips node 2
	}
	g, err := chgraph.Build(nodes, edges, 2)
	require.NoError(t, err)

	a := newAnalyzer(t, g)
	// Recorded trajectory forced through node 2: edges 0,1,2,3.
	path := &chgraph.Path{Nodes: []uint32{0, 1, 2, 3, 4}, Edges: []uint32{0, 1, 2, 3}}

	nonOpts, err := a.FindNonOptimalSegments(path)
	require.NoError(t, err)
	require.Len(t, nonOpts, 1)
	assert.Equal(t, 1, nonOpts[0].Start)
	assert.Equal(t, 3, nonOpts[0].End)
}

// TestLongNonOptimalSubpath mirrors a 6-node line with a 1->4 edge that
// skips nodes 2 and 3.
func TestLongNonOptimalSubpath(t *testing.T) {
	nodes := uniformNodes(6)
	edges := []chgraph.Edge{
		{ID: 0, Source: 0, Target: 1, Cost: oneCost()},
		{ID: 1, Source: 1, Target: 2, Cost: oneCost()},
		{ID: 2, Source: 2, Target: 3, Cost: oneCost()},
		{ID: 3, Source: 3, Target: 4, Cost: oneCost()},
		{ID: 4, Source: 4, Target: 5, Cost: oneCost()},
		{ID: 5, Source: 1, Target: 4, Cost: oneCost()}, // skips nodes 2,3
	}
	g, err := chgraph.Build(nodes, edges, 2)
	require.NoError(t, err)

	a := newAnalyzer(t, g)
	path := &chgraph.Path{Nodes: []uint32{0, 1, 2, 3, 4, 5}, Edges: []uint32{0, 1, 2, 3, 4}}

	nonOpts, err := a.FindNonOptimalSegments(path)
	require.NoError(t, err)
	require.Len(t, nonOpts, 1)
	assert.Equal(t, 1, nonOpts[0].Start)
	assert.Equal(t, 4, nonOpts[0].End)
}

// TestFindingOverlappingNonOptimalSubpaths mirrors a 7-node graph with two
// overlapping single-node-skip edges, 1->3 and 2->4, each strictly cheaper
// than its two-edge detour.
func TestFindingOverlappingNonOptimalSubpaths(t *testing.T) {
	nodes := uniformNodes(7)
	edges := []chgraph.Edge{
		{ID: 0, Source: 0, Target: 1, Cost: oneCost()},
		{ID: 1, Source: 1, Target: 2, Cost: oneCost()},
		{ID: 2, Source: 2, Target: 3, Cost: oneCost()},
		{ID: 3, Source: 3, Target: 4, Cost: oneCost()},
		{ID: 4, Source: 4, Target: 5, Cost: oneCost()},
		{ID: 5, Source: 4, Target: 6, Cost: oneCost()},
		{ID: 6, Source: 1, Target: 3, Cost: oneCost()}, // skips node 2
		{ID: 7, Source: 2, Target: 4, Cost: oneCost()}, // skips node 3
	}
	g, err := chgraph.Build(nodes, edges, 2)
	require.NoError(t, err)

	a := newAnalyzer(t, g)
	// Recorded trajectory via waypoints 0,2,3,6: 0-1-2, 2-3, 3-4-6.
	path := &chgraph.Path{
		Nodes: []uint32{0, 1, 2, 3, 4, 6},
		Edges: []uint32{0, 1, 2, 3, 5},
	}

	nonOpts, err := a.FindNonOptimalSegments(path)
	require.NoError(t, err)
	require.Len(t, nonOpts, 2)
	assert.Equal(t, 1, nonOpts[0].Start)
	assert.Equal(t, 3, nonOpts[0].End)
	assert.Equal(t, 2, nonOpts[1].Start)
	assert.Equal(t, 4, nonOpts[1].End)
}

// TestFindAllNonOptimalSegmentsMatchesCutAnchoredOnSingleDetour checks the
// exhaustive search agrees with the cut-anchored search on the simple
// single-detour topology.
func TestFindAllNonOptimalSegmentsMatchesCutAnchoredOnSingleDetour(t *testing.T) {
	nodes := uniformNodes(5)
	edges := []chgraph.Edge{
		{ID: 0, Source: 0, Target: 1, Cost: oneCost()},
		{ID: 1, Source: 1, Target: 2, Cost: oneCost()},
		{ID: 2, Source: 2, Target: 3, Cost: oneCost()},
		{ID: 3, Source: 3, Target: 4, Cost: oneCost()},
		{ID: 4, Source: 1, Target: 3, Cost: oneCost()},
	}
	g, err := chgraph.Build(nodes, edges, 2)
	require.NoError(t, err)

	a := newAnalyzer(t, g)
	path := &chgraph.Path{Nodes: []uint32{0, 1, 2, 3, 4}, Edges: []uint32{0, 1, 2, 3}}

	nonOpts, err := a.FindAllNonOptimalSegments(path)
	require.NoError(t, err)
	require.Len(t, nonOpts, 1)
	assert.Equal(t, 1, nonOpts[0].Start)
	assert.Equal(t, 3, nonOpts[0].End)
}

func TestIntersectSubPathsDropsStrictSupersets(t *testing.T) {
	in := []SubPath{{Start: 0, End: 5}, {Start: 1, End: 3}, {Start: 2, End: 4}}
	out := IntersectSubPaths(in)

	assert.NotContains(t, out, SubPath{Start: 0, End: 5})
	assert.Contains(t, out, SubPath{Start: 1, End: 3})
	assert.Contains(t, out, SubPath{Start: 2, End: 4})
}

func TestIntersectSubPathsIsIdempotent(t *testing.T) {
	in := []SubPath{{Start: 0, End: 5}, {Start: 1, End: 3}, {Start: 2, End: 4}, {Start: 1, End: 3}}
	once := IntersectSubPaths(in)
	twice := IntersectSubPaths(once)
	assert.Equal(t, once, twice)
}

func TestFindPreferenceOnSimpleLineProducesSingleCut(t *testing.T) {
	nodes := uniformNodes(3)
	edges := []chgraph.Edge{
		{ID: 0, Source: 0, Target: 1, Cost: oneCost()},
		{ID: 1, Source: 1, Target: 2, Cost: oneCost()},
	}
	g, err := chgraph.Build(nodes, edges, 2)
	require.NoError(t, err)

	a := newAnalyzer(t, g)
	path := &chgraph.Path{Nodes: []uint32{0, 1, 2}, Edges: []uint32{0, 1}}

	split, err := a.FindPreference(path)
	require.NoError(t, err)
	require.Len(t, split.Cuts, 1)
	assert.Equal(t, 2, split.Cuts[0])
}

func TestSinglePreferenceDecompositionOnUnambiguousLineSucceeds(t *testing.T) {
	nodes := uniformNodes(3)
	edges := []chgraph.Edge{
		{ID: 0, Source: 0, Target: 1, Cost: oneCost()},
		{ID: 1, Source: 1, Target: 2, Cost: oneCost()},
	}
	g, err := chgraph.Build(nodes, edges, 2)
	require.NoError(t, err)

	a := newAnalyzer(t, g)
	path := &chgraph.Path{Nodes: []uint32{0, 1, 2}, Edges: []uint32{0, 1}}

	result, err := a.SinglePreferenceDecomposition(nil, path)
	require.NoError(t, err)
	require.Len(t, result.Cuts, 1)
	assert.Equal(t, 2, result.Cuts[0])
	assert.True(t, costmath.Valid(result.Preference))
}
