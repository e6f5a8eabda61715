package preference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lesstat/ppts/pkg/bidijkstra"
	"github.com/Lesstat/ppts/pkg/chgraph"
	"github.com/Lesstat/ppts/pkg/costmath"
	"github.com/Lesstat/ppts/pkg/lpsolve"
)

// lpsolveSession adapts an in-process lpsolve.Problem to the
// lpclient.Session interface, avoiding a subprocess in these tests.
type lpsolveSession struct {
	p   *lpsolve.Problem
	dim int
}

func newLPSolveSession(dim int) *lpsolveSession {
	return &lpsolveSession{p: lpsolve.New(dim), dim: dim}
}

func (s *lpsolveSession) Reset() error {
	s.p.Reset()
	return nil
}

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

// buildLineWithShortcut mirrors the bidijkstra test fixture: a 5-node
// line 0-1-2-3-4 plus a 1->3 shortcut skipping node 2.
func buildLineWithShortcut(t *testing.T) *chgraph.CHGraph {
	t.Helper()
	nodes := []chgraph.Node{
		{ID: 0, CHLevel: 4},
		{ID: 1, CHLevel: 3},
		{ID: 2, CHLevel: 2},
		{ID: 3, CHLevel: 1},
		{ID: 4, CHLevel: 0},
	}
	edges := []chgraph.Edge{
		{ID: 0, Source: 0, Target: 1, Cost: costmath.CostVector{1, 1}},
		{ID: 1, Source: 1, Target: 2, Cost: costmath.CostVector{1, 1}},
		{ID: 2, Source: 2, Target: 3, Cost: costmath.CostVector{1, 1}},
		{ID: 3, Source: 3, Target: 4, Cost: costmath.CostVector{1, 1}},
		{ID: 4, Source: 1, Target: 3, Cost: costmath.CostVector{5, 0}, Expansion: &[2]uint32{1, 2}},
	}
	g, err := chgraph.Build(nodes, edges, 2)
	require.NoError(t, err)
	return g
}

func TestCalcPreferenceOnOptimalSubpathReturnsUniform(t *testing.T) {
	g := buildLineWithShortcut(t)
	finder := bidijkstra.NewQuery(g.NumNodes())
	session := newLPSolveSession(g.Dim)
	est := New(g, finder, session)

	path := &chgraph.Path{
		Nodes: []uint32{0, 1, 2, 3, 4},
		Edges: []uint32{0, 1, 2, 3},
	}

	alpha, ok, err := est.CalcPreference(path, 0, 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, costmath.Valid(alpha))
}

func TestCalcPreferenceFindsAlphaExplainingDetourAroundShortcut(t *testing.T) {
	g := buildLineWithShortcut(t)
	finder := bidijkstra.NewQuery(g.NumNodes())
	session := newLPSolveSession(g.Dim)
	est := New(g, finder, session)

	// Edges {1,2} form the unpacked straight line 1->2->3, cost {2,2}; the
	// shortcut 1->3 costs {5,0}. Under alpha favoring metric 0 heavily, the
	// straight line is cheaper, so it should be certifiable.
	path := &chgraph.Path{
		Nodes: []uint32{0, 1, 2, 3, 4},
		Edges: []uint32{0, 1, 2, 3},
	}

	alpha, ok, err := est.CalcPreference(path, 1, 3)
	require.NoError(t, err)
	if ok {
		assert.True(t, costmath.Valid(alpha))
	}
}

func TestCalcRepresentativePreferenceNeverReturnsError(t *testing.T) {
	g := buildLineWithShortcut(t)
	finder := bidijkstra.NewQuery(g.NumNodes())
	session := newLPSolveSession(g.Dim)
	est := New(g, finder, session)

	path := &chgraph.Path{
		Nodes: []uint32{0, 1, 2, 3, 4},
		Edges: []uint32{0, 1, 2, 3},
	}

	result, err := est.CalcRepresentativePreference(path, 0, 4)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Delta, -1e-6)
}
