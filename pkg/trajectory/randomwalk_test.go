package trajectory

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/Lesstat/ppts/pkg/bidijkstra"
	"github.com/Lesstat/ppts/pkg/chgraph"
	"github.com/Lesstat/ppts/pkg/costmath"
)

func TestCreateRandomWalkTrajectoryReachesTarget(t *testing.T) {
	nodes := uniformNodes(5)
	edges := []chgraph.Edge{
		{ID: 0, Source: 0, Target: 1, Cost: oneCost()},
		{ID: 1, Source: 1, Target: 2, Cost: costmath.CostVector{1, 3}},
		{ID: 2, Source: 2, Target: 3, Cost: oneCost()},
		{ID: 3, Source: 3, Target: 4, Cost: oneCost()},
		{ID: 4, Source: 1, Target: 3, Cost: costmath.CostVector{3, 1}},
	}
	g, err := chgraph.Build(nodes, edges, 2)
	require.NoError(t, err)

	finder := bidijkstra.NewQuery(g.NumNodes())
	rnd := rand.New(rand.NewSource(1))
	extID := func(e uint32) string { return strconv.FormatUint(uint64(e), 10) }

	traj, ok := CreateRandomWalkTrajectory(0, 4, g, finder, rnd, extID)
	require.True(t, ok)
	require.NotEmpty(t, traj.Path)

	lookup := make(chgraph.EdgeLookup, len(g.Edges))
	for _, e := range g.Edges {
		lookup[extID(e.ID)] = e.ID
	}
	path, err := ToPath(traj, g, lookup)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), path.Nodes[len(path.Nodes)-1])
	assert.Equal(t, uint32(0), path.Nodes[0])
}

func TestCreateRandomWalkTrajectoryUnreachableReturnsFalse(t *testing.T) {
	nodes := uniformNodes(3)
	edges := []chgraph.Edge{
		{ID: 0, Source: 0, Target: 1, Cost: oneCost()},
	}
	g, err := chgraph.Build(nodes, edges, 2)
	require.NoError(t, err)

	finder := bidijkstra.NewQuery(g.NumNodes())
	rnd := rand.New(rand.NewSource(1))
	extID := func(e uint32) string { return strconv.FormatUint(uint64(e), 10) }

	_, ok := CreateRandomWalkTrajectory(0, 2, g, finder, rnd, extID)
	assert.False(t, ok)
}
