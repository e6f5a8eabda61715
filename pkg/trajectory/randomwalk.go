package trajectory

import (
	"golang.org/x/exp/rand"

	"github.com/Lesstat/ppts/pkg/chgraph"
	"github.com/Lesstat/ppts/pkg/costmath"
)

// CreateRandomWalkTrajectory simulates a driver who re-randomizes their
// preference at every intersection: from source, it repeatedly queries the
// shortest path to target under a freshly sampled preference and commits
// only to that query's first edge, until target is reached. Used to
// synthesize trajectories for testing the analyses above.
func CreateRandomWalkTrajectory(source, target uint32, g *chgraph.CHGraph, finder chgraph.PathFinder, rnd *rand.Rand, extID func(uint32) string) (*Trajectory, bool) {
	if _, ok := finder.Find(g, source, target, costmath.Uniform(g.Dim)); !ok {
		return nil, false
	}

	var edges []uint32
	cur := source
	for cur != target {
		alpha := randomPreference(g.Dim, rnd)
		res, ok := finder.Find(g, cur, target, alpha)
		if !ok {
			return nil, false
		}
		firstEdge := res.Edges[0]
		edges = append(edges, firstEdge)
		cur = g.Edges[firstEdge].Target
	}

	path := make([]string, len(edges))
	for i, e := range edges {
		path[i] = extID(e)
	}

	return &Trajectory{
		TripID:    []TripSegment{{SegmentID: nil, Index: 0}},
		VehicleID: -1,
		Path:      path,
	}, true
}

// randomPreference samples a uniformly random point on the preference
// simplex (non-negative components summing to 1).
func randomPreference(dim int, rnd *rand.Rand) costmath.Preference {
	alpha := make(costmath.Preference, dim)
	var sum float64
	for sum == 0 {
		sum = 0
		for i := range alpha {
			alpha[i] = rnd.Float64()
			sum += alpha[i]
		}
	}
	for i := range alpha {
		alpha[i] /= sum
	}
	return alpha
}
