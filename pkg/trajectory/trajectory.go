// Package trajectory maps external recorded trajectories onto internal
// Path values (spec.md §4.6) and drives the splitting/SNOP/representative
// analyses of spec.md §4.5 on top of pkg/preference and pkg/chgraph.
package trajectory

import (
	"fmt"

	"github.com/Lesstat/ppts/pkg/chgraph"
	"github.com/Lesstat/ppts/pkg/experror"
)

// Trajectory is the external, loaded-from-JSON form of a recorded trip
// (spec.md §6.3): a composite trip id, a vehicle id, and an ordered
// sequence of external edge ids.
type Trajectory struct {
	TripID    []TripSegment
	VehicleID int64
	Path      []string
}

// TripSegment is one element of a composite trip id: an optional segment
// identifier paired with a break index.
type TripSegment struct {
	SegmentID *uint32
	Index     uint32
}

// ToPath resolves every external edge id through lookup and builds the
// internal Path: the node sequence is derived from edge endpoints, and
// TotalCost is the sum of all edge costs. The path's ID is the
// concatenation of its trip segment ids as a decimal string.
func ToPath(t *Trajectory, g *chgraph.CHGraph, lookup chgraph.EdgeLookup) (*chgraph.Path, error) {
	edges := make([]uint32, len(t.Path))
	for i, ext := range t.Path {
		idx, ok := lookup[ext]
		if !ok {
			return nil, experror.NewInputMalformed("trajectory", fmt.Errorf("edge %q not found", ext))
		}
		edges[i] = idx
	}

	for k := 0; k+1 < len(edges); k++ {
		if g.Edges[edges[k]].Target != g.Edges[edges[k+1]].Source {
			return nil, &experror.InvalidTrajectoryError{Index: k}
		}
	}

	nodes := make([]uint32, 0, len(edges)+1)
	if len(edges) > 0 {
		nodes = append(nodes, g.Edges[edges[0]].Source)
		for _, e := range edges {
			nodes = append(nodes, g.Edges[e].Target)
		}
	}

	return &chgraph.Path{
		ID:        tripID(t.TripID),
		Nodes:     nodes,
		Edges:     edges,
		TotalCost: g.EdgeCost(edges),
	}, nil
}

func tripID(segments []TripSegment) string {
	var id string
	for _, s := range segments {
		if s.SegmentID != nil {
			id += fmt.Sprintf("%d", *s.SegmentID)
		}
	}
	return id
}

// FilterOutSelfLoops removes every edge in t.Path whose source equals its
// target in the graph, returning the original positions removed (so
// callers can keep visualization indices aligned).
func FilterOutSelfLoops(t *Trajectory, g *chgraph.CHGraph, lookup chgraph.EdgeLookup) ([]int, error) {
	var removed []int
	kept := t.Path[:0:0]
	for i, ext := range t.Path {
		idx, ok := lookup[ext]
		if !ok {
			return nil, experror.NewInputMalformed("trajectory", fmt.Errorf("edge %q not found", ext))
		}
		e := &g.Edges[idx]
		if e.Source == e.Target {
			removed = append(removed, i)
			continue
		}
		kept = append(kept, ext)
	}
	t.Path = kept
	return removed, nil
}
