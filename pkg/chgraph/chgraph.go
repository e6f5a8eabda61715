// Package chgraph implements the immutable, read-only Contraction-Hierarchy
// graph store: dense nodes/edges, CH levels, shortcut expansions, and the
// CSR-style half-edge adjacency used by bidirectional search.
package chgraph

import (
	"fmt"
	"sort"

	"github.com/Lesstat/ppts/pkg/costmath"
)

// Node is a dense, post-reordering graph vertex.
type Node struct {
	ID      uint32
	CHLevel uint32
}

// Edge is a dense graph edge. Expansion is non-nil iff this edge is a CH
// shortcut representing the concatenation of the two child edges.
type Edge struct {
	ID        uint32
	Source    uint32
	Target    uint32
	Cost      costmath.CostVector
	Expansion *[2]uint32
}

// HalfEdge is one adjacency-array entry: the edge used to reach Neighbor,
// and its cost, pre-joined for relaxation without a further edge lookup.
type HalfEdge struct {
	EdgeID   uint32
	Neighbor uint32
	Cost     costmath.CostVector
}

// CHGraph is the immutable graph store shared read-only across workers.
type CHGraph struct {
	Dim   int
	Nodes []Node
	Edges []Edge

	offsetsOut []uint32
	offsetsIn  []uint32
	halfOut    []HalfEdge
	halfIn     []HalfEdge
}

// Build constructs a CHGraph from parsed nodes and edges. Node and edge ids
// in the input refer to the caller's id space; edges are remapped onto the
// dense, CH-level-sorted node ids assigned here.
func Build(nodes []Node, edges []Edge, dim int) (*CHGraph, error) {
	n := make([]Node, len(nodes))
	copy(n, nodes)
	sort.SliceStable(n, func(i, j int) bool { return n[i].CHLevel > n[j].CHLevel })

	idMap := make(map[uint32]uint32, len(n))
	for i := range n {
		idMap[n[i].ID] = uint32(i)
		n[i].ID = uint32(i)
	}

	e := make([]Edge, len(edges))
	copy(e, edges)
	for i := range e {
		src, ok := idMap[e[i].Source]
		if !ok {
			return nil, fmt.Errorf("chgraph: edge %d references unknown source node", e[i].ID)
		}
		tgt, ok := idMap[e[i].Target]
		if !ok {
			return nil, fmt.Errorf("chgraph: edge %d references unknown target node", e[i].ID)
		}
		e[i].Source = src
		e[i].Target = tgt
		if len(e[i].Cost) != dim {
			return nil, fmt.Errorf("chgraph: edge %d has cost dimension %d, want %d", e[i].ID, len(e[i].Cost), dim)
		}
	}

	g := &CHGraph{
		Dim:        dim,
		Nodes:      n,
		Edges:      e,
		offsetsOut: make([]uint32, len(n)+1),
		offsetsIn:  make([]uint32, len(n)+1),
	}

	g.buildHalfEdges(e)
	return g, nil
}

// buildHalfEdges sorts a working copy of the edges twice — once by source
// (for the outgoing adjacency) and once by target (for incoming) — so that
// within each node's bucket, neighbors with a higher CH level sort first.
// That ordering is what makes the runtime upward-pruning break in BiDijkstra
// safe: the first downward neighbor seen ends the upward run.
func (g *CHGraph) buildHalfEdges(edges []Edge) {
	out := make([]Edge, len(edges))
	copy(out, edges)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return g.Nodes[out[i].Target].CHLevel > g.Nodes[out[j].Target].CHLevel
	})
	g.halfOut = make([]HalfEdge, len(out))
	for i, e := range out {
		g.offsetsOut[e.Source+1]++
		g.halfOut[i] = HalfEdge{EdgeID: e.ID, Neighbor: e.Target, Cost: e.Cost}
	}

	in := make([]Edge, len(edges))
	copy(in, edges)
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].Target != in[j].Target {
			return in[i].Target < in[j].Target
		}
		return g.Nodes[in[i].Source].CHLevel > g.Nodes[in[j].Source].CHLevel
	})
	g.halfIn = make([]HalfEdge, len(in))
	for i, e := range in {
		g.offsetsIn[e.Target+1]++
		g.halfIn[i] = HalfEdge{EdgeID: e.ID, Neighbor: e.Source, Cost: e.Cost}
	}

	for i := 1; i < len(g.offsetsOut); i++ {
		g.offsetsOut[i] += g.offsetsOut[i-1]
	}
	for i := 1; i < len(g.offsetsIn); i++ {
		g.offsetsIn[i] += g.offsetsIn[i-1]
	}
}

// NumNodes returns the number of nodes in the graph.
func (g *CHGraph) NumNodes() int { return len(g.Nodes) }

// OutEdges returns the outgoing half-edges of node, ordered with
// higher-CH-level neighbors first.
func (g *CHGraph) OutEdges(node uint32) []HalfEdge {
	return g.halfOut[g.offsetsOut[node]:g.offsetsOut[node+1]]
}

// InEdges returns the incoming half-edges of node, ordered with
// higher-CH-level neighbors first.
func (g *CHGraph) InEdges(node uint32) []HalfEdge {
	return g.halfIn[g.offsetsIn[node]:g.offsetsIn[node+1]]
}

// Unpack recursively replaces a shortcut edge by its expansion until only
// non-shortcut (original) edges remain. Bounded because the shortcut
// expansion graph is a DAG.
func (g *CHGraph) Unpack(edgeID uint32) []uint32 {
	e := &g.Edges[edgeID]
	if e.Expansion == nil {
		return []uint32{edgeID}
	}
	first := g.Unpack(e.Expansion[0])
	second := g.Unpack(e.Expansion[1])
	return append(first, second...)
}

// EdgeCost sums the costs of a slice of (already unpacked) edges.
func (g *CHGraph) EdgeCost(edges []uint32) costmath.CostVector {
	c := costmath.Zero(g.Dim)
	for _, e := range edges {
		costmath.AddInPlace(c, g.Edges[e].Cost)
	}
	return c
}
