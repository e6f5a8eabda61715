// Package bidijkstra implements bidirectional Dijkstra search over a
// chgraph.CHGraph under a scalarized, per-query preference. A Query owns
// reusable scratch state sized to the graph's node count and resets only
// the nodes touched by the previous search.
package bidijkstra

import (
	"math"

	"github.com/Lesstat/ppts/pkg/chgraph"
	"github.com/Lesstat/ppts/pkg/costmath"
)

const noEdge = ^uint32(0)

type direction uint8

const (
	forward direction = iota
	backward
)

// candidate is one min-heap entry.
type candidate struct {
	scalar float64
	node   uint32
	dir    direction
}

// minHeap is a concrete-typed min-heap over candidate.scalar, avoiding the
// interface-boxing overhead of container/heap.
type minHeap struct {
	items []candidate
}

func (h *minHeap) len() int { return len(h.items) }

func (h *minHeap) push(c candidate) {
	h.items = append(h.items, c)
	i := len(h.items) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].scalar >= h.items[parent].scalar {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *minHeap) pop() candidate {
	n := len(h.items)
	top := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	n--
	i := 0
	for {
		left, right, smallest := 2*i+1, 2*i+2, i
		if left < n && h.items[left].scalar < h.items[smallest].scalar {
			smallest = left
		}
		if right < n && h.items[right].scalar < h.items[smallest].scalar {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
	return top
}

func (h *minHeap) reset() { h.items = h.items[:0] }

// Query is the per-thread, reusable scratch state for bidirectional CH
// search. Not safe for concurrent use; each worker owns its own Query.
type Query struct {
	distFwd []float64
	distBwd []float64
	predFwd []uint32
	predBwd []uint32
	touched []uint32
	heap    minHeap
}

// NewQuery allocates scratch state for a graph with n nodes.
func NewQuery(n int) *Query {
	q := &Query{
		distFwd: make([]float64, n),
		distBwd: make([]float64, n),
		predFwd: make([]uint32, n),
		predBwd: make([]uint32, n),
		touched: make([]uint32, 0, 256),
	}
	for i := range q.distFwd {
		q.distFwd[i] = math.Inf(1)
		q.distBwd[i] = math.Inf(1)
		q.predFwd[i] = noEdge
		q.predBwd[i] = noEdge
	}
	return q
}

func (q *Query) touch(node uint32) {
	if math.IsInf(q.distFwd[node], 1) && math.IsInf(q.distBwd[node], 1) {
		q.touched = append(q.touched, node)
	}
}

func (q *Query) reset() {
	for _, n := range q.touched {
		q.distFwd[n] = math.Inf(1)
		q.distBwd[n] = math.Inf(1)
		q.predFwd[n] = noEdge
		q.predBwd[n] = noEdge
	}
	q.touched = q.touched[:0]
	q.heap.reset()
}

// Find runs one bidirectional shortest-path query from source to target
// under alpha, returning the unpacked edge path, its summed cost vector,
// and the scalarized cost. ok is false if target is unreachable from
// source.
func (q *Query) Find(g *chgraph.CHGraph, source, target uint32, alpha costmath.Preference) (chgraph.QueryResult, bool) {
	q.reset()
	q.distFwd[source] = 0
	q.distBwd[target] = 0
	q.touched = append(q.touched, source, target)
	q.heap.push(candidate{0, source, forward})
	q.heap.push(candidate{0, target, backward})

	bestCost := math.Inf(1)
	meetNode := noEdge
	fwdSealed, bwdSealed := false, false

	for q.heap.len() > 0 {
		if fwdSealed && bwdSealed {
			break
		}
		cur := q.heap.pop()
		if cur.dir == forward {
			if fwdSealed {
				continue
			}
			if cur.scalar > q.distFwd[cur.node] {
				continue
			}
			if cur.scalar > bestCost {
				fwdSealed = true
				continue
			}
			if d := q.distBwd[cur.node]; !math.IsInf(d, 1) {
				if cand := cur.scalar + d; cand < bestCost {
					bestCost = cand
					meetNode = cur.node
				}
			}
			level := g.Nodes[cur.node].CHLevel
			for _, he := range g.OutEdges(cur.node) {
				if g.Nodes[he.Neighbor].CHLevel < level {
					break
				}
				nd := cur.scalar + costmath.Dot(he.Cost, alpha)
				if nd < q.distFwd[he.Neighbor] {
					q.touch(he.Neighbor)
					q.distFwd[he.Neighbor] = nd
					q.predFwd[he.Neighbor] = he.EdgeID
					q.heap.push(candidate{nd, he.Neighbor, forward})
				}
			}
		} else {
			if bwdSealed {
				continue
			}
			if cur.scalar > q.distBwd[cur.node] {
				continue
			}
			if cur.scalar > bestCost {
				bwdSealed = true
				continue
			}
			if d := q.distFwd[cur.node]; !math.IsInf(d, 1) {
				if cand := cur.scalar + d; cand < bestCost {
					bestCost = cand
					meetNode = cur.node
				}
			}
			level := g.Nodes[cur.node].CHLevel
			for _, he := range g.InEdges(cur.node) {
				if g.Nodes[he.Neighbor].CHLevel < level {
					break
				}
				nd := cur.scalar + costmath.Dot(he.Cost, alpha)
				if nd < q.distBwd[he.Neighbor] {
					q.touch(he.Neighbor)
					q.distBwd[he.Neighbor] = nd
					q.predBwd[he.Neighbor] = he.EdgeID
					q.heap.push(candidate{nd, he.Neighbor, backward})
				}
			}
		}
	}

	if meetNode == noEdge {
		return chgraph.QueryResult{}, false
	}

	edges := q.reconstruct(g, meetNode)
	cost := g.EdgeCost(edges)
	return chgraph.QueryResult{
		Edges:  edges,
		Cost:   cost,
		Scalar: costmath.Dot(cost, alpha),
	}, true
}

// reconstruct walks the forward predecessor chain from meetNode back to
// source (reversing it), then the backward predecessor chain from
// meetNode forward to target, unpacking each CH edge into original edges.
func (q *Query) reconstruct(g *chgraph.CHGraph, meetNode uint32) []uint32 {
	var fwdChain []uint32
	for node := meetNode; q.predFwd[node] != noEdge; {
		e := q.predFwd[node]
		fwdChain = append(fwdChain, e)
		node = g.Edges[e].Source
	}
	var edges []uint32
	for i := len(fwdChain) - 1; i >= 0; i-- {
		edges = append(edges, g.Unpack(fwdChain[i])...)
	}
	for node := meetNode; q.predBwd[node] != noEdge; {
		e := q.predBwd[node]
		edges = append(edges, g.Unpack(e)...)
		node = g.Edges[e].Target
	}
	return edges
}
