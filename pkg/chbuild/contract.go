// Package chbuild implements contraction-hierarchy preprocessing for
// D-dimensional scalarized edge costs: it orders nodes by an edge-difference
// heuristic, contracts them one at a time using a cost-bounded witness search to
// decide which shortcuts are actually needed, and emits the leveled,
// shortcut-annotated graph that pkg/chgraph consumes.
//
// Contraction and witness search are scalarized against a single
// representative preference rather than proven correct for every possible
// preference; see the accompanying design note for why this is the
// pragmatic choice here.
package chbuild

import (
	"container/heap"
	"math"

	"github.com/Lesstat/ppts/pkg/chgraph"
	"github.com/Lesstat/ppts/pkg/costmath"
)

// InputEdge is a plain, pre-contraction edge referencing external node ids.
type InputEdge struct {
	ExternalID string
	Source     uint32
	Target     uint32
	Cost       costmath.CostVector
}

// adjEntry is one entry of the mutable, contraction-time adjacency list.
type adjEntry struct {
	to      uint32
	cost    costmath.CostVector
	scalar  float64
	middle  int64 // -1 for original edges, else the contracted node id
	origIdx int   // index into the original edge slice, for original edges
}

// Result is the contracted output: leveled nodes, the full edge set
// (original plus shortcuts) ready for chgraph.Build, and ExtIDs holding
// each output edge's external id (empty string for shortcuts).
type Result struct {
	Nodes    []chgraph.Node
	Edges    []chgraph.Edge
	ExtIDs   []string
	NumInput int
}

// Contract runs CH preprocessing over nodeIDs/edges under alpha, the
// preference used to scalarize priorities and witness searches.
func Contract(nodeIDs []uint32, edges []InputEdge, dim int, alpha costmath.Preference) *Result {
	idx := make(map[uint32]int, len(nodeIDs))
	for i, id := range nodeIDs {
		idx[id] = i
	}
	n := len(nodeIDs)

	outAdj := make([][]adjEntry, n)
	inAdj := make([][]adjEntry, n)
	for i, e := range edges {
		u, v := idx[e.Source], idx[e.Target]
		scalar := costmath.Dot(e.Cost, alpha)
		outAdj[u] = append(outAdj[u], adjEntry{to: uint32(v), cost: e.Cost, scalar: scalar, middle: -1, origIdx: i})
		inAdj[v] = append(inAdj[v], adjEntry{to: uint32(u), cost: e.Cost, scalar: scalar, middle: -1, origIdx: i})
	}

	contracted := make([]bool, n)
	rank := make([]uint32, n)
	level := make([]int, n)
	contractedNeighbors := make([]int, n)

	pq := make(priorityQueue, n)
	for i := 0; i < n; i++ {
		pq[i] = &pqEntry{node: uint32(i), priority: priority(outAdj, inAdj, uint32(i), contracted, 0, 0)}
	}
	heap.Init(&pq)

	type shortcut struct {
		from, to uint32
		cost     costmath.CostVector
		middle   uint32
	}
	var shortcuts []shortcut
	var order uint32

	ws := newWitnessState(n)

	for pq.Len() > 0 {
		entry := heap.Pop(&pq).(*pqEntry)
		node := entry.node
		if contracted[node] {
			continue
		}

		fresh := priority(outAdj, inAdj, node, contracted, contractedNeighbors[node], level[node])
		if pq.Len() > 0 && fresh > pq[0].priority {
			entry.priority = fresh
			heap.Push(&pq, entry)
			continue
		}

		needed := findShortcuts(ws, outAdj, inAdj, node, contracted, dim)
		contracted[node] = true
		rank[node] = order
		order++

		for _, sc := range needed {
			outAdj[sc.from] = append(outAdj[sc.from], adjEntry{to: sc.to, cost: sc.cost, scalar: costmath.Dot(sc.cost, alpha), middle: int64(node), origIdx: -1})
			inAdj[sc.to] = append(inAdj[sc.to], adjEntry{to: sc.from, cost: sc.cost, scalar: costmath.Dot(sc.cost, alpha), middle: int64(node), origIdx: -1})
			shortcuts = append(shortcuts, shortcut{from: sc.from, to: sc.to, cost: sc.cost, middle: node})
		}

		for _, e := range append(append([]adjEntry{}, outAdj[node]...), inAdj[node]...) {
			if contracted[e.to] {
				continue
			}
			contractedNeighbors[e.to]++
			if level[node]+1 > level[e.to] {
				level[e.to] = level[node] + 1
			}
		}
	}

	outNodes := make([]chgraph.Node, n)
	for i := 0; i < n; i++ {
		outNodes[i] = chgraph.Node{ID: nodeIDs[i], CHLevel: rank[i]}
	}

	outEdges := make([]chgraph.Edge, 0, len(edges)+len(shortcuts))
	extIDs := make([]string, 0, len(edges)+len(shortcuts))
	nextID := uint32(0)
	origEdgeIDs := make([]uint32, len(edges))
	for i, e := range edges {
		origEdgeIDs[i] = nextID
		outEdges = append(outEdges, chgraph.Edge{ID: nextID, Source: nodeIDs[idx[e.Source]], Target: nodeIDs[idx[e.Target]], Cost: e.Cost})
		extIDs = append(extIDs, e.ExternalID)
		nextID++
	}

	// Build shortcuts last, referencing the edge ids assigned above; a
	// shortcut's expansion must point at edges that already exist at
	// build time, so we resolve middle-node witness edges greedily by
	// walking shortcuts in contraction order (they were appended as
	// contraction proceeded, so earlier shortcuts' ids are already known).
	childLookup := make(map[[2]uint32]uint32, len(outEdges))
	for i, e := range outEdges {
		childLookup[[2]uint32{e.Source, e.Target}] = uint32(i)
		_ = e
	}
	for _, sc := range shortcuts {
		from, to := nodeIDs[sc.from], nodeIDs[sc.to]
		mid := nodeIDs[sc.middle]
		a, okA := childLookup[[2]uint32{from, mid}]
		b, okB := childLookup[[2]uint32{mid, to}]
		if !okA || !okB {
			continue
		}
		exp := [2]uint32{a, b}
		outEdges = append(outEdges, chgraph.Edge{ID: nextID, Source: from, Target: to, Cost: sc.cost, Expansion: &exp})
		childLookup[[2]uint32{from, to}] = nextID
		extIDs = append(extIDs, "")
		nextID++
	}

	return &Result{Nodes: outNodes, Edges: outEdges, ExtIDs: extIDs, NumInput: len(edges)}
}

// priority is lower for nodes cheaper to contract: fewer shortcuts induced,
// fewer already-contracted neighbors, shallower hierarchy level.
func priority(outAdj, inAdj [][]adjEntry, node uint32, contracted []bool, contractedNeighbors, level int) int {
	activeIn, activeOut := 0, 0
	for _, e := range inAdj[node] {
		if !contracted[e.to] {
			activeIn++
		}
	}
	for _, e := range outAdj[node] {
		if !contracted[e.to] {
			activeOut++
		}
	}
	edgeDiff := activeIn*activeOut - (activeIn + activeOut)
	return edgeDiff + 2*contractedNeighbors + level
}

type foundShortcut struct {
	from, to uint32
	cost     costmath.CostVector
}

// findShortcuts runs one witness Dijkstra per active incoming neighbor,
// bounded by the most expensive outgoing detour through node, and emits a
// shortcut wherever no witness path at least as cheap exists.
func findShortcuts(ws *witnessState, outAdj, inAdj [][]adjEntry, node uint32, contracted []bool, dim int) []foundShortcut {
	var incoming, outgoing []adjEntry
	for _, e := range inAdj[node] {
		if !contracted[e.to] {
			incoming = append(incoming, e)
		}
	}
	for _, e := range outAdj[node] {
		if !contracted[e.to] {
			outgoing = append(outgoing, e)
		}
	}
	if len(incoming) == 0 || len(outgoing) == 0 {
		return nil
	}

	var out []foundShortcut
	for _, in := range incoming {
		maxOut := 0.0
		for _, o := range outgoing {
			if o.to != in.to && o.scalar > maxOut {
				maxOut = o.scalar
			}
		}
		if maxOut == 0 {
			continue
		}
		bound := in.scalar + maxOut
		ws.run(outAdj, in.to, node, bound, contracted)

		for _, o := range outgoing {
			if o.to == in.to {
				continue
			}
			scCost := costmath.Add(in.cost, o.cost)
			scScalar := in.scalar + o.scalar
			if ws.dist[o.to] > scScalar+1e-9 {
				out = append(out, foundShortcut{from: in.to, to: o.to, cost: scCost})
			}
		}
	}
	_ = dim
	return out
}

// witnessState is reusable scratch space for the cost-bounded Dijkstra
// used to decide whether a shortcut is needed.
type witnessState struct {
	dist    []float64
	touched []uint32
}

func newWitnessState(n int) *witnessState {
	ws := &witnessState{dist: make([]float64, n)}
	for i := range ws.dist {
		ws.dist[i] = math.Inf(1)
	}
	return ws
}

// run computes shortest scalar distances from source, skipping the
// contracted-out via node, stopping once the frontier exceeds bound.
func (ws *witnessState) run(outAdj [][]adjEntry, source, via uint32, bound float64, contracted []bool) {
	for _, n := range ws.touched {
		ws.dist[n] = math.Inf(1)
	}
	ws.touched = ws.touched[:0]

	h := make(distHeap, 0, 16)
	ws.dist[source] = 0
	ws.touched = append(ws.touched, source)
	heap.Push(&h, distItem{node: source, dist: 0})

	for h.Len() > 0 {
		cur := heap.Pop(&h).(distItem)
		if cur.dist > ws.dist[cur.node] {
			continue
		}
		if cur.dist > bound {
			break
		}
		for _, e := range outAdj[cur.node] {
			if e.to == via || contracted[e.to] {
				continue
			}
			nd := cur.dist + e.scalar
			if nd > bound {
				continue
			}
			if nd < ws.dist[e.to] {
				if math.IsInf(ws.dist[e.to], 1) {
					ws.touched = append(ws.touched, e.to)
				}
				ws.dist[e.to] = nd
				heap.Push(&h, distItem{node: e.to, dist: nd})
			}
		}
	}
}

type distItem struct {
	node uint32
	dist float64
}

type distHeap []distItem

func (h distHeap) Len() int            { return len(h) }
func (h distHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h distHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *distHeap) Push(x any)         { *h = append(*h, x.(distItem)) }
func (h *distHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type pqEntry struct {
	node     uint32
	priority int
}

type priorityQueue []*pqEntry

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)         { *pq = append(*pq, x.(*pqEntry)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	entry := old[n-1]
	*pq = old[:n-1]
	return entry
}
