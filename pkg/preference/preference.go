// Package preference implements the cutting-plane preference estimator
// (spec.md §4.4): given a subpath, either certify a preference under
// which it is shortest, or minimize the regret of the best preference
// found, by alternating shortest-path queries against a CHGraph with LP
// solves against an lpclient.Session.
package preference

import (
	"fmt"

	"github.com/Lesstat/ppts/pkg/chgraph"
	"github.com/Lesstat/ppts/pkg/costmath"
	"github.com/Lesstat/ppts/pkg/experror"
	"github.com/Lesstat/ppts/pkg/lpclient"
)

// zeroTolerance absorbs LP/geometry precision noise when comparing
// accumulated regret against zero (spec.md §4.4.1 step c/e).
const zeroTolerance = 5e-6

// cycleTolerance bounds how close two preferences must be to count as the
// same point for the cutting-plane cycle guard.
const cycleTolerance = 1e-9

// Estimator runs the cutting-plane loop for one subpath or path set. It
// owns no persistent state beyond the graph, search, and LP session it is
// constructed with; callers create one per query (or reuse across calls
// that Reset the session themselves).
type Estimator struct {
	Graph   *chgraph.CHGraph
	Finder  chgraph.PathFinder
	Session lpclient.Session
}

// New returns an Estimator over the given graph, search engine, and LP
// session.
func New(g *chgraph.CHGraph, finder chgraph.PathFinder, session lpclient.Session) *Estimator {
	return &Estimator{Graph: g, Finder: finder, Session: session}
}

// CalcPreference implements spec.md §4.4.1: certify a preference under
// which path.Edges[i:j] is a shortest path between its endpoints, or
// report that none exists (ok=false).
func (e *Estimator) CalcPreference(path *chgraph.Path, i, j int) (alpha costmath.Preference, ok bool, err error) {
	if err := e.Session.Reset(); err != nil {
		return nil, false, err
	}
	cSub := path.SubPathCost(e.Graph, i, j)
	subEdges := path.Edges[i:j]
	alpha = costmath.Uniform(e.Graph.Dim)

	var seen []costmath.Preference
	seen = append(seen, alpha)

	for {
		res, found := e.Finder.Find(e.Graph, path.Nodes[i], path.Nodes[j], alpha)
		if !found {
			return nil, false, fmt.Errorf("%w: subpath [%d,%d)", experror.ErrUnreachable, i, j)
		}
		if edgesEqual(subEdges, res.Edges) {
			return alpha, true, nil
		}

		delta := weightedDelta(cSub, res.Cost, alpha)
		if delta+zeroTolerance >= 0 {
			return alpha, true, nil
		}

		diff := costmath.Sub(res.Cost, cSub)
		if err := e.Session.AddConstraint(diff); err != nil {
			return nil, false, err
		}

		next, lpDelta, feasible, err := e.Session.Solve()
		if err != nil {
			return nil, false, err
		}
		if !feasible {
			return nil, false, nil
		}
		if lpDelta+zeroTolerance < 0 {
			return nil, false, nil
		}
		if seenBefore(seen, next) {
			return nil, false, nil
		}
		alpha = next
		seen = append(seen, alpha)
	}
}

// RegretResult is the outcome of a representative-preference search: the
// best preference found, the minimal non-negative regret it achieves, and
// (for callers that want to evaluate convergence, e.g. the experiment
// front-ends' optional per-iteration Results fields) every intermediate
// iteration the cutting-plane loop actually tried.
type RegretResult struct {
	Alpha      costmath.Preference
	Delta      float64
	Iterations []IterationRecord
}

// IterationRecord is one pass of the cutting-plane loop in
// representativeWithConstraints: the preference it tried, the resulting
// total query cost across all (path, range) pairs, and the per-path
// queried edge sequences (aligned with the paths/ranges the call was
// given), useful for comparing against the recorded path via
// pkg/trajectory's Overlap/CostAngle/CostLengthRatio.
type IterationRecord struct {
	Alpha     costmath.Preference
	QueryCost costmath.CostVector
	Edges     [][]uint32
}

// CalcRepresentativePreference implements spec.md §4.4.2 for a single
// path: unlike CalcPreference, this never reports "no preference exists";
// it returns the preference minimizing the accumulated regret.
func (e *Estimator) CalcRepresentativePreference(path *chgraph.Path, i, j int) (RegretResult, error) {
	return e.CalcRepresentativeMulti([]*chgraph.Path{path}, [][2]int{{i, j}})
}

// CalcRepresentativeMulti implements the multi-path variant of §4.4.2: a
// single Δ and a single constraint batch per outer iteration, summed
// across all (path, range) pairs.
func (e *Estimator) CalcRepresentativeMulti(paths []*chgraph.Path, ranges [][2]int) (RegretResult, error) {
	result, _, err := e.representativeWithConstraints(paths, ranges, nil)
	return result, err
}

// representativeWithConstraints implements spec.md §4.4.3: pre-add
// extraConstraints to the LP session before running the multi-path
// cutting-plane loop, and return the per-iteration constraints (already
// summed across paths, exactly as pushed to the LP session) this call
// added so a caller can replay them on a later session.
func (e *Estimator) representativeWithConstraints(
	paths []*chgraph.Path,
	ranges [][2]int,
	extraConstraints []costmath.CostVector,
) (RegretResult, []costmath.CostVector, error) {
	if err := e.Session.Reset(); err != nil {
		return RegretResult{}, nil, err
	}
	dim := e.Graph.Dim

	for _, c := range extraConstraints {
		if err := e.Session.AddConstraint(c); err != nil {
			return RegretResult{}, nil, err
		}
	}

	subCosts := make([]costmath.CostVector, len(paths))
	for k, p := range paths {
		subCosts[k] = p.SubPathCost(e.Graph, ranges[k][0], ranges[k][1])
	}

	first := paths[0]
	firstRange := ranges[0]
	alpha := e.seedAlpha(first.Nodes[firstRange[0]], first.Nodes[firstRange[1]], subCosts[0])

	var best RegretResult
	haveBest := false
	var addedConstraints []costmath.CostVector
	var iterations []IterationRecord
	var seen []costmath.Preference
	seen = append(seen, alpha)

	for {
		totalQueryCost := costmath.Zero(dim)
		batch := make([]costmath.CostVector, len(paths))
		edgesThisIter := make([][]uint32, len(paths))
		allMatched := true
		for k, p := range paths {
			start, end := ranges[k][0], ranges[k][1]
			res, found := e.Finder.Find(e.Graph, p.Nodes[start], p.Nodes[end], alpha)
			if !found {
				return RegretResult{}, nil, fmt.Errorf("%w: path %v subpath [%d,%d)", experror.ErrUnreachable, p.ID, start, end)
			}
			if !edgesEqual(p.Edges[start:end], res.Edges) {
				allMatched = false
			}
			costmath.AddInPlace(totalQueryCost, res.Cost)
			batch[k] = costmath.Sub(res.Cost, subCosts[k])
			edgesThisIter[k] = res.Edges
		}
		iterations = append(iterations, IterationRecord{Alpha: alpha, QueryCost: totalQueryCost, Edges: edgesThisIter})

		totalSubCost := costmath.Zero(dim)
		for _, c := range subCosts {
			costmath.AddInPlace(totalSubCost, c)
		}
		delta := weightedDelta(totalSubCost, totalQueryCost, alpha)
		if delta > 0 {
			delta = 0 // regret is never negative by construction of the LP
		}
		regret := -delta
		if !haveBest || regret < best.Delta {
			best = RegretResult{Alpha: alpha, Delta: regret}
			haveBest = true
		}
		if allMatched || regret <= zeroTolerance {
			best.Iterations = iterations
			return best, addedConstraints, nil
		}

		sumConstraint := costmath.Zero(dim)
		for _, c := range batch {
			costmath.AddInPlace(sumConstraint, c)
		}
		if err := e.Session.AddConstraint(sumConstraint); err != nil {
			return RegretResult{}, nil, err
		}
		addedConstraints = append(addedConstraints, sumConstraint)

		next, lpDelta, feasible, err := e.Session.Solve()
		if err != nil {
			return RegretResult{}, nil, err
		}
		if !feasible {
			if haveBest {
				best.Iterations = iterations
				return best, addedConstraints, nil
			}
			return RegretResult{}, nil, fmt.Errorf("%w: representative preference had no feasible iteration", experror.ErrInfeasible)
		}
		if best.Delta <= -lpDelta+zeroTolerance {
			best.Iterations = iterations
			return best, addedConstraints, nil
		}
		if seenBefore(seen, next) {
			best.Iterations = iterations
			return best, addedConstraints, nil
		}
		alpha = next
		seen = append(seen, alpha)
	}
}

// MultiPathWithConstraints is the exported entry point for §4.4.3:
// callers (single-preference decomposition) pass existing commitment
// constraints and receive both the outcome and the constraints added, so
// they can be replayed verbatim on a fresh session.
func (e *Estimator) MultiPathWithConstraints(
	paths []*chgraph.Path,
	ranges [][2]int,
	existing []costmath.CostVector,
) (RegretResult, []costmath.CostVector, error) {
	return e.representativeWithConstraints(paths, ranges, existing)
}

// CalcPreferenceForPaths is the certifying (non-regret) multi-path form
// used by single-preference decomposition: it runs the same multi-path
// loop as CalcRepresentativeMulti, but reports ok=false instead of a
// best-effort preference when the accumulated regret never reaches zero.
func (e *Estimator) CalcPreferenceForPaths(paths []*chgraph.Path, ranges [][2]int) (costmath.Preference, bool, error) {
	alpha, ok, _, err := e.CalcPreferenceForPathsWithConstraints(paths, ranges, nil)
	return alpha, ok, err
}

// CalcPreferenceForPathsWithConstraints is the §4.4.3 generalized,
// certifying form: pre-adds existing to the session, runs the multi-path
// loop, and reports ok=false when the final regret is not within
// zeroTolerance of 0. Returns the constraints added so a caller can carry
// them into a subsequent invocation via existing.
func (e *Estimator) CalcPreferenceForPathsWithConstraints(
	paths []*chgraph.Path,
	ranges [][2]int,
	existing []costmath.CostVector,
) (costmath.Preference, bool, []costmath.CostVector, error) {
	result, added, err := e.representativeWithConstraints(paths, ranges, existing)
	if err != nil {
		return nil, false, nil, err
	}
	if result.Delta <= zeroTolerance {
		return result.Alpha, true, added, nil
	}
	return nil, false, added, nil
}

func weightedDelta(cSub, cQuery costmath.CostVector, alpha costmath.Preference) float64 {
	return costmath.Dot(cQuery, alpha) - costmath.Dot(cSub, alpha)
}

func edgesEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func seenBefore(seen []costmath.Preference, alpha costmath.Preference) bool {
	for _, s := range seen {
		if costmath.Equal(s, alpha, cycleTolerance) {
			return true
		}
	}
	return false
}
