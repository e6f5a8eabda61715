package trajectory

import (
	"fmt"
	"sort"

	"github.com/Lesstat/ppts/pkg/chgraph"
	"github.com/Lesstat/ppts/pkg/costmath"
	"github.com/Lesstat/ppts/pkg/preference"
)

// SubPath identifies a contiguous, edge-index range of a Path found to be
// non-optimal under any preference (spec.md §4.5.2).
type SubPath struct {
	Start int
	End   int
}

// Analyzer drives PreferenceEstimator queries via binary search to
// produce splitting decompositions, non-optimal subpaths, and
// single-preference decompositions (spec.md §4.5).
type Analyzer struct {
	Estimator *preference.Estimator
}

// NewAnalyzer returns an Analyzer over the given estimator.
func NewAnalyzer(est *preference.Estimator) *Analyzer {
	return &Analyzer{Estimator: est}
}

// FindPreference implements spec.md §4.5.1: produce the maximal-prefix
// splitting decomposition of path, storing it as path.AlgoSplit.
func (a *Analyzer) FindPreference(path *chgraph.Path) (*chgraph.PathSplit, error) {
	l := len(path.Edges)
	if l == 0 {
		split := &chgraph.PathSplit{}
		path.AlgoSplit = split
		return split, nil
	}

	var cuts []int
	var alphas []costmath.Preference
	start := 0

	for start < l {
		low, high := start, l+1
		bestCut := -1
		var bestAlpha costmath.Preference

		for {
			m := (low + high) / 2
			if m == start {
				if bestCut < 0 {
					return nil, fmt.Errorf("preference: no preference explains edge at index %d", start)
				}
				break
			}
			alpha, ok, err := a.Estimator.CalcPreference(path, start, m)
			if err != nil {
				return nil, err
			}
			if ok {
				low = m + 1
				bestCut = m
				bestAlpha = alpha
			} else {
				high = m
			}
			if low >= high {
				break
			}
		}
		if bestCut < 0 {
			return nil, fmt.Errorf("preference: no preference explains edge at index %d", start)
		}
		cuts = append(cuts, bestCut)
		alphas = append(alphas, bestAlpha)
		start = bestCut
	}

	segCosts := make([]costmath.CostVector, len(cuts))
	segScalar := make([]float64, len(cuts))
	prev := 0
	for i, cut := range cuts {
		segCosts[i] = path.SubPathCost(a.Estimator.Graph, prev, cut)
		segScalar[i] = costmath.Dot(segCosts[i], alphas[i])
		prev = cut
	}

	split := &chgraph.PathSplit{
		Cuts:                  cuts,
		Alphas:                alphas,
		PerSegmentCosts:       segCosts,
		PerSegmentScalarCosts: segScalar,
	}
	path.AlgoSplit = split
	return split, nil
}

// FindNonOptimalSegments implements the cut-anchored SNOP search of
// spec.md §4.5.2: for every interior cut of path's splitting
// decomposition, widen a window around it until it stops being
// explainable. Computes the splitting decomposition first if absent.
func (a *Analyzer) FindNonOptimalSegments(path *chgraph.Path) ([]SubPath, error) {
	split := path.AlgoSplit
	if split == nil {
		var err error
		split, err = a.FindPreference(path)
		if err != nil {
			return nil, err
		}
	}
	if len(split.Cuts) == 0 {
		return nil, nil
	}

	var res []SubPath
	for _, c := range split.Cuts[:len(split.Cuts)-1] {
		dist := 1
		for c-dist >= 0 {
			_, ok, err := a.Estimator.CalcPreference(path, c-dist, c+1)
			if err != nil {
				return nil, err
			}
			if !ok {
				res = append(res, SubPath{Start: c - dist, End: c + 1})
				break
			}
			dist++
		}
	}
	return res, nil
}

// FindAllNonOptimalSegments implements the exhaustive minimal-width SNOP
// search of spec.md §4.5.2: repeatedly locates the shortest witness
// window for non-explainability, left to right.
func (a *Analyzer) FindAllNonOptimalSegments(path *chgraph.Path) ([]SubPath, error) {
	l := len(path.Edges)
	explainable := func(s, t int) (bool, error) {
		_, ok, err := a.Estimator.CalcPreference(path, s, t)
		return ok, err
	}

	var res []SubPath
	s, t := 0, l
	for s < t {
		ok, err := explainable(s, t)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		// Smallest t' in (s, l] with [s,t'] non-explainable.
		lo, hi := s+1, l
		for lo < hi {
			mid := (lo + hi) / 2
			ok, err := explainable(s, mid)
			if err != nil {
				return nil, err
			}
			if ok {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		t = lo

		// Largest s' in [s, t) with [s',t] non-explainable.
		lo2, hi2 := s, t-1
		for lo2 < hi2 {
			mid := (lo2 + hi2 + 1) / 2
			ok, err := explainable(mid, t)
			if err != nil {
				return nil, err
			}
			if ok {
				hi2 = mid - 1
			} else {
				lo2 = mid
			}
		}

		res = append(res, SubPath{Start: lo2, End: t})
		s = lo2 + 1
		t = l
	}
	return IntersectSubPaths(res), nil
}

// IntersectSubPaths collapses a set of SubPaths into minimal
// representatives (spec.md §8 scenario 7): any interval that is a strict
// superset of another listed interval is redundant and dropped. The
// result contains no containment relations, so applying the function
// again is a no-op (idempotent).
func IntersectSubPaths(subpaths []SubPath) []SubPath {
	type key struct{ start, end int }
	seen := make(map[key]bool, len(subpaths))
	unique := subpaths[:0:0]
	for _, sp := range subpaths {
		k := key{sp.Start, sp.End}
		if !seen[k] {
			seen[k] = true
			unique = append(unique, sp)
		}
	}

	var minimal []SubPath
	for i, a := range unique {
		contained := false
		for j, b := range unique {
			if i == j {
				continue
			}
			strictlyContains := b.Start >= a.Start && b.End <= a.End && (b.Start > a.Start || b.End < a.End)
			if strictlyContains {
				contained = true
				break
			}
		}
		if !contained {
			minimal = append(minimal, a)
		}
	}

	sort.Slice(minimal, func(i, j int) bool {
		if minimal[i].Start != minimal[j].Start {
			return minimal[i].Start < minimal[j].Start
		}
		return minimal[i].End < minimal[j].End
	})
	return minimal
}

// SinglePreferenceResult is the outcome of SinglePreferenceDecomposition:
// the cuts of the decomposition and the single preference explaining
// every segment jointly with the supplied constraint paths.
type SinglePreferenceResult struct {
	Cuts       []int
	Preference costmath.Preference
}

// SinglePreferenceDecomposition implements spec.md §4.5.3: find cuts such
// that one preference jointly explains path in segments alongside the
// (already-explainable) constraintPaths, threading accumulated LP
// constraints across binary-search iterations to avoid recomputation.
func (a *Analyzer) SinglePreferenceDecomposition(constraintPaths []*chgraph.Path, path *chgraph.Path) (*SinglePreferenceResult, error) {
	l := len(path.Edges)

	committedPaths := append([]*chgraph.Path{}, constraintPaths...)
	committedRanges := make([][2]int, len(constraintPaths))
	for i, p := range constraintPaths {
		committedRanges[i] = [2]int{0, len(p.Edges)}
	}
	var existing []costmath.CostVector

	var cuts []int
	var bestAlpha costmath.Preference
	start := 0

	for start < l {
		low, high := start, l+1
		bestCut := -1
		var bestCutAlpha costmath.Preference
		var bestCutConstraints []costmath.CostVector

		for {
			m := (low + high) / 2
			if m == start {
				break
			}
			trialPaths := append(append([]*chgraph.Path{}, committedPaths...), path)
			trialRanges := append(append([][2]int{}, committedRanges...), [2]int{start, m})

			alpha, ok, added, err := a.Estimator.CalcPreferenceForPathsWithConstraints(trialPaths, trialRanges, existing)
			if err != nil {
				return nil, err
			}
			if ok {
				low = m + 1
				bestCut = m
				bestCutAlpha = alpha
				bestCutConstraints = added
			} else {
				high = m
			}
			if low >= high {
				break
			}
		}
		if bestCut < 0 {
			return nil, fmt.Errorf("preference: no single preference explains edge at index %d", start)
		}

		cuts = append(cuts, bestCut)
		bestAlpha = bestCutAlpha
		committedPaths = append(committedPaths, path)
		committedRanges = append(committedRanges, [2]int{start, bestCut})
		existing = bestCutConstraints
		start = bestCut
	}

	return &SinglePreferenceResult{Cuts: cuts, Preference: bestAlpha}, nil
}
