package trajectory

import (
	"math"

	"github.com/Lesstat/ppts/pkg/chgraph"
	"github.com/Lesstat/ppts/pkg/costmath"
)

// Overlap returns the fraction of edges path1 and path2 share, relative to
// the longer of the two: #shared_edges / max(len(path1), len(path2)). A
// result of 1.0 means identical paths, 0.0 means no shared edge.
func Overlap(path1, path2 *chgraph.Path) float64 {
	maxLen := len(path1.Edges)
	if len(path2.Edges) > maxLen {
		maxLen = len(path2.Edges)
	}
	if maxLen == 0 {
		return 0
	}

	inPath1 := make(map[uint32]struct{}, len(path1.Edges))
	for _, e := range path1.Edges {
		inPath1[e] = struct{}{}
	}

	var shared int
	for _, e := range path2.Edges {
		if _, ok := inPath1[e]; ok {
			shared++
		}
	}
	return float64(shared) / float64(maxLen)
}

// CostAngle returns the cosine of the angle between two cost vectors: 1.0
// for identical directions, 0.0 for orthogonal ones.
func CostAngle(c1, c2 costmath.CostVector) float64 {
	var dot, sq1, sq2 float64
	for i := range c1 {
		dot += c1[i] * c2[i]
		sq1 += c1[i] * c1[i]
		sq2 += c2[i] * c2[i]
	}
	return dot / math.Sqrt(sq1*sq2)
}

// CostLengthRatio returns the ratio of the shorter to the longer of two
// cost vectors' lengths: 1.0 means equal length, smaller means more
// different.
func CostLengthRatio(c1, c2 costmath.CostVector) float64 {
	l1, l2 := costmath.Norm(c1), costmath.Norm(c2)
	if l1 < l2 {
		return l1 / l2
	}
	return l2 / l1
}
