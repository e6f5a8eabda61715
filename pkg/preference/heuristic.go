package preference

import "github.com/Lesstat/ppts/pkg/costmath"

const linearCombinationTolerance = 1e-6

// GetLinearCombination approximates the preference whose linear
// combination of costsPerMetric (one cost vector per metric, each the
// total cost of the shortest path under that metric alone) best
// reconstructs realCosts, by greedily projecting onto the normalized
// per-metric axis with the largest remaining residual until the residual
// stops shrinking.
func GetLinearCombination(costsPerMetric []costmath.CostVector, realCosts costmath.CostVector) costmath.Preference {
	dim := len(realCosts)
	alpha := make(costmath.Preference, dim)
	rest := append(costmath.CostVector{}, realCosts...)

	normalized := make([]costmath.CostVector, dim)
	for i, m := range costsPerMetric {
		normalized[i] = normalizeVec(m)
	}

	for {
		bestScalar := 0.0
		bestIndex := 0
		for i := 0; i < dim; i++ {
			scalar := scalarProduct(normalized[i], rest)
			if scalar+alpha[i] < 0 {
				scalar = -alpha[i]
			}
			if abs(scalar) > abs(bestScalar) {
				bestScalar = scalar
				bestIndex = i
			}
		}

		step := make(costmath.CostVector, dim)
		for i := 0; i < dim; i++ {
			step[i] = bestScalar * normalized[bestIndex][i]
			rest[i] -= step[i]
		}
		if costmath.Norm(step) < linearCombinationTolerance {
			break
		}
		alpha[bestIndex] += bestScalar
	}

	var sum float64
	for _, a := range alpha {
		sum += a
	}
	if sum != 0 {
		for i := range alpha {
			alpha[i] /= sum
		}
	}
	return alpha
}

// seedAlpha computes a cheap non-LP starting preference for the
// cutting-plane loop between src and dst: it queries each metric's own
// shortest path in isolation, then asks GetLinearCombination which
// combination of those best reconstructs subCost. Falls back to Uniform
// when any per-metric query fails or the result isn't a valid preference.
func (e *Estimator) seedAlpha(src, dst uint32, subCost costmath.CostVector) costmath.Preference {
	dim := e.Graph.Dim
	costsPerMetric := make([]costmath.CostVector, dim)
	for d := 0; d < dim; d++ {
		unit := make(costmath.Preference, dim)
		unit[d] = 1
		res, ok := e.Finder.Find(e.Graph, src, dst, unit)
		if !ok {
			return costmath.Uniform(dim)
		}
		costsPerMetric[d] = res.Cost
	}

	alpha := GetLinearCombination(costsPerMetric, subCost)
	if !costmath.Valid(alpha) {
		return costmath.Uniform(dim)
	}
	return alpha
}

func scalarProduct(a, b []float64) float64 {
	var res float64
	for i := range a {
		res += a[i] * b[i]
	}
	return res
}

func normalizeVec(v costmath.CostVector) costmath.CostVector {
	length := costmath.Norm(v)
	res := make(costmath.CostVector, len(v))
	for i, x := range v {
		res[i] = x / length
	}
	return res
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
