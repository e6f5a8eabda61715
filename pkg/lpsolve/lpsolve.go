// Package lpsolve builds and solves, per spec.md §4.3, the cutting-plane LP
//
//	maximize δ
//	s.t.     Σ α_i = 1
//	         c_k·α − δ ≥ 0   for each accumulated constraint k
//	         α_i ≥ 0, δ free
//
// via gonum's parametric simplex solver, which expects standard form
// (minimize c·x s.t. Ax=b, x≥0). The free variable δ is split into
// δ+,δ-≥0 (δ=δ+−δ-); each inequality gets a surplus variable turning it
// into an equality. This is the LP math behind cmd/lpsolver; pkg/lpclient
// is the wire-protocol veneer in front of it.
package lpsolve

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const solveTol = 1e-10

// Problem is one LP session: the preference dimension plus the
// accumulated difference-constraints. Mirrors the server side of the
// Reset/AddConstraint/Solve session described in spec.md §4.3.
type Problem struct {
	dim         int
	constraints [][]float64
	rnd         *rand.Rand
}

// New returns a Problem for a D-dimensional preference, already reset.
func New(dim int) *Problem {
	return &Problem{dim: dim, rnd: rand.New(rand.NewSource(1))}
}

// Reset discards all accumulated constraints, keeping the Σα=1 bound.
func (p *Problem) Reset() {
	p.constraints = p.constraints[:0]
}

// AddConstraint adds one half-space c·α ≥ δ. coeff must have length dim.
func (p *Problem) AddConstraint(coeff []float64) {
	row := make([]float64, p.dim)
	copy(row, coeff)
	p.constraints = append(p.constraints, row)
}

// Solve runs the LP. ok is false iff the accumulated constraint set is
// infeasible (or the solver could not certify a bounded optimum); err is
// always nil, since every solver failure is reported through ok=false.
func (p *Problem) Solve() (alpha []float64, delta float64, ok bool, err error) {
	k := len(p.constraints)
	d := p.dim
	n := d + 2 + k // alpha_1..alpha_d, delta+, delta-, slack_1..slack_k
	m := 1 + k

	adata := make([]float64, m*n)
	row := func(r, c int) int { return r*n + c }

	for i := 0; i < d; i++ {
		adata[row(0, i)] = 1
	}
	b := make([]float64, m)
	b[0] = 1

	for ci, c := range p.constraints {
		r := ci + 1
		for i := 0; i < d; i++ {
			adata[row(r, i)] = c[i]
		}
		adata[row(r, d)] = -1   // delta+
		adata[row(r, d+1)] = 1  // delta-
		adata[row(r, d+2+ci)] = -1 // slack_ci
		b[r] = 0
	}

	A := mat.NewDense(m, n, adata)

	c := make([]float64, n)
	c[d] = -1 // minimize -delta+ maximizes delta+
	c[d+1] = 1

	_, x, _, solveErr := lp.Parametric(c, A, b, solveTol, nil, true, p.rnd)
	if solveErr != nil {
		return nil, 0, false, nil
	}

	alpha = make([]float64, d)
	copy(alpha, x[:d])
	delta = x[d] - x[d+1]
	return alpha, delta, true, nil
}
