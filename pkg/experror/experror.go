// Package experror defines the typed error taxonomy shared across the
// core: malformed input, invalid trajectories, LP infeasibility and solver
// failure, unreachable endpoints, and numeric-degenerate cutting-plane
// cycles. Callers distinguish them with errors.Is/errors.As rather than
// string matching.
package experror

import "fmt"

// Sentinel errors matching the taxonomy in the component design.
var (
	// ErrInfeasible means the LP had no feasible solution for the
	// accumulated constraint set.
	ErrInfeasible = fmt.Errorf("lp: infeasible")

	// ErrLPFailure means the LP child process crashed or returned an
	// unexpected control byte. Fatal for the owning session.
	ErrLPFailure = fmt.Errorf("lp: solver failure")

	// ErrUnreachable means a required shortest-path query returned no
	// path between endpoints assumed reachable.
	ErrUnreachable = fmt.Errorf("graph: endpoints unreachable")

	// ErrNumericDegenerate means the cutting-plane cycle guard fired:
	// the same preference recurred within one loop.
	ErrNumericDegenerate = fmt.Errorf("preference: cycling alpha detected")
)

// InputMalformedError wraps a parse-time failure (graph or trajectory
// files, dimension mismatch, missing edge id).
type InputMalformedError struct {
	Context string
	Err     error
}

func (e *InputMalformedError) Error() string {
	return fmt.Sprintf("malformed input (%s): %v", e.Context, e.Err)
}

func (e *InputMalformedError) Unwrap() error { return e.Err }

// NewInputMalformed wraps err with a description of where parsing failed.
func NewInputMalformed(context string, err error) error {
	return &InputMalformedError{Context: context, Err: err}
}

// InvalidTrajectoryError means consecutive edges in a trajectory are not
// connected (edge[k].target != edge[k+1].source).
type InvalidTrajectoryError struct {
	Index int
}

func (e *InvalidTrajectoryError) Error() string {
	return fmt.Sprintf("invalid trajectory: edges %d and %d are not connected", e.Index, e.Index+1)
}
