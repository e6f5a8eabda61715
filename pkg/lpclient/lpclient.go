// Package lpclient implements the binary wire protocol client for the
// out-of-process LP solver sidecar (spec.md §4.3/§6.5). A Client owns one
// child process's stdin/stdout pipes; callers issue Reset/AddConstraint/
// Solve in strict order on a single goroutine.
package lpclient

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os/exec"

	"github.com/Lesstat/ppts/pkg/costmath"
	"github.com/Lesstat/ppts/pkg/experror"
)

// Control bytes of the wire protocol, shared with cmd/lpsolver.
const (
	CtrlReset    byte = 0
	CtrlAdd      byte = 1
	CtrlSolve    byte = 2
	RespOK       byte = 0
	RespInfeas   byte = 1
	zeroEpsilon       = 5e-6
)

// Session is the subset of Client used by pkg/preference, kept as an
// interface so estimators can be tested against a fake without spawning a
// real child process.
type Session interface {
	Reset() error
	AddConstraint(c costmath.CostVector) error
	Solve() (alpha costmath.Preference, delta float64, ok bool, err error)
}

// Client drives one LP solver child process over piped stdin/stdout.
type Client struct {
	dim int
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Reader
}

// Start launches the solver binary at path and returns a Client ready for
// Reset. dim is the preference dimension D.
func Start(path string, dim int) (*Client, error) {
	cmd := exec.Command(path, fmt.Sprintf("--dim=%d", dim))
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("lpclient: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("lpclient: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("lpclient: start %s: %w", path, err)
	}
	return &Client{
		dim: dim,
		cmd: cmd,
		in:  stdin,
		out: bufio.NewReader(stdout),
	}, nil
}

// Close terminates the child process, releasing the pipes.
func (c *Client) Close() error {
	c.in.Close()
	return c.cmd.Wait()
}

// Reset discards all accumulated constraints on the solver side.
func (c *Client) Reset() error {
	if _, err := c.in.Write([]byte{CtrlReset}); err != nil {
		return fmt.Errorf("%w: reset: %v", experror.ErrLPFailure, err)
	}
	return nil
}

// AddConstraint sends one difference-constraint c·α ≥ δ. Components whose
// magnitude is below zeroEpsilon are zeroed first to suppress numerical
// noise accumulated by upstream floating point arithmetic.
func (c *Client) AddConstraint(cost costmath.CostVector) error {
	if len(cost) != c.dim {
		return fmt.Errorf("lpclient: constraint has dimension %d, want %d", len(cost), c.dim)
	}
	buf := make([]byte, 1+8*c.dim)
	buf[0] = CtrlAdd
	for i, v := range cost {
		if v < zeroEpsilon && v > -zeroEpsilon {
			v = 0
		}
		binary.NativeEndian.PutUint64(buf[1+8*i:], math.Float64bits(v))
	}
	if _, err := c.in.Write(buf); err != nil {
		return fmt.Errorf("%w: add_constraint: %v", experror.ErrLPFailure, err)
	}
	return nil
}

// Solve runs the LP and returns (alpha, delta, true, nil) on a feasible
// result, or (nil, 0, false, nil) if the solver reported infeasibility. A
// non-nil error means the child process itself misbehaved.
func (c *Client) Solve() (costmath.Preference, float64, bool, error) {
	if _, err := c.in.Write([]byte{CtrlSolve}); err != nil {
		return nil, 0, false, fmt.Errorf("%w: solve write: %v", experror.ErrLPFailure, err)
	}
	resp, err := c.out.ReadByte()
	if err != nil {
		return nil, 0, false, fmt.Errorf("%w: solve response: %v", experror.ErrLPFailure, err)
	}
	switch resp {
	case RespInfeas:
		return nil, 0, false, nil
	case RespOK:
		buf := make([]byte, 8*(c.dim+1))
		if _, err := io.ReadFull(c.out, buf); err != nil {
			return nil, 0, false, fmt.Errorf("%w: solve payload: %v", experror.ErrLPFailure, err)
		}
		alpha := make(costmath.Preference, c.dim)
		for i := range alpha {
			alpha[i] = math.Float64frombits(binary.NativeEndian.Uint64(buf[8*i:]))
		}
		delta := math.Float64frombits(binary.NativeEndian.Uint64(buf[8*c.dim:]))
		return alpha, delta, true, nil
	default:
		return nil, 0, false, fmt.Errorf("%w: unknown response byte %d", experror.ErrLPFailure, resp)
	}
}
