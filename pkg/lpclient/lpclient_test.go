package lpclient

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lesstat/ppts/pkg/costmath"
)

// fakeSolver reads the wire protocol from r and writes responses to w,
// standing in for cmd/lpsolver so the encode/decode path can be exercised
// without spawning a real child process.
func fakeSolver(t *testing.T, r io.Reader, w io.Writer, dim int) {
	t.Helper()
	br := bufio.NewReader(r)
	var constraints [][]float64
	for {
		ctrl, err := br.ReadByte()
		if err != nil {
			return
		}
		switch ctrl {
		case CtrlReset:
			constraints = nil
		case CtrlAdd:
			buf := make([]byte, 8*dim)
			if _, err := io.ReadFull(br, buf); err != nil {
				return
			}
			coeffs := make([]float64, dim)
			for i := range coeffs {
				coeffs[i] = math.Float64frombits(binary.NativeEndian.Uint64(buf[8*i:]))
			}
			constraints = append(constraints, coeffs)
		case CtrlSolve:
			if len(constraints) == 0 {
				w.Write([]byte{RespInfeas})
				continue
			}
			out := make([]byte, 8*(dim+1))
			alpha := costmath.Uniform(dim)
			for i, v := range alpha {
				binary.NativeEndian.PutUint64(out[8*i:], math.Float64bits(v))
			}
			binary.NativeEndian.PutUint64(out[8*dim:], math.Float64bits(0.25))
			w.Write([]byte{RespOK})
			w.Write(out)
		}
	}
}

func newTestClient(t *testing.T, dim int) *Client {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	go fakeSolver(t, reqR, respW, dim)
	t.Cleanup(func() { reqW.Close() })
	return &Client{dim: dim, in: reqW, out: bufio.NewReader(respR)}
}

func TestAddConstraintAndSolve(t *testing.T) {
	c := newTestClient(t, 2)
	require.NoError(t, c.Reset())
	require.NoError(t, c.AddConstraint(costmath.CostVector{1, -1}))

	alpha, delta, ok, err := c.Solve()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, costmath.Preference{0.5, 0.5}, alpha)
	assert.InDelta(t, 0.25, delta, 1e-9)
}

func TestSolveInfeasibleWithNoConstraints(t *testing.T) {
	c := newTestClient(t, 2)
	require.NoError(t, c.Reset())

	_, _, ok, err := c.Solve()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddConstraintAcceptsNearZeroComponents(t *testing.T) {
	c := newTestClient(t, 2)
	require.NoError(t, c.Reset())
	// Below zeroEpsilon; must not cause a dimension or encoding error.
	require.NoError(t, c.AddConstraint(costmath.CostVector{1e-7, 3}))

	_, _, ok, err := c.Solve()
	require.NoError(t, err)
	assert.True(t, ok)
}
