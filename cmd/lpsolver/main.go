// Command lpsolver is the LP solver sidecar: it speaks the binary wire
// protocol of spec.md §4.3/§6.5 on stdin/stdout and backs it with
// pkg/lpsolve. It is located beside the main executable and spawned once
// per worker by pkg/lpclient.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"io"
	"log"
	"math"
	"os"

	"github.com/Lesstat/ppts/pkg/lpclient"
	"github.com/Lesstat/ppts/pkg/lpsolve"
)

func main() {
	dim := flag.Int("dim", 0, "preference dimension D")
	flag.Parse()
	if *dim <= 0 {
		log.Fatal("lpsolver: --dim must be a positive integer")
	}

	in := bufio.NewReader(os.Stdin)
	out := bufio.NewWriter(os.Stdout)
	problem := lpsolve.New(*dim)

	if err := run(in, out, problem, *dim); err != nil && err != io.EOF {
		log.Fatalf("lpsolver: %v", err)
	}
}

func run(in *bufio.Reader, out *bufio.Writer, problem *lpsolve.Problem, dim int) error {
	for {
		ctrl, err := in.ReadByte()
		if err != nil {
			return err
		}
		switch ctrl {
		case lpclient.CtrlReset:
			problem.Reset()
		case lpclient.CtrlAdd:
			buf := make([]byte, 8*dim)
			if _, err := io.ReadFull(in, buf); err != nil {
				return err
			}
			coeff := make([]float64, dim)
			for i := range coeff {
				coeff[i] = math.Float64frombits(binary.NativeEndian.Uint64(buf[8*i:]))
			}
			problem.AddConstraint(coeff)
		case lpclient.CtrlSolve:
			alpha, delta, ok, err := problem.Solve()
			if err != nil {
				return err
			}
			if !ok {
				if err := out.WriteByte(lpclient.RespInfeas); err != nil {
					return err
				}
				if err := out.Flush(); err != nil {
					return err
				}
				continue
			}
			payload := make([]byte, 8*(dim+1))
			for i, v := range alpha {
				binary.NativeEndian.PutUint64(payload[8*i:], math.Float64bits(v))
			}
			binary.NativeEndian.PutUint64(payload[8*dim:], math.Float64bits(delta))
			if err := out.WriteByte(lpclient.RespOK); err != nil {
				return err
			}
			if _, err := out.Write(payload); err != nil {
				return err
			}
			if err := out.Flush(); err != nil {
				return err
			}
		default:
			log.Fatalf("lpsolver: unknown control byte %d", ctrl)
		}
	}
}
