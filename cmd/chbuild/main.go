// Command chbuild preprocesses a plain edge list into the leveled,
// shortcut-annotated FMI graph that every other binary in this module
// expects (spec.md §6.1's supplement: the pack never specifies how a graph
// file is produced, so this ambient tool exists to produce one).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Lesstat/ppts/pkg/chbuild"
	"github.com/Lesstat/ppts/pkg/chgraph"
	"github.com/Lesstat/ppts/pkg/costmath"
)

func main() {
	input := flag.String("input", "", "plain edge list input path")
	output := flag.String("output", "graph.fmi", "leveled FMI output path")
	dim := flag.Int("dim", 2, "cost vector dimension D")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: chbuild --input <edges.txt> [--output graph.fmi] [--dim D]")
		os.Exit(1)
	}

	start := time.Now()

	log.Println("Reading plain edge list...")
	nodeIDs, edges, metricNames, err := readPlainEdges(*input, *dim)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
	log.Printf("Read %d nodes, %d edges", len(nodeIDs), len(edges))

	log.Println("Running Contraction Hierarchies...")
	result := chbuild.Contract(nodeIDs, edges, *dim, costmath.Uniform(*dim))
	log.Printf("Contraction complete: %d original edges, %d shortcuts", result.NumInput, len(result.Edges)-result.NumInput)

	log.Printf("Writing %s...", *output)
	g, err := chgraph.Build(result.Nodes, result.Edges, *dim)
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}

	// WriteFMI wants extID by dense edge id; result.ExtIDs is still indexed
	// by the pre-Build edge order, which Build preserves verbatim.
	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}
	defer f.Close()
	extID := func(id uint32) string {
		if int(id) < len(result.ExtIDs) && result.ExtIDs[id] != "" {
			return result.ExtIDs[id]
		}
		return strconv.FormatUint(uint64(id), 10)
	}
	if err := chgraph.WriteFMI(f, g, metricNames, extID); err != nil {
		log.Fatalf("Failed to write FMI: %v", err)
	}

	log.Printf("Done in %s. Output: %s", time.Since(start).Round(time.Millisecond), *output)
}

// readPlainEdges reads the pre-contraction input format: `D`, `D` metric
// names, `N`, `M`, then `N` node-id lines, then `M` lines
// `external_edge_id source target cost_1 … cost_D`.
func readPlainEdges(path string, dim int) ([]uint32, []chbuild.InputEdge, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	next := func() (string, bool) {
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			return line, true
		}
		return "", false
	}

	dimLine, ok := next()
	if !ok {
		return nil, nil, nil, fmt.Errorf("missing dimension line")
	}
	fileDim, err := strconv.Atoi(dimLine)
	if err != nil {
		return nil, nil, nil, err
	}
	if fileDim != dim {
		return nil, nil, nil, fmt.Errorf("dimension mismatch: file has %d, want %d", fileDim, dim)
	}

	metricLine, ok := next()
	if !ok {
		return nil, nil, nil, fmt.Errorf("missing metric names line")
	}
	metricNames := strings.Fields(metricLine)

	nLine, ok := next()
	if !ok {
		return nil, nil, nil, fmt.Errorf("missing node count")
	}
	numNodes, err := strconv.Atoi(nLine)
	if err != nil {
		return nil, nil, nil, err
	}

	mLine, ok := next()
	if !ok {
		return nil, nil, nil, fmt.Errorf("missing edge count")
	}
	numEdges, err := strconv.Atoi(mLine)
	if err != nil {
		return nil, nil, nil, err
	}

	nodeIDs := make([]uint32, 0, numNodes)
	for i := 0; i < numNodes; i++ {
		line, ok := next()
		if !ok {
			return nil, nil, nil, fmt.Errorf("expected %d nodes, found %d", numNodes, i)
		}
		id, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			return nil, nil, nil, err
		}
		nodeIDs = append(nodeIDs, uint32(id))
	}

	edges := make([]chbuild.InputEdge, 0, numEdges)
	for i := 0; i < numEdges; i++ {
		line, ok := next()
		if !ok {
			return nil, nil, nil, fmt.Errorf("expected %d edges, found %d", numEdges, i)
		}
		tok := strings.Fields(line)
		if len(tok) != 3+dim {
			return nil, nil, nil, fmt.Errorf("malformed edge line %q", line)
		}
		src, err := strconv.ParseUint(tok[1], 10, 32)
		if err != nil {
			return nil, nil, nil, err
		}
		tgt, err := strconv.ParseUint(tok[2], 10, 32)
		if err != nil {
			return nil, nil, nil, err
		}
		cost := make(costmath.CostVector, dim)
		for d := 0; d < dim; d++ {
			v, err := strconv.ParseFloat(tok[3+d], 64)
			if err != nil {
				return nil, nil, nil, err
			}
			cost[d] = v
		}
		edges = append(edges, chbuild.InputEdge{ExternalID: tok[0], Source: uint32(src), Target: uint32(tgt), Cost: cost})
	}

	return nodeIDs, edges, metricNames, nil
}
