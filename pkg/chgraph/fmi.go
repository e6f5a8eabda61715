package chgraph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Lesstat/ppts/pkg/costmath"
	"github.com/Lesstat/ppts/pkg/experror"
)

// EdgeLookup maps an external (string) edge id to its internal, dense edge
// index. Built once during graph parsing, immutable thereafter.
type EdgeLookup map[string]uint32

// ParsedGraph bundles a built CHGraph with the EdgeLookup and metric names
// discovered while parsing it.
type ParsedGraph struct {
	Graph       *CHGraph
	EdgeLookup  EdgeLookup
	MetricNames []string
}

// ParseFMI reads the minimal FMI text format (spec.md §6.1): leading '#'
// comment lines, then D, metric names, N, M, N node lines, M edge lines.
func ParseFMI(path string, dim int) (*ParsedGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, experror.NewInputMalformed("fmi: open", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	nextLine := func() (string, bool) {
		for sc.Scan() {
			line := sc.Text()
			if strings.HasPrefix(strings.TrimSpace(line), "#") {
				continue
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			return line, true
		}
		return "", false
	}

	dimLine, ok := nextLine()
	if !ok {
		return nil, experror.NewInputMalformed("fmi", fmt.Errorf("missing dimension line"))
	}
	fileDim, err := strconv.Atoi(strings.TrimSpace(dimLine))
	if err != nil {
		return nil, experror.NewInputMalformed("fmi: dimension", err)
	}
	if fileDim != dim {
		return nil, experror.NewInputMalformed("fmi", fmt.Errorf("dimension mismatch: file has %d, want %d", fileDim, dim))
	}

	metricLine, ok := nextLine()
	if !ok {
		return nil, experror.NewInputMalformed("fmi", fmt.Errorf("missing metric names line"))
	}
	metricNames := strings.Fields(metricLine)
	if len(metricNames) != dim {
		return nil, experror.NewInputMalformed("fmi", fmt.Errorf("got %d metric names, want %d", len(metricNames), dim))
	}

	numNodesLine, ok := nextLine()
	if !ok {
		return nil, experror.NewInputMalformed("fmi", fmt.Errorf("missing node count"))
	}
	numNodes, err := strconv.Atoi(strings.TrimSpace(numNodesLine))
	if err != nil {
		return nil, experror.NewInputMalformed("fmi: node count", err)
	}

	numEdgesLine, ok := nextLine()
	if !ok {
		return nil, experror.NewInputMalformed("fmi", fmt.Errorf("missing edge count"))
	}
	numEdges, err := strconv.Atoi(strings.TrimSpace(numEdgesLine))
	if err != nil {
		return nil, experror.NewInputMalformed("fmi: edge count", err)
	}

	nodes := make([]Node, 0, numNodes)
	for i := 0; i < numNodes; i++ {
		line, ok := nextLine()
		if !ok {
			return nil, experror.NewInputMalformed("fmi", fmt.Errorf("expected %d nodes, found %d", numNodes, i))
		}
		tok := strings.Fields(line)
		if len(tok) < 2 {
			return nil, experror.NewInputMalformed("fmi", fmt.Errorf("malformed node line %q", line))
		}
		id, err := strconv.ParseUint(tok[0], 10, 32)
		if err != nil {
			return nil, experror.NewInputMalformed("fmi: node id", err)
		}
		level, err := strconv.ParseUint(tok[1], 10, 32)
		if err != nil {
			return nil, experror.NewInputMalformed("fmi: node level", err)
		}
		nodes = append(nodes, Node{ID: uint32(id), CHLevel: uint32(level)})
	}

	edges := make([]Edge, 0, numEdges)
	lookup := make(EdgeLookup, numEdges)
	for i := 0; i < numEdges; i++ {
		line, ok := nextLine()
		if !ok {
			return nil, experror.NewInputMalformed("fmi", fmt.Errorf("expected %d edges, found %d", numEdges, i))
		}
		tok := strings.Fields(line)
		if len(tok) != 3+dim+2 {
			return nil, experror.NewInputMalformed("fmi", fmt.Errorf("malformed edge line %q", line))
		}
		extID := tok[0]
		src, err := strconv.ParseUint(tok[1], 10, 32)
		if err != nil {
			return nil, experror.NewInputMalformed("fmi: edge source", err)
		}
		tgt, err := strconv.ParseUint(tok[2], 10, 32)
		if err != nil {
			return nil, experror.NewInputMalformed("fmi: edge target", err)
		}
		cost := make(costmath.CostVector, dim)
		for d := 0; d < dim; d++ {
			v, err := strconv.ParseFloat(tok[3+d], 64)
			if err != nil {
				return nil, experror.NewInputMalformed("fmi: edge cost", err)
			}
			cost[d] = v
		}
		var expansion *[2]uint32
		a, b := tok[3+dim], tok[4+dim]
		if a != "-1" || b != "-1" {
			ea, err := strconv.ParseUint(a, 10, 32)
			if err != nil {
				return nil, experror.NewInputMalformed("fmi: replaced edge a", err)
			}
			eb, err := strconv.ParseUint(b, 10, 32)
			if err != nil {
				return nil, experror.NewInputMalformed("fmi: replaced edge b", err)
			}
			expansion = &[2]uint32{uint32(ea), uint32(eb)}
		}
		edgeID := uint32(i)
		edges = append(edges, Edge{
			ID:        edgeID,
			Source:    uint32(src),
			Target:    uint32(tgt),
			Cost:      cost,
			Expansion: expansion,
		})
		lookup[extID] = edgeID
	}

	g, err := Build(nodes, edges, dim)
	if err != nil {
		return nil, err
	}
	return &ParsedGraph{Graph: g, EdgeLookup: lookup, MetricNames: metricNames}, nil
}

// WriteFMI writes g back out in the minimal FMI format, using extID(edge)
// to recover the original external edge id string for each dense edge
// index (e.g. the inverse of an EdgeLookup). Used for round-tripping in
// tests and by cmd/chbuild.
func WriteFMI(w io.Writer, g *CHGraph, metricNames []string, extID func(uint32) string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", g.Dim)
	fmt.Fprintln(bw, strings.Join(metricNames, " "))
	fmt.Fprintf(bw, "%d\n", len(g.Nodes))
	fmt.Fprintf(bw, "%d\n", len(g.Edges))
	for _, n := range g.Nodes {
		fmt.Fprintf(bw, "%d %d\n", n.ID, n.CHLevel)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(bw, "%s %d %d", extID(e.ID), e.Source, e.Target)
		for _, c := range e.Cost {
			fmt.Fprintf(bw, " %g", c)
		}
		if e.Expansion != nil {
			fmt.Fprintf(bw, " %d %d\n", e.Expansion[0], e.Expansion[1])
		} else {
			fmt.Fprintf(bw, " -1 -1\n")
		}
	}
	return bw.Flush()
}
