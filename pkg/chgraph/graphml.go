package chgraph

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Lesstat/ppts/pkg/costmath"
	"github.com/Lesstat/ppts/pkg/experror"
)

// graphmlKey mirrors one <key> declaration.
type graphmlKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
	Type string `xml:"attr.type,attr"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

type graphmlGraph struct {
	Nodes []graphmlNode `xml:"node"`
	Edges []graphmlEdge `xml:"edge"`
}

type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

// ParseGraphML reads the GraphML graph format (spec.md §6.2). Node
// attributes recognized: id, level. Edge attributes recognized: name,
// edgeA, edgeB, plus exactly dim double-typed metric attributes whose
// declaration order fixes their CostVector index.
func ParseGraphML(path string, dim int) (*ParsedGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, experror.NewInputMalformed("graphml: open", err)
	}
	defer f.Close()
	return parseGraphML(f, dim)
}

func parseGraphML(r io.Reader, dim int) (*ParsedGraph, error) {
	var doc graphmlDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, experror.NewInputMalformed("graphml: xml", err)
	}

	// Metric keys are the edge-scoped double attributes, in declaration
	// order; that order fixes their CostVector index.
	keyName := make(map[string]string, len(doc.Keys))
	var metricKeys []graphmlKey
	var levelKey, nameKey, edgeAKey, edgeBKey string
	for _, k := range doc.Keys {
		keyName[k.ID] = k.Name
		switch {
		case k.For == "node" && k.Name == "level":
			levelKey = k.ID
		case k.For == "edge" && k.Name == "name":
			nameKey = k.ID
		case k.For == "edge" && k.Name == "edgeA":
			edgeAKey = k.ID
		case k.For == "edge" && k.Name == "edgeB":
			edgeBKey = k.ID
		case k.For == "edge" && k.Type == "double":
			metricKeys = append(metricKeys, k)
		}
	}
	if len(metricKeys) != dim {
		return nil, experror.NewInputMalformed("graphml", fmt.Errorf("graph has %d metric keys, want %d", len(metricKeys), dim))
	}
	metricIndex := make(map[string]int, dim)
	metricNames := make([]string, dim)
	for i, k := range metricKeys {
		metricIndex[k.ID] = i
		metricNames[i] = k.Name
	}

	idMap := make(map[string]uint32, len(doc.Graph.Nodes))
	nodes := make([]Node, 0, len(doc.Graph.Nodes))
	for i, n := range doc.Graph.Nodes {
		id := uint32(i)
		idMap[n.ID] = id
		var level uint64
		for _, d := range n.Data {
			if d.Key == levelKey {
				level, _ = strconv.ParseUint(d.Value, 10, 32)
			}
		}
		nodes = append(nodes, Node{ID: id, CHLevel: uint32(level)})
	}

	edgeByName := make(map[string]uint32, len(doc.Graph.Edges))
	edges := make([]Edge, 0, len(doc.Graph.Edges))
	// edgeA/edgeB reference other edges by name; resolve after all edges
	// have been assigned dense ids.
	pendingExpansion := make(map[uint32][2]string)

	for i, e := range doc.Graph.Edges {
		src, ok := idMap[e.Source]
		if !ok {
			return nil, experror.NewInputMalformed("graphml", fmt.Errorf("edge references unknown source node %q", e.Source))
		}
		tgt, ok := idMap[e.Target]
		if !ok {
			return nil, experror.NewInputMalformed("graphml", fmt.Errorf("edge references unknown target node %q", e.Target))
		}
		cost := make(costmath.CostVector, dim)
		var name, edgeA, edgeB string
		for _, d := range e.Data {
			if idx, ok := metricIndex[d.Key]; ok {
				v, err := strconv.ParseFloat(d.Value, 64)
				if err != nil {
					return nil, experror.NewInputMalformed("graphml: metric value", err)
				}
				cost[idx] = v
				continue
			}
			switch d.Key {
			case nameKey:
				name = d.Value
			case edgeAKey:
				edgeA = d.Value
			case edgeBKey:
				edgeB = d.Value
			}
		}
		if name == "" {
			name = fmt.Sprintf("%d", i)
		}
		edgeID := uint32(i)
		edges = append(edges, Edge{ID: edgeID, Source: src, Target: tgt, Cost: cost})
		edgeByName[name] = edgeID
		if edgeA != "" && edgeA != "-1" && edgeB != "" && edgeB != "-1" {
			pendingExpansion[edgeID] = [2]string{edgeA, edgeB}
		}
	}

	for edgeID, pair := range pendingExpansion {
		a, ok := edgeByName[pair[0]]
		if !ok {
			return nil, experror.NewInputMalformed("graphml", fmt.Errorf("shortcut references unknown edge %q", pair[0]))
		}
		b, ok := edgeByName[pair[1]]
		if !ok {
			return nil, experror.NewInputMalformed("graphml", fmt.Errorf("shortcut references unknown edge %q", pair[1]))
		}
		edges[edgeID].Expansion = &[2]uint32{a, b}
	}

	g, err := Build(nodes, edges, dim)
	if err != nil {
		return nil, err
	}
	return &ParsedGraph{Graph: g, EdgeLookup: EdgeLookup(edgeByName), MetricNames: metricNames}, nil
}
