package topology

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// GraphML attribute names shared with networkx-produced files.
const (
	attrLabel            = "label"
	attrVersion          = "version"
	attrBytesTransferred = "bytes_transferred"

	graphMLNamespace = "http://graphml.graphdrawing.org/xmlns"
)

// ErrNoGraph is returned when a GraphML document contains no <graph> element.
var ErrNoGraph = errors.New("graphml document has no graph element")

type graphMLDocument struct {
	XMLName xml.Name       `xml:"graphml"`
	XMLNS   string         `xml:"xmlns,attr,omitempty"`
	Keys    []graphMLKey   `xml:"key"`
	Graphs  []graphMLGraph `xml:"graph"`
}

type graphMLKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type graphMLGraph struct {
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphMLNode `xml:"node"`
	Edges       []graphMLEdge `xml:"edge"`
}

type graphMLNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphMLData `xml:"data"`
}

type graphMLEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphMLData `xml:"data"`
}

type graphMLData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// WriteGraphML encodes g as an undirected GraphML document.
// Every node carries label and version attributes and every edge carries
// bytes_transferred, the same layout networkx.write_graphml produces.
func WriteGraphML(w io.Writer, g *Graph) error {
	doc := graphMLDocument{
		XMLNS: graphMLNamespace,
		Keys: []graphMLKey{
			{ID: "d0", For: "node", AttrName: attrLabel, AttrType: "string"},
			{ID: "d1", For: "node", AttrName: attrVersion, AttrType: "string"},
			{ID: "d2", For: "edge", AttrName: attrBytesTransferred, AttrType: "long"},
		},
	}

	graph := graphMLGraph{EdgeDefault: "undirected"}
	for _, n := range g.Nodes() {
		graph.Nodes = append(graph.Nodes, graphMLNode{
			ID: n.ID,
			Data: []graphMLData{
				{Key: "d0", Value: n.ID},
				{Key: "d1", Value: n.Version},
			},
		})
	}
	for _, e := range g.Edges() {
		graph.Edges = append(graph.Edges, graphMLEdge{
			Source: e.U,
			Target: e.V,
			Data: []graphMLData{
				{Key: "d2", Value: strconv.FormatUint(e.BytesTransferred, 10)},
			},
		})
	}
	doc.Graphs = []graphMLGraph{graph}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write graphml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode graphml: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to write graphml: %w", err)
	}
	return nil
}

// ReadGraphML decodes the first graph of a GraphML document.
//
// Attribute keys are resolved by attr.name, so files written by networkx with
// a different key numbering are accepted. Edges are always treated as
// undirected. A repeated endpoint pair keeps the first weight, as in a crawl.
func ReadGraphML(r io.Reader) (*Graph, error) {
	var doc graphMLDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode graphml: %w", err)
	}
	if len(doc.Graphs) == 0 {
		return nil, ErrNoGraph
	}

	nodeAttrs := make(map[string]string)
	edgeAttrs := make(map[string]string)
	for _, k := range doc.Keys {
		switch k.For {
		case "node":
			nodeAttrs[k.ID] = k.AttrName
		case "edge":
			edgeAttrs[k.ID] = k.AttrName
		case "all":
			nodeAttrs[k.ID] = k.AttrName
			edgeAttrs[k.ID] = k.AttrName
		}
	}

	g := New()
	src := doc.Graphs[0]
	for _, n := range src.Nodes {
		version := ""
		for _, d := range n.Data {
			if nodeAttrs[d.Key] == attrVersion {
				version = d.Value
			}
		}
		g.AddNode(n.ID, version)
	}

	for _, e := range src.Edges {
		var weight uint64
		for _, d := range e.Data {
			if edgeAttrs[d.Key] != attrBytesTransferred {
				continue
			}
			w, err := parseWeight(d.Value)
			if err != nil {
				return nil, fmt.Errorf("invalid %s on edge %s-%s: %w", attrBytesTransferred, e.Source, e.Target, err)
			}
			weight = w
		}
		g.AddEdge(e.Source, e.Target, weight)
	}

	return g, nil
}

// parseWeight accepts integer values and, for files that stored the weight as
// a floating point number, non-negative whole floats.
func parseWeight(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxUint64 {
		return 0, fmt.Errorf("not a byte count: %q", s)
	}
	return uint64(f), nil
}
