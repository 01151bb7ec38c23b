package topology

import (
	"sort"

	"github.com/nao1215/overlaysurvey/internal/model"
)

// Graph is an undirected topology graph with add-only, idempotent mutation.
//
// Nodes are unique by id and edges are unique by unordered endpoint pair.
// Nothing is ever removed. Iteration follows insertion order so that written
// artifacts are reproducible.
//
// Graph is not safe for concurrent mutation. The crawl loop owns it while
// surveying; readers may share it once the crawl has finished.
type Graph struct {
	nodes     map[string]*model.Node
	nodeOrder []string

	edges     map[edgeKey]*model.Edge
	edgeOrder []edgeKey

	// adjacency holds neighbor ids per node, excluding self-loops.
	adjacency map[string]map[string]struct{}

	// selfLoops counts loop edges per node; each adds two to the degree.
	selfLoops map[string]int
}

// edgeKey is the normalized unordered endpoint pair of an edge.
type edgeKey struct {
	u, v string
}

// newEdgeKey orders the endpoints so that (a, b) and (b, a) share a key.
func newEdgeKey(a, b string) edgeKey {
	if b < a {
		a, b = b, a
	}
	return edgeKey{u: a, v: b}
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:     make(map[string]*model.Node),
		edges:     make(map[edgeKey]*model.Edge),
		adjacency: make(map[string]map[string]struct{}),
		selfLoops: make(map[string]int),
	}
}

// AddNode inserts a node or updates its version.
//
// Adding an existing node with an empty version is a no-op. Adding with a
// non-empty version always stores that version, even over a different
// non-empty one. Returns true if the node was created.
func (g *Graph) AddNode(id, version string) bool {
	if n, ok := g.nodes[id]; ok {
		if version != "" {
			n.Version = version
		}
		return false
	}

	g.nodes[id] = &model.Node{ID: id, Version: version}
	g.nodeOrder = append(g.nodeOrder, id)
	g.adjacency[id] = make(map[string]struct{})
	return true
}

// AddEdge links u and v with the given traffic weight.
//
// If the pair is already linked (in either order) the call is ignored and the
// original weight is kept. Missing endpoints are added with an empty version.
// Returns true if the edge was created.
func (g *Graph) AddEdge(u, v string, bytesTransferred uint64) bool {
	key := newEdgeKey(u, v)
	if _, ok := g.edges[key]; ok {
		return false
	}

	g.AddNode(u, "")
	g.AddNode(v, "")

	g.edges[key] = &model.Edge{U: key.u, V: key.v, BytesTransferred: bytesTransferred}
	g.edgeOrder = append(g.edgeOrder, key)

	if u == v {
		g.selfLoops[u]++
	} else {
		g.adjacency[u][v] = struct{}{}
		g.adjacency[v][u] = struct{}{}
	}
	return true
}

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (model.Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return model.Node{}, false
	}
	return *n, true
}

// HasEdge reports whether u and v are linked, in either order.
func (g *Graph) HasEdge(u, v string) bool {
	_, ok := g.edges[newEdgeKey(u, v)]
	return ok
}

// Edge returns a copy of the edge between u and v.
func (g *Graph) Edge(u, v string) (model.Edge, bool) {
	e, ok := g.edges[newEdgeKey(u, v)]
	if !ok {
		return model.Edge{}, false
	}
	return *e, true
}

// Nodes returns copies of all nodes in insertion order.
func (g *Graph) Nodes() []model.Node {
	out := make([]model.Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns copies of all edges in insertion order.
func (g *Graph) Edges() []model.Edge {
	out := make([]model.Edge, 0, len(g.edgeOrder))
	for _, key := range g.edgeOrder {
		out = append(out, *g.edges[key])
	}
	return out
}

// Neighbors returns the sorted ids adjacent to id, excluding id itself.
func (g *Graph) Neighbors(id string) []string {
	adj := g.adjacency[id]
	out := make([]string, 0, len(adj))
	for n := range adj {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Degree returns the number of edge endpoints at id. A self-loop counts twice.
func (g *Graph) Degree(id string) int {
	return len(g.adjacency[id]) + 2*g.selfLoops[id]
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// IsEmpty reports whether the graph has no nodes.
func (g *Graph) IsEmpty() bool {
	return len(g.nodes) == 0
}

// TotalBytes sums the traffic weight of every edge.
func (g *Graph) TotalBytes() uint64 {
	var total uint64
	for _, e := range g.edges {
		total += e.BytesTransferred
	}
	return total
}
