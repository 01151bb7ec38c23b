package stats

import (
	"errors"
	"sort"

	"github.com/nao1215/overlaysurvey/internal/topology"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

var (
	// ErrEmptyGraph is returned when statistics are requested for a graph
	// without nodes. No metric is defined in that case.
	ErrEmptyGraph = errors.New("graph has no nodes")

	// ErrDisconnected is returned when the graph has more than one connected
	// component, which leaves the average shortest path length undefined.
	ErrDisconnected = errors.New("graph is not connected: average shortest path length is undefined")
)

// Statistics is the graph-statistics document written after a crawl.
// Field names follow the JSON keys of the document.
type Statistics struct {
	// AverageShortestPathLength is the mean hop count over all ordered pairs
	// of distinct nodes. Nil only when omitted for a disconnected graph.
	AverageShortestPathLength *float64 `json:"average_shortest_path_length"`

	// AverageClustering is the mean of the per-node clustering coefficients.
	AverageClustering float64 `json:"average_clustering"`

	// Clustering is the local clustering coefficient of each node.
	Clustering map[string]float64 `json:"clustering"`

	// Degree is the number of links of each node.
	Degree map[string]int `json:"degree"`
}

// Option configures Compute.
type Option func(*options)

type options struct {
	omitPathLength bool
}

// WithOmitPathLengthWhenDisconnected makes Compute return the remaining
// metrics with a nil AverageShortestPathLength instead of ErrDisconnected.
func WithOmitPathLengthWhenDisconnected() Option {
	return func(o *options) {
		o.omitPathLength = true
	}
}

// Compute derives the summary metrics of g, treated as an undirected,
// unweighted graph. Edge weights (traffic) do not influence path lengths.
//
// Returns ErrEmptyGraph for a graph without nodes and ErrDisconnected when g
// has several components, unless WithOmitPathLengthWhenDisconnected is given.
func Compute(g *topology.Graph, opts ...Option) (*Statistics, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if g.IsEmpty() {
		return nil, ErrEmptyGraph
	}

	ug, ids := toGonum(g)

	stats := &Statistics{
		Clustering: make(map[string]float64, len(ids)),
		Degree:     make(map[string]int, len(ids)),
	}

	var clusteringSum float64
	for i, id := range ids {
		c := clustering(ug, int64(i))
		stats.Clustering[id] = c
		stats.Degree[id] = g.Degree(id)
		clusteringSum += c
	}
	stats.AverageClustering = clusteringSum / float64(len(ids))

	if len(topo.ConnectedComponents(ug)) > 1 {
		if !o.omitPathLength {
			return nil, ErrDisconnected
		}
		return stats, nil
	}

	avg := averageShortestPathLength(ug)
	stats.AverageShortestPathLength = &avg

	return stats, nil
}

// toGonum copies g into a gonum graph. Node i of the result is ids[i].
// Self-loops are dropped; they affect neither paths nor clustering.
func toGonum(g *topology.Graph) (*simple.UndirectedGraph, []string) {
	ug := simple.NewUndirectedGraph()

	nodes := g.Nodes()
	ids := make([]string, len(nodes))
	index := make(map[string]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
		index[n.ID] = int64(i)
		ug.AddNode(simple.Node(i))
	}

	for _, e := range g.Edges() {
		if e.U == e.V {
			continue
		}
		ug.SetEdge(ug.NewEdge(simple.Node(index[e.U]), simple.Node(index[e.V])))
	}

	return ug, ids
}

// clustering returns the fraction of neighbor pairs of id that are linked.
func clustering(ug *simple.UndirectedGraph, id int64) float64 {
	neighbors := graph.NodesOf(ug.From(id))
	k := len(neighbors)
	if k < 2 {
		return 0
	}

	triangles := 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			if ug.HasEdgeBetween(neighbors[i].ID(), neighbors[j].ID()) {
				triangles++
			}
		}
	}

	return 2 * float64(triangles) / float64(k*(k-1))
}

// averageShortestPathLength assumes ug is connected.
func averageShortestPathLength(ug *simple.UndirectedGraph) float64 {
	nodes := graph.NodesOf(ug.Nodes())
	n := len(nodes)
	if n < 2 {
		return 0
	}

	var total float64
	for _, u := range nodes {
		shortest := path.DijkstraFrom(u, ug)
		for _, v := range nodes {
			if u.ID() == v.ID() {
				continue
			}
			total += shortest.WeightTo(v.ID())
		}
	}

	return total / float64(n*(n-1))
}

// NodeDegree pairs a node id with its degree.
type NodeDegree struct {
	ID     string `json:"id"`
	Degree int    `json:"degree"`
}

// TopByDegree returns up to n nodes with the highest degree, ties broken by
// id. A non-positive n returns every node.
func TopByDegree(s *Statistics, n int) []NodeDegree {
	out := make([]NodeDegree, 0, len(s.Degree))
	for id, d := range s.Degree {
		out = append(out, NodeDegree{ID: id, Degree: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Degree != out[j].Degree {
			return out[i].Degree > out[j].Degree
		}
		return out[i].ID < out[j].ID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// UnknownVersion labels nodes whose version was never reported.
const UnknownVersion = "unknown"

// Versions counts nodes per software version.
func Versions(g *topology.Graph) map[string]int {
	counts := make(map[string]int)
	for _, n := range g.Nodes() {
		v := n.Version
		if v == "" {
			v = UnknownVersion
		}
		counts[v]++
	}
	return counts
}
