// Package stats computes summary metrics over a finished topology graph:
// average shortest path length, average and per-node clustering, and
// per-node degree.
//
// Design decision: We delegate connectivity and shortest path search to
// gonum's graph packages instead of writing our own traversal, and only
// compute the clustering coefficient locally. Metrics follow the networkx
// definitions on an unweighted undirected graph so that documents produced
// here can be compared with earlier survey runs.
//
// The computation needs no network access. It runs both at the end of a
// live crawl and standalone on a GraphML file written by an earlier run.
package stats
