// Package main provides the entry point for the overlaysurvey CLI.
//
// overlaysurvey crawls the stellar-core overlay network through the admin
// HTTP endpoint of one node, using the node's topology survey to discover
// peers beyond its direct connections. The result is written as a GraphML
// topology, a statistics document and the merged per-node survey state.
//
// Usage:
//
//	overlaysurvey survey -n http://127.0.0.1:11626 -d 50 -s stats.json -r state.json -w graph.graphml
//	overlaysurvey analyze -a graph.graphml -s stats.json
//
// See --help for all available options.
package main

// main is the entry point for overlaysurvey.
func main() {
	Execute()
}
