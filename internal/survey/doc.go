// Package survey crawls the stellar-core overlay network and reconstructs
// its topology.
//
// # Architecture
//
// One crawl is a loop of rounds driven by the Crawler:
//
//	Seeding → Dispatching → Settling → Collecting → (Terminated | Dispatching)
//
//   - Directory identifies the queried node and seeds the first frontier
//     from an optional node list and the node's authenticated peers.
//   - Dispatcher asks the queried node to survey each frontier id and
//     records it in the sent set.
//   - Collector polls the aggregated survey result and merges every report
//     into the topology graph and per-node survey state.
//   - NextFrontier picks newly reported ids plus nodes whose reports are
//     still incomplete.
//
// Design decision: Survey answers trickle in over the survey duration and a
// node may report only part of its peers per round. We keep the latest peer
// record per neighbor and re-request incomplete nodes every round instead of
// trusting any single snapshot. Edge weights are first-writer-wins: the
// traffic figure of an edge is the one observed when the edge was first
// reported.
//
// # Termination
//
// Only the network decides when the crawl ends, by answering with
// surveyInProgress=false. An empty frontier does not stop the loop. Callers
// that need a bound should cancel the context.
//
// # Usage
//
//	client := node.NewClient(transport)
//	res, err := survey.New(client, 25, survey.WithSettleDelay(time.Second)).Run(ctx)
package survey
