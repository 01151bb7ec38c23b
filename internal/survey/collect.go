package survey

import (
	"context"
	"sort"

	"github.com/nao1215/overlaysurvey/internal/model"
	"github.com/nao1215/overlaysurvey/internal/node"
	"github.com/nao1215/overlaysurvey/internal/topology"
)

// missingTopologyReason is reported when a survey result has no topology.
const missingTopologyReason = "survey result has no topology; were the surveyed node ids valid?"

// Collector polls survey results and folds them into the crawl state.
type Collector struct {
	client *node.Client
	graph  *topology.Graph
	states model.SurveyStates
}

// NewCollector creates a collector that mutates graph and states.
func NewCollector(client *node.Client, graph *topology.Graph, states model.SurveyStates) *Collector {
	return &Collector{client: client, graph: graph, states: states}
}

// Poll fetches the current survey result and merges it.
// It returns the neighbor ids seen in this result and whether the network
// has ended the survey.
func (c *Collector) Poll(ctx context.Context) (*model.IDSet, bool, error) {
	result, err := c.client.SurveyResult(ctx)
	if err != nil {
		return nil, false, err
	}
	return Merge(c.graph, c.states, result)
}

// Merge folds one survey result into graph and states.
//
// For every answered node, in id order, and for each of its inbound then
// outbound peer records:
//  1. the reporting node (no version) and the neighbor (reported version)
//     are upserted into the graph,
//  2. an edge between them is added weighted by bytes written plus read,
//     unless one exists,
//  3. the record replaces any earlier one for that neighbor and direction.
//
// Declared totals present in a report overwrite the stored ones. A state
// entry is created for every answered node, even one without peers.
//
// A result without topology is a protocol error and leaves graph and states
// untouched. The returned set holds every neighbor id seen, new or not.
func Merge(graph *topology.Graph, states model.SurveyStates, result *model.SurveyResult) (*model.IDSet, bool, error) {
	if result == nil || result.Topology == nil {
		return nil, false, &model.ProtocolError{Endpoint: node.PathSurveyResult, Reason: missingTopologyReason}
	}

	ids := make([]string, 0, len(result.Topology))
	for id := range result.Topology {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	reported := model.NewIDSet()
	for _, id := range ids {
		report := result.Topology[id]
		if report == nil {
			continue
		}

		state := states.Get(id)
		for _, dir := range []model.Direction{model.Inbound, model.Outbound} {
			for _, peer := range report.Peers(dir) {
				graph.AddNode(id, "")
				graph.AddNode(peer.NodeID, peer.Version)
				graph.AddEdge(id, peer.NodeID, peer.BytesTransferred())
				state.Record(dir, peer)
				reported.Add(peer.NodeID)
			}
		}

		if report.NumTotalInboundPeers != nil {
			state.TotalInbound = *report.NumTotalInboundPeers
		}
		if report.NumTotalOutboundPeers != nil {
			state.TotalOutbound = *report.NumTotalOutboundPeers
		}
	}

	return reported, result.Done(), nil
}
