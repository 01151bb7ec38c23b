package model

import "sort"

// Direction identifies which side of a connection a peer list describes.
type Direction int

const (
	// Inbound peers initiated the connection to the reporting node.
	Inbound Direction = iota

	// Outbound peers were dialed by the reporting node.
	Outbound
)

// String returns the wire name of the direction's peer list.
func (d Direction) String() string {
	switch d {
	case Inbound:
		return "inboundPeers"
	case Outbound:
		return "outboundPeers"
	default:
		return "unknown"
	}
}

// NodeSurveyState accumulates what one node has reported about its peers
// across polling rounds.
//
// Peer entries are last-write-wins per neighbor: a neighbor reported twice
// replaces the previous record instead of accumulating counters. The declared
// totals default to zero until a report carries them.
type NodeSurveyState struct {
	// TotalInbound is the declared number of inbound peers.
	TotalInbound int `json:"totalInbound"`

	// TotalOutbound is the declared number of outbound peers.
	TotalOutbound int `json:"totalOutbound"`

	// InboundPeers maps neighbor id to the latest inbound record.
	InboundPeers map[string]PeerRecord `json:"inboundPeers"`

	// OutboundPeers maps neighbor id to the latest outbound record.
	OutboundPeers map[string]PeerRecord `json:"outboundPeers"`
}

// NewNodeSurveyState returns an empty state with zero declared totals.
func NewNodeSurveyState() *NodeSurveyState {
	return &NodeSurveyState{
		InboundPeers:  make(map[string]PeerRecord),
		OutboundPeers: make(map[string]PeerRecord),
	}
}

// Record stores peer under the given direction, replacing any earlier record
// for the same neighbor.
func (s *NodeSurveyState) Record(dir Direction, peer PeerRecord) {
	switch dir {
	case Inbound:
		s.InboundPeers[peer.NodeID] = peer
	case Outbound:
		s.OutboundPeers[peer.NodeID] = peer
	}
}

// Complete reports whether the observed peers meet the declared totals in
// both directions.
func (s *NodeSurveyState) Complete() bool {
	return len(s.InboundPeers) >= s.TotalInbound &&
		len(s.OutboundPeers) >= s.TotalOutbound
}

// Missing returns how many inbound and outbound peers are still unreported.
// Values are never negative.
func (s *NodeSurveyState) Missing() (inbound, outbound int) {
	inbound = max(s.TotalInbound-len(s.InboundPeers), 0)
	outbound = max(s.TotalOutbound-len(s.OutboundPeers), 0)
	return inbound, outbound
}

// SurveyStates holds the survey state of every node that returned a report,
// keyed by node id.
type SurveyStates map[string]*NodeSurveyState

// Get returns the state for id, creating an empty one on first access.
func (ss SurveyStates) Get(id string) *NodeSurveyState {
	state, ok := ss[id]
	if !ok {
		state = NewNodeSurveyState()
		ss[id] = state
	}
	return state
}

// Incomplete returns the ids of all incomplete states in sorted order.
func (ss SurveyStates) Incomplete() []string {
	var ids []string
	for id, state := range ss {
		if !state.Complete() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// IDs returns all node ids with a state, sorted.
func (ss SurveyStates) IDs() []string {
	ids := make([]string, 0, len(ss))
	for id := range ss {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
