package model

// The types below mirror the JSON payloads of the stellar-core admin HTTP
// endpoints used by the survey. Pointer fields distinguish "absent" from
// "zero" where the difference matters to the crawl.

// SCPResponse is the payload of /scp?limit=0&fullkeys=true.
type SCPResponse struct {
	// You is the id of the queried node itself.
	You string `json:"you"`
}

// InfoResponse is the payload of /info.
type InfoResponse struct {
	Info *NodeInfo `json:"info"`
}

// NodeInfo holds the fields of /info the survey reads.
type NodeInfo struct {
	// Build is the software version string. Nil when the key is absent;
	// an empty string is a valid, if unhelpful, version.
	Build *string `json:"build"`
}

// PeersResponse is the payload of /peers?fullkeys=true.
type PeersResponse struct {
	AuthenticatedPeers *AuthenticatedPeers `json:"authenticated_peers"`
}

// AuthenticatedPeers lists the queried node's live authenticated connections.
// Either list may be null or absent, which is equivalent to empty.
type AuthenticatedPeers struct {
	Inbound  []PeerRef `json:"inbound"`
	Outbound []PeerRef `json:"outbound"`
}

// PeerRef identifies one connection in a /peers listing.
type PeerRef struct {
	ID string `json:"id"`
}

// SurveyResult is the payload of /getsurveyresult: the aggregated snapshot of
// every survey answer the queried node has received so far.
type SurveyResult struct {
	// Topology maps surveyed node id to its report, or to nil when the node
	// has not answered yet. A nil map means the field was absent.
	Topology map[string]*SurveyReport `json:"topology"`

	// SurveyInProgress is nil when the field was absent.
	SurveyInProgress *bool `json:"surveyInProgress"`
}

// Done reports whether the network has signalled the end of the survey.
// Only an explicit false counts; an absent flag means still in progress.
func (r *SurveyResult) Done() bool {
	return r.SurveyInProgress != nil && !*r.SurveyInProgress
}

// SurveyReport is one node's answer to a survey request.
type SurveyReport struct {
	InboundPeers  []PeerRecord `json:"inboundPeers"`
	OutboundPeers []PeerRecord `json:"outboundPeers"`

	// NumTotalInboundPeers and NumTotalOutboundPeers are the declared totals,
	// nil when the report omits them.
	NumTotalInboundPeers  *int `json:"numTotalInboundPeers,omitempty"`
	NumTotalOutboundPeers *int `json:"numTotalOutboundPeers,omitempty"`
}

// Peers returns the peer list for the given direction.
// Absent and empty lists are equivalent.
func (r *SurveyReport) Peers(dir Direction) []PeerRecord {
	if r == nil {
		return nil
	}
	switch dir {
	case Inbound:
		return r.InboundPeers
	case Outbound:
		return r.OutboundPeers
	default:
		return nil
	}
}
