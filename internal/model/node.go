package model

// Node is a vertex of the overlay topology.
// Identity is the opaque peer id (a stellar-core public key when surveyed with
// fullkeys=true). Version is the software build string and may be empty when
// the node has only been seen as the reporting side of a link.
type Node struct {
	// ID uniquely identifies the node within a topology graph.
	ID string `json:"id"`

	// Version is the build string reported for the node.
	Version string `json:"version,omitempty"`
}

// HasVersion reports whether a version has been recorded for the node.
func (n Node) HasVersion() bool {
	return n.Version != ""
}

// Edge is an undirected link between two nodes.
// BytesTransferred is the traffic observed by one side of the connection at
// the moment the link was first reported.
type Edge struct {
	// U and V are the endpoint ids. The pair is unordered; graph
	// implementations normalize it so that U <= V.
	U string `json:"u"`
	V string `json:"v"`

	// BytesTransferred is bytesWritten + bytesRead from the first report.
	BytesTransferred uint64 `json:"bytes_transferred"`
}

// PeerRecord is one directional link observation: the neighbor as seen by the
// observing node, with the traffic counters of that connection.
type PeerRecord struct {
	// NodeID is the neighbor identity.
	NodeID string `json:"nodeId"`

	// Version is the neighbor's build string as reported by the observer.
	Version string `json:"version"`

	// BytesWritten is the number of bytes the observer wrote to the neighbor.
	BytesWritten uint64 `json:"bytesWritten"`

	// BytesRead is the number of bytes the observer read from the neighbor.
	BytesRead uint64 `json:"bytesRead"`
}

// BytesTransferred returns the total traffic of the observed link.
func (p PeerRecord) BytesTransferred() uint64 {
	return p.BytesWritten + p.BytesRead
}
