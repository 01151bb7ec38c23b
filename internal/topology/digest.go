package topology

import (
	"encoding/hex"
	"sort"
	"strconv"

	"golang.org/x/crypto/sha3"
)

// Digest returns a SHA3-256 fingerprint of the graph's content.
//
// Nodes (with versions) and edges (with weights) are hashed in sorted order,
// so two graphs built from the same reports in a different order share a
// digest. The crawl history uses it to spot runs that observed an identical
// topology.
func (g *Graph) Digest() string {
	h := sha3.New256()

	nodes := g.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	for _, n := range nodes {
		h.Write([]byte("n\x00" + n.ID + "\x00" + n.Version + "\n"))
	}

	edges := g.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].U != edges[j].U {
			return edges[i].U < edges[j].U
		}
		return edges[i].V < edges[j].V
	})
	for _, e := range edges {
		h.Write([]byte("e\x00" + e.U + "\x00" + e.V + "\x00" + strconv.FormatUint(e.BytesTransferred, 10) + "\n"))
	}

	return hex.EncodeToString(h.Sum(nil))
}
