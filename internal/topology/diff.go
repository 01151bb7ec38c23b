package topology

import "sort"

// VersionChange records a node whose build string differs between graphs.
type VersionChange struct {
	ID     string
	Before string
	After  string
}

// Diff describes how a newer topology differs from an older one.
// Every slice is sorted so that output is stable.
type Diff struct {
	AddedNodes     []string
	RemovedNodes   []string
	AddedEdges     [][2]string
	RemovedEdges   [][2]string
	VersionChanges []VersionChange
}

// IsEmpty reports whether the two graphs had the same nodes, links and versions.
func (d *Diff) IsEmpty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0 &&
		len(d.VersionChanges) == 0
}

// Compare returns the changes that turn before into after. Edge weights are
// ignored: traffic counters differ on every crawl. A version that became
// unknown is not reported as a change.
func Compare(before, after *Graph) *Diff {
	d := &Diff{}

	for _, id := range after.nodeOrder {
		old, ok := before.nodes[id]
		if !ok {
			d.AddedNodes = append(d.AddedNodes, id)
			continue
		}
		if v := after.nodes[id].Version; v != "" && v != old.Version {
			d.VersionChanges = append(d.VersionChanges, VersionChange{ID: id, Before: old.Version, After: v})
		}
	}
	for _, id := range before.nodeOrder {
		if _, ok := after.nodes[id]; !ok {
			d.RemovedNodes = append(d.RemovedNodes, id)
		}
	}

	for _, k := range after.edgeOrder {
		if _, ok := before.edges[k]; !ok {
			d.AddedEdges = append(d.AddedEdges, [2]string{k.u, k.v})
		}
	}
	for _, k := range before.edgeOrder {
		if _, ok := after.edges[k]; !ok {
			d.RemovedEdges = append(d.RemovedEdges, [2]string{k.u, k.v})
		}
	}

	sort.Strings(d.AddedNodes)
	sort.Strings(d.RemovedNodes)
	sortPairs(d.AddedEdges)
	sortPairs(d.RemovedEdges)
	sort.Slice(d.VersionChanges, func(i, j int) bool {
		return d.VersionChanges[i].ID < d.VersionChanges[j].ID
	})

	return d
}

func sortPairs(pairs [][2]string) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
}
