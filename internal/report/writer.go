package report

import (
	"io"
	"sort"
	"time"

	"github.com/nao1215/overlaysurvey/internal/model"
	"github.com/nao1215/overlaysurvey/internal/stats"
	"github.com/nao1215/overlaysurvey/internal/topology"
)

// DefaultTopNodes is how many of the best-connected nodes a summary lists.
const DefaultTopNodes = 10

// Writer defines the interface for survey summary output.
//
// Design decision: We use an interface to allow different output formats
// and destinations. The terminal summary and the Markdown file share the
// same Summary value, so both always describe the same run.
type Writer interface {
	// Write outputs the summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(summary *Summary) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(summary *Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// IncompleteNode is a node whose survey report never reached its declared
// peer totals.
type IncompleteNode struct {
	ID              string `json:"id"`
	MissingInbound  int    `json:"missing_inbound"`
	MissingOutbound int    `json:"missing_outbound"`
}

// Summary is the digest of one finished run shown to the operator.
type Summary struct {
	// RunID identifies the run in the history store. Empty when the run
	// was not saved.
	RunID string

	// NodeURL is the admin endpoint that was queried.
	NodeURL string

	Self     model.Node
	Started  time.Time
	Finished time.Time
	Rounds   int

	NodeCount  int
	EdgeCount  int
	TotalBytes uint64

	// Stats is nil when the statistics could not be computed.
	Stats *stats.Statistics

	// StatsError explains a nil Stats.
	StatsError string

	// Versions counts nodes per software version.
	Versions map[string]int

	// TopNodes lists the best-connected nodes.
	TopNodes []stats.NodeDegree

	// Incomplete lists nodes whose reports stayed partial, sorted by id.
	Incomplete []IncompleteNode
}

// NewSummary derives a summary from the crawl outcome. Run metadata
// (RunID, NodeURL, times, rounds) is left for the caller to fill in.
func NewSummary(self model.Node, g *topology.Graph, states model.SurveyStates, st *stats.Statistics) *Summary {
	s := &Summary{
		Self:       self,
		NodeCount:  g.NodeCount(),
		EdgeCount:  g.EdgeCount(),
		TotalBytes: g.TotalBytes(),
		Stats:      st,
		Versions:   stats.Versions(g),
	}

	if st != nil {
		s.TopNodes = stats.TopByDegree(st, DefaultTopNodes)
	}

	for _, id := range states.Incomplete() {
		in, out := states[id].Missing()
		s.Incomplete = append(s.Incomplete, IncompleteNode{ID: id, MissingInbound: in, MissingOutbound: out})
	}

	return s
}

// Duration returns how long the crawl took, or zero if unknown.
func (s *Summary) Duration() time.Duration {
	if s.Started.IsZero() || s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// versionCount is one row of the version distribution.
type versionCount struct {
	version string
	count   int
}

// sortedVersions orders the distribution by count, then version.
func (s *Summary) sortedVersions() []versionCount {
	out := make([]versionCount, 0, len(s.Versions))
	for v, c := range s.Versions {
		out = append(out, versionCount{version: v, count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].version < out[j].version
	})
	return out
}
