package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/overlaysurvey/internal/model"
	"github.com/nao1215/overlaysurvey/internal/stats"
)

// JSONWriter outputs survey artifacts in JSON format.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. The documents are plain maps and structs with fixed keys
// 2. Map keys come out sorted, so equal runs produce equal files
// 3. The survey payloads themselves are decoded with it
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteStats outputs the graph-statistics document.
func (w *JSONWriter) WriteStats(s *stats.Statistics) (int, error) {
	return w.writeJSON(s)
}

// WriteSurveyState outputs the merged survey state of every node that
// answered: id to totals and latest peer records per direction.
func (w *JSONWriter) WriteSurveyState(states model.SurveyStates) (int, error) {
	if states == nil {
		states = model.SurveyStates{}
	}
	return w.writeJSON(states)
}

// Write outputs the run summary.
func (w *JSONWriter) Write(summary *Summary) (int, error) {
	return w.writeJSON(newJSONSummary(summary))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// jsonSummary is the wire form of a Summary.
type jsonSummary struct {
	RunID      string             `json:"run_id,omitempty"`
	NodeURL    string             `json:"node_url,omitempty"`
	Self       model.Node         `json:"self"`
	Started    string             `json:"started,omitempty"`
	Finished   string             `json:"finished,omitempty"`
	Rounds     int                `json:"rounds"`
	Nodes      int                `json:"nodes"`
	Edges      int                `json:"edges"`
	TotalBytes uint64             `json:"total_bytes"`
	Stats      *stats.Statistics  `json:"statistics,omitempty"`
	StatsError string             `json:"statistics_error,omitempty"`
	Versions   map[string]int     `json:"versions"`
	TopNodes   []stats.NodeDegree `json:"top_nodes,omitempty"`
	Incomplete []IncompleteNode   `json:"incomplete,omitempty"`
}

func newJSONSummary(s *Summary) jsonSummary {
	out := jsonSummary{
		RunID:      s.RunID,
		NodeURL:    s.NodeURL,
		Self:       s.Self,
		Rounds:     s.Rounds,
		Nodes:      s.NodeCount,
		Edges:      s.EdgeCount,
		TotalBytes: s.TotalBytes,
		Stats:      s.Stats,
		StatsError: s.StatsError,
		Versions:   s.Versions,
		TopNodes:   s.TopNodes,
		Incomplete: s.Incomplete,
	}
	if !s.Started.IsZero() {
		out.Started = s.Started.Format(time.RFC3339)
	}
	if !s.Finished.IsZero() {
		out.Finished = s.Finished.Format(time.RFC3339)
	}
	return out
}
