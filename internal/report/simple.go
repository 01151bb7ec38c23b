package report

import (
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SimpleWriter outputs a human-readable run summary for the terminal.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Large byte counts stay readable with grouped digits
type SimpleWriter struct {
	baseWriter

	// printer formats numbers with digit grouping.
	printer *message.Printer

	// verbose lists every incomplete node instead of a count.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithLanguage selects the locale used for number formatting.
// English is the default.
func WithLanguage(tag language.Tag) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.printer = message.NewPrinter(tag)
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeStatistics(&sb, summary)
	w.writeVersions(&sb, summary)
	w.writeIncomplete(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       OVERLAY SURVEY SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(w.printer.Sprintf("Surveyed Node:  %s\n", s.Self.ID))
	if s.Self.Version != "" {
		sb.WriteString(w.printer.Sprintf("Node Version:   %s\n", s.Self.Version))
	}
	if d := s.Duration(); d > 0 {
		sb.WriteString(w.printer.Sprintf("Duration:       %s\n", d.Round(time.Second)))
	}
	sb.WriteString(w.printer.Sprintf("Rounds:         %d\n", s.Rounds))
	sb.WriteString(w.printer.Sprintf("Nodes:          %d\n", s.NodeCount))
	sb.WriteString(w.printer.Sprintf("Edges:          %d\n", s.EdgeCount))
	sb.WriteString(w.printer.Sprintf("Bytes:          %d\n", s.TotalBytes))
	if s.RunID != "" {
		sb.WriteString(w.printer.Sprintf("Run ID:         %s\n", s.RunID))
	}
	sb.WriteString("\n")
}

// writeStatistics writes the graph metrics.
func (w *SimpleWriter) writeStatistics(sb *strings.Builder, s *Summary) {
	w.writeSection(sb, "GRAPH STATISTICS")

	if s.Stats == nil {
		sb.WriteString(w.printer.Sprintf("  Not available: %s\n\n", orDash(s.StatsError)))
		return
	}

	if s.Stats.AverageShortestPathLength != nil {
		sb.WriteString(w.printer.Sprintf("  Average shortest path length: %.4f\n", *s.Stats.AverageShortestPathLength))
	} else {
		sb.WriteString("  Average shortest path length: undefined (graph is not connected)\n")
	}
	sb.WriteString(w.printer.Sprintf("  Average clustering:           %.4f\n", s.Stats.AverageClustering))

	if len(s.TopNodes) > 0 {
		sb.WriteString("\n  Best connected:\n")
		for _, n := range s.TopNodes {
			sb.WriteString(w.printer.Sprintf("    %-56s %d\n", n.ID, n.Degree))
		}
	}
	sb.WriteString("\n")
}

// writeVersions writes the version distribution.
func (w *SimpleWriter) writeVersions(sb *strings.Builder, s *Summary) {
	versions := s.sortedVersions()
	if len(versions) == 0 {
		return
	}

	w.writeSection(sb, "SOFTWARE VERSIONS")
	for _, v := range versions {
		sb.WriteString(w.printer.Sprintf("  %6d  %s\n", v.count, v.version))
	}
	sb.WriteString("\n")
}

// writeIncomplete writes nodes whose reports never completed.
func (w *SimpleWriter) writeIncomplete(sb *strings.Builder, s *Summary) {
	if len(s.Incomplete) == 0 {
		return
	}

	w.writeSection(sb, "INCOMPLETE REPORTS")
	sb.WriteString(w.printer.Sprintf("  %d node(s) reported fewer peers than declared\n", len(s.Incomplete)))
	if w.verbose {
		for _, n := range s.Incomplete {
			sb.WriteString(w.printer.Sprintf("  [-] %s (missing %d inbound, %d outbound)\n",
				n.ID, n.MissingInbound, n.MissingOutbound))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
