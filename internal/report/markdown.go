package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs run summaries in Markdown format.
// This format is designed for sharing survey results in issues and wikis.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. Mermaid charts and GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeStatistics(md, summary)
	w.writeVersions(md, summary)
	w.writeTopNodes(md, summary)
	w.writeIncomplete(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("Overlay Survey Report")
	md.PlainText("")

	rows := [][]string{
		{"Surveyed Node", "`" + s.Self.ID + "`"},
		{"Node Version", orDash(s.Self.Version)},
	}
	if s.NodeURL != "" {
		rows = append(rows, []string{"Node URL", s.NodeURL})
	}
	if !s.Started.IsZero() {
		rows = append(rows, []string{"Started", s.Started.Format("2006-01-02 15:04:05 MST")})
	}
	if d := s.Duration(); d > 0 {
		rows = append(rows, []string{"Duration", d.Round(time.Second).String()})
	}
	rows = append(rows,
		[]string{"Rounds", strconv.Itoa(s.Rounds)},
		[]string{"Nodes", strconv.Itoa(s.NodeCount)},
		[]string{"Edges", strconv.Itoa(s.EdgeCount)},
		[]string{"Bytes Transferred", strconv.FormatUint(s.TotalBytes, 10)},
	)
	if s.RunID != "" {
		rows = append(rows, []string{"Run ID", "`" + s.RunID + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeStatistics writes the graph metrics.
func (w *MarkdownWriter) writeStatistics(md *markdown.Markdown, s *Summary) {
	md.H2("Graph Statistics")
	md.PlainText("")

	if s.Stats == nil {
		md.Cautionf("Statistics could not be computed: %s", orDash(s.StatsError))
		md.PlainText("")
		return
	}

	pathLength := "undefined (graph is not connected)"
	if s.Stats.AverageShortestPathLength != nil {
		pathLength = fmt.Sprintf("%.4f", *s.Stats.AverageShortestPathLength)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Average Shortest Path Length", pathLength},
			{"Average Clustering", fmt.Sprintf("%.4f", s.Stats.AverageClustering)},
		},
	})
	md.PlainText("")

	if s.Stats.AverageShortestPathLength == nil {
		md.Warning("The crawled graph has several components. Some nodes were never reached by a report.")
		md.PlainText("")
	}
}

// writeVersions writes the version distribution as a mermaid pie chart.
func (w *MarkdownWriter) writeVersions(md *markdown.Markdown, s *Summary) {
	md.H2("Software Versions")
	md.PlainText("")

	versions := s.sortedVersions()
	if len(versions) == 0 {
		md.PlainText("No nodes discovered.")
		md.PlainText("")
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Nodes per Version"),
		piechart.WithShowData(true),
	)
	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		chart.LabelAndIntValue(v.version, uint64(v.count)) //nolint:gosec // counts are never negative
		rows = append(rows, []string{v.version, strconv.Itoa(v.count)})
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Version", "Nodes"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeTopNodes writes the best-connected nodes.
func (w *MarkdownWriter) writeTopNodes(md *markdown.Markdown, s *Summary) {
	if len(s.TopNodes) == 0 {
		return
	}

	md.H2("Best Connected Nodes")
	md.PlainText("")

	rows := make([][]string, 0, len(s.TopNodes))
	for _, n := range s.TopNodes {
		clustering := "-"
		if s.Stats != nil {
			clustering = fmt.Sprintf("%.3f", s.Stats.Clustering[n.ID])
		}
		rows = append(rows, []string{"`" + n.ID + "`", strconv.Itoa(n.Degree), clustering})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Node", "Degree", "Clustering"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeIncomplete writes nodes whose reports never completed.
func (w *MarkdownWriter) writeIncomplete(md *markdown.Markdown, s *Summary) {
	md.H2("Incomplete Reports")
	md.PlainText("")

	if len(s.Incomplete) == 0 {
		md.Tip("Every node that answered reported all of its peers.")
		md.PlainText("")
		return
	}

	md.Importantf("%d node(s) reported fewer peers than they declared.", len(s.Incomplete))
	md.PlainText("")

	rows := make([][]string, 0, len(s.Incomplete))
	for _, n := range s.Incomplete {
		rows = append(rows, []string{
			"`" + n.ID + "`",
			strconv.Itoa(n.MissingInbound),
			strconv.Itoa(n.MissingOutbound),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Node", "Missing Inbound", "Missing Outbound"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [overlaysurvey](https://github.com/nao1215/overlaysurvey)*")
}

// orDash returns s, or "-" when s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
