package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/overlaysurvey/internal/database"
	"github.com/nao1215/overlaysurvey/internal/report"
	"github.com/nao1215/overlaysurvey/internal/stats"
	"github.com/nao1215/overlaysurvey/internal/topology"
)

var (
	// ErrNoGraph is returned by steps that need a topology when none is loaded.
	ErrNoGraph = errors.New("no topology graph to process")

	// ErrNoStatistics is returned when statistics are written before they
	// were computed.
	ErrNoStatistics = errors.New("graph statistics have not been computed")
)

// ComputeStatsStep derives the graph statistics of the crawled topology.
type ComputeStatsStep struct {
	opts []stats.Option
}

// NewComputeStatsStep creates a statistics step. The options are passed
// to stats.Compute.
func NewComputeStatsStep(opts ...stats.Option) *ComputeStatsStep {
	return &ComputeStatsStep{opts: opts}
}

// Name returns the step name.
func (s *ComputeStatsStep) Name() string {
	return "compute_stats"
}

// Do computes the statistics and stores them in the artifacts.
func (s *ComputeStatsStep) Do(_ context.Context, a *Artifacts) error {
	if a.Graph == nil {
		return ErrNoGraph
	}

	st, err := stats.Compute(a.Graph, s.opts...)
	if err != nil {
		return fmt.Errorf("failed to compute graph statistics: %w", err)
	}
	a.Stats = st
	return nil
}

// WriteStatsStep writes the statistics document as JSON.
type WriteStatsStep struct {
	path string
}

// NewWriteStatsStep creates a step writing the statistics to path.
func NewWriteStatsStep(path string) *WriteStatsStep {
	return &WriteStatsStep{path: path}
}

// Name returns the step name.
func (s *WriteStatsStep) Name() string {
	return "write_stats"
}

// Do writes the statistics file.
func (s *WriteStatsStep) Do(_ context.Context, a *Artifacts) error {
	if a.Stats == nil {
		return ErrNoStatistics
	}
	return writeFile(a, s.path, func(w io.Writer) error {
		_, err := report.NewJSONWriter(w).WriteStats(a.Stats)
		return err
	})
}

// WriteGraphMLStep writes the topology as GraphML.
type WriteGraphMLStep struct {
	path string
}

// NewWriteGraphMLStep creates a step writing the topology to path.
func NewWriteGraphMLStep(path string) *WriteGraphMLStep {
	return &WriteGraphMLStep{path: path}
}

// Name returns the step name.
func (s *WriteGraphMLStep) Name() string {
	return "write_graphml"
}

// Do writes the GraphML file.
func (s *WriteGraphMLStep) Do(_ context.Context, a *Artifacts) error {
	if a.Graph == nil {
		return ErrNoGraph
	}
	return writeFile(a, s.path, func(w io.Writer) error {
		return topology.WriteGraphML(w, a.Graph)
	})
}

// WriteSurveyStateStep writes the merged per-node survey state as JSON.
type WriteSurveyStateStep struct {
	path string
}

// NewWriteSurveyStateStep creates a step writing the survey state to path.
func NewWriteSurveyStateStep(path string) *WriteSurveyStateStep {
	return &WriteSurveyStateStep{path: path}
}

// Name returns the step name.
func (s *WriteSurveyStateStep) Name() string {
	return "write_survey_state"
}

// Do writes the survey state file.
func (s *WriteSurveyStateStep) Do(_ context.Context, a *Artifacts) error {
	return writeFile(a, s.path, func(w io.Writer) error {
		_, err := report.NewJSONWriter(w).WriteSurveyState(a.States)
		return err
	})
}

// WriteSummariesStep writes the run summary once and fans it out to the
// Markdown and JSON summary files. Empty paths are skipped.
type WriteSummariesStep struct {
	markdownPath string
	jsonPath     string
}

// NewWriteSummariesStep creates a step writing the Markdown summary to
// markdownPath and the JSON summary to jsonPath.
func NewWriteSummariesStep(markdownPath, jsonPath string) *WriteSummariesStep {
	return &WriteSummariesStep{markdownPath: markdownPath, jsonPath: jsonPath}
}

// Name returns the step name.
func (s *WriteSummariesStep) Name() string {
	return "write_summaries"
}

// Do writes the summary files. Outputs are recorded only when every file
// was written and closed.
func (s *WriteSummariesStep) Do(_ context.Context, a *Artifacts) (err error) {
	if a.Graph == nil {
		return ErrNoGraph
	}

	targets := []struct {
		path      string
		newWriter func(io.Writer) report.Writer
	}{
		{s.markdownPath, func(w io.Writer) report.Writer { return report.NewMarkdownWriter(w) }},
		{s.jsonPath, func(w io.Writer) report.Writer { return report.NewJSONWriter(w, report.WithPrettyPrint()) }},
	}

	var (
		files   []*os.File
		writers []report.Writer
	)
	defer func() {
		for _, f := range files {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to close %s: %w", f.Name(), closeErr)
			}
		}
		if err == nil {
			for _, f := range files {
				a.addOutput(f.Name())
			}
		}
	}()

	for _, target := range targets {
		if target.path == "" {
			continue
		}
		f, err := os.Create(filepath.Clean(target.path))
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", target.path, err)
		}
		files = append(files, f)
		writers = append(writers, target.newWriter(f))
	}
	if len(writers) == 0 {
		return nil
	}

	if _, err := report.NewMultiWriter(writers...).Write(a.Summary()); err != nil {
		return fmt.Errorf("failed to write run summary: %w", err)
	}
	return nil
}

// SaveHistoryStep stores the run in the history database.
type SaveHistoryStep struct {
	db     *database.HistoryDB
	logger *slog.Logger
}

// NewSaveHistoryStep creates a step saving runs to db.
func NewSaveHistoryStep(db *database.HistoryDB, logger *slog.Logger) *SaveHistoryStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveHistoryStep{db: db, logger: logger}
}

// Name returns the step name.
func (s *SaveHistoryStep) Name() string {
	return "save_history"
}

// Do saves the run under the artifacts' run id.
func (s *SaveHistoryStep) Do(ctx context.Context, a *Artifacts) error {
	if a.Graph == nil {
		return ErrNoGraph
	}

	run := &database.Run{
		ID:       a.RunID,
		NodeURL:  a.NodeURL,
		Self:     a.Self,
		Started:  a.Started,
		Finished: a.Finished,
		Rounds:   a.Rounds,
		Stats:    a.Stats,
	}
	if err := s.db.SaveRun(ctx, run, a.Graph); err != nil {
		return fmt.Errorf("failed to save run to history: %w", err)
	}

	s.logger.Debug("run saved", "run", run.ID, "digest", run.Digest, "db", s.db.Path())
	return nil
}

// LoadGraphMLStep reads a previously written topology into the artifacts.
// It replaces the graph; the crawl fields stay empty.
type LoadGraphMLStep struct {
	path string
}

// NewLoadGraphMLStep creates a step reading the topology from path.
func NewLoadGraphMLStep(path string) *LoadGraphMLStep {
	return &LoadGraphMLStep{path: path}
}

// Name returns the step name.
func (s *LoadGraphMLStep) Name() string {
	return "load_graphml"
}

// Do reads the GraphML file.
func (s *LoadGraphMLStep) Do(_ context.Context, a *Artifacts) error {
	f, err := os.Open(filepath.Clean(s.path))
	if err != nil {
		return fmt.Errorf("failed to open graph file: %w", err)
	}
	defer f.Close()

	g, err := topology.ReadGraphML(f)
	if err != nil {
		return fmt.Errorf("failed to read graph file %s: %w", s.path, err)
	}
	a.Graph = g
	return nil
}

// writeFile creates path, runs write and records the output on success.
func writeFile(a *Artifacts, path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	a.addOutput(path)
	return nil
}
