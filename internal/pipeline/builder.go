package pipeline

import (
	"log/slog"

	"github.com/nao1215/overlaysurvey/internal/database"
	"github.com/nao1215/overlaysurvey/internal/stats"
)

// SurveyOutputs names the artifact files of a survey run.
// Empty paths are skipped.
type SurveyOutputs struct {
	StatsPath    string
	GraphMLPath  string
	StatePath    string
	MarkdownPath string

	// JSONSummaryPath receives the machine-readable run summary.
	JSONSummaryPath string
}

// NewSurveyPipeline builds the post-crawl pipeline: statistics first, then
// the artifact files in parallel, then the history record when history is
// not nil.
func NewSurveyPipeline(out SurveyOutputs, history *database.HistoryDB, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	p := New(WithLogger(logger))
	p.AddStep(NewComputeStatsStep())

	var writers []Step
	if out.StatsPath != "" {
		writers = append(writers, NewWriteStatsStep(out.StatsPath))
	}
	if out.GraphMLPath != "" {
		writers = append(writers, NewWriteGraphMLStep(out.GraphMLPath))
	}
	if out.StatePath != "" {
		writers = append(writers, NewWriteSurveyStateStep(out.StatePath))
	}
	if out.MarkdownPath != "" || out.JSONSummaryPath != "" {
		writers = append(writers, NewWriteSummariesStep(out.MarkdownPath, out.JSONSummaryPath))
	}
	if len(writers) > 0 {
		p.AddStep(NewParallelStep("write_artifacts", writers, WithParallelLogger(logger)))
	}

	if history != nil {
		p.AddStep(NewSaveHistoryStep(history, logger))
	}
	return p
}

// NewAnalyzePipeline builds the offline pipeline that recomputes statistics
// from a GraphML file. When statsPath is empty the statistics are only
// computed.
func NewAnalyzePipeline(graphPath, statsPath string, logger *slog.Logger, opts ...stats.Option) *Pipeline {
	p := New(WithLogger(logger))
	p.AddSteps(
		NewLoadGraphMLStep(graphPath),
		NewComputeStatsStep(opts...),
	)
	if statsPath != "" {
		p.AddStep(NewWriteStatsStep(statsPath))
	}
	return p
}
