package pipeline

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/overlaysurvey/internal/model"
	"github.com/nao1215/overlaysurvey/internal/report"
	"github.com/nao1215/overlaysurvey/internal/stats"
	"github.com/nao1215/overlaysurvey/internal/survey"
	"github.com/nao1215/overlaysurvey/internal/topology"
)

// Artifacts is the state shared by the steps of one pipeline run.
//
// The crawl fields are set before the pipeline starts and must not be
// mutated by steps that run in a parallel group. Stats is set by
// ComputeStatsStep; the bookkeeping fields are guarded by mu.
type Artifacts struct {
	// RunID identifies the run in summaries and the history store.
	RunID string

	// NodeURL is the admin endpoint that was surveyed, if any.
	NodeURL string

	Self     model.Node
	Graph    *topology.Graph
	States   model.SurveyStates
	Rounds   int
	Started  time.Time
	Finished time.Time

	// Stats is nil until statistics have been computed.
	Stats *stats.Statistics

	mu        sync.Mutex
	outputs   []string
	performed []string
	timings   []StepTiming
}

// NewArtifacts wraps a finished crawl. A fresh run id is assigned.
func NewArtifacts(nodeURL string, res *survey.Result) *Artifacts {
	return &Artifacts{
		RunID:    uuid.NewString(),
		NodeURL:  nodeURL,
		Self:     res.Self,
		Graph:    res.Graph,
		States:   res.States,
		Rounds:   res.Rounds,
		Started:  res.Started,
		Finished: res.Finished,
	}
}

// Summary builds the report summary of the run.
func (a *Artifacts) Summary() *report.Summary {
	s := report.NewSummary(a.Self, a.Graph, a.States, a.Stats)
	s.RunID = a.RunID
	s.NodeURL = a.NodeURL
	s.Started = a.Started
	s.Finished = a.Finished
	s.Rounds = a.Rounds
	return s
}

// Outputs returns the files written so far, in completion order.
func (a *Artifacts) Outputs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.outputs)
}

// PerformedSteps returns the names of the steps that succeeded.
func (a *Artifacts) PerformedSteps() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.performed)
}

// Timings returns how long each top-level step took, in execution order.
func (a *Artifacts) Timings() []StepTiming {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.timings)
}

func (a *Artifacts) addOutput(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outputs = append(a.outputs, path)
}

func (a *Artifacts) addPerformed(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.performed = append(a.performed, name)
}

func (a *Artifacts) addTiming(t StepTiming) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timings = append(a.timings, t)
}
