package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Step is one unit of post-crawl work over the shared Artifacts.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state (output paths, options)
// 2. It provides a Name() method for logging and timings
// 3. Groups of steps can themselves be a Step
type Step interface {
	// Do runs the step. It must honour ctx for long-running work.
	Do(ctx context.Context, artifacts *Artifacts) error

	// Name identifies the step in logs, timings and errors.
	Name() string
}

// StepTiming is how long one top-level step took.
type StepTiming struct {
	Name    string
	Elapsed time.Duration
	Failed  bool
}

// Pipeline runs steps in order.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in order and records a StepTiming for each step
// that started. The context is checked before every step.
//
// Design decision: Execution stops at the first failing step. When
// statistics cannot be computed no artifact is written, so a partial set of
// files never looks like a finished survey.
func (p *Pipeline) Execute(ctx context.Context, artifacts *Artifacts) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			return err
		}

		start := p.now()
		err := step.Do(ctx, artifacts)
		elapsed := p.now().Sub(start)
		artifacts.addTiming(StepTiming{Name: step.Name(), Elapsed: elapsed, Failed: err != nil})

		if err != nil {
			p.logger.Error("step failed", "step", step.Name(), "run", artifacts.RunID, "error", err)
			return err
		}

		p.logger.Debug("step completed", "step", step.Name(), "run", artifacts.RunID, "elapsed", elapsed)
		artifacts.addPerformed(step.Name())
	}

	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
