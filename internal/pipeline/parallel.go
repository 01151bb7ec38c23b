package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of steps a ParallelStep runs at once.
const DefaultConcurrency = 4

// ParallelStep runs a group of independent steps concurrently.
// It uses errgroup to manage goroutines and respect the concurrency limit.
//
// Design decision: We make the group a Step itself rather than adding
// concurrency to Pipeline because:
// 1. It keeps the Pipeline strictly sequential and easy to reason about
// 2. Only the artifact writers are independent; statistics and history
//    persistence must keep their position in the sequence
type ParallelStep struct {
	name        string
	steps       []Step
	concurrency int
	logger      *slog.Logger
}

// ParallelOption configures a ParallelStep.
type ParallelOption func(*ParallelStep)

// WithParallelLogger sets a custom logger for the group.
func WithParallelLogger(logger *slog.Logger) ParallelOption {
	return func(p *ParallelStep) {
		p.logger = logger
	}
}

// WithConcurrency sets the maximum number of steps running at once.
// Non-positive values are ignored.
func WithConcurrency(n int) ParallelOption {
	return func(p *ParallelStep) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewParallelStep creates a group of steps. Name is used for logging; when
// empty the member names are joined.
func NewParallelStep(name string, steps []Step, opts ...ParallelOption) *ParallelStep {
	p := &ParallelStep{
		name:        name,
		steps:       steps,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.name == "" {
		names := make([]string, len(steps))
		for i, s := range steps {
			names[i] = s.Name()
		}
		p.name = "parallel(" + strings.Join(names, ",") + ")"
	}

	return p
}

// Name returns the group name.
func (p *ParallelStep) Name() string {
	return p.name
}

// Do runs every member step and waits for all of them.
// The first failure cancels the context passed to the remaining steps and
// is returned. Steps that already started are not interrupted.
func (p *ParallelStep) Do(ctx context.Context, a *Artifacts) error {
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, step := range p.steps {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err := step.Do(ctx, a); err != nil {
				p.logger.Warn("parallel step failed",
					"group", p.name,
					"step", step.Name(),
					"error", err,
				)
				return err
			}
			a.addPerformed(step.Name())
			return nil
		})
	}

	err := g.Wait()

	p.logger.Debug("parallel group complete",
		"group", p.name,
		"steps", len(p.steps),
		"elapsed", time.Since(startTime),
	)

	return err
}
