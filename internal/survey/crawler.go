package survey

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/overlaysurvey/internal/model"
	"github.com/nao1215/overlaysurvey/internal/node"
	"github.com/nao1215/overlaysurvey/internal/topology"
)

// DefaultSettleDelay is the wait between dispatching a round and polling
// its results.
const DefaultSettleDelay = time.Second

// State is a phase of the crawl loop.
type State int

const (
	// StateIdle means Run has not been called yet.
	StateIdle State = iota
	// StateSeeding identifies the queried node and builds the first frontier.
	StateSeeding
	// StateDispatching sends survey requests for the current frontier.
	StateDispatching
	// StateSettling waits for survey answers to arrive.
	StateSettling
	// StateCollecting merges the survey result and picks the next frontier.
	StateCollecting
	// StateTerminated means the network ended the survey.
	StateTerminated
	// StateFailed means the crawl aborted with an error.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSeeding:
		return "seeding"
	case StateDispatching:
		return "dispatching"
	case StateSettling:
		return "settling"
	case StateCollecting:
		return "collecting"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is everything a finished crawl produced.
type Result struct {
	// Self is the queried node.
	Self model.Node

	// Graph is the merged topology.
	Graph *topology.Graph

	// States holds the merged survey report of every node that answered.
	States model.SurveyStates

	// Sent is every id a survey was requested for.
	Sent *model.IDSet

	// Rounds is the number of dispatch/collect rounds executed.
	Rounds int

	Started  time.Time
	Finished time.Time
}

// Crawler drives the survey loop against one node.
//
// The loop is strictly sequential: one round's requests are all sent, then
// the crawler waits the settle delay, then polls once. It ends only when a
// survey result says the survey is no longer in progress, or when the
// context is cancelled.
//
// A Crawler runs once. It is not safe for concurrent use.
type Crawler struct {
	client      *node.Client
	duration    int
	settleDelay time.Duration
	seedFile    string
	logger      *slog.Logger

	// sleep waits d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	// now is the clock. Replaced in tests.
	now func() time.Time

	state State
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Crawler) {
		c.settleDelay = d
	}
}

// WithSeedFile adds the ids listed in path to the first frontier.
func WithSeedFile(path string) Option {
	return func(c *Crawler) {
		c.seedFile = path
	}
}

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a crawler that surveys through client, asking each node to
// run its survey for duration seconds.
func New(client *node.Client, duration int, opts ...Option) *Crawler {
	c := &Crawler{
		client:      client,
		duration:    duration,
		settleDelay: DefaultSettleDelay,
		sleep:       sleepContext,
		now:         time.Now,
		state:       StateIdle,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// State returns the phase the crawler is in.
func (c *Crawler) State() State {
	return c.state
}

// Run executes the crawl until the network ends the survey.
//
// Any transport or protocol error aborts the crawl and is returned; nothing
// is retried. Cancelling ctx aborts with the context error.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	if c.state != StateIdle {
		return nil, fmt.Errorf("crawler already ran (state %s)", c.state)
	}

	res, err := c.run(ctx)
	if err != nil {
		c.transition(StateFailed)
		return nil, err
	}
	return res, nil
}

func (c *Crawler) run(ctx context.Context) (*Result, error) {
	res := &Result{
		Graph:   topology.New(),
		States:  make(model.SurveyStates),
		Started: c.now(),
	}

	c.transition(StateSeeding)
	directory := NewDirectory(c.client)

	self, err := directory.IdentifySelf(ctx)
	if err != nil {
		return nil, err
	}
	res.Self = self
	res.Graph.AddNode(self.ID, self.Version)
	c.logger.Info("surveying network", "self", self.ID, "version", self.Version)

	// Any survey left running from an earlier crawl would mix into ours.
	if err := c.client.StopSurvey(ctx); err != nil {
		return nil, err
	}

	frontier, err := directory.SeedFrontier(ctx, c.seedFile)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("seeded frontier", "nodes", frontier.Len())

	dispatcher := NewDispatcher(c.client, c.duration, c.logger)
	collector := NewCollector(c.client, res.Graph, res.States)
	res.Sent = dispatcher.Sent()

	for {
		c.transition(StateDispatching)
		if err := dispatcher.Dispatch(ctx, frontier.IDs()); err != nil {
			return nil, err
		}
		frontier.Clear()
		res.Rounds++

		c.transition(StateSettling)
		if err := c.sleep(ctx, c.settleDelay); err != nil {
			return nil, err
		}

		c.transition(StateCollecting)
		reported, done, err := collector.Poll(ctx)
		if err != nil {
			return nil, err
		}

		if done {
			c.logger.Info("survey finished",
				"rounds", res.Rounds,
				"nodes", res.Graph.NodeCount(),
				"edges", res.Graph.EdgeCount(),
			)
			break
		}

		frontier = NextFrontier(reported, dispatcher.Sent(), res.States)
		c.logger.Info("round complete",
			"round", res.Rounds,
			"nodes", res.Graph.NodeCount(),
			"edges", res.Graph.EdgeCount(),
			"reported", reported.Len(),
			"next", frontier.Len(),
		)
	}

	c.transition(StateTerminated)
	res.Finished = c.now()
	return res, nil
}

func (c *Crawler) transition(to State) {
	c.logger.Debug("crawler state", "from", c.state.String(), "to", to.String())
	c.state = to
}

// sleepContext waits d, returning early with the context error.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
