package survey

import (
	"context"
	"log/slog"

	"github.com/nao1215/overlaysurvey/internal/model"
	"github.com/nao1215/overlaysurvey/internal/node"
)

// Dispatcher sends survey requests and remembers every id it ever asked.
type Dispatcher struct {
	client   *node.Client
	duration int
	sent     *model.IDSet
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher that requests surveys lasting duration
// seconds.
func NewDispatcher(client *node.Client, duration int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		client:   client,
		duration: duration,
		sent:     model.NewIDSet(),
		logger:   logger,
	}
}

// Dispatch requests a survey of every id in order. Each id is recorded as
// sent before its request goes out. The first transport failure aborts.
func (d *Dispatcher) Dispatch(ctx context.Context, ids []string) error {
	for _, id := range ids {
		d.sent.Add(id)
		d.logger.Debug("requesting survey", "node", id, "duration", d.duration)
		if err := d.client.SurveyTopology(ctx, id, d.duration); err != nil {
			return err
		}
	}
	return nil
}

// Sent returns the set of ids that have been dispatched at least once.
func (d *Dispatcher) Sent() *model.IDSet {
	return d.sent
}
