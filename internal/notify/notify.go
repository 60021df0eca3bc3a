// Package notify fans enrichment results out to notification sinks.
// Delivery is best effort: sink failures are logged and counted, never
// propagated to the enrichment workflow.
package notify

import (
	"context"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/opsseer/internal/enrich"
)

// Sink delivers a notification to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, n *enrich.Notification) error
}

// Fanout implements enrich.Notifier over a set of sinks.
type Fanout struct {
	sinks   []Sink
	logger  log.Logger
	observe func(sink string, err error)
}

// NewFanout creates a fan-out notifier. observe may be nil.
func NewFanout(logger log.Logger, observe func(sink string, err error), sinks ...Sink) *Fanout {
	if logger == nil {
		logger = log.Nop()
	}
	return &Fanout{sinks: sinks, logger: logger, observe: observe}
}

// Notify delivers the notification to every sink. Errors are swallowed.
func (f *Fanout) Notify(ctx context.Context, n *enrich.Notification) {
	for _, sink := range f.sinks {
		err := sink.Send(ctx, n)
		if f.observe != nil {
			f.observe(sink.Name(), err)
		}
		if err != nil {
			f.logger.Warn(ctx, "notification sink failed",
				"sink", sink.Name(),
				"incident_id", n.IncidentID,
				"error", err.Error(),
			)
			continue
		}
		f.logger.Info(ctx, "notification sent", "sink", sink.Name(), "incident_id", n.IncidentID)
	}
}
