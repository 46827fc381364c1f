package worker

import (
	"context"
	"log/slog"

	"spyral/internal/events"
)

// Sink receives outbound copies of domain events.
type Sink interface {
	Publish(ctx context.Context, event events.Event) error
}

// Worker drains the publisher's outbox channel into a sink. It keeps
// outbound delivery off the mutation path: a slow broker delays fan-out,
// never a lifecycle operation.
type Worker struct {
	sink   Sink
	inbox  <-chan events.Event
	logger *slog.Logger
}

func New(sink Sink, inbox <-chan events.Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				// Outbound fan-out is best-effort; the event log already
				// holds the record.
				w.logger.ErrorContext(ctx, "event fan-out failed",
					"event_id", event.ID,
					"type", event.Type,
					"error", err,
				)
			}
		}
	}
}
