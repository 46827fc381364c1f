package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store is the append-only event log consumers read back.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAsset(ctx context.Context, assetID uint64) ([]Event, error)
}

// Publisher records domain events. The store write is synchronous and
// fail-closed: an operation that cannot record its event must not
// commit. Outbound fan-out (Kafka) is asynchronous via the outbox
// channel the Worker drains; a full outbox drops the outbound copy
// rather than blocking a mutation.
type Publisher struct {
	store  Store
	outbox chan<- Event
	logger *slog.Logger
}

type Option func(*Publisher)

// WithOutbox attaches a channel drained by a Worker into outbound sinks.
func WithOutbox(outbox chan<- Event) Option {
	return func(p *Publisher) { p.outbox = outbox }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.outbox != nil {
		select {
		case p.outbox <- event:
		default:
			if p.logger != nil {
				p.logger.WarnContext(ctx, "event outbox full, outbound copy dropped",
					"event_id", event.ID,
					"type", event.Type,
				)
			}
		}
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, assetID uint64) ([]Event, error) {
	return p.store.ListByAsset(ctx, assetID)
}
