package messaging

import (
	"context"

	"github.com/tokenhaus/marketd/internal/domain"
)

// Publisher defines the interface for publishing market events to a
// message broker
type Publisher interface {
	// PublishEvent publishes a market event to the message broker
	PublishEvent(ctx context.Context, event *domain.MarketEvent) error
	// Close closes the connection
	Close()
}

// NoopPublisher discards every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishEvent(_ context.Context, _ *domain.MarketEvent) error {
	return nil
}

func (NoopPublisher) Close() {}

// MultiPublisher fans every event out to all wrapped publishers. The first
// error aborts the fan-out and is returned to the caller.
type MultiPublisher []Publisher

func (m MultiPublisher) PublishEvent(ctx context.Context, event *domain.MarketEvent) error {
	for _, p := range m {
		if err := p.PublishEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiPublisher) Close() {
	for _, p := range m {
		p.Close()
	}
}
