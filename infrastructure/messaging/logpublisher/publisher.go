package logpublisher

import (
	"context"

	"dataworkspace/application/ports"
	"dataworkspace/domain/events"

	"go.uber.org/zap"
)

// Publisher writes domain events to the structured log. It is used when no event
// bus is configured.
type Publisher struct {
	logger *zap.Logger
}

// NewPublisher creates a log publisher
func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logger}
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Publish logs each event at info level, orphan reports at warn
func (p *Publisher) Publish(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		fields := []zap.Field{
			zap.String("event_type", event.GetEventType()),
			zap.String("aggregate_id", event.GetAggregateID()),
			zap.Time("timestamp", event.GetTimestamp()),
			zap.Any("event", event),
		}
		if event.GetEventType() == events.EventTypePhysicalResourceOrphaned {
			p.logger.Warn("Domain event", fields...)
			continue
		}
		p.logger.Info("Domain event", fields...)
	}
	return nil
}
