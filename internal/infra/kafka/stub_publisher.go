package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// Publish logs the event instead of producing it.
func (p *StubPublisher) Publish(_ context.Context, event domain.Event) error {
	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", event.Kind),
		zap.String("subject_id", event.SubjectID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", event.Details),
	)
	return nil
}

// Close is a no-op for the stub publisher.
func (p *StubPublisher) Close() error {
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
