package port

import (
	"context"

	"github.com/campuskit/iam-service/internal/core/domain"
)

// EventPublisher delivers auth lifecycle events to downstream consumers.
// Publishing is fire-and-forget; failures must not block the calling flow.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}
