package port

import (
	"context"
	"time"
)

// RevocationStore tracks revoked bearer-token identifiers until the
// underlying tokens would have expired anyway.
type RevocationStore interface {
	MarkRevoked(ctx context.Context, tokenID string, reason string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, string, error)
}
