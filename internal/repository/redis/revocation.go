package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/campuskit/iam-service/internal/core/port"
)

const defaultRevocationPrefix = "revoked"

// RevocationRepository manages bearer-token revocation state backed by
// Redis. Entries expire when the underlying token would have expired, so
// the denylist never outgrows the set of live tokens.
type RevocationRepository struct {
	client *red.Client
	prefix string
}

// NewRevocationRepository wires a Redis client into a revocation repository.
func NewRevocationRepository(client *red.Client, keyPrefix string) *RevocationRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRevocationPrefix
	}

	return &RevocationRepository{client: client, prefix: prefix}
}

// MarkRevoked stores the token id with reason and TTL matching the token's
// remaining lifetime.
func (r *RevocationRepository) MarkRevoked(ctx context.Context, tokenID string, reason string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	key := r.key(tokenID)
	if key == "" {
		return errors.New("token id must not be empty")
	}

	if err := r.client.Set(ctx, key, reason, ttl).Err(); err != nil {
		return fmt.Errorf("redis set revoked token: %w", err)
	}

	return nil
}

// IsRevoked reports whether the token id has been revoked and returns the
// stored reason when present.
func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, string, error) {
	key := r.key(tokenID)
	if key == "" {
		return false, "", errors.New("token id must not be empty")
	}

	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("redis get revoked token: %w", err)
	}

	return true, value, nil
}

func (r *RevocationRepository) key(tokenID string) string {
	trimmed := strings.TrimSpace(tokenID)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", r.prefix, trimmed)
}

var _ port.RevocationStore = (*RevocationRepository)(nil)
