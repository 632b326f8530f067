package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/campuskit/iam-service/internal/core/port"
)

// SlidingWindowConfig tunes the attempt store. TTL should exceed the
// largest window in use so idle keys expire on their own.
type SlidingWindowConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// RateLimitRepository keeps one sorted set per identifier, scored by
// attempt time in nanoseconds.
type RateLimitRepository struct {
	client *red.Client
	cfg    SlidingWindowConfig
}

func NewRateLimitRepository(client *red.Client, cfg SlidingWindowConfig) *RateLimitRepository {
	return &RateLimitRepository{client: client, cfg: cfg}
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)

func (r *RateLimitRepository) key(identifier string) string {
	if r.cfg.KeyPrefix == "" {
		return identifier
	}
	return r.cfg.KeyPrefix + ":" + identifier
}

// windowBounds converts [reference-window, reference] into sorted-set
// score strings.
func windowBounds(window time.Duration, reference time.Time) (string, string) {
	low := strconv.FormatInt(reference.Add(-window).UnixNano(), 10)
	high := strconv.FormatInt(reference.UnixNano(), 10)
	return low, high
}

func (r *RateLimitRepository) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	key := r.key(identifier)
	nanos := at.UnixNano()

	if err := r.client.ZAdd(ctx, key, red.Z{Score: float64(nanos), Member: nanos}).Err(); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	if r.cfg.TTL > 0 {
		if err := r.client.Expire(ctx, key, r.cfg.TTL).Err(); err != nil {
			return fmt.Errorf("set attempt ttl: %w", err)
		}
	}
	return nil
}

func (r *RateLimitRepository) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	low, high := windowBounds(window, reference)
	count, err := r.client.ZCount(ctx, r.key(identifier), low, high).Result()
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return int(count), nil
}

func (r *RateLimitRepository) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}

	low, _ := windowBounds(window, reference)
	if err := r.client.ZRemRangeByScore(ctx, r.key(identifier), "-inf", low).Err(); err != nil {
		return fmt.Errorf("trim window: %w", err)
	}
	return nil
}

func (r *RateLimitRepository) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errors.New("window must be positive")
	}

	low, high := windowBounds(window, reference)
	members, err := r.client.ZRangeByScore(ctx, r.key(identifier), &red.ZRangeBy{
		Min:   low,
		Max:   high,
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("oldest attempt: %w", err)
	}
	if len(members) == 0 {
		return time.Time{}, false, nil
	}

	nanos, err := strconv.ParseInt(members[0], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse attempt timestamp: %w", err)
	}
	return time.Unix(0, nanos), true, nil
}
