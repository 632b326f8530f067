package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campuskit/iam-service/internal/core/port"
)

const rateLimitProblemType = "https://iam.campuskit.example.com/errors/rate-limit-exceeded"

// IdentifierFunc derives the value a limit window is keyed on, typically
// the client IP. Returning false skips enforcement for the request.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule is one sliding-window limit bound to a route.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces sliding-window limits against a shared attempt store.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
}

// ProblemDetails is the RFC 9457 payload returned on a rejected request.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger}
}

// ClientIPIdentifier keys windows on the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// windowState is the outcome of evaluating one request against a rule.
type windowState struct {
	allowed   bool
	remaining int
	reset     time.Time
}

// RateLimit enforces the rule on each request. Store failures fail open:
// an unreachable backend degrades limiting, it never blocks logins.
func (rl *RateLimiter) RateLimit(rule RateLimitRule) gin.HandlerFunc {
	if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if rule.Name == "" {
		rule.Name = "default"
	}

	return func(c *gin.Context) {
		if rl.store == nil {
			c.Next()
			return
		}

		identifier, ok := rule.Identifier(c)
		if !ok {
			c.Next()
			return
		}

		state, err := rl.observe(c, rule, rule.Name+":"+identifier)
		if err != nil {
			rl.logger.Warn("rate limit evaluation failed",
				zap.String("rule", rule.Name),
				zap.Error(err))
			c.Next()
			return
		}

		writeRateLimitHeaders(c, rule.Limit, state)

		if !state.allowed {
			rl.reject(c, state)
			return
		}

		c.Next()
	}
}

// observe trims the window, counts attempts, and records the current one
// unless the window is already full.
func (rl *RateLimiter) observe(c *gin.Context, rule RateLimitRule, key string) (windowState, error) {
	ctx := c.Request.Context()
	now := time.Now()

	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return windowState{}, err
	}

	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return windowState{}, err
	}

	reset := now.Add(rule.Window)
	if oldest, found, err := rl.store.OldestAttempt(ctx, key, rule.Window, now); err != nil {
		return windowState{}, err
	} else if found {
		reset = oldest.Add(rule.Window)
	}

	if count >= rule.Limit {
		return windowState{allowed: false, remaining: 0, reset: reset}, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return windowState{}, err
	}

	remaining := rule.Limit - count - 1
	if remaining < 0 {
		remaining = 0
	}

	return windowState{allowed: true, remaining: remaining, reset: reset}, nil
}

func writeRateLimitHeaders(c *gin.Context, limit int, state windowState) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(state.remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(state.reset.Unix(), 10))
}

func (rl *RateLimiter) reject(c *gin.Context, state windowState) {
	retryAfter := int(math.Ceil(time.Until(state.reset).Seconds()))
	if retryAfter < 0 {
		retryAfter = 0
	}
	c.Writer.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      "Rate Limit Exceeded",
		Status:     http.StatusTooManyRequests,
		Detail:     "too many requests, retry later",
		Instance:   instance,
		RetryAfter: retryAfter,
		TraceID:    GetTraceID(c),
	})
}
