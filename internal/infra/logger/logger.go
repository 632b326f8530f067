package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey keys the request identifier on a context.
type RequestIDKey struct{}

var (
	shared   *zap.Logger
	buildErr error
	once     sync.Once
)

// New builds the process-wide logger. Production gets JSON output;
// everything else gets the colored console encoder. Subsequent calls
// return the first logger built.
func New(env string) (*zap.Logger, error) {
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		shared, buildErr = cfg.Build()
	})
	return shared, buildErr
}

// WithContext returns the shared logger annotated with the request id, if
// the context carries one.
func WithContext(ctx context.Context) *zap.Logger {
	if shared == nil {
		fallback, _ := zap.NewDevelopment()
		return fallback
	}
	if ctx == nil {
		return shared
	}
	if id, ok := ctx.Value(RequestIDKey{}).(string); ok && id != "" {
		return shared.With(zap.String("request_id", id))
	}
	return shared
}

// MaskEmail keeps up to the first three characters of the local part and
// the full domain: john.doe@example.com -> joh***@example.com.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}

	local := email[:at]
	if len(local) > 3 {
		local = local[:3]
	}
	return local + "***" + email[at:]
}

// MaskIP keeps the routing prefix and hides the host portion: the first
// two octets of an IPv4 address, the first four groups of an IPv6 one.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}

	if octets := strings.Split(ip, "."); len(octets) == 4 {
		return octets[0] + "." + octets[1] + ".*.*"
	}
	if groups := strings.Split(ip, ":"); len(groups) >= 4 {
		return strings.Join(groups[:4], ":") + ":*:*:*:*"
	}
	return "***"
}

// MaskString hides the middle of an opaque value, keeping two characters
// on each end. Values too short to mask safely become "***".
func MaskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***"
	}
	return s[:2] + "***" + s[len(s)-2:]
}
