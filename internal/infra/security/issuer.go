package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("token: expired")
	// ErrTokenMalformed indicates the token could not be parsed.
	ErrTokenMalformed = errors.New("token: malformed")
	// ErrTokenInvalid indicates the signature or claims failed validation.
	ErrTokenInvalid = errors.New("token: invalid")
	// ErrNonPositiveTTL indicates a non-positive lifetime was configured.
	ErrNonPositiveTTL = errors.New("token: ttl must be positive")
)

// AccessTokenClaims carries the identity claims embedded in issued bearer tokens.
type AccessTokenClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// IssuedToken bundles a signed token with its identifying metadata.
type IssuedToken struct {
	Token     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer signs and validates HMAC-signed bearer tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	grace  time.Duration
}

// NewTokenIssuer constructs a TokenIssuer from the signing secret and lifetimes.
func NewTokenIssuer(secret, issuer string, ttl, grace time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token: signing secret is required")
	}
	if ttl <= 0 {
		return nil, ErrNonPositiveTTL
	}
	if grace < 0 {
		grace = 0
	}

	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		grace:  grace,
	}, nil
}

// TTL returns the configured access token lifetime.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a new bearer token for the subject, valid from now.
func (t *TokenIssuer) Issue(subjectID string, now time.Time) (*IssuedToken, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("token: subject id is required")
	}

	now = now.UTC()
	expiresAt := now.Add(t.ttl)
	jti := uuid.NewString()

	claims := &AccessTokenClaims{
		UserID: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, fmt.Errorf("token: sign: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		TokenID:   jti,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate parses and verifies a bearer token, rejecting expired tokens.
func (t *TokenIssuer) Validate(token string) (*AccessTokenClaims, error) {
	return t.parse(token, 0)
}

// ValidateWithGrace parses and verifies a bearer token, tolerating expiry
// within the configured grace window. Used for refresh, where a token that
// just lapsed may still be exchanged for a fresh one.
func (t *TokenIssuer) ValidateWithGrace(token string) (*AccessTokenClaims, error) {
	return t.parse(token, t.grace)
}

func (t *TokenIssuer) parse(token string, leeway time.Duration) (*AccessTokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	if leeway > 0 {
		opts = append(opts, jwt.WithLeeway(leeway))
	}

	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenMalformed
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.UserID) == "" || strings.TrimSpace(claims.ID) == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrTokenInvalid)
	}

	return claims, nil
}
