package security

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenIssuerIssueAndValidate(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, "iam-service", 15*time.Minute, time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	issued, err := issuer.Issue("subject-1", time.Now())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if issued.Token == "" || issued.TokenID == "" {
		t.Fatal("expected token and token id to be populated")
	}
	if !issued.ExpiresAt.After(issued.IssuedAt) {
		t.Fatal("expected expiry after issuance")
	}

	claims, err := issuer.Validate(issued.Token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if claims.UserID != "subject-1" {
		t.Fatalf("expected uid subject-1, got %q", claims.UserID)
	}
	if claims.ID != issued.TokenID {
		t.Fatalf("expected jti %q, got %q", issued.TokenID, claims.ID)
	}
}

func TestTokenIssuerRejectsExpired(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, "iam-service", time.Minute, 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	issued, err := issuer.Issue("subject-1", time.Now().Add(-2*time.Minute))
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := issuer.Validate(issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenIssuerGraceAcceptsRecentlyExpired(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, "iam-service", time.Minute, 5*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	issued, err := issuer.Issue("subject-1", time.Now().Add(-2*time.Minute))
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := issuer.Validate(issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected strict validation to reject, got %v", err)
	}

	claims, err := issuer.ValidateWithGrace(issued.Token)
	if err != nil {
		t.Fatalf("ValidateWithGrace returned error: %v", err)
	}
	if claims.UserID != "subject-1" {
		t.Fatalf("expected uid subject-1, got %q", claims.UserID)
	}
}

func TestTokenIssuerRejectsMalformed(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, "iam-service", time.Minute, 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	if _, err := issuer.Validate("not-a-token"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestTokenIssuerRejectsWrongSecret(t *testing.T) {
	a, err := NewTokenIssuer(testSecret, "iam-service", time.Minute, 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}
	b, err := NewTokenIssuer("another-secret-another-secret-ab", "iam-service", time.Minute, 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	issued, err := a.Issue("subject-1", time.Now())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := b.Validate(issued.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestNewTokenIssuerValidatesConfig(t *testing.T) {
	if _, err := NewTokenIssuer("", "iam-service", time.Minute, 0); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewTokenIssuer(testSecret, "iam-service", 0, 0); !errors.Is(err, ErrNonPositiveTTL) {
		t.Fatalf("expected ErrNonPositiveTTL, got %v", err)
	}
}
