package domain

import (
	"testing"
	"time"
)

func TestInvitationLifecycle(t *testing.T) {
	now := time.Now()
	inv := Invitation{ID: "inv-1", ExpiresAt: now.Add(time.Hour)}

	if inv.IsExpired(now) {
		t.Fatal("invitation should not be expired before its deadline")
	}
	if !inv.IsPending(now) {
		t.Fatal("unaccepted, unexpired invitation should be pending")
	}
	if inv.IsPending(now.Add(2 * time.Hour)) {
		t.Fatal("expired invitation must not be pending")
	}

	if !inv.Accept(now) {
		t.Fatal("first accept should transition the invitation")
	}
	if inv.Accept(now.Add(time.Minute)) {
		t.Fatal("second accept must be a no-op")
	}
	if inv.AcceptedAt == nil || !inv.AcceptedAt.Equal(now) {
		t.Fatalf("accepted timestamp not recorded: %v", inv.AcceptedAt)
	}
	if inv.IsPending(now) {
		t.Fatal("accepted invitation must not be pending")
	}
}

func TestInvitationExpiryBoundary(t *testing.T) {
	deadline := time.Now()
	inv := Invitation{ExpiresAt: deadline}

	if !inv.IsExpired(deadline) {
		t.Fatal("invitation expires exactly at its deadline")
	}
	if inv.IsExpired(deadline.Add(-time.Nanosecond)) {
		t.Fatal("invitation is valid up to its deadline")
	}
}
