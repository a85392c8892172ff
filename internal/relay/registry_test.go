package relay

import (
	"context"
	"testing"
	"time"
)

func TestRegisterAssignsDistinctIDs(t *testing.T) {
	reg := NewRegistry(0)

	a := reg.Register("claude", "https://claude.ai/chat/1")
	b := reg.Register("claude", "https://claude.ai/chat/2")

	if a.ID == "" || b.ID == "" {
		t.Fatal("sessions must get ids")
	}
	if a.ID == b.ID {
		t.Fatal("session ids must be distinct")
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", reg.Len())
	}
}

func TestSessionsPruneExpired(t *testing.T) {
	reg := NewRegistry(time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return base }

	stale := reg.Register("claude", "https://claude.ai/chat/1")
	reg.now = func() time.Time { return base.Add(30 * time.Second) }
	fresh := reg.Register("chatgpt", "https://chatgpt.com/c/2")

	reg.now = func() time.Time { return base.Add(90 * time.Second) }
	sessions := reg.Sessions(context.Background())

	if len(sessions) != 1 {
		t.Fatalf("expected 1 live session, got %d", len(sessions))
	}
	if sessions[0].ID != fresh.ID {
		t.Fatalf("wrong survivor %q", sessions[0].ID)
	}
	if reg.Touch(stale.ID) {
		t.Fatal("pruned session should be unknown")
	}
}

func TestTouchExtendsLiveness(t *testing.T) {
	reg := NewRegistry(time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return base }

	sess := reg.Register("claude", "https://claude.ai/chat/1")

	reg.now = func() time.Time { return base.Add(45 * time.Second) }
	if !reg.Touch(sess.ID) {
		t.Fatal("live session should be touchable")
	}

	reg.now = func() time.Time { return base.Add(90 * time.Second) }
	if len(reg.Sessions(context.Background())) != 1 {
		t.Fatal("touched session should survive past the original deadline")
	}
}

func TestTouchUnknownSession(t *testing.T) {
	reg := NewRegistry(0)
	if reg.Touch("nope") {
		t.Fatal("unknown session must not be touchable")
	}
}

func TestSessionsFilterUnsupportedHosts(t *testing.T) {
	reg := NewRegistry(0)
	reg.Register("claude", "https://claude.ai/chat/1")
	reg.Register("unknown", "https://example.com/somewhere")

	sessions := reg.Sessions(context.Background())
	if len(sessions) != 1 {
		t.Fatalf("expected only the supported host, got %d sessions", len(sessions))
	}
	if sessions[0].Site != "claude" {
		t.Fatalf("unexpected survivor %+v", sessions[0])
	}
	// Filtered sessions stay registered; they are just not broadcast targets.
	if reg.Len() != 2 {
		t.Fatalf("filtering must not delete, got %d", reg.Len())
	}
}

func TestSessionsOrderedByRegistration(t *testing.T) {
	reg := NewRegistry(0)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		offset := time.Duration(i) * time.Second
		reg.now = func() time.Time { return base.Add(offset) }
		reg.Register("claude", "https://claude.ai/chat/x")
	}
	reg.now = func() time.Time { return base.Add(time.Minute) }

	sessions := reg.Sessions(context.Background())
	for i := 1; i < len(sessions); i++ {
		if sessions[i].RegisteredAt.Before(sessions[i-1].RegisteredAt) {
			t.Fatal("sessions must be ordered by registration time")
		}
	}
}
