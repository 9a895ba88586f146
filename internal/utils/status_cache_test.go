package utils

import (
	"testing"
	"time"
)

func TestStatusCache(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache := NewStatusCache(10 * time.Second)
	cache.now = func() time.Time { return now }

	t.Run("first status is always sent", func(t *testing.T) {
		if !cache.ShouldUpdate("status", "a") {
			t.Fatalf("expected first status to be sent")
		}
		cache.Update("status", "a")
	})

	t.Run("unchanged status is suppressed", func(t *testing.T) {
		now = now.Add(time.Second)
		if cache.ShouldUpdate("status", "a") {
			t.Errorf("expected unchanged status to be suppressed")
		}
	})

	t.Run("changed status is sent", func(t *testing.T) {
		if !cache.ShouldUpdate("status", "b") {
			t.Errorf("expected changed status to be sent")
		}
	})

	t.Run("heartbeat resends", func(t *testing.T) {
		now = now.Add(11 * time.Second)
		if !cache.ShouldUpdate("status", "a") {
			t.Errorf("expected heartbeat resend")
		}
		cache.Update("status", "a")
		if got, ok := cache.get("status"); !ok || got != "a" {
			t.Errorf("expected cached 'a', got %q (%v)", got, ok)
		}
	})

	t.Run("removed key starts over", func(t *testing.T) {
		cache.Remove("status")
		if _, ok := cache.get("status"); ok {
			t.Errorf("expected entry to be removed")
		}
		if !cache.ShouldUpdate("status", "a") {
			t.Errorf("expected status to be sent after remove")
		}
	})
}
