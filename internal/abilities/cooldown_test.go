package abilities

import (
	"testing"
	"time"
)

func TestReadyCooldownInitialisesRegistryAndRecordsTimestamp(t *testing.T) {
	now := time.Unix(10, 0)
	var registry map[string]time.Time

	if !ReadyCooldown(&registry, "fireball", time.Second, now) {
		t.Fatalf("expected cooldown to be ready on first invocation")
	}
	if registry == nil {
		t.Fatalf("expected registry map to be initialised")
	}
	if ts := registry["fireball"]; !ts.Equal(now) {
		t.Fatalf("expected timestamp %v, got %v", now, ts)
	}
	if ReadyCooldown(&registry, "fireball", time.Second, now.Add(500*time.Millisecond)) {
		t.Fatalf("expected cooldown to block when invoked twice within window")
	}
	if !ReadyCooldown(&registry, "fireball", time.Second, now.Add(time.Second)) {
		t.Fatalf("expected cooldown to allow trigger once the window elapsed")
	}
}

func TestReadyCooldownRejectsNilRegistry(t *testing.T) {
	if ReadyCooldown(nil, "fireball", time.Second, time.Unix(0, 0)) {
		t.Fatalf("expected nil registry pointer to refuse")
	}
}

func TestCooldownElapsedIgnoresZeroCooldown(t *testing.T) {
	now := time.Unix(5, 0)
	registry := map[string]time.Time{"strike": now}
	if !CooldownElapsed(registry, "strike", 0, now) {
		t.Fatalf("expected zero cooldown to always be ready")
	}
}
