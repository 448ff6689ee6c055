package abilities

import "time"

// ReadyCooldown lazily allocates the registry, refuses to trigger while the
// ability is still cooling down, and records the trigger time when ready.
func ReadyCooldown(cooldowns *map[string]time.Time, ability string, cooldown time.Duration, now time.Time) bool {
	if cooldowns == nil {
		return false
	}
	if *cooldowns == nil {
		*cooldowns = make(map[string]time.Time)
	}
	if !CooldownElapsed(*cooldowns, ability, cooldown, now) {
		return false
	}
	(*cooldowns)[ability] = now
	return true
}

// CooldownElapsed reports whether ability may trigger at now without
// recording anything.
func CooldownElapsed(cooldowns map[string]time.Time, ability string, cooldown time.Duration, now time.Time) bool {
	if cooldown <= 0 {
		return true
	}
	last, ok := cooldowns[ability]
	if !ok {
		return true
	}
	return now.Sub(last) >= cooldown
}
