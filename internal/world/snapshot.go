package world

import "warchief/server/internal/macro"

// CombatSnapshot is a detached copy of a character's combat state.
type CombatSnapshot struct {
	Mana   map[macro.ManaColor]float64
	Target bool
	Health float64
}

// HasMana reports whether the pool holds any mana. ManaAny checks every pool.
func (s CombatSnapshot) HasMana(color macro.ManaColor) bool {
	if color == macro.ManaAny {
		for _, amount := range s.Mana {
			if amount > 0 {
				return true
			}
		}
		return false
	}
	return s.Mana[color] > 0
}

func (s CombatSnapshot) HasTarget() bool { return s.Target }

func (s CombatSnapshot) HealthFraction() float64 { return s.Health }

// Snapshot captures the current state of id. Unknown characters read as an
// empty snapshot with no mana, no target and zero health.
func (w *World) Snapshot(id string) macro.Snapshot {
	c, ok := w.characters[id]
	if !ok {
		return CombatSnapshot{}
	}
	mana := make(map[macro.ManaColor]float64, len(c.Mana))
	for color, amount := range c.Mana {
		mana[color] = amount
	}
	fraction := 0.0
	if c.MaxHealth > 0 {
		fraction = clamp(c.Health/c.MaxHealth, 0, 1)
	}
	target := false
	if c.TargetID != "" {
		t, ok := w.characters[c.TargetID]
		target = ok && t.Alive()
	}
	return CombatSnapshot{Mana: mana, Target: target, Health: fraction}
}

var _ macro.Snapshot = CombatSnapshot{}
