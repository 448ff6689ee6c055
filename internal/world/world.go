// Package world holds the per-character combat state the macro engine reads
// through snapshots and the ability subsystem mutates through casts.
package world

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"warchief/server/internal/macro"
)

var (
	ErrDuplicateCharacter = errors.New("character already exists")
	ErrInvalidCharacter   = errors.New("invalid character")
)

// Config tunes the world's passive rules.
type Config struct {
	// ManaRegenPerSecond is restored to every pool each simulated second.
	ManaRegenPerSecond float64
	// Epoch is the simulated time at which the world starts.
	Epoch time.Time
}

func DefaultConfig() Config {
	return Config{
		ManaRegenPerSecond: 2,
		Epoch:              time.Unix(0, 0).UTC(),
	}
}

// Character is the mutable combat state of one slot. Pointers handed out by
// Lookup belong to the simulation goroutine.
type Character struct {
	ID        string
	Health    float64
	MaxHealth float64
	Mana      map[macro.ManaColor]float64
	MaxMana   float64
	TargetID  string

	// Cooldowns records the last trigger time per ability id.
	Cooldowns           map[string]time.Time
	GlobalCooldownUntil time.Time
}

// Alive reports whether the character can act.
func (c *Character) Alive() bool {
	return c != nil && c.Health > 0
}

// World tracks every character and the simulated clock.
type World struct {
	cfg        Config
	now        time.Time
	characters map[string]*Character
}

func New(cfg Config) *World {
	if cfg.Epoch.IsZero() {
		cfg.Epoch = DefaultConfig().Epoch
	}
	return &World{
		cfg:        cfg,
		now:        cfg.Epoch,
		characters: make(map[string]*Character),
	}
}

// Add registers a character. Pools listed in Mana are clamped to MaxMana and
// Health defaults to MaxHealth.
func (w *World) Add(c Character) error {
	if c.ID == "" || c.MaxHealth <= 0 {
		return fmt.Errorf("add %q: %w", c.ID, ErrInvalidCharacter)
	}
	if _, exists := w.characters[c.ID]; exists {
		return fmt.Errorf("add %q: %w", c.ID, ErrDuplicateCharacter)
	}
	stored := c
	if stored.Health <= 0 || stored.Health > stored.MaxHealth {
		stored.Health = stored.MaxHealth
	}
	stored.Mana = make(map[macro.ManaColor]float64, len(c.Mana))
	for color, amount := range c.Mana {
		stored.Mana[color] = clamp(amount, 0, stored.MaxMana)
	}
	stored.Cooldowns = make(map[string]time.Time, len(c.Cooldowns))
	for id, at := range c.Cooldowns {
		stored.Cooldowns[id] = at
	}
	w.characters[c.ID] = &stored
	return nil
}

// Remove drops a character and clears any target pointing at it.
func (w *World) Remove(id string) bool {
	if _, ok := w.characters[id]; !ok {
		return false
	}
	delete(w.characters, id)
	for _, c := range w.characters {
		if c.TargetID == id {
			c.TargetID = ""
		}
	}
	return true
}

func (w *World) Lookup(id string) (*Character, bool) {
	c, ok := w.characters[id]
	return c, ok
}

// SetTarget points id at targetID. An empty targetID clears the target.
func (w *World) SetTarget(id, targetID string) bool {
	c, ok := w.characters[id]
	if !ok {
		return false
	}
	if targetID != "" {
		if _, ok := w.characters[targetID]; !ok {
			return false
		}
	}
	c.TargetID = targetID
	return true
}

// Damage lowers health, never below zero.
func (w *World) Damage(id string, amount float64) bool {
	c, ok := w.characters[id]
	if !ok || amount < 0 {
		return false
	}
	c.Health = clamp(c.Health-amount, 0, c.MaxHealth)
	return true
}

// Heal raises health of a living character, never above the maximum.
func (w *World) Heal(id string, amount float64) bool {
	c, ok := w.characters[id]
	if !ok || amount < 0 || !c.Alive() {
		return false
	}
	c.Health = clamp(c.Health+amount, 0, c.MaxHealth)
	return true
}

// Step advances the simulated clock by dt seconds, regenerates mana for
// living characters, and drops targets that are gone or dead.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}
	w.now = w.now.Add(time.Duration(dt * float64(time.Second)))
	regen := w.cfg.ManaRegenPerSecond * dt
	for _, c := range w.characters {
		if !c.Alive() {
			continue
		}
		if regen > 0 {
			for color, amount := range c.Mana {
				c.Mana[color] = clamp(amount+regen, 0, c.MaxMana)
			}
		}
		if c.TargetID != "" {
			if target, ok := w.characters[c.TargetID]; !ok || !target.Alive() {
				c.TargetID = ""
			}
		}
	}
}

// Now reports the simulated time.
func (w *World) Now() time.Time {
	return w.now
}

// IDs lists every character id in sorted order.
func (w *World) IDs() []string {
	ids := make([]string, 0, len(w.characters))
	for id := range w.characters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
