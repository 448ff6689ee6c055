package abilities

import (
	"time"

	"warchief/server/internal/macro"
	"warchief/server/internal/world"
)

// Caster resolves cast requests against the world. It is the ability
// subsystem seen by the macro engine and shares the engine's goroutine.
type Caster struct {
	catalog *Catalog
	world   *world.World
	gcd     time.Duration
}

// NewCaster returns a caster enforcing gcd between activations. A negative
// gcd disables the global cooldown.
func NewCaster(catalog *Catalog, w *world.World, gcd time.Duration) *Caster {
	if gcd < 0 {
		gcd = 0
	}
	return &Caster{catalog: catalog, world: w, gcd: gcd}
}

// Cast checks, in order, that the ability and character exist, that neither
// the global nor the ability cooldown is running, that a required target is
// present, and that the mana pool covers the cost. Only a successful cast
// consumes mana or starts cooldowns.
func (c *Caster) Cast(characterID, abilityID string) macro.CastResult {
	ability, ok := c.catalog.Lookup(abilityID)
	if !ok || c.world == nil {
		return macro.CastInvalid
	}
	caster, ok := c.world.Lookup(characterID)
	if !ok || !caster.Alive() {
		return macro.CastInvalid
	}

	now := c.world.Now()
	if now.Before(caster.GlobalCooldownUntil) {
		return macro.CastOnCooldown
	}
	if !CooldownElapsed(caster.Cooldowns, ability.ID, ability.Cooldown, now) {
		return macro.CastOnCooldown
	}
	if ability.RequiresTarget && !c.world.Snapshot(characterID).HasTarget() {
		return macro.CastInvalid
	}
	if ability.ManaCost > 0 && caster.Mana[ability.ManaColor] < ability.ManaCost {
		return macro.CastInsufficientResource
	}

	if !ReadyCooldown(&caster.Cooldowns, ability.ID, ability.Cooldown, now) {
		return macro.CastOnCooldown
	}
	if ability.ManaCost > 0 {
		caster.Mana[ability.ManaColor] -= ability.ManaCost
	}
	caster.GlobalCooldownUntil = now.Add(c.gcd)
	if ability.Heal > 0 {
		c.world.Heal(characterID, ability.Heal)
	}
	if ability.Damage > 0 && caster.TargetID != "" {
		c.world.Damage(caster.TargetID, ability.Damage)
	}
	return macro.CastSuccess
}
