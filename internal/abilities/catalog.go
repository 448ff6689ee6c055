package abilities

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"warchief/server/internal/macro"
)

// GlobalCooldown is the shared minimum time between two ability activations
// of one character.
const GlobalCooldown = 1500 * time.Millisecond

// GCDSeconds reports GlobalCooldown in the unit the macro engine works in.
func GCDSeconds() float64 {
	return GlobalCooldown.Seconds()
}

const (
	FireballCooldown  = 650 * time.Millisecond
	FrostboltCooldown = 2 * time.Second
	HealCooldown      = 4 * time.Second
	ShieldCooldown    = 12 * time.Second
	StrikeCooldown    = 400 * time.Millisecond
)

var ErrDuplicateAbility = errors.New("duplicate ability")

// Ability describes a castable ability and the resources it consumes.
type Ability struct {
	ID        string
	Name      string
	ManaColor macro.ManaColor
	ManaCost  float64
	Cooldown  time.Duration
	// Heal restores the caster's health on success.
	Heal float64
	// Damage is dealt to the caster's target on success.
	Damage         float64
	RequiresTarget bool
}

// Catalog is an immutable set of abilities keyed by id.
type Catalog struct {
	abilities map[string]Ability
}

func NewCatalog(list ...Ability) (*Catalog, error) {
	c := &Catalog{abilities: make(map[string]Ability, len(list))}
	for _, ability := range list {
		if ability.ID == "" {
			return nil, fmt.Errorf("ability %q: missing id", ability.Name)
		}
		if _, exists := c.abilities[ability.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAbility, ability.ID)
		}
		c.abilities[ability.ID] = ability
	}
	return c, nil
}

// DefaultCatalog returns the abilities every character knows.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(
		Ability{ID: "fireball", Name: "Fireball", ManaColor: macro.ManaRed, ManaCost: 3, Cooldown: FireballCooldown, Damage: 12, RequiresTarget: true},
		Ability{ID: "frostbolt", Name: "Frostbolt", ManaColor: macro.ManaBlue, ManaCost: 4, Cooldown: FrostboltCooldown, Damage: 9, RequiresTarget: true},
		Ability{ID: "heal", Name: "Heal", ManaColor: macro.ManaGreen, ManaCost: 5, Cooldown: HealCooldown, Heal: 25},
		Ability{ID: "shield", Name: "Shield", ManaColor: macro.ManaBlue, ManaCost: 6, Cooldown: ShieldCooldown},
		Ability{ID: "strike", Name: "Strike", Cooldown: StrikeCooldown, Damage: 4, RequiresTarget: true},
	)
	if err != nil {
		panic(err)
	}
	return catalog
}

// Known satisfies macro.AbilityLookup.
func (c *Catalog) Known(abilityID string) bool {
	_, ok := c.Lookup(abilityID)
	return ok
}

func (c *Catalog) Lookup(abilityID string) (Ability, bool) {
	if c == nil {
		return Ability{}, false
	}
	ability, ok := c.abilities[abilityID]
	return ability, ok
}

// IDs lists ability ids in sorted order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.abilities))
	for id := range c.abilities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ macro.AbilityLookup = (*Catalog)(nil)
