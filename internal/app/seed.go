package app

import (
	"context"
	"errors"
	"fmt"

	"warchief/server/internal/macro"
	"warchief/server/internal/storage"
	"warchief/server/internal/world"
)

func demoCharacters() []world.Character {
	fullMana := func(amount float64) map[macro.ManaColor]float64 {
		return map[macro.ManaColor]float64{macro.ManaRed: amount, macro.ManaBlue: amount, macro.ManaGreen: amount}
	}
	return []world.Character{
		{ID: "hero", MaxHealth: 100, MaxMana: 20, Mana: fullMana(20)},
		{ID: "rogue", MaxHealth: 80, MaxMana: 10, Mana: fullMana(10)},
		{ID: "dummy", MaxHealth: 5000},
	}
}

func demoMacros() []macro.Definition {
	return []macro.Definition{
		{
			ID:   "burst",
			Name: "Burst",
			Steps: []macro.Step{
				macro.CastStep("fireball", 0, macro.ConditionTargetExists),
				macro.WaitStep(0.5, macro.ConditionNone),
				macro.CastStep("heal", 0, macro.ConditionHealthBelow50),
			},
		},
		{
			ID:   "rotation",
			Name: "Rotation",
			Loop: true,
			Steps: []macro.Step{
				macro.CastStep("frostbolt", 0, macro.ConditionHasBlueMana),
				macro.CastStep("strike", 0.25, macro.ConditionTargetExists),
				macro.WaitStep(1, macro.ConditionNone),
			},
		},
	}
}

// seedDemo adds the demo characters to w and stores their macros unless a
// macro with the same id already exists. It returns the seeded character ids.
func seedDemo(w *world.World, store storage.Store) ([]string, error) {
	ctx := context.Background()
	var ids []string
	for _, c := range demoCharacters() {
		if err := w.Add(c); err != nil {
			return nil, fmt.Errorf("seed %s: %w", c.ID, err)
		}
		ids = append(ids, c.ID)
	}
	for _, attacker := range []string{"hero", "rogue"} {
		w.SetTarget(attacker, "dummy")
	}
	for _, owner := range []string{"hero", "rogue"} {
		for _, def := range demoMacros() {
			_, err := store.Get(ctx, owner, def.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("seed macro %s/%s: %w", owner, def.ID, err)
			}
			if err := store.Save(ctx, owner, def); err != nil {
				return nil, fmt.Errorf("seed macro %s/%s: %w", owner, def.ID, err)
			}
		}
	}
	return ids, nil
}
