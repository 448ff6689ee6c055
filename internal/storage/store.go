// Package storage defines how macro definitions are persisted per character.
// The engine never reads storage; hosts load a definition and hand it to
// Engine.Start.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"warchief/server/internal/macro"
)

var (
	ErrNotFound  = errors.New("macro not found")
	ErrInvalidID = errors.New("invalid id")
)

// Store persists macro definitions keyed by character and macro id.
type Store interface {
	List(ctx context.Context, characterID string) ([]macro.Definition, error)
	Get(ctx context.Context, characterID, macroID string) (macro.Definition, error)
	Save(ctx context.Context, characterID string, def macro.Definition) error
	Delete(ctx context.Context, characterID, macroID string) error
}

// Guard validates every definition before it reaches the wrapped store.
func Guard(store Store, abilities macro.AbilityLookup) Store {
	return &guardedStore{Store: store, abilities: abilities}
}

type guardedStore struct {
	Store
	abilities macro.AbilityLookup
}

func (g *guardedStore) Save(ctx context.Context, characterID string, def macro.Definition) error {
	if err := CheckID(characterID); err != nil {
		return fmt.Errorf("character: %w", err)
	}
	if err := CheckID(def.ID); err != nil {
		return fmt.Errorf("macro: %w", err)
	}
	if err := macro.Validate(def, g.abilities); err != nil {
		return err
	}
	return g.Store.Save(ctx, characterID, def)
}

// CheckID accepts ids usable as file names and primary keys.
func CheckID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if len(id) > 64 {
		return fmt.Errorf("%w: %q is longer than 64 characters", ErrInvalidID, id)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidID, id, r)
		}
	}
	return nil
}
