package storage

import (
	"context"
	"sort"
	"sync"

	"warchief/server/internal/macro"
)

// Memory keeps definitions in process. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	macros map[string]map[string]macro.Definition
}

func NewMemory() *Memory {
	return &Memory{macros: make(map[string]map[string]macro.Definition)}
}

func (m *Memory) List(ctx context.Context, characterID string) ([]macro.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	byID := m.macros[characterID]
	defs := make([]macro.Definition, 0, len(byID))
	for _, def := range byID {
		defs = append(defs, def.Clone())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

func (m *Memory) Get(ctx context.Context, characterID, macroID string) (macro.Definition, error) {
	if err := ctx.Err(); err != nil {
		return macro.Definition{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.macros[characterID][macroID]
	if !ok {
		return macro.Definition{}, ErrNotFound
	}
	return def.Clone(), nil
}

func (m *Memory) Save(ctx context.Context, characterID string, def macro.Definition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byID, ok := m.macros[characterID]
	if !ok {
		byID = make(map[string]macro.Definition)
		m.macros[characterID] = byID
	}
	byID[def.ID] = def.Clone()
	return nil
}

func (m *Memory) Delete(ctx context.Context, characterID, macroID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.macros[characterID][macroID]; !ok {
		return ErrNotFound
	}
	delete(m.macros[characterID], macroID)
	return nil
}

var _ Store = (*Memory)(nil)
