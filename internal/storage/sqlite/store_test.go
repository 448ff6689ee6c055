package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"warchief/server/internal/macro"
	"warchief/server/internal/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "macros.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func rotation() macro.Definition {
	return macro.Definition{
		ID:        "rotation",
		Name:      "Rotation",
		Loop:      true,
		LoopCount: 4,
		Steps: []macro.Step{
			macro.CastStep("frostbolt", 0, macro.ConditionHasBlueMana),
			macro.WaitStep(0.75, macro.ConditionNone),
			macro.CastStep("heal", 0.2, macro.ConditionHealthBelow50),
		},
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTempStore(t)
	if err := store.Save(ctx, "hero", rotation()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, "hero", "rotation")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Rotation" || !got.Loop || got.LoopCount != 4 {
		t.Fatalf("unexpected definition header %+v", got)
	}
	if len(got.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(got.Steps))
	}
	if got.Steps[0].AbilityID() != "frostbolt" || got.Steps[1].Duration() != 0.75 || got.Steps[2].Condition() != macro.ConditionHealthBelow50 {
		t.Fatalf("unexpected steps %v", got.Steps)
	}
}

func TestSaveReplacesSteps(t *testing.T) {
	ctx := context.Background()
	store := openTempStore(t)
	if err := store.Save(ctx, "hero", rotation()); err != nil {
		t.Fatalf("save: %v", err)
	}
	shorter := rotation()
	shorter.Loop = false
	shorter.LoopCount = 0
	shorter.Steps = shorter.Steps[:1]
	if err := store.Save(ctx, "hero", shorter); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err := store.Get(ctx, "hero", "rotation")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Steps) != 1 || got.Loop || got.LoopCount != 0 {
		t.Fatalf("expected replaced definition, got %+v", got)
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := openTempStore(t)
	second := rotation()
	second.ID = "opener"
	for _, def := range []macro.Definition{rotation(), second} {
		if err := store.Save(ctx, "hero", def); err != nil {
			t.Fatalf("save %s: %v", def.ID, err)
		}
	}
	defs, err := store.List(ctx, "hero")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(defs) != 2 || defs[0].ID != "opener" || defs[1].ID != "rotation" {
		t.Fatalf("expected sorted listing, got %+v", defs)
	}
	if err := store.Delete(ctx, "hero", "opener"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "hero", "opener"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.Get(ctx, "hero", "opener"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected deleted macro to be gone, got %v", err)
	}
	if others, err := store.List(ctx, "villain"); err != nil || len(others) != 0 {
		t.Fatalf("expected empty listing for other character, got %d (%v)", len(others), err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "macros.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Save(ctx, "hero", rotation()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(ctx, "hero", "rotation"); err != nil {
		t.Fatalf("expected macro after reopen: %v", err)
	}
}
