package yamlfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"warchief/server/internal/macro"
	"warchief/server/internal/storage"
)

func burst() macro.Definition {
	return macro.Definition{
		ID:   "burst",
		Name: "Burst",
		Steps: []macro.Step{
			macro.CastStep("fireball", 0.5, macro.ConditionHasRedMana),
			macro.WaitStep(1, macro.ConditionNone),
		},
	}
}

func TestStoreSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Save(ctx, "hero", burst()); err != nil {
		t.Fatalf("save: %v", err)
	}
	path := filepath.Join(store.Root(), "hero", "burst.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected macro file at %s: %v", path, err)
	}
	if !strings.Contains(string(data), "ability: fireball") {
		t.Fatalf("expected yaml document, got:\n%s", data)
	}

	got, err := store.Get(ctx, "hero", "burst")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Burst" || len(got.Steps) != 2 || got.Steps[0].Delay() != 0.5 {
		t.Fatalf("unexpected definition %+v", got)
	}

	defs, err := store.List(ctx, "hero")
	if err != nil || len(defs) != 1 {
		t.Fatalf("expected one macro listed, got %d (%v)", len(defs), err)
	}
	if err := store.Delete(ctx, "hero", "burst"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "hero", "burst"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := store.Delete(ctx, "hero", "burst"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestStoreListUnknownCharacterIsEmpty(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defs, err := store.List(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(defs) != 0 {
		t.Fatalf("expected no macros, got %d", len(defs))
	}
}

func TestStoreRejectsPathLikeIDs(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	def := burst()
	def.ID = "../../etc/passwd"
	if err := store.Save(context.Background(), "hero", def); !errors.Is(err, storage.ErrInvalidID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
}

func TestLoadFileDefaultsIDToFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opener.yml")
	doc := "name: Opener\nloop: true\nloop_count: 3\nsteps:\n  - kind: cast\n    ability: strike\n  - kind: wait\n    duration: 0.5\n    condition: targetExists\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	def, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if def.ID != "opener" || def.LoopCount != 3 || !def.Loop {
		t.Fatalf("unexpected definition %+v", def)
	}
	if def.Steps[1].Condition() != macro.ConditionTargetExists || def.Steps[1].Duration() != 0.5 {
		t.Fatalf("unexpected wait step %v", def.Steps[1])
	}
}

func TestLoadFileRejectsBadDocuments(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("steps: [kind: cast"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(broken); err == nil {
		t.Fatalf("expected malformed yaml to fail")
	}
	zero := filepath.Join(dir, "zero.yaml")
	if err := os.WriteFile(zero, []byte("name: Z\nloop: true\nloop_count: 0\nsteps:\n  - kind: wait\n    duration: 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(zero); !errors.Is(err, macro.ErrInvalidLoopCount) {
		t.Fatalf("expected explicit zero loop count to fail, got %v", err)
	}
}

func TestWatcherReportsSavedMacros(t *testing.T) {
	ctx := context.Background()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(store.Root(), "hero"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	watcher, err := NewWatcher(store.Root())
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	defer watcher.Close()

	if err := store.Save(ctx, "hero", burst()); err != nil {
		t.Fatalf("save: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case change, ok := <-watcher.Events:
			if !ok {
				t.Fatalf("watcher closed early")
			}
			if change.CharacterID == "hero" && change.MacroID == "burst" && !change.Removed {
				return
			}
		case err := <-watcher.Errors:
			t.Fatalf("watcher error: %v", err)
		case <-deadline:
			t.Fatalf("timed out waiting for change event")
		}
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	watcher, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	if err := watcher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := watcher.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := watcher.Next(); !errors.Is(err, ErrWatcherClosed) {
		t.Fatalf("expected closed watcher, got %v", err)
	}
}
