package app

import (
	"errors"

	"warchief/server/internal/macro"
	"warchief/server/internal/storage/yamlfs"
)

const (
	macroFileReloadMetricKey  = "store_macro_file_changes_total"
	macroFileInvalidMetricKey = "store_macro_file_invalid_total"
)

// watch reports hand-edited macro files. Edits bypass the store guard, so
// every change is validated against the catalog and problems are logged.
// Running macros keep the copy they started with.
func (rt *Runtime) watch(root string) error {
	watcher, err := yamlfs.NewWatcher(root)
	if err != nil {
		return err
	}
	rt.watcher = watcher
	go func() {
		for {
			change, err := watcher.Next()
			if errors.Is(err, yamlfs.ErrWatcherClosed) {
				return
			}
			if err != nil {
				rt.Logger.Printf("macro watcher error: %v", err)
				continue
			}
			rt.Counters.Add(macroFileReloadMetricKey, 1)
			rt.checkMacroFile(change)
		}
	}()
	return nil
}

func (rt *Runtime) checkMacroFile(change yamlfs.Change) {
	if change.Removed {
		rt.Logger.Printf("macro %s/%s removed", change.CharacterID, change.MacroID)
		return
	}
	def, err := yamlfs.LoadFile(change.Path)
	if err == nil {
		err = macro.Validate(def, rt.Catalog)
	}
	if err != nil {
		rt.Counters.Add(macroFileInvalidMetricKey, 1)
		rt.Logger.Printf("macro %s/%s is invalid: %v", change.CharacterID, change.MacroID, err)
		return
	}
	rt.Logger.Printf("macro %s/%s reloaded (%d steps)", change.CharacterID, def.ID, len(def.Steps))
}
