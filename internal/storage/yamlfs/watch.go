package yamlfs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceWindow = 100 * time.Millisecond

// Change reports a macro document that was written or removed on disk.
type Change struct {
	CharacterID string
	MacroID     string
	Path        string
	Removed     bool
}

// Watcher follows a store root and the per-character directories beneath it.
// Events and Errors are closed once the watcher stops.
type Watcher struct {
	root    string
	watcher *fsnotify.Watcher
	Events  chan Change
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewWatcher(root string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	clean := filepath.Clean(root)
	if err := w.Add(clean); err != nil {
		_ = w.Close()
		return nil, err
	}
	entries, err := os.ReadDir(clean)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := w.Add(filepath.Join(clean, entry.Name())); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	watcher := &Watcher{
		root:    clean,
		watcher: w,
		Events:  make(chan Change, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer func() {
		close(w.Events)
		close(w.Errors)
		close(w.done)
	}()
	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 && w.isCharacterDir(event.Name) {
				if err := w.watcher.Add(event.Name); err != nil {
					w.sendError(err)
				}
				continue
			}
			change, ok := w.classify(event)
			if !ok {
				continue
			}
			now := time.Now()
			if t, seen := last[event.Name]; seen && !change.Removed && now.Sub(t) < debounceWindow {
				continue
			}
			last[event.Name] = now
			select {
			case w.Events <- change:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.Errors <- err:
	default:
	}
}

func (w *Watcher) isCharacterDir(path string) bool {
	if filepath.Dir(path) != w.root {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// classify maps a raw event onto <root>/<character>/<macro>.yaml. Renames
// and removals report the document as gone; a rename target arrives as its
// own create event.
func (w *Watcher) classify(event fsnotify.Event) (Change, bool) {
	if !IsMacroFile(event.Name) {
		return Change{}, false
	}
	dir := filepath.Dir(event.Name)
	if filepath.Dir(dir) != w.root {
		return Change{}, false
	}
	base := filepath.Base(event.Name)
	change := Change{
		CharacterID: filepath.Base(dir),
		MacroID:     strings.TrimSuffix(base, filepath.Ext(base)),
		Path:        event.Name,
	}
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		change.Removed = true
	}
	return change, true
}

// ErrWatcherClosed is returned by Next once the watcher has stopped.
var ErrWatcherClosed = errors.New("yamlfs: watcher closed")

// Next blocks until a change arrives, an error is reported, or the watcher
// closes.
func (w *Watcher) Next() (Change, error) {
	select {
	case change, ok := <-w.Events:
		if !ok {
			return Change{}, ErrWatcherClosed
		}
		return change, nil
	case err, ok := <-w.Errors:
		if !ok {
			return Change{}, ErrWatcherClosed
		}
		return Change{}, err
	}
}
