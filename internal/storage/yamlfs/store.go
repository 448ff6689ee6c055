// Package yamlfs stores macro definitions as one YAML file per macro under
// <root>/<characterID>/<macroID>.yaml.
package yamlfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"warchief/server/internal/macro"
	"warchief/server/internal/storage"
)

const fileExt = ".yaml"

// Store is safe for concurrent use within one process.
type Store struct {
	root string
	mu   sync.RWMutex
}

// Open prepares root for use, creating it when missing.
func Open(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("yamlfs: root directory is required")
	}
	clean := filepath.Clean(root)
	if err := os.MkdirAll(clean, 0o755); err != nil {
		return nil, fmt.Errorf("yamlfs: create %s: %w", clean, err)
	}
	return &Store{root: clean}, nil
}

// Root reports the directory the store writes under.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) List(ctx context.Context, characterID string) ([]macro.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := storage.CheckID(characterID); err != nil {
		return nil, fmt.Errorf("yamlfs: list: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.root, characterID))
	if errors.Is(err, fs.ErrNotExist) {
		return []macro.Definition{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("yamlfs: list %s: %w", characterID, err)
	}
	defs := make([]macro.Definition, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsMacroFile(entry.Name()) {
			continue
		}
		def, err := LoadFile(filepath.Join(s.root, characterID, entry.Name()))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

func (s *Store) Get(ctx context.Context, characterID, macroID string) (macro.Definition, error) {
	if err := ctx.Err(); err != nil {
		return macro.Definition{}, err
	}
	path, err := s.path(characterID, macroID)
	if err != nil {
		return macro.Definition{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, err := LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return macro.Definition{}, storage.ErrNotFound
	}
	return def, err
}

// Save writes the definition through a temporary file so readers never see
// a partial document.
func (s *Store) Save(ctx context.Context, characterID string, def macro.Definition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(characterID, def.ID)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(storage.Encode(def))
	if err != nil {
		return fmt.Errorf("yamlfs: marshal %s: %w", def.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("yamlfs: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*"+fileExt)
	if err != nil {
		return fmt.Errorf("yamlfs: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("yamlfs: write %s: %w", def.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("yamlfs: close %s: %w", def.ID, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("yamlfs: rename %s: %w", def.ID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, characterID, macroID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(characterID, macroID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("yamlfs: delete %s: %w", macroID, err)
	}
	return nil
}

func (s *Store) path(characterID, macroID string) (string, error) {
	if err := storage.CheckID(characterID); err != nil {
		return "", fmt.Errorf("yamlfs: character: %w", err)
	}
	if err := storage.CheckID(macroID); err != nil {
		return "", fmt.Errorf("yamlfs: macro: %w", err)
	}
	return filepath.Join(s.root, characterID, macroID+fileExt), nil
}

// LoadFile decodes a single macro document. The macro id defaults to the
// file name when the document omits it.
func LoadFile(path string) (macro.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return macro.Definition{}, fmt.Errorf("yamlfs: load %s: %w", path, err)
	}
	var rec storage.Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return macro.Definition{}, fmt.Errorf("yamlfs: unmarshal %s: %w", path, err)
	}
	if rec.ID == "" {
		rec.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	def, err := storage.Decode(rec)
	if err != nil {
		return macro.Definition{}, fmt.Errorf("yamlfs: decode %s: %w", path, err)
	}
	return def, nil
}

// IsMacroFile reports whether name looks like a macro document.
func IsMacroFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	return ext == ".yaml" || ext == ".yml"
}

var _ storage.Store = (*Store)(nil)
