package presets

import (
	"fmt"
	"os"
	"sync"
	"time"

	"pixstu_backend/core"
)

// Store holds the curated preset snapshot loaded from a JSON document.
//
// The store reloads lazily when the document's mtime changes, so edits made
// while the backend is running are picked up on the next access. All accessors
// return defensive copies.
type Store struct {
	path       string
	modelsRoot string

	mu      sync.RWMutex
	presets []Preset
	byName  map[string]int
	mtime   time.Time
	loaded  bool
}

// NewStore creates a preset store for the given document path.
// modelsRoot is the portable asset root used for LoRA path resolution
// (may be empty; see assets.go).
//
// The document is not read until Load or the first accessor call.
func NewStore(path, modelsRoot string) *Store {
	return &Store{
		path:       path,
		modelsRoot: modelsRoot,
	}
}

// Load reads and validates the preset document.
// Fails with a *core.ConfigError when the file is missing, unparseable, or a
// preset lacks required fields. Safe to call repeatedly.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return core.ErrPresetFileMissing(s.path)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return core.ErrPresetFileMissing(s.path)
	}

	list, err := parseDocument(data)
	if err != nil {
		return core.ErrPresetFileMalformed(s.path, err.Error())
	}

	byName := make(map[string]int, len(list))
	for i, p := range list {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := byName[p.Name]; dup {
			return core.ErrPresetInvalid(p.Name, "duplicate preset name")
		}
		byName[p.Name] = i
	}

	s.presets = list
	s.byName = byName
	s.mtime = info.ModTime()
	s.loaded = true
	return nil
}

// refreshLocked reloads the document if it changed on disk since the last read.
// A document that disappears or turns invalid after a successful load keeps
// the previous snapshot; generation should not break because an editor saved
// a half-written file.
func (s *Store) refreshLocked() error {
	if !s.loaded {
		return s.loadLocked()
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return nil // keep current snapshot
	}
	if info.ModTime().Equal(s.mtime) {
		return nil
	}
	prev := s.presets
	prevNames := s.byName
	if err := s.loadLocked(); err != nil {
		s.presets = prev
		s.byName = prevNames
		return nil
	}
	return nil
}

// Presets returns the ordered preset sequence as defensive copies.
func (s *Store) Presets() ([]Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(); err != nil {
		return nil, err
	}
	out := make([]Preset, len(s.presets))
	for i, p := range s.presets {
		out[i] = p.Clone()
	}
	return out, nil
}

// Names returns the preset names in document order.
func (s *Store) Names() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(); err != nil {
		return nil, err
	}
	names := make([]string, len(s.presets))
	for i, p := range s.presets {
		names[i] = p.Name
	}
	return names, nil
}

// Get returns a copy of the named preset.
// Returns ErrPresetNotFound (wrapped with the name) for unknown identifiers.
func (s *Store) Get(name string) (Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(); err != nil {
		return Preset{}, err
	}
	idx, ok := s.byName[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return s.presets[idx].Clone(), nil
}

// Path returns the preset document path.
func (s *Store) Path() string {
	return s.path
}
