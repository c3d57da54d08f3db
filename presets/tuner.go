package presets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Tune applies a mutation to the named preset and rewrites the document.
// This is the only sanctioned way to change presets at runtime; everything
// else in this package is read-only.
//
// The mutation runs against a copy; the document is only rewritten when the
// mutated preset still validates. The rewrite is atomic (temp file + rename)
// so a crash mid-write never leaves a truncated document behind.
func (s *Store) Tune(name string, mutate func(*Preset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return err
	}

	idx, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}

	updated := s.presets[idx].Clone()
	if err := mutate(&updated); err != nil {
		return err
	}
	if updated.Name != name {
		return fmt.Errorf("presets: tuning may not rename %q", name)
	}
	if err := updated.Validate(); err != nil {
		return err
	}

	next := make([]Preset, len(s.presets))
	for i, p := range s.presets {
		next[i] = p.Clone()
	}
	next[idx] = updated

	if err := s.writeDocumentLocked(next); err != nil {
		return err
	}

	s.presets = next
	if info, err := os.Stat(s.path); err == nil {
		s.mtime = info.ModTime()
	}
	return nil
}

// writeDocumentLocked persists the preset list in object form
// ({"presets": [...]}) with stable indentation.
func (s *Store) writeDocumentLocked(list []Preset) error {
	payload, err := json.MarshalIndent(document{Presets: list}, "", "  ")
	if err != nil {
		return fmt.Errorf("presets: encode document: %w", err)
	}
	payload = append(payload, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".curated_models_*.json")
	if err != nil {
		return fmt.Errorf("presets: create temp document: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("presets: write temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("presets: close temp document: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("presets: replace document: %w", err)
	}
	return nil
}
