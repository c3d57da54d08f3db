package presets

import (
	"bytes"
	"errors"
	"os"
	"testing"
)

func TestStore_Tune(t *testing.T) {
	path := writeDocument(t, validDocument)
	store := NewStore(path, "")
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	err := store.Tune("pixel-art", func(p *Preset) error {
		p.Steps = 40
		p.CFG = 8.5
		return nil
	})
	if err != nil {
		t.Fatalf("Tune() error = %v", err)
	}

	// The in-memory snapshot reflects the change.
	p, err := store.Get("pixel-art")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Steps != 40 || p.CFG != 8.5 {
		t.Errorf("Get() after Tune = steps %d cfg %.1f, want 40/8.5", p.Steps, p.CFG)
	}

	// And so does a fresh store reading the rewritten document.
	fresh := NewStore(path, "")
	if err := fresh.Load(); err != nil {
		t.Fatalf("Load() of rewritten document error = %v", err)
	}
	p, err = fresh.Get("pixel-art")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Steps != 40 {
		t.Errorf("persisted steps = %d, want 40", p.Steps)
	}
}

func TestStore_Tune_RejectsInvalidMutation(t *testing.T) {
	path := writeDocument(t, validDocument)
	store := NewStore(path, "")
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	err = store.Tune("pixel-art", func(p *Preset) error {
		p.Steps = 0
		return nil
	})
	if err == nil {
		t.Fatal("Tune() accepted an invalid mutation")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("rejected Tune() still rewrote the document")
	}

	p, err := store.Get("pixel-art")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Steps != 28 {
		t.Errorf("in-memory steps = %d after rejected Tune, want 28", p.Steps)
	}
}

func TestStore_Tune_ForbidsRename(t *testing.T) {
	store := NewStore(writeDocument(t, validDocument), "")
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	err := store.Tune("pixel-art", func(p *Preset) error {
		p.Name = "renamed"
		return nil
	})
	if err == nil {
		t.Fatal("Tune() allowed a rename")
	}
}

func TestStore_Tune_UnknownPreset(t *testing.T) {
	store := NewStore(writeDocument(t, validDocument), "")
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	err := store.Tune("ghost", func(p *Preset) error { return nil })
	if !errors.Is(err, ErrPresetNotFound) {
		t.Errorf("Tune() error = %v, want ErrPresetNotFound", err)
	}
}

func TestStore_Tune_PropagatesMutationError(t *testing.T) {
	store := NewStore(writeDocument(t, validDocument), "")
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	sentinel := errors.New("operator aborted")
	err := store.Tune("pixel-art", func(p *Preset) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("Tune() error = %v, want the mutation's error", err)
	}
}
