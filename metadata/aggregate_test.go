package metadata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAggregate(t *testing.T) {
	dir := t.TempDir()

	write := func(name, preset string, rating int) {
		t.Helper()
		imagePath := filepath.Join(dir, name)
		sidecar, err := Write(NewRecord(preset, 1, "cpu/fp32", 20, 7.0), imagePath)
		if err != nil {
			t.Fatal(err)
		}
		if rating > 0 {
			if err := Rate(sidecar, rating); err != nil {
				t.Fatal(err)
			}
		}
	}

	write("a.png", "pixel-art", 5)
	write("b.png", "pixel-art", 3)
	write("c.png", "sticker", 4)
	write("d.png", "sticker", 0) // unrated, must not count

	// A malformed sidecar must be skipped, not fail the walk.
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Aggregate(dir)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	want := []PresetRating{
		{Preset: "pixel-art", Average: 4.0, Count: 2},
		{Preset: "sticker", Average: 4.0, Count: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("Aggregate() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Aggregate()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAggregate_EmptyDirectory(t *testing.T) {
	got, err := Aggregate(t.TempDir())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Aggregate() = %+v, want empty", got)
	}
}
