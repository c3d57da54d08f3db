package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pixstu_backend/logging"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.sqlite")
	store, err := Open(path, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)

	entry := Entry{
		Fingerprint:  "abc123",
		ResultPath:   "outputs/abc.png",
		MetadataPath: "outputs/abc.json",
	}
	if err := store.Put(entry); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get("abc123")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned a miss for a stored fingerprint")
	}
	if got.ResultPath != entry.ResultPath || got.MetadataPath != entry.MetadataPath {
		t.Errorf("Get() = %+v, want paths from %+v", got, entry)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Get() returned a zero CreatedAt")
	}
}

func TestStore_GetMiss(t *testing.T) {
	store, _ := openTestStore(t)

	got, err := store.Get("never-stored")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %+v, want nil miss", got)
	}
}

func TestStore_PutReplaces(t *testing.T) {
	store, _ := openTestStore(t)

	if err := store.Put(Entry{Fingerprint: "f", ResultPath: "old.png", MetadataPath: "old.json"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(Entry{Fingerprint: "f", ResultPath: "new.png", MetadataPath: "new.json"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get("f")
	if err != nil {
		t.Fatal(err)
	}
	if got.ResultPath != "new.png" {
		t.Errorf("ResultPath = %q after replace, want new.png", got.ResultPath)
	}
	if n, _ := store.Len(); n != 1 {
		t.Errorf("Len() = %d after replace, want 1", n)
	}
}

func TestStore_Delete(t *testing.T) {
	store, _ := openTestStore(t)

	if err := store.Put(Entry{Fingerprint: "gone", ResultPath: "a.png", MetadataPath: "a.json"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("gone"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := store.Get("gone"); got != nil {
		t.Error("entry survived Delete()")
	}

	// Deleting a missing fingerprint is a no-op.
	if err := store.Delete("never-there"); err != nil {
		t.Errorf("Delete() of missing entry error = %v", err)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.sqlite")

	store, err := Open(path, logging.NewTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(Entry{Fingerprint: "durable", ResultPath: "d.png", MetadataPath: "d.json"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get("durable")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Error("entry lost across reopen")
	}
}

func TestOpen_HealsCorruptIndexFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.sqlite")
	if err := os.WriteFile(path, []byte("this is definitely not a sqlite database"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := Open(path, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("Open() on corrupt file error = %v, want healed index", err)
	}
	defer store.Close()

	// The healed index is empty but fully usable.
	if n, err := store.Len(); err != nil || n != 0 {
		t.Errorf("Len() = %d, %v after heal, want 0, nil", n, err)
	}
	if err := store.Put(Entry{Fingerprint: "fresh", ResultPath: "f.png", MetadataPath: "f.json"}); err != nil {
		t.Errorf("Put() after heal error = %v", err)
	}
}

func TestStore_RepairDropsEntries(t *testing.T) {
	store, _ := openTestStore(t)

	if err := store.Put(Entry{Fingerprint: "doomed", ResultPath: "d.png", MetadataPath: "d.json"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Repair(); err != nil {
		t.Fatalf("Repair() error = %v", err)
	}

	got, err := store.Get("doomed")
	if err != nil {
		t.Fatalf("Get() after Repair() error = %v", err)
	}
	if got != nil {
		t.Error("entry survived Repair()")
	}
	if err := store.Put(Entry{Fingerprint: "after", ResultPath: "a.png", MetadataPath: "a.json"}); err != nil {
		t.Errorf("Put() after Repair() error = %v", err)
	}
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	store, _ := openTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestIsCorruption(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "malformed image", err: errors.New("database disk image is malformed"), want: true},
		{name: "not a database", err: errors.New("file is not a database (26)"), want: true},
		{name: "constraint violation", err: errors.New("UNIQUE constraint failed"), want: false},
		{name: "nil", err: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCorruption(tt.err); got != tt.want {
				t.Errorf("isCorruption(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestEntry_CreatedAtDefaulted(t *testing.T) {
	store, _ := openTestStore(t)

	before := time.Now().Add(-time.Minute)
	if err := store.Put(Entry{Fingerprint: "ts", ResultPath: "t.png", MetadataPath: "t.json"}); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get("ts")
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if got.CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, want recent timestamp", got.CreatedAt)
	}
}
