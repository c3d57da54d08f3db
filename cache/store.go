// Package cache maps generation fingerprints to previously produced artifacts.
//
// The index is a small SQLite database. Losing it only costs performance,
// never correctness, so the recovery strategy for structural corruption is
// deliberately blunt: log, delete the index file, rebuild an empty schema and
// keep going. No transactional rollback, no partial repair.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"pixstu_backend/logging"
)

// Entry records where a prior generation's artifacts live.
type Entry struct {
	Fingerprint  string
	ResultPath   string
	MetadataPath string
	CreatedAt    time.Time
}

// Store is the fingerprint index.
//
// Access is serialized with a single mutex: the host serves one interactive
// session at a time, so single-writer-plus-readers is all the coordination
// the index needs. A multi-user deployment would additionally want
// per-fingerprint mutual exclusion around generation itself.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	logger *logging.Logger
}

// Open creates or opens the cache index at path.
//
// A structurally corrupt index file is healed on open: the file is removed
// and an empty index is rebuilt in its place. Open only fails for real
// problems (unwritable directory, bad path).
func Open(path string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewTestLogger()
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache: create index directory: %w", err)
		}
	}

	db, err := openIndex(path)
	if err != nil {
		if !isCorruption(err) {
			return nil, err
		}
		logger.Warn("cache index corrupt on open, rebuilding",
			zap.String("path", path), zap.Error(err))
		if err := removeIndexFiles(path); err != nil {
			return nil, err
		}
		db, err = openIndex(path)
		if err != nil {
			return nil, err
		}
	}

	return &Store{db: db, path: path, logger: logger}, nil
}

// Get looks up a fingerprint. Returns (nil, nil) on a miss.
//
// A corruption error during lookup triggers an in-place repair and reports a
// miss; the caller regenerates and the cache refills over time.
func (s *Store) Get(fingerprint string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.getLocked(fingerprint)
	if err == nil {
		return entry, nil
	}
	if !isCorruption(err) {
		return nil, err
	}

	s.logger.Warn("cache index corrupt during lookup, rebuilding", zap.Error(err))
	if repairErr := s.repairLocked(); repairErr != nil {
		return nil, repairErr
	}
	return nil, nil
}

func (s *Store) getLocked(fingerprint string) (*Entry, error) {
	row := s.db.QueryRow(
		`SELECT fingerprint, result_path, metadata_path, created_at
		 FROM entries WHERE fingerprint = ?`, fingerprint)

	var e Entry
	if err := row.Scan(&e.Fingerprint, &e.ResultPath, &e.MetadataPath, &e.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// Put inserts or replaces an entry. A corruption error triggers a repair and
// one retry; the entry is cheap to lose but should land when possible.
func (s *Store) Put(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.putLocked(entry)
	if err == nil || !isCorruption(err) {
		return err
	}

	s.logger.Warn("cache index corrupt during insert, rebuilding", zap.Error(err))
	if repairErr := s.repairLocked(); repairErr != nil {
		return repairErr
	}
	return s.putLocked(entry)
}

func (s *Store) putLocked(entry Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO entries (fingerprint, result_path, metadata_path, created_at)
		 VALUES (?, ?, ?, ?)`,
		entry.Fingerprint, entry.ResultPath, entry.MetadataPath, createdAt)
	if err != nil {
		return fmt.Errorf("cache: insert entry: %w", err)
	}
	return nil
}

// Delete removes an entry. Missing fingerprints are a no-op.
func (s *Store) Delete(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM entries WHERE fingerprint = ?`, fingerprint); err != nil {
		return fmt.Errorf("cache: delete entry: %w", err)
	}
	return nil
}

// Len returns the number of entries in the index.
func (s *Store) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache: count entries: %w", err)
	}
	return n, nil
}

// Repair discards the index and rebuilds an empty one.
// Safe to call at any time; afterwards every Get is a miss.
func (s *Store) Repair() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repairLocked()
}

func (s *Store) repairLocked() error {
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	if err := removeIndexFiles(s.path); err != nil {
		return err
	}
	db, err := openIndex(s.path)
	if err != nil {
		return err
	}
	s.db = db
	s.logger.Info("cache index rebuilt", zap.String("path", s.path))
	return nil
}

// Close releases the index. The store must not be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// removeIndexFiles deletes the index and its WAL side files.
func removeIndexFiles(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("cache: remove %s: %w", p, err)
		}
	}
	return nil
}
