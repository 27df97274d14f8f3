// Package store manages the SQLite-backed index: connection setup,
// schema, and migrations. It is the only package that opens the database
// file directly; every other package receives a *sql.DB.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofrs/flock"
)

// Store wraps the index database handle and its file path. The ingestion
// write lock is taken separately through LockIngestion.
type Store struct {
	DB   *sql.DB
	path string
}

// Open creates the index directory if needed, opens the database with WAL
// and foreign-key pragmas, and runs migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", path, err)
	}
	db.SetMaxOpenConns(8)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating index: %w", err)
	}

	return &Store{DB: db, path: path}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Path returns the filesystem path of the index database.
func (s *Store) Path() string {
	return s.path
}

// LockIngestion acquires an advisory file lock for the duration of an
// ingestion pass, so two `ariadne index` invocations against the same
// project never interleave writes. Callers must call the returned
// release function exactly once.
func LockIngestion(indexPath string) (release func() error, err error) {
	lockPath := indexPath + ".lock"
	lock := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquiring ingestion lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another ingestion is already in progress for %s", indexPath)
	}
	return lock.Unlock, nil
}
