package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	var name string
	err = s.DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='models'").Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "models", name)

	err = s.DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='search_index'").Scan(&name)
	require.NoError(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	s1, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s2.Close()
}

func TestLockIngestionExcludesSecondLocker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	release, err := LockIngestion(path)
	require.NoError(t, err)

	_, err = LockIngestion(path)
	require.Error(t, err)

	require.NoError(t, release())
}
