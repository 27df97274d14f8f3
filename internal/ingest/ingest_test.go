package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/store"
)

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func testManifest() map[string]any {
	return map[string]any{
		"nodes": map[string]any{
			"model.jaffle_shop.stg_customers": map[string]any{
				"resource_type": "model",
				"name":          "stg_customers",
				"package_name":  "jaffle_shop",
				"fqn":           []string{"jaffle_shop", "staging", "stg_customers"},
				"columns": map[string]any{
					"customer_id": map[string]any{"name": "customer_id", "data_type": "integer"},
				},
				"depends_on": map[string]any{"nodes": []string{}},
			},
			"model.jaffle_shop.customers": map[string]any{
				"resource_type": "model",
				"name":          "customers",
				"package_name":  "jaffle_shop",
				"fqn":           []string{"jaffle_shop", "marts", "customers"},
				"depends_on":    map[string]any{"nodes": []string{"model.jaffle_shop.stg_customers"}},
			},
			"test.jaffle_shop.not_null_customers_customer_id": map[string]any{
				"resource_type": "test",
				"name":          "not_null_customers_customer_id",
				"column_name":   "customer_id",
				"test_metadata": map[string]any{"name": "not_null"},
				"depends_on":    map[string]any{"nodes": []string{"model.jaffle_shop.customers"}},
			},
		},
		"sources":   map[string]any{},
		"macros":    map[string]any{},
		"exposures": map[string]any{},
	}
}

func TestIndexManifestBasic(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeJSON(t, dir, "manifest.json", testManifest())

	s, err := store.Open(context.Background(), filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer s.Close()

	ig := New(s.DB, nil)
	require.NoError(t, ig.IndexManifest(context.Background(), manifestPath))

	var modelCount int
	require.NoError(t, s.DB.QueryRow("SELECT COUNT(*) FROM models").Scan(&modelCount))
	require.Equal(t, 2, modelCount)

	var layer string
	require.NoError(t, s.DB.QueryRow(
		"SELECT layer FROM models WHERE name = 'customers'").Scan(&layer))
	require.Equal(t, "marts", layer)

	var downstream int
	require.NoError(t, s.DB.QueryRow(
		"SELECT downstream_count FROM models WHERE name = 'stg_customers'").Scan(&downstream))
	require.Equal(t, 1, downstream)

	var testType string
	require.NoError(t, s.DB.QueryRow(
		"SELECT test_type FROM tests WHERE name = 'not_null_customers_customer_id'").Scan(&testType))
	require.Equal(t, "not_null", testType)
}

func TestIndexManifestMissingFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(context.Background(), filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer s.Close()

	ig := New(s.DB, nil)
	err = ig.IndexManifest(context.Background(), filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestIndexCatalogMissingIsOptional(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(context.Background(), filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer s.Close()

	ig := New(s.DB, nil)
	err = ig.IndexCatalog(context.Background(), filepath.Join(dir, "catalog.json"))
	require.Error(t, err)
}

func TestReingestionIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeJSON(t, dir, "manifest.json", testManifest())

	s, err := store.Open(context.Background(), filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer s.Close()

	ig := New(s.DB, nil)
	require.NoError(t, ig.IndexManifest(context.Background(), manifestPath))
	require.NoError(t, ig.IndexManifest(context.Background(), manifestPath))

	var modelCount, edgeCount, ftsCount int
	require.NoError(t, s.DB.QueryRow("SELECT COUNT(*) FROM models").Scan(&modelCount))
	require.NoError(t, s.DB.QueryRow("SELECT COUNT(*) FROM edges").Scan(&edgeCount))
	require.NoError(t, s.DB.QueryRow("SELECT COUNT(*) FROM search_index").Scan(&ftsCount))
	require.Equal(t, 2, modelCount)
	require.Equal(t, 1, edgeCount)
	require.Equal(t, modelCount, ftsCount)
}
