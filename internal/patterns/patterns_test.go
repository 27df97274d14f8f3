package patterns

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/store"
)

func seedProject(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(context.Background(), filepath.Join(dir, "index.db"))
	require.NoError(t, err)

	_, err = s.DB.Exec(`INSERT INTO models (id, name, layer, materialized, tags) VALUES
		('m1', 'stg_orders__raw', 'staging', 'view', '["finance"]'),
		('m2', 'fct_orders', 'marts', 'table', '["finance"]'),
		('m3', 'dim_customers', 'marts', 'table', '["core"]')
	`)
	require.NoError(t, err)
	_, err = s.DB.Exec(`INSERT INTO tests (id, name, test_type, model_id, column_name) VALUES
		('t1', 'not_null_orders_id', 'not_null', 'm2', 'order_id'),
		('t2', 'unique_orders_id', 'unique', 'm2', 'order_id')
	`)
	require.NoError(t, err)
	return s
}

func TestGetStats(t *testing.T) {
	s := seedProject(t)
	defer s.Close()

	stats, err := New(s.DB).GetStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.ModelCount)
	require.Equal(t, 2, stats.LayerCounts["marts"])
}

func TestGetPatternsNaming(t *testing.T) {
	s := seedProject(t)
	defer s.Close()

	patterns, err := New(s.DB).GetPatterns(context.Background())
	require.NoError(t, err)
	require.Contains(t, patterns.Naming.MartsPrefixes, "fct_<entity>")
	require.Contains(t, patterns.Naming.MartsPrefixes, "dim_<entity>")
	require.Equal(t, "stg_<source>__<entity>", patterns.Naming.StagingPrefix)
	require.Contains(t, patterns.CommonTags, "finance")
}

func TestGetExampleModel(t *testing.T) {
	s := seedProject(t)
	defer s.Close()

	id, err := New(s.DB).GetExampleModel(context.Background(), "marts")
	require.NoError(t, err)
	require.Contains(t, []string{"m2", "m3"}, id)
}
