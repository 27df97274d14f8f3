package capsule

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/config"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/graph"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/patterns"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/search"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/store"
)

func seedCapsuleFixture(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(context.Background(), filepath.Join(dir, "index.db"))
	require.NoError(t, err)

	_, err = s.DB.Exec(`INSERT INTO models (id, name, layer, path, centrality) VALUES
		('m.stg_customers', 'stg_customers', 'staging', 'models/staging/stg_customers.sql', 0.2),
		('m.customers', 'customers', 'marts', 'models/marts/customers.sql', 0.6),
		('m.customer_orders', 'customer_orders', 'marts', 'models/marts/customer_orders.sql', 0.4)
	`)
	require.NoError(t, err)
	_, err = s.DB.Exec(`INSERT INTO edges (parent_id, child_id) VALUES
		('m.stg_customers', 'm.customers'),
		('m.customers', 'm.customer_orders')
	`)
	require.NoError(t, err)
	_, err = s.DB.Exec(`INSERT INTO columns (model_id, name, data_type) VALUES
		('m.customers', 'customer_id', 'integer'),
		('m.customers', 'name', 'varchar')
	`)
	require.NoError(t, err)
	_, err = s.DB.Exec(`INSERT INTO search_index (model_id, name, description, columns, sql, tags) VALUES
		('m.customers', 'customers', 'Customer dimension', 'customer_id name', '', '')
	`)
	require.NoError(t, err)
	return s
}

func newTestBuilder(t *testing.T, s *store.Store) *Builder {
	cfg := config.CapsuleConfig{
		DefaultTokenBudget: 10_000,
		MaxPivots:          3,
		IntentDepths:       config.DefaultIntentDepths(),
	}
	return New(graph.New(s.DB), search.New(s.DB), patterns.New(s.DB), cfg)
}

func TestBuildWithFocusModelIsHighConfidence(t *testing.T) {
	s := seedCapsuleFixture(t)
	defer s.Close()

	b := newTestBuilder(t, s)
	capsule, err := b.Build(context.Background(), BuildRequest{
		Task:       "debug the customers model",
		FocusModel: "customers",
	})
	require.NoError(t, err)
	require.Equal(t, "high", capsule.Confidence)
	require.Len(t, capsule.Pivot, 1)
	require.Equal(t, "customers", capsule.Pivot[0].Name)
	require.NotEmpty(t, capsule.Upstream) // stg_customers, within debug's upstream=2
}

func TestBuildPivotUpstreamDownstreamDisjoint(t *testing.T) {
	s := seedCapsuleFixture(t)
	defer s.Close()

	b := newTestBuilder(t, s)
	capsule, err := b.Build(context.Background(), BuildRequest{
		Task:       "refactor customers",
		FocusModel: "customers",
	})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, p := range capsule.Pivot {
		require.False(t, seen[p.ID])
		seen[p.ID] = true
	}
	for _, u := range capsule.Upstream {
		require.False(t, seen[u.ID])
		seen[u.ID] = true
	}
	for _, d := range capsule.Downstream {
		require.False(t, seen[d.ID])
		seen[d.ID] = true
	}
}

func TestBuildTokenEstimateWithinBudget(t *testing.T) {
	s := seedCapsuleFixture(t)
	defer s.Close()

	b := newTestBuilder(t, s)
	capsule, err := b.Build(context.Background(), BuildRequest{
		Task:        "document customers",
		FocusModel:  "customers",
		TokenBudget: 500,
	})
	require.NoError(t, err)
	require.LessOrEqual(t, float64(capsule.TokenEstimate), float64(capsule.TokenBudget)*1.2)
}

func TestBuildNoPivotIsLowConfidence(t *testing.T) {
	s := seedCapsuleFixture(t)
	defer s.Close()

	b := newTestBuilder(t, s)
	capsule, err := b.Build(context.Background(), BuildRequest{Task: "zzz_absolutely_no_match"})
	require.NoError(t, err)
	require.Equal(t, "low", capsule.Confidence)
	require.Empty(t, capsule.Pivot)
}

func TestBuildPopulatesAuxiliaryFields(t *testing.T) {
	s := seedCapsuleFixture(t)
	defer s.Close()

	_, err := s.DB.Exec(`INSERT INTO sources (id, source_name, name) VALUES ('source.raw.customers', 'raw', 'customers')`)
	require.NoError(t, err)
	_, err = s.DB.Exec(`INSERT INTO edges (parent_id, child_id) VALUES ('source.raw.customers', 'm.customers')`)
	require.NoError(t, err)

	b := newTestBuilder(t, s)
	capsule, err := b.Build(context.Background(), BuildRequest{
		Task:       "debug the customers model",
		FocusModel: "customers",
	})
	require.NoError(t, err)

	require.Equal(t, "debug the customers model", capsule.Task)
	require.NotNil(t, capsule.SessionContext)
	require.Len(t, capsule.RelevantSources, 1)
	require.Equal(t, "customers", capsule.RelevantSources[0].Name)
	require.Len(t, capsule.Pivot, 1)
	require.Equal(t, "models/marts/customers.sql", capsule.Pivot[0].FilePath)
	require.Contains(t, capsule.Pivot[0].DependsOn, "stg_customers")
}

func TestDiscoverReturnsRelationshipTags(t *testing.T) {
	s := seedCapsuleFixture(t)
	defer s.Close()

	b := newTestBuilder(t, s)
	related, err := b.Discover(context.Background(), BuildRequest{
		Task:       "explore customers",
		FocusModel: "customers",
	})
	require.NoError(t, err)

	var hasPivot bool
	for _, r := range related {
		if r.Relationship == "pivot" {
			hasPivot = true
		}
	}
	require.True(t, hasPivot)
}
