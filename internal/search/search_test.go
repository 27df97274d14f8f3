package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/store"
)

func seedModels(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(context.Background(), filepath.Join(dir, "index.db"))
	require.NoError(t, err)

	models := []struct {
		id, name, layer, description string
		centrality                   float64
	}{
		{"m.customers", "customers", "marts", "Customer facts table", 0.8},
		{"m.stg_customers", "stg_customers", "staging", "Staged raw customers", 0.3},
		{"m.orders", "orders", "marts", "Order facts table", 0.5},
	}
	for _, m := range models {
		_, err := s.DB.Exec(`
			INSERT INTO models (id, name, layer, description, centrality) VALUES (?, ?, ?, ?, ?)
		`, m.id, m.name, m.layer, m.description, m.centrality)
		require.NoError(t, err)
		_, err = s.DB.Exec(`
			INSERT INTO search_index (model_id, name, description, columns, sql, tags) VALUES (?, ?, ?, '', '', '')
		`, m.id, m.name, m.description)
		require.NoError(t, err)
	}
	return s
}

func TestSearchFindsCustomers(t *testing.T) {
	s := seedModels(t)
	defer s.Close()

	h := New(s.DB)
	results, err := h.Search(context.Background(), "customer", "explore", nil, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "m.customers", results[0].ID)
}

func TestSearchExcludesIDs(t *testing.T) {
	s := seedModels(t)
	defer s.Close()

	h := New(s.DB)
	results, err := h.Search(context.Background(), "customer", "explore", []string{"m.customers"}, 5)
	require.NoError(t, err)
	for _, r := range results {
		require.NotEqual(t, "m.customers", r.ID)
	}
}

func TestSearchFallbackOnEmptyFTSMatch(t *testing.T) {
	s := seedModels(t)
	defer s.Close()

	h := New(s.DB)
	results, err := h.Search(context.Background(), "zzz_no_match_token", "explore", nil, 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestTokenizeQueryDropsStopwordsAndShortTokens(t *testing.T) {
	require.Equal(t, "customer OR orders", tokenizeQuery("the customer a of orders"))
}

func TestTokenizeQueryFallsBackToRawQueryWhenAllFiltered(t *testing.T) {
	require.Equal(t, "the a of", tokenizeQuery("the a of"))
}
