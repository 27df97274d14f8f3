package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/store"
)

// seedChain builds A -> B -> C -> D plus the branch B -> E and returns the store.
func seedChain(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(context.Background(), filepath.Join(dir, "index.db"))
	require.NoError(t, err)

	for _, id := range []string{"A", "B", "C", "D", "E"} {
		_, err := s.DB.Exec(`INSERT INTO models (id, name, layer) VALUES (?, ?, 'marts')`, id, id)
		require.NoError(t, err)
	}
	edges := [][2]string{{"A", "B"}, {"B", "C"}, {"C", "D"}, {"B", "E"}}
	for _, e := range edges {
		_, err := s.DB.Exec(`INSERT INTO edges (parent_id, child_id) VALUES (?, ?)`, e[0], e[1])
		require.NoError(t, err)
	}
	return s
}

func TestDownstreamBFSOrdering(t *testing.T) {
	s := seedChain(t)
	defer s.Close()
	ops := New(s.DB)

	nodes, err := ops.Downstream(context.Background(), "A", 3)
	require.NoError(t, err)
	require.Len(t, nodes, 4)
	require.Equal(t, "B", nodes[0].ID)
	require.Equal(t, 1, nodes[0].Distance)
	require.Equal(t, 3, nodes[3].Distance)
}

func TestUpstreamFromLeaf(t *testing.T) {
	s := seedChain(t)
	defer s.Close()
	ops := New(s.DB)

	nodes, err := ops.Upstream(context.Background(), "D", 10)
	require.NoError(t, err)
	ids := map[string]int{}
	for _, n := range nodes {
		ids[n.ID] = n.Distance
	}
	require.Equal(t, 1, ids["C"])
	require.Equal(t, 2, ids["B"])
	require.Equal(t, 3, ids["A"])
}

func TestDepthZeroReturnsEmpty(t *testing.T) {
	s := seedChain(t)
	defer s.Close()
	ops := New(s.DB)

	nodes, err := ops.Downstream(context.Background(), "A", 0)
	require.NoError(t, err)
	require.Empty(t, nodes)
}

func TestImpactAnalysisRiskLevels(t *testing.T) {
	s := seedChain(t)
	defer s.Close()
	ops := New(s.DB)

	report, err := ops.ImpactAnalysis(context.Background(), "A", 3)
	require.NoError(t, err)
	require.Equal(t, "medium", report.RiskLevel) // 4 affected, marts layer
}
