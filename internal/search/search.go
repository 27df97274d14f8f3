// Package search implements the hybrid BM25 + centrality + layer-affinity
// ranking used to resolve a free-text query to candidate pivot models.
package search

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/types"
)

// stopwords are dropped from a query before it's turned into an FTS5
// MATCH expression.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "for": true, "in": true,
	"of": true, "on": true, "at": true, "with": true, "and": true, "or": true,
	"is": true, "it": true,
}

// intentLayerWeights gives each (intent, layer) pair a boost in [0, 0.10],
// reflecting which part of the DAG that task usually cares about most:
// debugging tends to start near the data (staging), feature work leans
// toward the marts consumers see, refactors center on intermediate
// transformation logic.
var intentLayerWeights = map[string]map[string]float64{
	"debug":       {"staging": 0.10, "intermediate": 0.05, "marts": 0.0, "other": 0.0},
	"add_feature": {"staging": 0.0, "intermediate": 0.05, "marts": 0.10, "other": 0.0},
	"refactor":    {"staging": 0.0, "intermediate": 0.10, "marts": 0.05, "other": 0.0},
	"test":        {"staging": 0.05, "intermediate": 0.05, "marts": 0.05, "other": 0.0},
	"document":    {"staging": 0.0, "intermediate": 0.0, "marts": 0.0, "other": 0.0},
	"explore":     {"staging": 0.0, "intermediate": 0.0, "marts": 0.0, "other": 0.0},
}

// HybridSearch performs FTS5 BM25 search with a LIKE fallback and a
// centrality/layer-affinity re-rank.
type HybridSearch struct {
	DB *sql.DB
}

// New returns a HybridSearch bound to db.
func New(db *sql.DB) *HybridSearch {
	return &HybridSearch{DB: db}
}

type candidate struct {
	id, name, layer, description string
	bm25, centrality             float64
}

// Search resolves query to ranked model ids, re-ranked according to
// intent. excludeIDs is omitted from results (used to keep already-chosen
// pivots out of subsequent rounds). limit bounds the number of results.
func (h *HybridSearch) Search(ctx context.Context, query, intent string, excludeIDs []string, limit int) ([]types.SearchResult, error) {
	candidates, err := h.ftsPhase(ctx, query, limit*4)
	if err != nil || len(candidates) == 0 {
		candidates, err = h.fallbackSearch(ctx, query, limit*4)
		if err != nil {
			return nil, err
		}
	}

	excluded := map[string]bool{}
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	filtered := candidates[:0]
	for _, c := range candidates {
		if !excluded[c.id] {
			filtered = append(filtered, c)
		}
	}

	results := rerank(filtered, query, intent)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ftsPhase runs the BM25 MATCH query with column weights
// name=5, description=3, columns=2, sql=1, tags=1. bm25() in SQLite is
// lower-is-better, so the score is negated to make higher mean "more
// relevant" throughout the rest of the pipeline.
func (h *HybridSearch) ftsPhase(ctx context.Context, query string, limit int) ([]candidate, error) {
	matchExpr := tokenizeQuery(query)
	if matchExpr == "" {
		return nil, nil
	}

	rows, err := h.DB.QueryContext(ctx, `
		SELECT m.id, m.name, m.layer, m.description, m.centrality,
		       -bm25(search_index, 5, 3, 2, 1, 1) AS score
		FROM search_index
		JOIN models m ON m.id = search_index.model_id
		WHERE search_index MATCH ?
		ORDER BY score DESC
		LIMIT ?
	`, matchExpr, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.name, &c.layer, &c.description, &c.centrality, &c.bm25); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// fallbackSearch runs when the FTS phase fails or returns nothing (e.g. the
// query tokenized to an empty expression), matching name/description by
// substring and ordering by centrality.
func (h *HybridSearch) fallbackSearch(ctx context.Context, query string, limit int) ([]candidate, error) {
	like := "%" + strings.ToLower(query) + "%"
	rows, err := h.DB.QueryContext(ctx, `
		SELECT id, name, layer, description, centrality
		FROM models
		WHERE LOWER(name) LIKE ? OR LOWER(description) LIKE ?
		ORDER BY centrality DESC
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.name, &c.layer, &c.description, &c.centrality); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// rerank combines normalized BM25, centrality, layer-affinity, and a
// name-match bonus. layer_boost and name_bonus below are already
// pre-scaled values (at most 0.10 and exactly 0.15 respectively), and are
// then multiplied again by their coefficients in the final sum. This
// double application is intentional, carried over unchanged from the
// original scoring behavior rather than "fixed".
func rerank(candidates []candidate, query, intent string) []types.SearchResult {
	if len(candidates) == 0 {
		return nil
	}

	minBM, maxBM := candidates[0].bm25, candidates[0].bm25
	for _, c := range candidates {
		if c.bm25 < minBM {
			minBM = c.bm25
		}
		if c.bm25 > maxBM {
			maxBM = c.bm25
		}
	}

	queryLower := strings.ToLower(query)
	layerWeights := intentLayerWeights[intent]

	results := make([]types.SearchResult, len(candidates))
	for i, c := range candidates {
		normBM := 1.0
		if maxBM != minBM {
			normBM = (c.bm25 - minBM) / (maxBM - minBM)
		}

		layerBoost := 0.0
		if layerWeights != nil {
			layerBoost = layerWeights[c.layer]
		}

		nameBonus := 0.0
		if strings.Contains(strings.ToLower(c.name), queryLower) {
			nameBonus = 0.15
		}

		score := normBM*0.55 + c.centrality*0.20 + layerBoost*0.10 + nameBonus*0.15

		results[i] = types.SearchResult{
			ID:          c.id,
			Name:        c.name,
			Layer:       c.layer,
			Description: c.description,
			Score:       score,
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// tokenizeQuery drops stopwords and single-character tokens, then joins
// what remains with " OR " to build a permissive FTS5 MATCH expression. If
// every token is filtered out, the raw query is passed through as-is
// rather than returning an empty expression.
func tokenizeQuery(query string) string {
	fields := strings.Fields(strings.ToLower(query))
	var kept []string
	for _, f := range fields {
		if len(f) <= 1 || stopwords[f] {
			continue
		}
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		return query
	}
	return strings.Join(kept, " OR ")
}
