// Package graph answers dependency-neighborhood questions over the edges
// table with one query per BFS hop, never a recursive CTE and never an
// in-memory graph — the index stays the source of truth even as it grows
// past what comfortably fits in memory.
package graph

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// Node is one member of a BFS result: an id reached at a given distance
// from the starting set.
type Node struct {
	ID       string
	Distance int
}

// Ops performs graph queries against a *sql.DB.
type Ops struct {
	DB *sql.DB
}

// New returns an Ops bound to db.
func New(db *sql.DB) *Ops {
	return &Ops{DB: db}
}

// Upstream returns ancestors of id up to maxDepth hops away, ordered by
// (distance asc, id asc). maxDepth 0 returns an empty slice.
func (o *Ops) Upstream(ctx context.Context, id string, maxDepth int) ([]Node, error) {
	return o.bfs(ctx, id, maxDepth, "parent_id", "child_id")
}

// Downstream returns descendants of id up to maxDepth hops away, ordered
// by (distance asc, id asc).
func (o *Ops) Downstream(ctx context.Context, id string, maxDepth int) ([]Node, error) {
	return o.bfs(ctx, id, maxDepth, "child_id", "parent_id")
}

// Neighbors returns the immediate upstream and downstream ids of id
// (distance 1 in both directions).
func (o *Ops) Neighbors(ctx context.Context, id string) (upstream, downstream []Node, err error) {
	upstream, err = o.Upstream(ctx, id, 1)
	if err != nil {
		return nil, nil, err
	}
	downstream, err = o.Downstream(ctx, id, 1)
	if err != nil {
		return nil, nil, err
	}
	return upstream, downstream, nil
}

// bfs walks the edges table one hop at a time starting from id, selecting
// `selectCol` from edges where `fromCol` matches the current frontier.
// Each hop is a single query; distances are the minimum distance any node
// is first reached at.
func (o *Ops) bfs(ctx context.Context, id string, maxDepth int, fromCol, selectCol string) ([]Node, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	visited := map[string]int{}
	frontier := []string{id}
	visited[id] = 0

	query := fmt.Sprintf(`SELECT %s FROM edges WHERE %s = ?`, selectCol, fromCol)

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		next := map[string]bool{}
		for _, cur := range frontier {
			rows, err := o.DB.QueryContext(ctx, query, cur)
			if err != nil {
				return nil, fmt.Errorf("querying neighbors of %s at depth %d: %w", cur, depth, err)
			}
			for rows.Next() {
				var neighbor string
				if err := rows.Scan(&neighbor); err != nil {
					rows.Close()
					return nil, fmt.Errorf("scanning neighbor: %w", err)
				}
				if _, seen := visited[neighbor]; !seen {
					next[neighbor] = true
				}
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return nil, err
			}
			rows.Close()
		}

		var nextFrontier []string
		for n := range next {
			visited[n] = depth
			nextFrontier = append(nextFrontier, n)
		}
		frontier = nextFrontier
	}

	result := make([]Node, 0, len(visited)-1)
	for nodeID, dist := range visited {
		if nodeID == id {
			continue
		}
		result = append(result, Node{ID: nodeID, Distance: dist})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Distance != result[j].Distance {
			return result[i].Distance < result[j].Distance
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ImpactReport summarizes the blast radius of changing a model.
type ImpactReport struct {
	ModelID        string
	AffectedModels []Node
	HasMartAffected bool
	ExposureCount  int
	RiskLevel      string
}

// ImpactAnalysis computes the downstream blast radius of a model: how
// many models it affects, whether any of them are in the marts layer, and
// how many exposures depend on it (transitively). Risk level is high if
// any exposure is affected, or if a marts model is affected and more than
// five models total are affected; medium if more than three models are
// affected or a marts model is affected; otherwise low.
func (o *Ops) ImpactAnalysis(ctx context.Context, modelID string, maxDepth int) (ImpactReport, error) {
	affected, err := o.Downstream(ctx, modelID, maxDepth)
	if err != nil {
		return ImpactReport{}, err
	}

	report := ImpactReport{ModelID: modelID, AffectedModels: affected}
	if len(affected) == 0 {
		report.RiskLevel = "low"
		return report, nil
	}

	ids := make([]string, len(affected))
	for i, n := range affected {
		ids[i] = n.ID
	}

	hasMart, err := anyModelInLayer(ctx, o.DB, ids, "marts")
	if err != nil {
		return ImpactReport{}, err
	}
	report.HasMartAffected = hasMart

	exposureCount, err := countExposuresDependingOn(ctx, o.DB, append([]string{modelID}, ids...))
	if err != nil {
		return ImpactReport{}, err
	}
	report.ExposureCount = exposureCount

	switch {
	case exposureCount > 0 || (hasMart && len(affected) > 5):
		report.RiskLevel = "high"
	case len(affected) > 3 || hasMart:
		report.RiskLevel = "medium"
	default:
		report.RiskLevel = "low"
	}
	return report, nil
}

func anyModelInLayer(ctx context.Context, db *sql.DB, ids []string, layer string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	query, args := inClauseQuery(`SELECT 1 FROM models WHERE layer = ? AND id IN (%s) LIMIT 1`, ids)
	args = append([]any{layer}, args...)
	var one int
	err := db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func countExposuresDependingOn(ctx context.Context, db *sql.DB, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args := inClauseQuery(`
		SELECT COUNT(DISTINCT id) FROM exposures
		WHERE EXISTS (
			SELECT 1 FROM edges WHERE edges.child_id = exposures.id AND edges.parent_id IN (%s)
		)
	`, ids)
	var n int
	err := db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func inClauseQuery(template string, ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	in := ""
	for i, p := range placeholders {
		if i > 0 {
			in += ","
		}
		in += p
	}
	return fmt.Sprintf(template, in), args
}

// RecomputeCentrality sets each model's centrality to its normalized
// combined degree (upstream_count + downstream_count) against the
// project's maximum combined degree, so the most-connected model scores
// 1.0 and an isolated model scores 0.0.
func RecomputeCentrality(ctx context.Context, db *sql.DB) error {
	var maxDegree int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(upstream_count + downstream_count), 0) FROM models`).Scan(&maxDegree)
	if err != nil {
		return fmt.Errorf("computing max degree: %w", err)
	}
	if maxDegree == 0 {
		_, err := db.ExecContext(ctx, `UPDATE models SET centrality = 0`)
		return err
	}
	_, err = db.ExecContext(ctx, `
		UPDATE models SET centrality = CAST(upstream_count + downstream_count AS REAL) / ?
	`, maxDegree)
	return err
}

// HighCentralityModels returns the ids of the limit models with the
// highest centrality score, ties broken by downstream_count.
func HighCentralityModels(ctx context.Context, db *sql.DB, limit int) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id FROM models ORDER BY centrality DESC, downstream_count DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
