package capsule

import (
	"context"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/types"
)

// pivotSource records which mechanism resolved the pivot set, used by
// confidence scoring.
type pivotSource string

const (
	sourceEntryPaths  pivotSource = "entry_paths"
	sourceEntryModels pivotSource = "entry_models"
	sourceFocusModel  pivotSource = "focus_model"
	sourceSearch      pivotSource = "search"
	sourceNone        pivotSource = "none"
)

// resolvePivots applies the priority order entry_paths -> entry_models ->
// focus_model -> top search hits, stopping at the first non-empty source
// and capping the result at MaxPivots. Unresolvable entries (an unknown
// path, an unknown model name) are dropped silently rather than failing
// the whole build, and duplicates are silently deduplicated. It also
// returns the top search hit's combined re-rank score, which is 0 unless
// source is sourceSearch — it feeds the score thresholds in
// scoreConfidence.
func (b *Builder) resolvePivots(ctx context.Context, req BuildRequest, detectedIntent string) ([]string, pivotSource, float64, error) {
	maxPivots := b.Config.MaxPivots
	if maxPivots <= 0 {
		maxPivots = 3
	}

	if len(req.EntryPaths) > 0 {
		ids := b.resolveByPath(ctx, req.EntryPaths, maxPivots)
		if len(ids) > 0 {
			return ids, sourceEntryPaths, 0, nil
		}
	}

	if len(req.EntryModels) > 0 {
		ids := b.resolveByName(ctx, req.EntryModels, maxPivots)
		if len(ids) > 0 {
			return ids, sourceEntryModels, 0, nil
		}
	}

	if req.FocusModel != "" {
		ids := b.resolveByName(ctx, []string{req.FocusModel}, maxPivots)
		if len(ids) > 0 {
			return ids, sourceFocusModel, 0, nil
		}
	}

	hits, err := b.Search.Search(ctx, req.Task, detectedIntent, nil, maxPivots)
	if err != nil {
		return nil, sourceNone, 0, err
	}
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	if len(ids) == 0 {
		return nil, sourceNone, 0, nil
	}
	return ids, sourceSearch, hits[0].Score, nil
}

func (b *Builder) resolveByPath(ctx context.Context, paths []string, limit int) []string {
	seen := map[string]bool{}
	var ids []string
	for _, p := range paths {
		model, err := b.findByPath(ctx, p)
		if err != nil {
			continue // unresolvable path: drop silently
		}
		if !seen[model.ID] {
			seen[model.ID] = true
			ids = append(ids, model.ID)
		}
		if len(ids) >= limit {
			break
		}
	}
	return ids
}

func (b *Builder) resolveByName(ctx context.Context, names []string, limit int) []string {
	seen := map[string]bool{}
	var ids []string
	for _, n := range names {
		model, err := b.Search.GetModelByName(ctx, n)
		if err != nil {
			continue // unresolvable name: drop silently
		}
		if !seen[model.ID] {
			seen[model.ID] = true
			ids = append(ids, model.ID)
		}
		if len(ids) >= limit {
			break
		}
	}
	return ids
}

func (b *Builder) findByPath(ctx context.Context, path string) (types.Model, error) {
	row := b.Search.DB.QueryRowContext(ctx, `SELECT id FROM models WHERE path = ? LIMIT 1`, path)
	var id string
	if err := row.Scan(&id); err != nil {
		return types.Model{}, err
	}
	return b.Search.GetModelByID(ctx, id)
}
