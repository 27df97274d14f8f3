package capsule

import (
	"context"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/intent"
)

// RelatedModel is one entry in a Discover result: a model tagged with how
// it relates to the resolved pivots.
type RelatedModel struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Layer        string `json:"layer"`
	Relationship string `json:"relationship"` // "pivot", "upstream", or "downstream"
}

// Discover resolves pivots and expands the DAG neighborhood exactly as
// Build does, but returns the flat relationship-tagged list directly,
// skipping skeletonization and token budgeting. Useful for a quick survey
// of "what's around this model" without committing to a capsule shape.
func (b *Builder) Discover(ctx context.Context, req BuildRequest) ([]RelatedModel, error) {
	detectedIntent := intent.Classify(req.Task)

	pivotIDs, _, _, err := b.resolvePivots(ctx, req, detectedIntent)
	if err != nil {
		return nil, err
	}
	if len(pivotIDs) == 0 {
		return nil, nil
	}

	depth := b.Config.IntentDepths[detectedIntent]
	upstreamIDs, downstreamIDs, err := b.expandNeighborhood(ctx, pivotIDs, depth)
	if err != nil {
		return nil, err
	}

	var out []RelatedModel
	for _, id := range pivotIDs {
		m, err := b.Search.GetModelByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, RelatedModel{ID: m.ID, Name: m.Name, Layer: m.Layer, Relationship: "pivot"})
	}
	for _, id := range upstreamIDs {
		m, err := b.Search.GetModelByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, RelatedModel{ID: m.ID, Name: m.Name, Layer: m.Layer, Relationship: "upstream"})
	}
	for _, id := range downstreamIDs {
		m, err := b.Search.GetModelByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, RelatedModel{ID: m.ID, Name: m.Name, Layer: m.Layer, Relationship: "downstream"})
	}
	return out, nil
}
