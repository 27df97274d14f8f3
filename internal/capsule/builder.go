// Package capsule assembles the final, token-bounded Context Capsule: it
// resolves pivots, expands the DAG neighborhood around them, skeletonizes
// each tier, and packs everything into the caller's token budget.
package capsule

import (
	"context"
	"fmt"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/config"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/graph"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/intent"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/patterns"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/search"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/types"
)

// Builder orchestrates pivot resolution, DAG expansion, skeletonization,
// and budget packing.
type Builder struct {
	Graph    *graph.Ops
	Search   *search.HybridSearch
	Patterns *patterns.Extractor
	Config   config.CapsuleConfig
}

// New returns a Builder wired to the given index components.
func New(g *graph.Ops, s *search.HybridSearch, p *patterns.Extractor, cfg config.CapsuleConfig) *Builder {
	return &Builder{Graph: g, Search: s, Patterns: p, Config: cfg}
}

// BuildRequest describes what the caller is trying to do and any known
// starting points. Task is required; everything else narrows pivot
// resolution.
type BuildRequest struct {
	Task        string
	EntryPaths  []string
	EntryModels []string
	FocusModel  string
	TokenBudget int
}

// Build resolves pivots, expands their DAG neighborhood to the depth the
// detected intent calls for, skeletonizes each tier, and packs the result
// into TokenBudget (or the configured default if zero).
func (b *Builder) Build(ctx context.Context, req BuildRequest) (types.ContextCapsule, error) {
	detectedIntent := intent.Classify(req.Task)
	budget := req.TokenBudget
	if budget <= 0 {
		budget = b.Config.DefaultTokenBudget
	}

	pivotIDs, source, topSearchScore, err := b.resolvePivots(ctx, req, detectedIntent)
	if err != nil {
		return types.ContextCapsule{}, fmt.Errorf("resolving pivots: %w", err)
	}

	depth := b.Config.IntentDepths[detectedIntent]

	upstreamIDs, downstreamIDs, err := b.expandNeighborhood(ctx, pivotIDs, depth)
	if err != nil {
		return types.ContextCapsule{}, fmt.Errorf("expanding dag neighborhood: %w", err)
	}

	pivotModels, err := b.fetchFull(ctx, pivotIDs)
	if err != nil {
		return types.ContextCapsule{}, err
	}
	upstreamModels, err := b.fetchSkeleton(ctx, upstreamIDs)
	if err != nil {
		return types.ContextCapsule{}, err
	}
	downstreamModels, err := b.fetchMinimal(ctx, downstreamIDs)
	if err != nil {
		return types.ContextCapsule{}, err
	}

	tests, macros, err := b.collectTestsAndMacros(ctx, pivotIDs)
	if err != nil {
		return types.ContextCapsule{}, err
	}

	sources, err := b.collectSources(ctx, pivotIDs)
	if err != nil {
		return types.ContextCapsule{}, err
	}

	allKnown := make([]string, 0, len(pivotIDs)+len(upstreamIDs)+len(downstreamIDs))
	allKnown = append(allKnown, pivotIDs...)
	allKnown = append(allKnown, upstreamIDs...)
	allKnown = append(allKnown, downstreamIDs...)
	similarHits, err := b.Search.Search(ctx, req.Task, detectedIntent, allKnown, 5)
	if err != nil {
		return types.ContextCapsule{}, fmt.Errorf("searching for similar models: %w", err)
	}
	similarModels := make([]string, 0, len(similarHits))
	for _, hit := range similarHits {
		similarModels = append(similarModels, hit.Name)
	}

	var projectPatterns *types.ProjectPatterns
	if b.Patterns != nil {
		pp, err := b.Patterns.GetPatterns(ctx)
		if err == nil {
			projectPatterns = &pp
		}
	}

	capsule := assemble(req.Task, detectedIntent, budget, pivotModels, upstreamModels, downstreamModels,
		tests, macros, sources, similarModels, projectPatterns)
	capsule.Confidence, capsule.SuggestedRefinements = scoreConfidence(source, pivotModels, req.Task, topSearchScore)
	return capsule, nil
}
