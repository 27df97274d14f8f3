package capsule

import (
	"encoding/json"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/types"
)

// estimateTokens approximates token count as one token per four
// characters of the serialized value, floored at 1 so an empty value
// still "costs" something in the packer's accounting.
func estimateTokens(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return 1
	}
	n := len(b) / 4
	if n < 1 {
		return 1
	}
	return n
}

// bucket is a named slice of the overall token budget.
type bucket struct {
	name  string
	limit int
	used  int
}

func (bk *bucket) tryAdd(v any) bool {
	cost := estimateTokens(v)
	if bk.used+cost > bk.limit {
		return false
	}
	bk.used += cost
	return true
}

// assemble packs each tier into its share of budget: pivot 45%, upstream
// 20%, downstream 10%, tests+macros 10% split evenly, patterns 10%,
// leaving 5% for the task description itself. Each tier is filled greedily
// in the order its items were discovered, stopping the moment an item
// would exceed the bucket rather than skipping ahead to find a smaller one
// that fits. Sources and similar models are not budget-tracked, matching
// the original behavior.
func assemble(
	task string,
	detectedIntent string,
	totalBudget int,
	pivots []types.FullModelContext,
	upstream []types.SkeletonModelContext,
	downstream []types.MinimalModelContext,
	tests []types.Test,
	macros []types.Macro,
	sources []types.Source,
	similarModels []string,
	projectPatterns *types.ProjectPatterns,
) types.ContextCapsule {
	pivotBucket := &bucket{name: "pivot", limit: totalBudget * 45 / 100}
	upstreamBucket := &bucket{name: "upstream", limit: totalBudget * 20 / 100}
	downstreamBucket := &bucket{name: "downstream", limit: totalBudget * 10 / 100}
	testsMacrosHalf := totalBudget * 10 / 100 / 2
	testsBucket := &bucket{name: "tests", limit: testsMacrosHalf}
	macrosBucket := &bucket{name: "macros", limit: testsMacrosHalf}
	patternsBucket := &bucket{name: "patterns", limit: totalBudget * 10 / 100}

	var packedPivots []types.FullModelContext
	for _, p := range pivots {
		if !pivotBucket.tryAdd(p) {
			break
		}
		packedPivots = append(packedPivots, p)
	}

	var packedUpstream []types.SkeletonModelContext
	for _, u := range upstream {
		if !upstreamBucket.tryAdd(u) {
			break
		}
		packedUpstream = append(packedUpstream, u)
	}

	var packedDownstream []types.MinimalModelContext
	for _, d := range downstream {
		if !downstreamBucket.tryAdd(d) {
			break
		}
		packedDownstream = append(packedDownstream, d)
	}

	var packedTests []types.Test
	for _, t := range tests {
		if !testsBucket.tryAdd(t) {
			break
		}
		packedTests = append(packedTests, t)
	}

	var packedMacros []types.Macro
	for _, m := range macros {
		if !macrosBucket.tryAdd(m) {
			break
		}
		packedMacros = append(packedMacros, m)
	}

	var packedPatterns *types.ProjectPatterns
	if projectPatterns != nil && patternsBucket.tryAdd(*projectPatterns) {
		packedPatterns = projectPatterns
	}

	total := pivotBucket.used + upstreamBucket.used + downstreamBucket.used +
		testsBucket.used + macrosBucket.used + patternsBucket.used

	return types.ContextCapsule{
		Task:            task,
		Intent:          detectedIntent,
		TokenBudget:     totalBudget,
		TokenEstimate:   total,
		Pivot:           packedPivots,
		Upstream:        packedUpstream,
		Downstream:      packedDownstream,
		Tests:           packedTests,
		Macros:          packedMacros,
		RelevantSources: sources,
		Patterns:        packedPatterns,
		SimilarModels:   similarModels,
		SessionContext:  map[string]any{},
	}
}
