// Package intent classifies a free-text task description into one of six
// fixed categories, which in turn drive how far the capsule builder
// expands the DAG around its pivots.
package intent

import "strings"

// Intent labels, in the order ties are broken (first-defined wins).
const (
	Debug      = "debug"
	AddFeature = "add_feature"
	Refactor   = "refactor"
	Test       = "test"
	Document   = "document"
	Explore    = "explore"
)

// orderedIntents fixes iteration order for deterministic tie-breaking:
// on a scoring tie, the earliest-listed intent wins.
var orderedIntents = []string{Debug, AddFeature, Refactor, Test, Document, Explore}

var keywords = map[string][]string{
	Debug:      {"debug", "fix", "error", "fail", "broken", "wrong", "incorrect", "issue", "bug", "problem", "test failing"},
	AddFeature: {"add", "create", "new", "build", "implement", "feature", "metric", "measure", "calculate"},
	Refactor:   {"refactor", "restructure", "reorganize", "rename", "move", "split", "merge", "optimize", "performance"},
	Test:       {"test", "coverage", "validate", "assert", "check", "verify"},
	Document:   {"document", "describe", "description", "docs", "comment", "explain"},
	Explore:    {"explore", "understand", "find", "search", "show", "list", "what", "how", "which"},
}

// Classify scores task against each intent's keyword list by counting
// substring matches, and returns the highest-scoring intent. Ties are
// broken by orderedIntents's order. A task with zero matches across every
// intent classifies as Explore.
func Classify(task string) string {
	lower := strings.ToLower(task)

	best := Explore
	bestScore := 0
	for _, name := range orderedIntents {
		score := 0
		for _, kw := range keywords[name] {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = name
		}
	}
	return best
}
