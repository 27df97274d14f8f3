package capsule

import "github.com/bruno-ribeirodasilva/ariadne-dbt/internal/types"

// highScoreThreshold and lowScoreThreshold bound the top search result's
// combined re-rank score (SearchResult.Score) for confidence scoring when
// pivots were resolved purely by search. The BM25-normalized component of
// that score is not compared on its own.
const (
	highScoreThreshold = 0.5
	lowScoreThreshold  = 0.15
)

// scoreConfidence rates how much to trust the resolved pivot set. An
// explicit entry point (a path, a named model, a focus model) is high
// confidence because the caller told us exactly where to start. A
// search-resolved pivot set is high if the top hit's score clears
// highScoreThreshold, low if it falls below lowScoreThreshold, and medium
// otherwise. No pivots resolved at all is low, with refinement
// suggestions.
func scoreConfidence(source pivotSource, pivots []types.FullModelContext, task string, topSearchScore float64) (string, []string) {
	if len(pivots) == 0 {
		return "low", []string{
			"no model could be resolved for this request",
			"try naming a specific model, file path, or more distinctive search terms",
		}
	}

	switch source {
	case sourceEntryPaths, sourceEntryModels, sourceFocusModel:
		return "high", nil
	case sourceSearch:
		if topSearchScore > highScoreThreshold {
			return "high", nil
		}
		if topSearchScore < lowScoreThreshold {
			return "low", []string{
				"the best search match was a weak one",
				"try naming a specific model, file path, or more distinctive search terms",
			}
		}
		var refinements []string
		if len(pivots) == 1 {
			refinements = append(refinements, "only one model matched; consider broadening the query if this isn't the right one")
		}
		if task == "" {
			refinements = append(refinements, "provide a task description to improve search relevance")
		}
		return "medium", refinements
	default:
		return "low", []string{"no pivot resolution strategy matched this request"}
	}
}
