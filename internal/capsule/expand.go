package capsule

import (
	"context"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/config"
)

// expandNeighborhood runs upstream/downstream BFS from every pivot to the
// depths the detected intent calls for, merging per-pivot results and
// keeping the pivot/upstream/downstream sets disjoint: a node already a
// pivot is never duplicated into upstream or downstream, and a node
// reachable both upstream and downstream of different pivots is kept in
// whichever set it was discovered in first (upstream takes priority,
// matching how the original depth table is consulted).
func (b *Builder) expandNeighborhood(ctx context.Context, pivotIDs []string, depth config.IntentDepth) ([]string, []string, error) {
	pivotSet := map[string]bool{}
	for _, id := range pivotIDs {
		pivotSet[id] = true
	}

	upstreamSet := map[string]bool{}
	var upstreamOrder []string
	for _, pivot := range pivotIDs {
		nodes, err := b.Graph.Upstream(ctx, pivot, depth.Upstream)
		if err != nil {
			return nil, nil, err
		}
		for _, n := range nodes {
			if pivotSet[n.ID] || upstreamSet[n.ID] {
				continue
			}
			upstreamSet[n.ID] = true
			upstreamOrder = append(upstreamOrder, n.ID)
		}
	}

	downstreamSet := map[string]bool{}
	var downstreamOrder []string
	for _, pivot := range pivotIDs {
		nodes, err := b.Graph.Downstream(ctx, pivot, depth.Downstream)
		if err != nil {
			return nil, nil, err
		}
		for _, n := range nodes {
			if pivotSet[n.ID] || upstreamSet[n.ID] || downstreamSet[n.ID] {
				continue
			}
			downstreamSet[n.ID] = true
			downstreamOrder = append(downstreamOrder, n.ID)
		}
	}

	return upstreamOrder, downstreamOrder, nil
}
