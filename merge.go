package fsm

import "github.com/jeickmeier/fin-statement-model-sub001/internal/graph"

// MergeFrom unions other's periods into this Graph, inserts any node other
// has that this Graph lacks, and for nodes both share, updates overlapping
// INPUT values by union with other winning on conflicts (spec.md §4.7's
// merge_from).
func (g *Graph) MergeFrom(other *Graph) {
	otherState := other.State()

	g.mu.Lock()
	defer g.mu.Unlock()
	merged := graph.Merge(g.state, otherState)
	g.state = merged
	g.engine.OnStructuralChange(merged)
}
