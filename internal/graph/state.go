package graph

import (
	"github.com/jeickmeier/fin-statement-model-sub001/internal/period"
)

// State is the immutable snapshot produced by Builder.Commit: a node map,
// a frozen period index, and a topological order over the nodes. Only the
// Builder produces a State; it is safe to share across goroutines without
// synchronization (spec.md §3, §5).
type State struct {
	nodes   map[string]Node
	periods *period.Frozen
	order   []string
}

// newState is the package-private constructor used by Builder.Commit.
func newState(nodes map[string]Node, periods *period.Frozen, order []string) *State {
	nodesCopy := make(map[string]Node, len(nodes))
	for k, v := range nodes {
		nodesCopy[k] = v
	}
	orderCopy := make([]string, len(order))
	copy(orderCopy, order)
	return &State{nodes: nodesCopy, periods: periods, order: orderCopy}
}

// Node returns the node for code and whether it exists.
func (s *State) Node(code string) (Node, bool) {
	n, ok := s.nodes[code]
	return n, ok
}

// Nodes returns every node in the state, unordered.
func (s *State) Nodes() map[string]Node {
	out := make(map[string]Node, len(s.nodes))
	for k, v := range s.nodes {
		out[k] = v
	}
	return out
}

// Has reports whether code names a node in the state.
func (s *State) Has(code string) bool {
	_, ok := s.nodes[code]
	return ok
}

// Order returns the committed topological order: dependencies precede
// their dependents.
func (s *State) Order() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Periods returns the state's frozen period index.
func (s *State) Periods() *period.Frozen {
	return s.periods
}
