package graph

import (
	"fmt"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/exprutil"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/period"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/topology"
)

// Builder stages copy-on-write mutations over a base State (or an empty
// graph) and produces a new committed State. A Builder is not safe for
// concurrent use; callers that need concurrent mutation should serialize
// access externally (spec.md §5).
type Builder struct {
	nodes       map[string]Node
	insertOrder []string
	periods     *period.Index
}

// NewBuilder creates a Builder over an empty graph.
func NewBuilder() *Builder {
	return &Builder{nodes: make(map[string]Node), periods: period.NewIndex()}
}

// FromState creates a Builder seeded with every node and period of base,
// in base's committed order.
func FromState(base *State) *Builder {
	b := NewBuilder()
	for _, code := range base.Order() {
		n, _ := base.Node(code)
		b.nodes[code] = n
		b.insertOrder = append(b.insertOrder, code)
	}
	for _, p := range base.Periods().All() {
		b.periods.Add(p)
	}
	return b
}

// AddNode adds a new node. code must not already exist. The node is a
// FORMULA node iff formula is non-empty, otherwise an INPUT node; for
// formula nodes, the set of referenced inputs is computed by parsing
// formula with the expression grammar (spec.md §4.2, §6.4).
func (b *Builder) AddNode(code, formula string, values map[string]float64) error {
	if code == "" {
		return fsmerrors.New(fsmerrors.CodeInvalidFormula, "node code must not be empty", nil)
	}
	if _, exists := b.nodes[code]; exists {
		return fsmerrors.New(fsmerrors.CodeDuplicateValue,
			fmt.Sprintf("node %q already exists", code), nil)
	}

	var node Node
	if formula != "" {
		inputs, err := exprutil.Identifiers(formula)
		if err != nil {
			return err
		}
		node = NewFormulaNode(code, KindFormula, formula, inputs)
	} else {
		node = NewInputNode(code, values)
	}

	b.nodes[code] = node
	b.insertOrder = append(b.insertOrder, code)
	return nil
}

// AddAggregateNode is AddNode specialized to KindAggregate, used by
// callers (e.g. the statement populator's subtotal processor)
// that want the distinction surfaced in introspection without changing
// evaluation semantics.
func (b *Builder) AddAggregateNode(code, formula string) error {
	if code == "" {
		return fsmerrors.New(fsmerrors.CodeInvalidFormula, "node code must not be empty", nil)
	}
	if _, exists := b.nodes[code]; exists {
		return fsmerrors.New(fsmerrors.CodeDuplicateValue,
			fmt.Sprintf("node %q already exists", code), nil)
	}
	inputs, err := exprutil.Identifiers(formula)
	if err != nil {
		return err
	}
	b.nodes[code] = NewFormulaNode(code, KindAggregate, formula, inputs)
	b.insertOrder = append(b.insertOrder, code)
	return nil
}

// RemoveNode removes code. Fails with CodeNotFound if absent.
func (b *Builder) RemoveNode(code string) error {
	if _, exists := b.nodes[code]; !exists {
		return fsmerrors.New(fsmerrors.CodeNotFound, fmt.Sprintf("node %q not found", code), nil)
	}
	delete(b.nodes, code)
	for i, c := range b.insertOrder {
		if c == code {
			b.insertOrder = append(b.insertOrder[:i], b.insertOrder[i+1:]...)
			break
		}
	}
	return nil
}

// SetNodeValue sets the value of an INPUT node at periodKey. Fails with
// CodeTypeMismatch if code is not an INPUT node, CodeNotFound if code is
// absent, and CodeDuplicateValue if replace is false and a value already
// exists for that period.
func (b *Builder) SetNodeValue(code, periodKey string, value float64, replace bool) error {
	node, exists := b.nodes[code]
	if !exists {
		return fsmerrors.New(fsmerrors.CodeNotFound, fmt.Sprintf("node %q not found", code), nil)
	}
	if node.Kind() != KindInput {
		return fsmerrors.New(fsmerrors.CodeTypeMismatch,
			fmt.Sprintf("node %q is not an INPUT node", code), nil)
	}
	if !replace {
		if _, exists := node.Value(periodKey); exists {
			return fsmerrors.New(fsmerrors.CodeDuplicateValue,
				fmt.Sprintf("node %q already has a value for period %q", code, periodKey), nil)
		}
	}
	b.nodes[code] = node.withValue(periodKey, value)
	return nil
}

// ReplaceNode atomically removes and re-adds code with a new
// formula/values, preserving its position in insertion order. Fails with
// CodeNotFound if code is absent.
func (b *Builder) ReplaceNode(code, formula string, values map[string]float64) error {
	if _, exists := b.nodes[code]; !exists {
		return fsmerrors.New(fsmerrors.CodeNotFound, fmt.Sprintf("node %q not found", code), nil)
	}

	var node Node
	if formula != "" {
		inputs, err := exprutil.Identifiers(formula)
		if err != nil {
			return err
		}
		node = NewFormulaNode(code, KindFormula, formula, inputs)
	} else {
		node = NewInputNode(code, values)
	}
	b.nodes[code] = node
	return nil
}

// AddPeriods parses and adds each period string to the builder's period
// index. Fails fast with the first CodeInvalidPeriod encountered.
func (b *Builder) AddPeriods(periods ...string) error {
	for _, p := range periods {
		if err := b.periods.AddString(p); err != nil {
			return err
		}
	}
	return nil
}

// AddPeriod adds an already-parsed period.Period.
func (b *Builder) AddPeriod(p period.Period) {
	b.periods.Add(p)
}

// Has reports whether code names a staged node.
func (b *Builder) Has(code string) bool {
	_, ok := b.nodes[code]
	return ok
}

// Node returns the staged node for code, if any.
func (b *Builder) Node(code string) (Node, bool) {
	n, ok := b.nodes[code]
	return n, ok
}

// Commit runs Kahn's topological sort over the staged nodes and produces an
// immutable State. Fails with CodeCycle if the nodes cannot be sorted.
func (b *Builder) Commit() (*State, error) {
	order, err := b.sortedOrder()
	if err != nil {
		return nil, err
	}
	return newState(b.nodes, b.periods.Freeze(), order), nil
}

// commitUnsorted commits the staged nodes preserving insertion order,
// without running the topological sort or failing on a cycle. This is the
// cycle-tolerant escape hatch described in spec.md §4.2/§9, reserved for
// internal interop paths (graph.Merge) — it is intentionally unexported so
// it cannot be reached through the public Builder API.
func (b *Builder) commitUnsorted() *State {
	order := make([]string, len(b.insertOrder))
	copy(order, b.insertOrder)
	return newState(b.nodes, b.periods.Freeze(), order)
}

func (b *Builder) sortedOrder() ([]string, error) {
	deps := make(map[string][]string, len(b.nodes))
	for code, n := range b.nodes {
		deps[code] = n.Inputs()
	}
	return topology.Sort(deps)
}
