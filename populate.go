package fsm

import "github.com/jeickmeier/fin-statement-model-sub001/internal/statement"

// Populate walks a StatementStructure and builds every derived item
// (calculated, subtotal, metric line items) as a node, retrying items
// whose inputs are not yet resolvable until either every item resolves or
// a full pass makes no further progress (spec.md §4.9). Base LineItems are
// assumed to already exist in the graph; Populate only registers their
// id -> node mapping.
func (g *Graph) Populate(structure statement.StatementStructure) statement.PopulateReport {
	g.mu.Lock()
	defer g.mu.Unlock()

	populator := statement.NewPopulator(g.resolver)
	next, report := populator.Populate(g.state, g.metrics, structure)
	g.state = next
	g.engine.OnStructuralChange(next)
	return report
}

// ResolveItem resolves a statement item ID to its backing node code using
// the mappings earlier Populate calls registered (e.g. a LineItem's node),
// falling back to identity when itemID itself names a node in the graph.
func (g *Graph) ResolveItem(itemID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolver.Resolve(itemID, g.state)
}
