package fsm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/graph"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/topology"
)

// Periods returns every registered period key, in the committed frozen
// index's order.
func (g *Graph) Periods() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	all := g.state.Periods().All()
	out := make([]string, len(all))
	for i, p := range all {
		out[i] = p.String()
	}
	return out
}

// Nodes returns every node code, in committed topological order.
func (g *Graph) Nodes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Order()
}

// GetNode returns the node for code and whether it exists.
func (g *Graph) GetNode(code string) (graph.Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Node(code)
}

// HasNode reports whether code names a node.
func (g *Graph) HasNode(code string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Has(code)
}

// GetCalculationNodes returns every FORMULA/AGGREGATE node's code, in
// topological order.
func (g *Graph) GetCalculationNodes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []string
	for _, code := range g.state.Order() {
		n, _ := g.state.Node(code)
		if n.Kind() != graph.KindInput {
			out = append(out, code)
		}
	}
	return out
}

// depsMap must be called with g.mu held.
func (g *Graph) depsMap() map[string][]string {
	deps := make(map[string][]string, len(g.state.Order()))
	for _, code := range g.state.Order() {
		n, _ := g.state.Node(code)
		deps[code] = n.Inputs()
	}
	return deps
}

// GetDependencyGraph returns the full code -> direct-dependency-codes map.
func (g *Graph) GetDependencyGraph() map[string][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.depsMap()
}

// TopologicalSort returns the committed evaluation order.
func (g *Graph) TopologicalSort() []string {
	return g.Nodes()
}

// DetectCycles returns every simple cycle currently reachable in the
// graph, or nil if it is acyclic.
func (g *Graph) DetectCycles() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return topology.DetectCycles(g.depsMap())
}

// GetDependencies returns code's direct dependencies (sorted).
func (g *Graph) GetDependencies(code string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.state.Node(code)
	if !ok {
		return nil
	}
	return n.Inputs()
}

// GetDirectPredecessors is an alias for GetDependencies (spec.md §4.7).
func (g *Graph) GetDirectPredecessors(code string) []string {
	return g.GetDependencies(code)
}

// GetDirectSuccessors returns the codes of every node that directly
// depends on code, sorted.
func (g *Graph) GetDirectSuccessors(code string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []string
	for _, c := range g.state.Order() {
		n, _ := g.state.Node(c)
		if n.HasInput(code) {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// BreadthFirstSearch walks the dependency graph from start in the given
// direction ("successors" or "predecessors") and returns the visited
// codes grouped by distance from start (layer 0 is start itself).
func (g *Graph) BreadthFirstSearch(start, direction string) ([][]string, error) {
	if direction != "successors" && direction != "predecessors" {
		return nil, fmt.Errorf("fsm: unknown breadth_first_search direction %q", direction)
	}

	neighbors := g.GetDependencies
	if direction == "successors" {
		neighbors = g.GetDirectSuccessors
	}

	visited := map[string]bool{start: true}
	layers := [][]string{{start}}
	frontier := []string{start}
	for len(frontier) > 0 {
		var next []string
		for _, code := range frontier {
			for _, n := range neighbors(code) {
				if !visited[n] {
					visited[n] = true
					next = append(next, n)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		sort.Strings(next)
		layers = append(layers, next)
		frontier = next
	}
	return layers, nil
}

// WouldCreateCycle reports whether a speculative node named code with the
// given dependencies would make the graph unsortable.
func (g *Graph) WouldCreateCycle(code string, inputs []string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return topology.WouldCreateCycle(g.depsMap(), code, inputs)
}

// FindCyclePath searches for a directed dependency path from start to end
// (via GetDirectSuccessors edges) and returns it if found.
func (g *Graph) FindCyclePath(start, end string) ([]string, bool) {
	visited := map[string]bool{start: true}
	type frame struct {
		code string
		path []string
	}
	queue := []frame{{code: start, path: []string{start}}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.code == end {
			return cur.path, true
		}
		for _, next := range g.GetDirectSuccessors(cur.code) {
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, frame{code: next, path: append(append([]string(nil), cur.path...), next)})
		}
	}
	return nil, false
}

// Validate returns human-readable descriptions of every structural defect
// in the graph: a dangling dependency reference, or a circular dependency
// path (spec.md §7's exact message formats).
func (g *Graph) Validate() []string {
	g.mu.Lock()
	deps := g.depsMap()
	nodes := g.state.Nodes()
	g.mu.Unlock()

	var problems []string
	codes := make([]string, 0, len(deps))
	for code := range deps {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		for _, dep := range deps[code] {
			if _, ok := nodes[dep]; !ok {
				problems = append(problems, fmt.Sprintf("Node '%s' depends on non-existent node '%s'", code, dep))
			}
		}
	}

	for _, cycle := range topology.DetectCycles(deps) {
		problems = append(problems, fmt.Sprintf("Circular dependency: %s", strings.Join(cycle, " -> ")))
	}
	return problems
}
