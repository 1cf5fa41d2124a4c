// Package topology implements Kahn's algorithm over a plain
// code -> dependency-codes map, independent of any particular node
// representation. It is deliberately decoupled from the graph domain model
// so that both the builder (which commits new states) and any future
// caller can reuse the same sort/cycle-detection primitives without an
// import cycle.
package topology

import (
	"sort"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
)

// Sort performs Kahn's algorithm over deps (code -> its direct
// dependencies). Dependencies that are not themselves keys of deps are
// permitted here and treated as zero-indegree contributors — existence
// checking is a separate validation concern left to callers (spec.md §4.3).
//
// The returned order lists codes with all dependencies preceding their
// dependents. On a cycle, it returns a *fsmerrors.Error with
// fsmerrors.CodeCycle and a simple cycle path recovered by DFS from the
// first node left with nonzero indegree.
func Sort(deps map[string][]string) ([]string, error) {
	indegree := make(map[string]int, len(deps))
	adj := make(map[string][]string, len(deps)) // dependency -> dependents

	for code := range deps {
		if _, ok := indegree[code]; !ok {
			indegree[code] = 0
		}
	}
	for code, ins := range deps {
		for _, dep := range ins {
			if _, declared := deps[dep]; !declared {
				continue
			}
			indegree[code]++
			adj[dep] = append(adj[dep], code)
		}
	}

	// Deterministic seed ordering: sort codes so the queue order (and thus
	// ties in the resulting topological order) doesn't depend on Go's
	// randomized map iteration.
	allCodes := make([]string, 0, len(indegree))
	for code := range indegree {
		allCodes = append(allCodes, code)
	}
	sort.Strings(allCodes)

	queue := make([]string, 0, len(allCodes))
	for _, code := range allCodes {
		if indegree[code] == 0 {
			queue = append(queue, code)
		}
	}

	order := make([]string, 0, len(allCodes))
	for len(queue) > 0 {
		code := queue[0]
		queue = queue[1:]
		order = append(order, code)

		next := append([]string(nil), adj[code]...)
		sort.Strings(next)
		for _, dependent := range next {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(allCodes) {
		return nil, fsmerrors.NewCycle(findCyclePath(deps, indegree))
	}
	return order, nil
}

// findCyclePath performs a DFS from the first node with nonzero remaining
// indegree (i.e. one that Kahn's algorithm could not retire) to recover a
// simple cycle path, per spec.md §4.3.
func findCyclePath(deps map[string][]string, remainingIndegree map[string]int) []string {
	var start string
	starts := make([]string, 0)
	for code, deg := range remainingIndegree {
		if deg > 0 {
			starts = append(starts, code)
		}
	}
	sort.Strings(starts)
	if len(starts) == 0 {
		return nil
	}
	start = starts[0]

	visited := make(map[string]bool)
	stack := make([]string, 0)
	onStack := make(map[string]bool)

	var dfs func(code string) []string
	dfs = func(code string) []string {
		visited[code] = true
		onStack[code] = true
		stack = append(stack, code)

		ins := append([]string(nil), deps[code]...)
		sort.Strings(ins)
		for _, dep := range ins {
			if onStack[dep] {
				// Found the back-edge closing the cycle: slice the stack
				// from dep's position to the end.
				for i, c := range stack {
					if c == dep {
						cycle := append([]string{}, stack[i:]...)
						return append(cycle, dep)
					}
				}
			}
			if !visited[dep] {
				if found := dfs(dep); found != nil {
					return found
				}
			}
		}

		stack = stack[:len(stack)-1]
		onStack[code] = false
		return nil
	}

	for _, s := range starts {
		if visited[s] {
			continue
		}
		if path := dfs(s); path != nil {
			return path
		}
	}
	return []string{start}
}

// DetectCycles returns every simple cycle reachable in deps, or an empty
// slice if the graph is acyclic. Each cycle is expressed as codes in
// traversal order with the first code repeated at the end.
func DetectCycles(deps map[string][]string) [][]string {
	if _, err := Sort(deps); err == nil {
		return nil
	}

	// Repeatedly find and report cycles by removing one edge of each found
	// cycle until the remainder sorts cleanly. This keeps the result small
	// and deterministic for the common case of one or a few cycles.
	working := cloneDeps(deps)
	var cycles [][]string
	for {
		indegree := make(map[string]int, len(working))
		for code := range working {
			if _, ok := indegree[code]; !ok {
				indegree[code] = 0
			}
		}
		for code, ins := range working {
			indegree[code] += len(ins)
		}
		if _, err := Sort(working); err == nil {
			break
		}
		path := findCyclePath(working, indegree)
		if len(path) < 2 {
			break
		}
		cycles = append(cycles, path)
		// Remove the last edge of the cycle (path[len-2] -> path[len-1])
		// to make progress toward an acyclic remainder.
		from, to := path[len(path)-2], path[len(path)-1]
		working[from] = removeOne(working[from], to)
	}
	return cycles
}

func cloneDeps(deps map[string][]string) map[string][]string {
	out := make(map[string][]string, len(deps))
	for k, v := range deps {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func removeOne(list []string, value string) []string {
	for i, v := range list {
		if v == value {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// WouldCreateCycle reports whether inserting a speculative node `code` with
// dependencies `inputs` into the existing deps map would make the graph
// unsortable.
func WouldCreateCycle(deps map[string][]string, code string, inputs []string) bool {
	speculative := cloneDeps(deps)
	speculative[code] = append([]string(nil), inputs...)
	_, err := Sort(speculative)
	return err != nil
}
