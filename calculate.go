package fsm

import (
	"context"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/calc"
)

// TraceKey identifies one evaluated (code, period) cell within a traced
// calculation (spec.md §4.4).
type TraceKey = calc.TraceKey

// TraceEntry is the per-cell record spec.md §4.4's auxiliary trace map
// carries: the node and period evaluated, its sorted direct dependencies,
// how long evaluating it took, and the value it produced.
type TraceEntry = calc.TraceEntry

// Trace is the auxiliary (code, period) -> TraceEntry map produced when a
// calculation opts into tracing. nil when tracing was not requested.
type Trace = map[TraceKey]TraceEntry

// Calculate returns every node's value at periodKey, keyed by code,
// evaluating nodes in the engine's committed topological order.
func (g *Graph) Calculate(ctx context.Context, periodKey string) (map[string]float64, error) {
	values, _, err := g.CalculateTraced(ctx, periodKey, false)
	return values, err
}

// CalculateTraced is Calculate with an optional per-(code, period) Trace
// (spec.md §4.4, §4.7's "trace flag"): when withTrace is true, every cell
// evaluated while computing periodKey is recorded with its sorted direct
// dependencies, evaluation duration, and value.
func (g *Graph) CalculateTraced(ctx context.Context, periodKey string, withTrace bool) (map[string]float64, Trace, error) {
	g.mu.Lock()
	engine := g.engine
	g.mu.Unlock()

	if !withTrace {
		values, err := engine.CalculateAll(ctx, periodKey)
		return values, nil, err
	}
	return engine.CalculateAllTraced(ctx, periodKey)
}

// CalculateNode returns a single node's value at periodKey.
func (g *Graph) CalculateNode(ctx context.Context, code, periodKey string) (float64, error) {
	v, _, err := g.CalculateNodeTraced(ctx, code, periodKey, false)
	return v, err
}

// CalculateNodeTraced is CalculateNode with an optional per-(code, period)
// Trace, covering code and every dependency touched to evaluate it.
func (g *Graph) CalculateNodeTraced(ctx context.Context, code, periodKey string, withTrace bool) (float64, Trace, error) {
	g.mu.Lock()
	engine := g.engine
	g.mu.Unlock()

	if !withTrace {
		v, err := engine.Calculate(ctx, code, periodKey)
		return v, nil, err
	}
	return engine.CalculateTraced(ctx, code, periodKey)
}
