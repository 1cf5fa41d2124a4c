// Package fsm is the orchestration shell spec.md §4.7 calls the Graph
// facade: it holds a committed graph.State, a calc.Engine, and the
// adjustment/metric services, and exposes the structural, calculation,
// adjustment, and introspection operations an embedding application uses.
// Every structural mutation stages a Builder, commits a new State, and
// invalidates the engine cache per §4.4 — the same "stage, commit, swap"
// shape as the teacher's top-level package re-exporting its internal
// domain through a thin public surface.
package fsm

import (
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/adjustment"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/calc"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/graph"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/metric"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/registry"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/statement"
)

// Graph is the top-level facade over one calculation model (spec.md §4.7).
// A Graph is safe for single-threaded cooperative use; concurrent callers
// must serialize structural mutations externally (spec.md §5).
type Graph struct {
	mu sync.Mutex

	state  *graph.State
	engine *calc.Engine

	adjustments   *adjustment.Service
	metrics       *metric.Service
	standardNodes *registry.StandardNodeRegistry
	resolver      *statement.Resolver

	tracer trace.Tracer
}

// Option configures a Graph at construction time.
type Option func(*Graph)

// WithStandardNodeRegistry wires a StandardNodeRegistry for resolving
// LineItem.StandardNodeRef during Populate and for standard-name lookups.
func WithStandardNodeRegistry(reg *registry.StandardNodeRegistry) Option {
	return func(g *Graph) {
		g.standardNodes = reg
		g.resolver = statement.NewResolver(reg)
	}
}

// WithMetricRegistry wires a MetricRegistry for AddMetric/Populate.
func WithMetricRegistry(reg *registry.MetricRegistry) Option {
	return func(g *Graph) { g.metrics = metric.NewService(reg) }
}

// WithStrictAdjustments selects the adjustment service's domain-guard
// policy (spec.md §4.5, §7): strict mode raises AdjustmentError on a
// domain violation instead of silently returning the base value.
func WithStrictAdjustments(strict bool) Option {
	return func(g *Graph) { g.adjustments = adjustment.NewService(strict) }
}

// WithTracer overrides the calculation engine's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(g *Graph) { g.tracer = t }
}

// NewGraph creates an empty Graph.
func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		state:         mustEmptyState(),
		adjustments:   adjustment.NewService(false),
		metrics:       metric.NewService(registry.NewMetricRegistry()),
		standardNodes: registry.NewStandardNodeRegistry(),
		tracer:        noop.NewTracerProvider().Tracer("fsm"),
	}
	g.resolver = statement.NewResolver(g.standardNodes)
	for _, opt := range opts {
		opt(g)
	}
	g.engine = calc.NewEngine(g.state, calc.WithTracer(g.tracer))
	return g
}

func mustEmptyState() *graph.State {
	state, err := graph.NewBuilder().Commit()
	if err != nil {
		// An empty builder can never fail to sort: there is nothing to
		// reach a cycle with.
		panic(err)
	}
	return state
}

// State returns the current committed snapshot, for callers that need to
// compose it directly with internal/calc or internal/statement.
func (g *Graph) State() *graph.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// commit swaps in a freshly-built state and invalidates the engine's value
// cache. Must be called with g.mu held.
func (g *Graph) commit(next *graph.State, err error) error {
	if err != nil {
		return err
	}
	g.state = next
	g.engine.OnStructuralChange(next)
	return nil
}

// builder stages a Builder seeded from the current state. Must be called
// with g.mu held.
func (g *Graph) builder() *graph.Builder {
	return graph.FromState(g.state)
}

// Clear resets the Graph to an empty graph, with no periods, nodes, or
// adjustments.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = mustEmptyState()
	g.engine.OnStructuralChange(g.state)
	g.adjustments.Clear()
	g.resolver = statement.NewResolver(g.standardNodes)
}
