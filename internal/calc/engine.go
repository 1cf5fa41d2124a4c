// Package calc implements the calculation engine: per-instance compiled
// program and value caches layered over a committed graph.State, with
// OpenTelemetry tracing hooks. It returns only base (unadjusted) values —
// overlaying adjustments is the facade's job, composing Engine.Calculate
// with internal/adjustment.Service so "calculate" and "get_adjusted_value"
// stay independently queryable (spec.md §4.7, scenario E4). The caching
// and locking shape is grounded on the teacher's ConditionEvaluator
// (internal/application/executor/conditions.go): an RWMutex-guarded
// compiled-program cache plus a separate result cache, cleared on demand.
package calc

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/expr-lang/expr/vm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/exprutil"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/graph"
)

type valueCacheKey struct {
	code   string
	period string
}

// TraceKey identifies one evaluated (code, period) cell within a traced
// calculation (spec.md §4.4).
type TraceKey struct {
	Code   string
	Period string
}

// TraceEntry is the per-cell record spec.md §4.4's auxiliary trace map
// carries: the node and period evaluated, its sorted direct dependencies,
// how long evaluating it took, and the value it produced.
type TraceEntry struct {
	Node       string
	Period     string
	SortedDeps []string
	DurationNs int64
	Value      float64
}

// Engine evaluates nodes of a graph.State, memoizing both compiled formula
// programs (by formula text, surviving structural changes) and calculated
// values (by code+period, invalidated per the OnStructuralChange/
// OnValueChange/SetValueDownstreamPure contracts below).
type Engine struct {
	mu sync.RWMutex

	state      *graph.State
	astCache   map[string]*vm.Program
	valueCache map[valueCacheKey]float64
	tracer     trace.Tracer
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithTracer overrides the engine's tracer. Defaults to a no-op tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// NewEngine creates an Engine over state.
func NewEngine(state *graph.State, opts ...Option) *Engine {
	e := &Engine{
		state:      state,
		astCache:   make(map[string]*vm.Program),
		valueCache: make(map[valueCacheKey]float64),
		tracer:     noop.NewTracerProvider().Tracer("calc"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnStructuralChange swaps in a new committed state and clears the value
// cache in full. The AST cache is left intact: compiled programs are keyed
// by formula text, which a structural change does not invalidate.
func (e *Engine) OnStructuralChange(state *graph.State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
	e.valueCache = make(map[valueCacheKey]float64)
}

// OnValueChange invalidates cached values after an INPUT node's value
// changes. The conservative default clears the entire value cache: without
// a reverse-dependency index at this layer, any formula node could
// transitively depend on code. Callers who know their graph has no
// adjustment-driven cross-node coupling can use SetValueDownstreamPure
// instead for a precise invalidation.
func (e *Engine) OnValueChange(code string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.valueCache = make(map[valueCacheKey]float64)
}

// SetValueDownstreamPure invalidates only the cached values for code and
// its transitive dependents, computed from the current state's node
// inputs. This is an opt-in precision improvement over OnValueChange: it
// is "pure" in the sense that it assumes a node's calculated value depends
// only on its declared formula inputs, never on side information outside
// the graph (e.g. an adjustment keyed by something other than the node's
// own code).
func (e *Engine) SetValueDownstreamPure(code string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	affected := e.downstreamClosure(code)
	for k := range e.valueCache {
		if _, ok := affected[k.code]; ok {
			delete(e.valueCache, k)
		}
	}
}

// downstreamClosure must be called with e.mu held.
func (e *Engine) downstreamClosure(code string) map[string]struct{} {
	dependents := make(map[string][]string)
	for _, c := range e.state.Order() {
		n, _ := e.state.Node(c)
		for _, in := range n.Inputs() {
			dependents[in] = append(dependents[in], c)
		}
	}

	visited := map[string]struct{}{code: {}}
	queue := []string{code}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range dependents[cur] {
			if _, seen := visited[d]; !seen {
				visited[d] = struct{}{}
				queue = append(queue, d)
			}
		}
	}
	return visited
}

// Calculate returns the value of code at periodKey, computing and
// memoizing any uncached dependency along the way.
func (e *Engine) Calculate(ctx context.Context, code, periodKey string) (float64, error) {
	v, _, err := e.calculateTop(ctx, code, periodKey, nil)
	return v, err
}

// CalculateTraced is Calculate plus spec.md §4.4's auxiliary per-(code,
// period) trace: every cell visited while computing code gets an entry
// recording its sorted direct dependencies, evaluation duration, and
// value.
func (e *Engine) CalculateTraced(ctx context.Context, code, periodKey string) (float64, map[TraceKey]TraceEntry, error) {
	tr := make(map[TraceKey]TraceEntry)
	v, _, err := e.calculateTop(ctx, code, periodKey, tr)
	return v, tr, err
}

func (e *Engine) calculateTop(ctx context.Context, code, periodKey string, tr map[TraceKey]TraceEntry) (float64, map[TraceKey]TraceEntry, error) {
	ctx, span := e.tracer.Start(ctx, "calc.Calculate",
		trace.WithAttributes(attribute.String("code", code), attribute.String("period", periodKey)))
	defer span.End()

	e.mu.RLock()
	state := e.state
	e.mu.RUnlock()
	if state == nil {
		return 0, tr, fsmerrors.New(fsmerrors.CodeNotFound, "engine has no committed state", nil)
	}

	v, err := e.calculate(ctx, state, code, periodKey, make(map[string]struct{}), tr)
	if err != nil {
		span.RecordError(err)
	}
	return v, tr, err
}

// CalculateAll evaluates every node in the state's topological order for
// periodKey and returns the resulting code -> value map.
func (e *Engine) CalculateAll(ctx context.Context, periodKey string) (map[string]float64, error) {
	out, _, err := e.calculateAllTop(ctx, periodKey, nil)
	return out, err
}

// CalculateAllTraced is CalculateAll plus the same per-(code, period)
// trace map CalculateTraced produces, covering every node evaluated.
func (e *Engine) CalculateAllTraced(ctx context.Context, periodKey string) (map[string]float64, map[TraceKey]TraceEntry, error) {
	return e.calculateAllTop(ctx, periodKey, make(map[TraceKey]TraceEntry))
}

func (e *Engine) calculateAllTop(ctx context.Context, periodKey string, tr map[TraceKey]TraceEntry) (map[string]float64, map[TraceKey]TraceEntry, error) {
	e.mu.RLock()
	state := e.state
	e.mu.RUnlock()
	if state == nil {
		return nil, tr, fsmerrors.New(fsmerrors.CodeNotFound, "engine has no committed state", nil)
	}

	out := make(map[string]float64, len(state.Order()))
	for _, code := range state.Order() {
		v, _, err := e.calculateTop(ctx, code, periodKey, tr)
		if err != nil {
			return nil, tr, err
		}
		out[code] = v
	}
	return out, tr, nil
}

func (e *Engine) calculate(ctx context.Context, state *graph.State, code, periodKey string, visiting map[string]struct{}, tr map[TraceKey]TraceEntry) (float64, error) {
	var start time.Time
	if tr != nil {
		start = time.Now()
	}

	key := valueCacheKey{code: code, period: periodKey}

	e.mu.RLock()
	if v, ok := e.valueCache[key]; ok {
		e.mu.RUnlock()
		if tr != nil {
			e.recordTrace(tr, state, code, periodKey, v, start)
		}
		return v, nil
	}
	e.mu.RUnlock()

	if _, cycling := visiting[code]; cycling {
		return 0, fsmerrors.NewCycle([]string{code})
	}
	visiting[code] = struct{}{}
	defer delete(visiting, code)

	node, ok := state.Node(code)
	if !ok {
		return 0, fsmerrors.New(fsmerrors.CodeNotFound, fmt.Sprintf("node %q not found", code), nil)
	}

	var raw float64
	var err error
	if node.Kind() == graph.KindInput {
		v, has := node.Value(periodKey)
		if !has {
			return 0, fsmerrors.New(fsmerrors.CodeMissingInput,
				fmt.Sprintf("node %q has no value for period %q", code, periodKey), nil)
		}
		raw = v
	} else {
		raw, err = e.calculateFormula(ctx, state, node, periodKey, visiting, tr)
		if err != nil {
			return 0, err
		}
	}

	e.mu.Lock()
	e.valueCache[key] = raw
	e.mu.Unlock()

	if tr != nil {
		e.recordTrace(tr, state, code, periodKey, raw, start)
	}

	return raw, nil
}

// recordTrace fills in tr's entry for (code, periodKey). Called after the
// node's value is known, whether freshly computed or read from cache.
func (e *Engine) recordTrace(tr map[TraceKey]TraceEntry, state *graph.State, code, periodKey string, value float64, start time.Time) {
	node, _ := state.Node(code)
	deps := append([]string(nil), node.Inputs()...)
	sort.Strings(deps)

	tr[TraceKey{Code: code, Period: periodKey}] = TraceEntry{
		Node:       code,
		Period:     periodKey,
		SortedDeps: deps,
		DurationNs: time.Since(start).Nanoseconds(),
		Value:      value,
	}
}

func (e *Engine) calculateFormula(ctx context.Context, state *graph.State, node graph.Node, periodKey string, visiting map[string]struct{}, tr map[TraceKey]TraceEntry) (float64, error) {
	formula, _ := node.Formula()

	program, err := e.compiledProgram(formula)
	if err != nil {
		return 0, err
	}

	env := make(map[string]float64, len(node.Inputs()))
	for _, in := range node.Inputs() {
		v, err := e.calculate(ctx, state, in, periodKey, visiting, tr)
		if err != nil {
			return 0, err
		}
		env[in] = v
	}

	result, err := exprutil.Eval(program, env)
	if err != nil {
		return 0, err
	}
	if !exprutil.IsFiniteFloat(result) {
		return 0, fsmerrors.New(fsmerrors.CodeEvalError,
			fmt.Sprintf("formula %q produced a non-finite result", formula), nil)
	}
	return result, nil
}

func (e *Engine) compiledProgram(formula string) (*vm.Program, error) {
	e.mu.RLock()
	if p, ok := e.astCache[formula]; ok {
		e.mu.RUnlock()
		return p, nil
	}
	e.mu.RUnlock()

	p, err := exprutil.Compile(formula)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.astCache[formula] = p
	e.mu.Unlock()
	return p, nil
}
