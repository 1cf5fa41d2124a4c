package statement

import (
	"fmt"
	"strings"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/exprutil"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/graph"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/metric"
)

// ProcessorResult is the outcome of attempting to convert one derived
// statement item into a graph node (spec.md §4.9).
type ProcessorResult struct {
	Success       bool
	NodeAdded     bool
	ErrorMessage  string
	MissingInputs []string
}

// ok builds a successful result, nodeAdded indicating whether a new node
// was actually committed (false on the idempotent already-exists path).
func ok(nodeAdded bool) ProcessorResult {
	return ProcessorResult{Success: true, NodeAdded: nodeAdded}
}

func failMissing(missing []string) ProcessorResult {
	return ProcessorResult{Success: false, MissingInputs: missing}
}

func failHard(format string, args ...any) ProcessorResult {
	return ProcessorResult{Success: false, ErrorMessage: fmt.Sprintf(format, args...)}
}

// signedCode is the pseudo-node name representing -code (spec.md §4.9).
func signedCode(code string) string {
	return code + "_signed"
}

// ensureSignedNode makes sure a FORMULA node computing -code exists in
// the builder, adding it if missing. Returns the signed node's code.
func ensureSignedNode(b *graph.Builder, code string) (string, error) {
	sc := signedCode(code)
	if b.Has(sc) {
		return sc, nil
	}
	if err := b.AddNode(sc, "-1 * "+code, nil); err != nil {
		return "", err
	}
	return sc, nil
}

// resolveInputs resolves every id in ids against resolver (falling back
// to identity against state for items not yet processed this run), and
// returns missing IDs instead of erroring so the populator can requeue.
func resolveInputs(resolver *Resolver, state *graph.State, ids []string) (resolved []string, missing []string) {
	for _, id := range ids {
		code, ok := resolver.Resolve(id, state)
		if !ok {
			missing = append(missing, id)
			continue
		}
		resolved = append(resolved, code)
	}
	return resolved, missing
}

// signConventionOf reports the sign convention of the statement item
// backing resolvedCode, defaulting to +1 when unknown (e.g. the item was
// resolved purely by graph presence, with no statement-level metadata).
func signConventionOf(itemsByID map[string]Item, resolver *Resolver, code string) int {
	id, ok := resolver.CodeToItemID(code)
	if !ok {
		return 1
	}
	switch it := itemsByID[id].(type) {
	case LineItem:
		return sign(it.SignConvention)
	case CalculatedLineItem:
		return sign(it.SignConvention)
	case SubtotalLineItem:
		return sign(it.SignConvention)
	case MetricLineItem:
		return sign(it.SignConvention)
	default:
		return 1
	}
}

func sign(v int) int {
	if v == 0 {
		return 1
	}
	return v
}

// MetricItemProcessor instantiates MetricLineItems via the metric
// service (spec.md §4.9).
type MetricItemProcessor struct {
	Metrics *metric.Service
}

// Process attempts to build item's node. On success it returns the
// updated state; on missing inputs or a hard error, state is unchanged.
func (p *MetricItemProcessor) Process(state *graph.State, resolver *Resolver, item MetricLineItem) (*graph.State, ProcessorResult) {
	code, _ := resolver.Resolve(item.ID, state)
	if code != "" && state.Has(code) {
		return state, ok(false)
	}

	def, err := p.Metrics.Registry().GetMetricDefinition(item.MetricID)
	if err != nil {
		return state, failHard("metric %q: %v", item.MetricID, err)
	}

	required := make(map[string]struct{}, len(def.Inputs))
	for _, in := range def.Inputs {
		required[in] = struct{}{}
	}
	if len(item.Inputs) != len(required) {
		return state, failHard("metric item %q: input mapping has %d entries, metric %q requires %d",
			item.ID, len(item.Inputs), item.MetricID, len(required))
	}
	for placeholder := range item.Inputs {
		if _, want := required[placeholder]; !want {
			return state, failHard("metric item %q: unexpected input placeholder %q for metric %q", item.ID, placeholder, item.MetricID)
		}
	}

	inputNodeMap := make(map[string]string, len(item.Inputs))
	var missing []string
	for placeholder, inputItemID := range item.Inputs {
		code, resolved := resolver.Resolve(inputItemID, state)
		if !resolved {
			missing = append(missing, inputItemID)
			continue
		}
		inputNodeMap[placeholder] = code
	}
	if len(missing) > 0 {
		return state, failMissing(missing)
	}

	next, err := p.Metrics.AddMetric(state, item.MetricID, item.ID, inputNodeMap)
	if err != nil {
		return state, failHard("metric item %q: %v", item.ID, err)
	}
	resolver.RegisterIdentity(item.ID)
	return next, ok(true)
}

// CalculatedItemProcessor turns a CalculatedLineItem into a FORMULA node
// (spec.md §4.9).
type CalculatedItemProcessor struct {
	ItemsByID map[string]Item
}

// Process attempts to build item's node.
func (p *CalculatedItemProcessor) Process(state *graph.State, resolver *Resolver, item CalculatedLineItem) (*graph.State, ProcessorResult) {
	if state.Has(item.ID) {
		resolver.RegisterIdentity(item.ID)
		return state, ok(false)
	}

	resolvedInputs, missing := resolveInputs(resolver, state, item.InputIDs)
	if len(missing) > 0 {
		return state, failMissing(missing)
	}

	b := graph.FromState(state)
	operands := make([]string, len(resolvedInputs))
	for i, code := range resolvedInputs {
		operand := code
		if signConventionOf(p.ItemsByID, resolver, code) == -1 {
			sc, err := ensureSignedNode(b, code)
			if err != nil {
				return state, failHard("calculated item %q: %v", item.ID, err)
			}
			operand = sc
		}
		operands[i] = operand
	}

	formula, err := formulaFor(item, operands)
	if err != nil {
		return state, failHard("calculated item %q: %v", item.ID, err)
	}

	if err := b.AddNode(item.ID, formula, nil); err != nil {
		return state, failHard("calculated item %q: %v", item.ID, err)
	}
	next, err := b.Commit()
	if err != nil {
		return state, failHard("calculated item %q: %v", item.ID, err)
	}
	resolver.RegisterIdentity(item.ID)
	return next, ok(true)
}

// formulaFor builds the formula text for a CalculatedLineItem given its
// already-resolved (and sign-adjusted) operand node codes.
func formulaFor(item CalculatedLineItem, operands []string) (string, error) {
	switch item.CalculationType {
	case CalcAddition:
		return strings.Join(operands, " + "), nil
	case CalcSubtraction:
		return strings.Join(operands, " - "), nil
	case CalcMultiplication:
		return strings.Join(operands, " * "), nil
	case CalcDivision:
		return strings.Join(operands, " / "), nil
	case CalcFormula:
		formula := item.Formula
		for i, code := range operands {
			formula = strings.ReplaceAll(formula, fmt.Sprintf("input_%d", i), code)
		}
		if _, err := exprutil.Identifiers(formula); err != nil {
			return "", err
		}
		return formula, nil
	default:
		return "", fsmerrors.New(fsmerrors.CodeInvalidFormula,
			fmt.Sprintf("unknown calculation_type %q", item.CalculationType), nil)
	}
}

// SubtotalItemProcessor sums resolved inputs into an AGGREGATE node
// (spec.md §4.9). An empty ItemIDs is a no-op success.
type SubtotalItemProcessor struct {
	ItemsByID map[string]Item
}

// Process attempts to build item's node.
func (p *SubtotalItemProcessor) Process(state *graph.State, resolver *Resolver, item SubtotalLineItem) (*graph.State, ProcessorResult) {
	if len(item.ItemIDs) == 0 {
		resolver.RegisterIdentity(item.ID)
		return state, ok(false)
	}
	if state.Has(item.ID) {
		resolver.RegisterIdentity(item.ID)
		return state, ok(false)
	}

	resolvedInputs, missing := resolveInputs(resolver, state, item.ItemIDs)
	if len(missing) > 0 {
		return state, failMissing(missing)
	}

	b := graph.FromState(state)
	operands := make([]string, len(resolvedInputs))
	for i, code := range resolvedInputs {
		operand := code
		if signConventionOf(p.ItemsByID, resolver, code) == -1 {
			sc, err := ensureSignedNode(b, code)
			if err != nil {
				return state, failHard("subtotal item %q: %v", item.ID, err)
			}
			operand = sc
		}
		operands[i] = operand
	}

	if err := b.AddAggregateNode(item.ID, strings.Join(operands, " + ")); err != nil {
		return state, failHard("subtotal item %q: %v", item.ID, err)
	}
	next, err := b.Commit()
	if err != nil {
		return state, failHard("subtotal item %q: %v", item.ID, err)
	}
	resolver.RegisterIdentity(item.ID)
	return next, ok(true)
}
