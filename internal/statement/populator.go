package statement

import (
	"github.com/rs/zerolog/log"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/graph"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/metric"
)

// ItemFailure records why a statement item could not be converted to a
// graph node.
type ItemFailure struct {
	ItemID  string
	Message string
}

// PopulateReport summarizes one Populate run.
type PopulateReport struct {
	// Succeeded counts the items whose node this run added to the graph;
	// no-op and already-present items succeed without being counted.
	Succeeded int
	Failures  []ItemFailure
}

// Populator drives the item processors over a StatementStructure with
// the retry scheduler described in spec.md §4.9.
type Populator struct {
	resolver *Resolver
}

// NewPopulator creates a Populator using resolver for ID resolution.
func NewPopulator(resolver *Resolver) *Populator {
	return &Populator{resolver: resolver}
}

// Populate walks structure, registers every LineItem's mapping
// immediately, and repeatedly attempts every derived item (calculated,
// subtotal, metric) until either none remain or a full pass makes no
// progress. It returns the resulting state (unchanged from the input
// state if nothing could be built) and a report of successes/failures.
func (p *Populator) Populate(state *graph.State, metrics *metric.Service, structure StatementStructure) (*graph.State, PopulateReport) {
	itemsByID := make(map[string]Item)
	var order []string
	for _, section := range structure.Sections {
		flattenSection(section, itemsByID, &order, p.resolver)
	}

	calcProc := &CalculatedItemProcessor{ItemsByID: itemsByID}
	subtotalProc := &SubtotalItemProcessor{ItemsByID: itemsByID}
	metricProc := &MetricItemProcessor{Metrics: metrics}

	report := PopulateReport{}
	attempts := make(map[string]int)
	queue := order

	for len(queue) > 0 {
		var next []string
		for _, id := range queue {
			var (
				newState *graph.State
				res      ProcessorResult
			)
			switch it := itemsByID[id].(type) {
			case CalculatedLineItem:
				newState, res = calcProc.Process(state, p.resolver, it)
			case SubtotalLineItem:
				newState, res = subtotalProc.Process(state, p.resolver, it)
			case MetricLineItem:
				newState, res = metricProc.Process(state, p.resolver, it)
			default:
				continue
			}

			if res.Success {
				state = newState
				if res.NodeAdded {
					report.Succeeded++
				}
				continue
			}

			if res.ErrorMessage != "" {
				report.Failures = append(report.Failures, ItemFailure{ItemID: id, Message: res.ErrorMessage})
				log.Error().Str("item_id", id).Str("error", res.ErrorMessage).Msg("statement item failed to populate")
				continue
			}

			// Missing inputs: requeue for the next pass.
			if attempts[id] > 0 {
				log.Warn().Str("item_id", id).Strs("missing_inputs", res.MissingInputs).
					Msg("statement item still missing inputs on retry")
			}
			attempts[id]++
			next = append(next, id)
		}

		if len(next) == len(queue) {
			for _, id := range next {
				report.Failures = append(report.Failures, ItemFailure{
					ItemID:  id,
					Message: "unresolved dependencies or circular reference",
				})
			}
			break
		}
		queue = next
	}

	return state, report
}

func flattenSection(s Section, itemsByID map[string]Item, order *[]string, resolver *Resolver) {
	for _, item := range s.Items {
		flattenItem(item, itemsByID, order, resolver)
	}
	if s.Subtotal != nil {
		itemsByID[s.Subtotal.ID] = *s.Subtotal
		*order = append(*order, s.Subtotal.ID)
	}
}

func flattenItem(item Item, itemsByID map[string]Item, order *[]string, resolver *Resolver) {
	switch it := item.(type) {
	case Section:
		flattenSection(it, itemsByID, order, resolver)
	case LineItem:
		itemsByID[it.ID] = it
		if _, err := resolver.RegisterLineItem(it); err != nil {
			log.Warn().Str("item_id", it.ID).Err(err).Msg("line item could not be resolved")
		}
	case CalculatedLineItem:
		itemsByID[it.ID] = it
		*order = append(*order, it.ID)
	case SubtotalLineItem:
		itemsByID[it.ID] = it
		*order = append(*order, it.ID)
	case MetricLineItem:
		itemsByID[it.ID] = it
		*order = append(*order, it.ID)
	}
}
