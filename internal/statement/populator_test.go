package statement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/calc"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/graph"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/metric"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/registry"
)

func baseState(t *testing.T) *graph.State {
	t.Helper()
	b := graph.NewBuilder()
	require.NoError(t, b.AddNode("revenue", "", map[string]float64{"2023": 1000}))
	require.NoError(t, b.AddNode("cogs", "", map[string]float64{"2023": 600}))
	state, err := b.Commit()
	require.NoError(t, err)
	return state
}

func TestPopulate_GrossProfitSubtotalAndMetric(t *testing.T) {
	state := baseState(t)

	reg := registry.NewMetricRegistry()
	reg.Register("gross_margin", registry.MetricDefinition{
		Inputs:          []string{"profit", "rev"},
		FormulaTemplate: "{profit} / {rev}",
	})
	metrics := metric.NewService(reg)

	resolver := NewResolver(nil)
	structure := StatementStructure{
		ID:   "income_statement",
		Name: "Income Statement",
		Sections: []Section{
			{
				ID:   "is",
				Name: "Income Statement",
				Items: []Item{
					LineItem{ID: "li_revenue", NodeID: "revenue", SignConvention: 1},
					LineItem{ID: "li_cogs", NodeID: "cogs", SignConvention: -1},
					SubtotalLineItem{ID: "gross_profit", ItemIDs: []string{"li_revenue", "li_cogs"}},
					MetricLineItem{
						ID:       "gross_margin_pct",
						MetricID: "gross_margin",
						Inputs:   map[string]string{"profit": "gross_profit", "rev": "li_revenue"},
					},
				},
			},
		},
	}

	p := NewPopulator(resolver)
	next, report := p.Populate(state, metrics, structure)

	require.Empty(t, report.Failures)
	assert.Equal(t, 2, report.Succeeded)
	assert.True(t, next.Has("gross_profit"))
	assert.True(t, next.Has("gross_margin_pct"))
	assert.True(t, next.Has("cogs_signed"))

	e := calc.NewEngine(next)
	v, err := e.Calculate(context.Background(), "gross_profit", "2023")
	require.NoError(t, err)
	assert.Equal(t, 400.0, v)

	margin, err := e.Calculate(context.Background(), "gross_margin_pct", "2023")
	require.NoError(t, err)
	assert.Equal(t, 0.4, margin)
}

func TestPopulate_UnresolvedDependencyRecordedAsFailure(t *testing.T) {
	state := baseState(t)
	resolver := NewResolver(nil)
	metrics := metric.NewService(registry.NewMetricRegistry())

	structure := StatementStructure{
		Sections: []Section{
			{
				ID: "is",
				Items: []Item{
					SubtotalLineItem{ID: "total", ItemIDs: []string{"does_not_exist"}},
				},
			},
		},
	}

	p := NewPopulator(resolver)
	next, report := p.Populate(state, metrics, structure)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "total", report.Failures[0].ItemID)
	assert.Contains(t, report.Failures[0].Message, "unresolved dependencies or circular reference")
	assert.False(t, next.Has("total"))
}

func TestPopulate_OutOfOrderItemsResolveViaRetry(t *testing.T) {
	state := baseState(t)
	resolver := NewResolver(nil)
	metrics := metric.NewService(registry.NewMetricRegistry())

	// "b" is declared before "a" exists, forcing at least one retry pass.
	structure := StatementStructure{
		Sections: []Section{
			{
				ID: "is",
				Items: []Item{
					SubtotalLineItem{ID: "b", ItemIDs: []string{"a"}},
					SubtotalLineItem{ID: "a", ItemIDs: []string{"li_revenue"}},
					LineItem{ID: "li_revenue", NodeID: "revenue"},
				},
			},
		},
	}

	p := NewPopulator(resolver)
	next, report := p.Populate(state, metrics, structure)

	require.Empty(t, report.Failures)
	assert.Equal(t, 2, report.Succeeded)
	assert.True(t, next.Has("a"))
	assert.True(t, next.Has("b"))
}

func TestPopulate_EmptySubtotalIsNoOpSuccess(t *testing.T) {
	state := baseState(t)
	resolver := NewResolver(nil)
	metrics := metric.NewService(registry.NewMetricRegistry())

	structure := StatementStructure{
		Sections: []Section{
			{ID: "is", Items: []Item{SubtotalLineItem{ID: "empty_total", ItemIDs: nil}}},
		},
	}

	p := NewPopulator(resolver)
	next, report := p.Populate(state, metrics, structure)
	require.Empty(t, report.Failures)
	assert.Equal(t, 0, report.Succeeded)
	assert.False(t, next.Has("empty_total"))
}

func TestPopulate_CalculatedFormulaWithSignedInput(t *testing.T) {
	state := baseState(t)
	resolver := NewResolver(nil)
	metrics := metric.NewService(registry.NewMetricRegistry())

	structure := StatementStructure{
		Sections: []Section{
			{
				ID: "is",
				Items: []Item{
					LineItem{ID: "li_revenue", NodeID: "revenue", SignConvention: 1},
					LineItem{ID: "li_cogs", NodeID: "cogs", SignConvention: -1},
					CalculatedLineItem{
						ID:              "net_of_cogs",
						CalculationType: CalcFormula,
						InputIDs:        []string{"li_revenue", "li_cogs"},
						Formula:         "input_0 + input_1",
					},
				},
			},
		},
	}

	p := NewPopulator(resolver)
	next, report := p.Populate(state, metrics, structure)
	require.Empty(t, report.Failures)
	assert.Equal(t, 1, report.Succeeded)
	assert.True(t, next.Has("cogs_signed"))

	e := calc.NewEngine(next)
	v, err := e.Calculate(context.Background(), "net_of_cogs", "2023")
	require.NoError(t, err)
	assert.Equal(t, 400.0, v)
}

func TestPopulate_IdempotentOnExistingNode(t *testing.T) {
	b := graph.NewBuilder()
	require.NoError(t, b.AddNode("revenue", "", map[string]float64{"2023": 1000}))
	require.NoError(t, b.AddAggregateNode("total", "revenue"))
	state, err := b.Commit()
	require.NoError(t, err)

	resolver := NewResolver(nil)
	metrics := metric.NewService(registry.NewMetricRegistry())
	structure := StatementStructure{
		Sections: []Section{
			{ID: "is", Items: []Item{SubtotalLineItem{ID: "total", ItemIDs: []string{"revenue"}}}},
		},
	}

	p := NewPopulator(resolver)
	_, report := p.Populate(state, metrics, structure)
	require.Empty(t, report.Failures)
	assert.Equal(t, 0, report.Succeeded)
}
