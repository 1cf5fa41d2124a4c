package fsm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsm "github.com/jeickmeier/fin-statement-model-sub001"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/statement"
)

// TestE7_PopulatorWithSignConvention reproduces spec.md §8's E7 scenario
// through the Graph facade: a negative-sign-convention cogs line item
// gets a "_signed" helper node, and the calculated gross_profit item
// evaluates as an addition of revenue and the signed cogs.
func TestE7_PopulatorWithSignConvention(t *testing.T) {
	g := fsm.NewGraph()
	require.NoError(t, g.AddPeriods("2023"))
	require.NoError(t, g.AddFinancialStatementItem("revenue_node", map[string]float64{"2023": 1000}))
	require.NoError(t, g.AddFinancialStatementItem("cogs_node", map[string]float64{"2023": 600}))

	structure := statement.StatementStructure{
		ID:   "income_statement",
		Name: "Income Statement",
		Sections: []statement.Section{
			{
				ID:   "revenue_section",
				Name: "Revenue",
				Items: []statement.Item{
					statement.LineItem{ID: "revenue", Name: "Revenue", SignConvention: 1, NodeID: "revenue_node"},
					statement.LineItem{ID: "cogs", Name: "COGS", SignConvention: -1, NodeID: "cogs_node"},
					statement.CalculatedLineItem{
						ID:              "gross_profit",
						Name:            "Gross profit",
						CalculationType: statement.CalcAddition,
						InputIDs:        []string{"revenue", "cogs"},
					},
				},
			},
		},
	}

	report := g.Populate(structure)
	require.Empty(t, report.Failures)
	assert.True(t, g.HasNode("cogs_node_signed"))

	node, ok := g.GetNode("gross_profit")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"revenue_node", "cogs_node_signed"}, node.Inputs())

	v, err := g.CalculateNode(context.Background(), "gross_profit", "2023")
	require.NoError(t, err)
	assert.Equal(t, 400.0, v)
}

func TestPopulate_IdempotentSecondRun(t *testing.T) {
	g := fsm.NewGraph()
	require.NoError(t, g.AddPeriods("2023"))
	require.NoError(t, g.AddFinancialStatementItem("revenue_node", map[string]float64{"2023": 1000}))
	require.NoError(t, g.AddFinancialStatementItem("cogs_node", map[string]float64{"2023": 600}))

	structure := statement.StatementStructure{
		ID:   "income_statement",
		Name: "Income Statement",
		Sections: []statement.Section{
			{
				ID:   "revenue_section",
				Name: "Revenue",
				Items: []statement.Item{
					statement.LineItem{ID: "revenue", Name: "Revenue", SignConvention: 1, NodeID: "revenue_node"},
					statement.LineItem{ID: "cogs", Name: "COGS", SignConvention: -1, NodeID: "cogs_node"},
					statement.CalculatedLineItem{
						ID:              "gross_profit",
						Name:            "Gross profit",
						CalculationType: statement.CalcAddition,
						InputIDs:        []string{"revenue", "cogs"},
					},
				},
			},
		},
	}

	first := g.Populate(structure)
	require.Empty(t, first.Failures)
	nodesAfterFirst := g.Nodes()

	second := g.Populate(structure)
	require.Empty(t, second.Failures)
	assert.ElementsMatch(t, nodesAfterFirst, g.Nodes(), "no duplicate nodes on a second Populate run")
}

func TestResolveItem(t *testing.T) {
	g := fsm.NewGraph()
	require.NoError(t, g.AddFinancialStatementItem("revenue_node", map[string]float64{"2023": 1000}))

	structure := statement.StatementStructure{
		ID: "balance_sheet",
		Sections: []statement.Section{
			{
				ID:    "section",
				Items: []statement.Item{statement.LineItem{ID: "revenue", SignConvention: 1, NodeID: "revenue_node"}},
			},
		},
	}
	report := g.Populate(structure)
	require.Empty(t, report.Failures)

	code, ok := g.ResolveItem("revenue")
	require.True(t, ok)
	assert.Equal(t, "revenue_node", code)
}
