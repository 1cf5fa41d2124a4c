package fsm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsm "github.com/jeickmeier/fin-statement-model-sub001"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/graph"
)

// grossProfitGraph builds the E1/E2 fixture: revenue/cogs inputs and a
// gross_profit = revenue - cogs calculation.
func grossProfitGraph(t *testing.T) *fsm.Graph {
	t.Helper()
	g := fsm.NewGraph()
	require.NoError(t, g.AddPeriods("2023"))
	require.NoError(t, g.AddFinancialStatementItem("revenue", map[string]float64{"2023": 1000}))
	require.NoError(t, g.AddFinancialStatementItem("cogs", map[string]float64{"2023": 600}))
	require.NoError(t, g.AddCalculation("gross_profit", "revenue - cogs"))
	return g
}

func TestE1_GrossProfit(t *testing.T) {
	g := grossProfitGraph(t)

	v, err := g.CalculateNode(context.Background(), "gross_profit", "2023")
	require.NoError(t, err)
	assert.Equal(t, 400.0, v)

	deps := g.GetDependencies("gross_profit")
	assert.ElementsMatch(t, []string{"cogs", "revenue"}, deps)

	order := g.Nodes()
	pos := func(code string) int {
		for i, c := range order {
			if c == code {
				return i
			}
		}
		return -1
	}
	assert.Less(t, pos("revenue"), pos("gross_profit"))
	assert.Less(t, pos("cogs"), pos("gross_profit"))
}

func TestE2_MultiPeriodWithCacheAndTrace(t *testing.T) {
	g := fsm.NewGraph()
	require.NoError(t, g.AddPeriods("2023", "2024"))
	require.NoError(t, g.AddFinancialStatementItem("revenue", map[string]float64{"2023": 1000, "2024": 1200}))
	require.NoError(t, g.AddFinancialStatementItem("cogs", map[string]float64{"2023": 600, "2024": 700}))
	require.NoError(t, g.AddCalculation("gross_profit", "revenue - cogs"))

	ctx := context.Background()
	values2023, trace1, err := g.CalculateTraced(ctx, "2023", true)
	require.NoError(t, err)
	require.Len(t, trace1, 3)
	assert.Equal(t, 1000.0, values2023["revenue"])
	assert.Equal(t, 600.0, values2023["cogs"])
	assert.Equal(t, 400.0, values2023["gross_profit"])

	gp2023 := trace1[fsm.TraceKey{Code: "gross_profit", Period: "2023"}]
	assert.Equal(t, []string{"cogs", "revenue"}, gp2023.SortedDeps)
	assert.Equal(t, 400.0, gp2023.Value)
	assert.GreaterOrEqual(t, gp2023.DurationNs, int64(0))

	values2024, trace2, err := g.CalculateTraced(ctx, "2024", true)
	require.NoError(t, err)
	require.Len(t, trace2, 3)
	assert.Equal(t, 1200.0, values2024["revenue"])
	assert.Equal(t, 700.0, values2024["cogs"])
	assert.Equal(t, 500.0, values2024["gross_profit"])

	gp2024 := trace2[fsm.TraceKey{Code: "gross_profit", Period: "2024"}]
	assert.Equal(t, 500.0, gp2024.Value)
	assert.GreaterOrEqual(t, gp2024.DurationNs, int64(0))

	// second call for the same period reads through the engine's memoized
	// cache; the result must be identical.
	again, _, err := g.CalculateTraced(ctx, "2023", true)
	require.NoError(t, err)
	assert.Equal(t, values2023, again)
}

func TestE3_CycleDetection(t *testing.T) {
	g := fsm.NewGraph()
	require.NoError(t, g.AddPeriods("2023"))
	require.NoError(t, g.AddCalculation("a", "b + 1"))
	err := g.AddCalculation("b", "a + 1")
	require.Error(t, err)

	// the graph never committed the cyclic pair: only the standalone "a"
	// formula node exists, and its input "b" is dangling, which Validate
	// reports.
	problems := g.Validate()
	require.NotEmpty(t, problems)
	assert.Contains(t, problems[0], "non-existent node 'b'")
}

func TestE3_ReplaceNodeRejectsCycle(t *testing.T) {
	// a (with dangling input c) and b = a + 1 commit acyclically; then
	// ReplaceNode redefines a over b, staging the cycle in one commit
	// (AddNode alone cannot introduce a cycle since each node is added
	// one at a time against an already-acyclic state).
	g := fsm.NewGraph()
	require.NoError(t, g.AddCalculation("a", "c + 1"))
	require.NoError(t, g.AddCalculation("b", "a + 1"))
	err := g.ReplaceNode("a", "b + 1", nil)
	// a->b, b->a is a 2-cycle; Commit must reject it.
	require.Error(t, err)
	assert.True(t, fsmerrors.Is(err, fsmerrors.CodeCycle))
}

func TestE4_AdjustmentOverlayIndependentOfCalculate(t *testing.T) {
	g := fsm.NewGraph()
	require.NoError(t, g.AddPeriods("2023Q2"))
	require.NoError(t, g.AddFinancialStatementItem("revenue", map[string]float64{"2023Q2": 1100}))

	_, err := g.AddAdjustment(fsm.AdjustmentFields{
		Node:     "revenue",
		Period:   "2023Q2",
		Value:    100,
		Type:     graph.AdjustmentAdditive,
		Scale:    1,
		Tags:     []string{"forecast"},
		Scenario: "default",
	})
	require.NoError(t, err)

	ctx := context.Background()

	base, err := g.CalculateNode(ctx, "revenue", "2023Q2")
	require.NoError(t, err)
	assert.Equal(t, 1100.0, base, "Calculate never applies adjustments")

	adjusted, changed, err := g.GetAdjustedValue(ctx, "revenue", "2023Q2", graph.AdjustmentFilter{})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1200.0, adjusted)

	filtered, changed, err := g.GetAdjustedValue(ctx, "revenue", "2023Q2", graph.AdjustmentFilter{
		IncludeScenarios: []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, 1100.0, filtered)
	assert.False(t, changed)
}

func TestIntrospection_BFSAndCyclePath(t *testing.T) {
	g := grossProfitGraph(t)
	require.NoError(t, g.AddCalculation("margin", "gross_profit / revenue"))

	// margin's formula ("gross_profit / revenue") references revenue
	// directly as well as gross_profit, so both land in revenue's first
	// successor layer.
	layers, err := g.BreadthFirstSearch("revenue", "successors")
	require.NoError(t, err)
	require.Len(t, layers, 2)
	assert.Equal(t, []string{"revenue"}, layers[0])
	assert.Equal(t, []string{"gross_profit", "margin"}, layers[1])

	path, ok := g.FindCyclePath("revenue", "margin")
	require.True(t, ok)
	assert.Equal(t, []string{"revenue", "margin"}, path)

	_, ok = g.FindCyclePath("margin", "revenue")
	assert.False(t, ok)

	assert.True(t, g.WouldCreateCycle("revenue", []string{"margin"}))
	assert.False(t, g.WouldCreateCycle("ebit", []string{"gross_profit"}))
}

func TestGetCalculationNodesAndDependencyGraph(t *testing.T) {
	g := grossProfitGraph(t)

	calcNodes := g.GetCalculationNodes()
	assert.Equal(t, []string{"gross_profit"}, calcNodes)

	deps := g.GetDependencyGraph()
	assert.ElementsMatch(t, []string{"revenue", "cogs"}, deps["gross_profit"])
	assert.Empty(t, deps["revenue"])
}

func TestSetValueInvalidatesDependents(t *testing.T) {
	g := grossProfitGraph(t)
	ctx := context.Background()

	v, err := g.CalculateNode(ctx, "gross_profit", "2023")
	require.NoError(t, err)
	assert.Equal(t, 400.0, v)

	require.NoError(t, g.SetValue("revenue", "2023", 2000, true))

	v, err = g.CalculateNode(ctx, "gross_profit", "2023")
	require.NoError(t, err)
	assert.Equal(t, 1400.0, v)
}

func TestRemoveNodeAndClear(t *testing.T) {
	g := grossProfitGraph(t)
	require.NoError(t, g.RemoveNode("gross_profit"))
	assert.False(t, g.HasNode("gross_profit"))

	g.Clear()
	assert.Empty(t, g.Nodes())
	assert.Empty(t, g.Periods())
}

func TestMergeFrom(t *testing.T) {
	a := fsm.NewGraph()
	require.NoError(t, a.AddPeriods("2023"))
	require.NoError(t, a.AddFinancialStatementItem("revenue", map[string]float64{"2023": 1000}))

	b := fsm.NewGraph()
	require.NoError(t, b.AddPeriods("2023", "2024"))
	require.NoError(t, b.AddFinancialStatementItem("revenue", map[string]float64{"2023": 1500, "2024": 1600}))
	require.NoError(t, b.AddFinancialStatementItem("cogs", map[string]float64{"2024": 900}))

	a.MergeFrom(b)

	assert.True(t, a.HasNode("cogs"))
	assert.ElementsMatch(t, []string{"2023", "2024"}, a.Periods())

	v, err := a.CalculateNode(context.Background(), "revenue", "2023")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, v, "other wins on overlapping INPUT values")
}
