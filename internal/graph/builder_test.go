package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
)

func TestBuilder_AddNodeAndCommit(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode("revenue", "", map[string]float64{"2023": 100}))
	require.NoError(t, b.AddNode("cogs", "", map[string]float64{"2023": 40}))
	require.NoError(t, b.AddNode("gross_profit", "revenue - cogs", nil))
	require.NoError(t, b.AddPeriods("2023"))

	state, err := b.Commit()
	require.NoError(t, err)

	order := state.Order()
	pos := make(map[string]int, len(order))
	for i, c := range order {
		pos[c] = i
	}
	assert.Less(t, pos["revenue"], pos["gross_profit"])
	assert.Less(t, pos["cogs"], pos["gross_profit"])

	n, ok := state.Node("gross_profit")
	require.True(t, ok)
	assert.Equal(t, KindFormula, n.Kind())
	assert.ElementsMatch(t, []string{"revenue", "cogs"}, n.Inputs())
}

func TestBuilder_AddNode_DuplicateCode(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode("revenue", "", nil))
	err := b.AddNode("revenue", "", nil)
	require.Error(t, err)
	assert.True(t, fsmerrors.Is(err, fsmerrors.CodeDuplicateValue))
}

func TestBuilder_SetNodeValue_NoReplaceConflict(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode("revenue", "", nil))
	require.NoError(t, b.SetNodeValue("revenue", "2023", 100, false))

	err := b.SetNodeValue("revenue", "2023", 200, false)
	require.Error(t, err)
	assert.True(t, fsmerrors.Is(err, fsmerrors.CodeDuplicateValue))

	require.NoError(t, b.SetNodeValue("revenue", "2023", 200, true))
	n, _ := b.Node("revenue")
	v, ok := n.Value("2023")
	require.True(t, ok)
	assert.Equal(t, 200.0, v)
}

func TestBuilder_SetNodeValue_NotInput(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode("revenue", "", nil))
	require.NoError(t, b.AddNode("double_revenue", "revenue * 2", nil))

	err := b.SetNodeValue("double_revenue", "2023", 1, false)
	require.Error(t, err)
	assert.True(t, fsmerrors.Is(err, fsmerrors.CodeTypeMismatch))
}

func TestBuilder_RemoveNode_NotFound(t *testing.T) {
	b := NewBuilder()
	err := b.RemoveNode("missing")
	require.Error(t, err)
	assert.True(t, fsmerrors.Is(err, fsmerrors.CodeNotFound))
}

func TestBuilder_ReplaceNode(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode("gross_profit", "revenue - cogs", nil))
	require.NoError(t, b.ReplaceNode("gross_profit", "revenue + cogs", nil))

	n, ok := b.Node("gross_profit")
	require.True(t, ok)
	formula, _ := n.Formula()
	assert.Equal(t, "revenue + cogs", formula)
}

func TestBuilder_Commit_Cycle(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode("a", "b", nil))
	require.NoError(t, b.AddNode("b", "a", nil))

	_, err := b.Commit()
	require.Error(t, err)
	assert.True(t, fsmerrors.Is(err, fsmerrors.CodeCycle))
}

func TestFromState_RoundTrip(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode("revenue", "", map[string]float64{"2023": 100}))
	require.NoError(t, b.AddPeriods("2023"))
	state, err := b.Commit()
	require.NoError(t, err)

	b2 := FromState(state)
	require.True(t, b2.Has("revenue"))
	require.NoError(t, b2.AddNode("cogs", "", map[string]float64{"2023": 40}))

	state2, err := b2.Commit()
	require.NoError(t, err)
	assert.True(t, state2.Has("revenue"))
	assert.True(t, state2.Has("cogs"))
	assert.Equal(t, 1, state.Periods().Len())
}
