package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildState(t *testing.T, setup func(b *Builder)) *State {
	t.Helper()
	b := NewBuilder()
	setup(b)
	s, err := b.Commit()
	require.NoError(t, err)
	return s
}

func TestMerge_AddsNewNodesAndUnionsPeriods(t *testing.T) {
	base := buildState(t, func(b *Builder) {
		require.NoError(t, b.AddNode("revenue", "", map[string]float64{"2023": 100}))
		require.NoError(t, b.AddPeriods("2023"))
	})
	other := buildState(t, func(b *Builder) {
		require.NoError(t, b.AddNode("cogs", "", map[string]float64{"2024": 50}))
		require.NoError(t, b.AddPeriods("2024"))
	})

	merged := Merge(base, other)
	assert.True(t, merged.Has("revenue"))
	assert.True(t, merged.Has("cogs"))
	assert.Equal(t, 2, merged.Periods().Len())
}

func TestMerge_OverlappingInputNodeUnionsValues(t *testing.T) {
	base := buildState(t, func(b *Builder) {
		require.NoError(t, b.AddNode("revenue", "", map[string]float64{"2023": 100}))
	})
	other := buildState(t, func(b *Builder) {
		require.NoError(t, b.AddNode("revenue", "", map[string]float64{"2024": 110}))
	})

	merged := Merge(base, other)
	n, ok := merged.Node("revenue")
	require.True(t, ok)

	v2023, ok := n.Value("2023")
	require.True(t, ok)
	assert.Equal(t, 100.0, v2023)

	v2024, ok := n.Value("2024")
	require.True(t, ok)
	assert.Equal(t, 110.0, v2024)
}

func TestMerge_OverlappingFormulaNodeReplacedByOther(t *testing.T) {
	base := buildState(t, func(b *Builder) {
		require.NoError(t, b.AddNode("revenue", "", nil))
		require.NoError(t, b.AddNode("cogs", "", nil))
		require.NoError(t, b.AddNode("gross_profit", "revenue - cogs", nil))
	})
	other := buildState(t, func(b *Builder) {
		require.NoError(t, b.AddNode("revenue", "", nil))
		require.NoError(t, b.AddNode("cogs", "", nil))
		require.NoError(t, b.AddNode("tax", "", nil))
		require.NoError(t, b.AddNode("gross_profit", "revenue - cogs - tax", nil))
	})

	merged := Merge(base, other)
	n, ok := merged.Node("gross_profit")
	require.True(t, ok)
	formula, _ := n.Formula()
	assert.Equal(t, "revenue - cogs - tax", formula)
}
