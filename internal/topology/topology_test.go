package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSort_LinearChain(t *testing.T) {
	deps := map[string][]string{
		"revenue":       nil,
		"cogs":          nil,
		"gross_profit":  {"revenue", "cogs"},
	}
	order, err := Sort(deps)
	require.NoError(t, err)
	require.Len(t, order, 3)

	pos := indexOf(order)
	assert.Less(t, pos["revenue"], pos["gross_profit"])
	assert.Less(t, pos["cogs"], pos["gross_profit"])
}

func TestSort_MissingDependencyIsZeroIndegree(t *testing.T) {
	deps := map[string][]string{
		"a": {"not_declared"},
	}
	order, err := Sort(deps)
	require.NoError(t, err)
	assert.Contains(t, order, "a")
}

func TestSort_Cycle(t *testing.T) {
	deps := map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}
	_, err := Sort(deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CYCLE")
}

func TestDetectCycles_Empty(t *testing.T) {
	deps := map[string][]string{"a": nil, "b": {"a"}}
	assert.Empty(t, DetectCycles(deps))
}

func TestDetectCycles_FindsOne(t *testing.T) {
	deps := map[string][]string{"a": {"b"}, "b": {"a"}}
	cycles := DetectCycles(deps)
	require.Len(t, cycles, 1)
	assert.GreaterOrEqual(t, len(cycles[0]), 2)
}

func TestWouldCreateCycle(t *testing.T) {
	deps := map[string][]string{"a": nil, "b": {"a"}}
	assert.False(t, WouldCreateCycle(deps, "c", []string{"a"}))
	assert.True(t, WouldCreateCycle(deps, "a", []string{"b"}))
}

func indexOf(order []string) map[string]int {
	m := make(map[string]int, len(order))
	for i, c := range order {
		m[c] = i
	}
	return m
}
