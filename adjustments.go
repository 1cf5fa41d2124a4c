package fsm

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/graph"
)

// AdjustmentFields groups the arguments for AddAdjustment (spec.md §4.7's
// "add_adjustment(fields…)").
type AdjustmentFields struct {
	Node     string
	Period   string
	Value    float64
	Type     graph.AdjustmentType
	Scale    float64
	Priority int
	Tags     []string
	Scenario string
	Reason   string
	User     string
	HasUser  bool
}

// AddAdjustment stores a new discretionary adjustment and returns its
// stable identifier.
func (g *Graph) AddAdjustment(fields AdjustmentFields) (uuid.UUID, error) {
	adj, err := graph.NewAdjustment(graph.NewAdjustmentParams{
		Node:     fields.Node,
		Period:   fields.Period,
		Value:    fields.Value,
		Type:     fields.Type,
		Scale:    fields.Scale,
		Priority: fields.Priority,
		Tags:     fields.Tags,
		Scenario: fields.Scenario,
		Reason:   fields.Reason,
		User:     fields.User,
		HasUser:  fields.HasUser,
		Now:      time.Now(),
	})
	if err != nil {
		return uuid.Nil, err
	}

	g.mu.Lock()
	g.adjustments.Add(adj)
	g.mu.Unlock()
	return adj.ID(), nil
}

// GetAdjustedValue returns code's value at periodKey with every adjustment
// matching filter applied in priority order, and whether any adjustment
// actually changed the base value (spec.md §4.7, scenario E4). Reads the
// adjustment set once and applies it once, per spec.md §5's consistency
// requirement.
func (g *Graph) GetAdjustedValue(ctx context.Context, code, periodKey string, filter graph.AdjustmentFilter) (float64, bool, error) {
	g.mu.Lock()
	engine := g.engine
	adjustments := g.adjustments
	g.mu.Unlock()

	base, err := engine.Calculate(ctx, code, periodKey)
	if err != nil {
		return 0, false, err
	}

	adjs := adjustments.GetFiltered(code, periodKey, filter)
	return adjustments.ApplyAdjustments(base, adjs)
}

// WasAdjusted reports whether any adjustment matching filter would change
// code's value at periodKey.
func (g *Graph) WasAdjusted(ctx context.Context, code, periodKey string, filter graph.AdjustmentFilter) (bool, error) {
	_, changed, err := g.GetAdjustedValue(ctx, code, periodKey, filter)
	return changed, err
}
