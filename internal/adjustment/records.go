package adjustment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/graph"
)

// Record is the tabular row shape for adjustment export/ingest (spec.md
// §6.5): {node, period, value, reason, type, tags, scale, priority,
// scenario, user, id}. Tags are comma-separated; User is empty when unset.
type Record struct {
	ID       string
	Node     string
	Period   string
	Value    float64
	Type     string
	Scale    float64
	Priority int
	Tags     string
	Scenario string
	Reason   string
	User     string
	// Timestamp is RFC3339; left empty on ingest defaults to "now".
	Timestamp string
}

// ExportRecords converts adjs into their tabular Record form.
func ExportRecords(adjs []graph.Adjustment) []Record {
	out := make([]Record, 0, len(adjs))
	for _, adj := range adjs {
		user, _ := adj.User()
		out = append(out, Record{
			ID:        adj.ID().String(),
			Node:      adj.Node(),
			Period:    adj.Period(),
			Value:     adj.Value(),
			Type:      string(adj.Type()),
			Scale:     adj.Scale(),
			Priority:  adj.Priority(),
			Tags:      strings.Join(adj.Tags(), ","),
			Scenario:  adj.Scenario(),
			Reason:    adj.Reason(),
			User:      user,
			Timestamp: adj.Timestamp().UTC().Format(time.RFC3339),
		})
	}
	return out
}

// IngestRecords validates and constructs Adjustment values from records.
// Fails with CodeAdjustment on the first record with a malformed field.
func IngestRecords(records []Record) ([]graph.Adjustment, error) {
	out := make([]graph.Adjustment, 0, len(records))
	for i, rec := range records {
		adj, err := ingestOne(rec)
		if err != nil {
			return nil, fsmerrors.New(fsmerrors.CodeAdjustment,
				fmt.Sprintf("record %d: invalid adjustment", i), err)
		}
		out = append(out, adj)
	}
	return out, nil
}

func ingestOne(rec Record) (graph.Adjustment, error) {
	switch graph.AdjustmentType(rec.Type) {
	case "", graph.AdjustmentAdditive, graph.AdjustmentMultiplicative, graph.AdjustmentReplacement:
	default:
		return graph.Adjustment{}, fmt.Errorf("invalid type %q", rec.Type)
	}

	var tags []string
	if rec.Tags != "" {
		tags = strings.Split(rec.Tags, ",")
	}

	timestamp := time.Now().UTC()
	if rec.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, rec.Timestamp)
		if err != nil {
			return graph.Adjustment{}, fmt.Errorf("invalid timestamp %q: %w", rec.Timestamp, err)
		}
		timestamp = parsed
	}

	var id uuid.UUID
	if rec.ID != "" {
		parsed, err := uuid.Parse(rec.ID)
		if err != nil {
			return graph.Adjustment{}, fmt.Errorf("invalid id %q: %w", rec.ID, err)
		}
		id = parsed
	}

	return graph.NewAdjustment(graph.NewAdjustmentParams{
		ID:       id,
		Node:     rec.Node,
		Period:   rec.Period,
		Value:    rec.Value,
		Type:     graph.AdjustmentType(rec.Type),
		Scale:    rec.Scale,
		Priority: rec.Priority,
		Tags:     tags,
		Scenario: rec.Scenario,
		Reason:   rec.Reason,
		User:     rec.User,
		HasUser:  rec.User != "",
		Now:      timestamp,
	})
}
