package registry

import (
	"fmt"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
)

// MetricDefinition is a named, parameterized formula template (spec.md
// §6.2): Inputs names the ordered placeholders that must appear in
// FormulaTemplate as "{placeholder}" tokens.
type MetricDefinition struct {
	Inputs          []string
	FormulaTemplate string
}

// MetricRegistry resolves metric names to their definitions, consumed by
// internal/metric.Service.
type MetricRegistry struct {
	definitions map[string]MetricDefinition
}

// NewMetricRegistry creates an empty registry.
func NewMetricRegistry() *MetricRegistry {
	return &MetricRegistry{definitions: make(map[string]MetricDefinition)}
}

// Register adds or replaces the definition for name.
func (r *MetricRegistry) Register(name string, def MetricDefinition) {
	r.definitions[name] = def
}

// GetMetricDefinition returns the definition for name, failing with
// CodeNotFound if unregistered.
func (r *MetricRegistry) GetMetricDefinition(name string) (MetricDefinition, error) {
	def, ok := r.definitions[name]
	if !ok {
		return MetricDefinition{}, fsmerrors.New(fsmerrors.CodeNotFound,
			fmt.Sprintf("metric %q not found", name), nil)
	}
	return def, nil
}
