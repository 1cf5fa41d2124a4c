// Package metric implements the metric service: instantiating named,
// parameterized formula templates into concrete FORMULA nodes (spec.md
// §4.6).
package metric

import (
	"fmt"
	"strings"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/graph"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/registry"
)

// Service instantiates metric definitions from a registry into graph
// nodes, tracking metric name -> node code for later lookup.
type Service struct {
	registry  *registry.MetricRegistry
	nodeCodes map[string]string
}

// NewService creates a Service backed by reg.
func NewService(reg *registry.MetricRegistry) *Service {
	return &Service{registry: reg, nodeCodes: make(map[string]string)}
}

// AddMetric instantiates metricName into state as a new FORMULA node and
// returns the resulting committed state. nodeName defaults to metricName.
// inputNodeMap overrides the node each placeholder substitutes to;
// placeholders absent from the map substitute to their own name.
func (s *Service) AddMetric(state *graph.State, metricName, nodeName string, inputNodeMap map[string]string) (*graph.State, error) {
	def, err := s.registry.GetMetricDefinition(metricName)
	if err != nil {
		return nil, err
	}

	if nodeName == "" {
		nodeName = metricName
	}

	formula := def.FormulaTemplate
	for _, placeholder := range def.Inputs {
		target := placeholder
		if mapped, ok := inputNodeMap[placeholder]; ok {
			target = mapped
		}
		formula = strings.ReplaceAll(formula, "{"+placeholder+"}", target)
	}
	if strings.Contains(formula, "{") {
		return nil, fsmerrors.New(fsmerrors.CodeInvalidFormula,
			fmt.Sprintf("metric %q: formula template has unresolved placeholders: %q", metricName, formula), nil)
	}

	b := graph.FromState(state)
	if err := b.AddNode(nodeName, formula, nil); err != nil {
		return nil, err
	}

	next, err := b.Commit()
	if err != nil {
		return nil, err
	}

	s.nodeCodes[metricName] = nodeName
	return next, nil
}

// NodeCode returns the node code a previously instantiated metric name was
// assigned to, and whether one was found.
func (s *Service) NodeCode(metricName string) (string, bool) {
	code, ok := s.nodeCodes[metricName]
	return code, ok
}

// Registry returns the metric registry backing this service, so callers
// (e.g. the statement populator) can validate input mappings before
// calling AddMetric.
func (s *Service) Registry() *registry.MetricRegistry {
	return s.registry
}
