package fsm

// AddItem adds a node: a FORMULA node if formula is non-empty, otherwise
// an INPUT node seeded with values (spec.md §4.7).
func (g *Graph) AddItem(code, formula string, values map[string]float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := g.builder()
	if err := b.AddNode(code, formula, values); err != nil {
		return err
	}
	next, err := b.Commit()
	return g.commit(next, err)
}

// AddFinancialStatementItem is AddItem specialized to an INPUT node.
func (g *Graph) AddFinancialStatementItem(code string, values map[string]float64) error {
	return g.AddItem(code, "", values)
}

// AddPeriods parses and registers one or more period strings.
func (g *Graph) AddPeriods(periods ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := g.builder()
	if err := b.AddPeriods(periods...); err != nil {
		return err
	}
	next, err := b.Commit()
	return g.commit(next, err)
}

// AddCalculation is AddItem specialized to a FORMULA node.
func (g *Graph) AddCalculation(name, formula string) error {
	return g.AddItem(name, formula, nil)
}

// AddMetric instantiates a registered metric as a FORMULA node. nodeName
// defaults to metricName when empty; inputNodeMap overrides which node
// each placeholder binds to.
func (g *Graph) AddMetric(metricName, nodeName string, inputNodeMap map[string]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	next, err := g.metrics.AddMetric(g.state, metricName, nodeName, inputNodeMap)
	return g.commit(next, err)
}

// NodeAdapter is the duck-typed shape add_node(external_object) accepts
// (spec.md §4.7, §9): any value exposing a code, an optional formula, and
// optional seed values. Two concrete adapters are provided below;
// callers may implement their own.
type NodeAdapter interface {
	AdapterCode() string
	AdapterFormula() (string, bool)
	AdapterValues() (map[string]float64, bool)
}

// InputAdapter adapts a plain (code, values) pair into a NodeAdapter for
// AddNode.
type InputAdapter struct {
	CodeValue   string
	ValuesValue map[string]float64
}

func (a InputAdapter) AdapterCode() string                      { return a.CodeValue }
func (a InputAdapter) AdapterFormula() (string, bool)           { return "", false }
func (a InputAdapter) AdapterValues() (map[string]float64, bool) { return a.ValuesValue, true }

// FormulaAdapter adapts a plain (code, formula) pair into a NodeAdapter
// for AddNode.
type FormulaAdapter struct {
	CodeValue    string
	FormulaValue string
}

func (a FormulaAdapter) AdapterCode() string                     { return a.CodeValue }
func (a FormulaAdapter) AdapterFormula() (string, bool)           { return a.FormulaValue, true }
func (a FormulaAdapter) AdapterValues() (map[string]float64, bool) { return nil, false }

// AddNode adds a node described by a duck-typed external object.
func (g *Graph) AddNode(adapter NodeAdapter) error {
	formula, _ := adapter.AdapterFormula()
	values, _ := adapter.AdapterValues()
	return g.AddItem(adapter.AdapterCode(), formula, values)
}

// RemoveNode removes code.
func (g *Graph) RemoveNode(code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := g.builder()
	if err := b.RemoveNode(code); err != nil {
		return err
	}
	next, err := b.Commit()
	return g.commit(next, err)
}

// ReplaceNode atomically redefines code with a new formula/values in a
// single commit; the committed order is re-sorted topologically.
func (g *Graph) ReplaceNode(code, formula string, values map[string]float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := g.builder()
	if err := b.ReplaceNode(code, formula, values); err != nil {
		return err
	}
	next, err := b.Commit()
	return g.commit(next, err)
}

// UpdateFinancialStatementItem sets one or more period values on an
// existing INPUT node.
func (g *Graph) UpdateFinancialStatementItem(code string, values map[string]float64, replace bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := g.builder()
	for periodKey, value := range values {
		if err := b.SetNodeValue(code, periodKey, value, replace); err != nil {
			return err
		}
	}
	next, err := b.Commit()
	if err := g.commit(next, err); err != nil {
		return err
	}
	g.engine.OnValueChange(code)
	return nil
}

// SetValue sets a single period value on an existing INPUT node.
func (g *Graph) SetValue(code, periodKey string, value float64, replace bool) error {
	return g.UpdateFinancialStatementItem(code, map[string]float64{periodKey: value}, replace)
}
