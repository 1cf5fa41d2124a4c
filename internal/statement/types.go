// Package statement implements the external statement-structure contract
// (spec.md §6.1), the ID resolver (§4.8), and the item processors and
// retry-scheduling populator (§4.9) that turn a StatementStructure into
// graph nodes.
package statement

// Item is one node of a Section's item tree: a LineItem, a
// CalculatedLineItem, a SubtotalLineItem, a MetricLineItem, or a nested
// Section (spec.md §6.1).
type Item interface {
	ItemID() string
}

// StatementStructure is the root of the external contract: a named,
// optionally described tree of sections.
type StatementStructure struct {
	ID          string
	Name        string
	Description string
	Metadata    map[string]string
	Sections    []Section
}

// Section groups items and may carry its own subtotal definition. Section
// itself satisfies Item so it can nest inside another Section's Items.
type Section struct {
	ID       string
	Name     string
	Items    []Item
	Subtotal *SubtotalLineItem
}

// ItemID implements Item.
func (s Section) ItemID() string { return s.ID }

// LineItem is a base item backed directly by an existing graph node,
// named either explicitly (NodeID) or via a standard-node reference
// resolved through the StandardNodeRegistry. Exactly one of NodeID or
// StandardNodeRef should be set.
type LineItem struct {
	ID              string
	Name            string
	SignConvention  int // +1 or -1
	NodeID          string
	StandardNodeRef string
}

// ItemID implements Item.
func (l LineItem) ItemID() string { return l.ID }

// Calculation kinds for CalculatedLineItem.CalculationType.
const (
	CalcAddition       = "addition"
	CalcSubtraction    = "subtraction"
	CalcMultiplication = "multiplication"
	CalcDivision       = "division"
	CalcFormula        = "formula"
)

// CalculatedLineItem derives its value from other items via one of the
// CalculationType kinds. For CalcFormula, Formula holds an expression
// using positional placeholders "input_0", "input_1", ... substituted by
// InputIDs in order.
type CalculatedLineItem struct {
	ID              string
	Name            string
	SignConvention  int
	CalculationType string
	InputIDs        []string
	Parameters      map[string]string
	Formula         string
}

// ItemID implements Item.
func (c CalculatedLineItem) ItemID() string { return c.ID }

// SubtotalLineItem sums the resolved values of ItemIDs. An empty ItemIDs
// is an explicit no-op success (spec.md §4.9).
type SubtotalLineItem struct {
	ID             string
	Name           string
	SignConvention int
	ItemIDs        []string
}

// ItemID implements Item.
func (s SubtotalLineItem) ItemID() string { return s.ID }

// MetricLineItem instantiates a registered metric, mapping each of the
// metric's placeholder names to the item ID supplying that input.
type MetricLineItem struct {
	ID             string
	Name           string
	SignConvention int
	MetricID       string
	Inputs         map[string]string // placeholder name -> item ID
}

// ItemID implements Item.
func (m MetricLineItem) ItemID() string { return m.ID }
