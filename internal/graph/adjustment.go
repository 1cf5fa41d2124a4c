package graph

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
)

// AdjustmentType selects the arithmetic applied when overlaying an
// Adjustment onto a base value (spec.md §4.5).
type AdjustmentType string

const (
	AdjustmentAdditive       AdjustmentType = "additive"
	AdjustmentMultiplicative AdjustmentType = "multiplicative"
	AdjustmentReplacement    AdjustmentType = "replacement"
)

// Adjustment is an immutable, discretionary override applied to a
// (node, period) pair at query time. Construct one with NewAdjustment.
type Adjustment struct {
	id        uuid.UUID
	node      string
	period    string
	value     float64
	adjType   AdjustmentType
	scale     float64
	priority  int
	tags      map[string]struct{}
	scenario  string
	reason    string
	user      string
	hasUser   bool
	timestamp time.Time
}

// NewAdjustmentParams groups the constructor arguments for NewAdjustment;
// unset fields take the documented defaults (Type: Additive, Scenario:
// "default"). Scale has no default: a zero Scale is kept as zero.
type NewAdjustmentParams struct {
	Node     string
	Period   string
	Value    float64
	Type     AdjustmentType // defaults to AdjustmentAdditive if ""
	Scale    float64        // used as given; must be within [0, 1]
	Priority int
	Tags     []string
	Scenario string // defaults to "default" if ""
	Reason   string
	User     string
	HasUser  bool
	Now      time.Time // evaluation timestamp; pass the call-time instant
	ID       uuid.UUID // optional: preserve an existing ID (e.g. on ingest); zero value gets a fresh one
}

// NewAdjustment validates and constructs an Adjustment. Scale must be
// within [0, 1]. A fresh stable UUID is assigned unless p.ID is set (used
// by internal/adjustment.IngestRecords to preserve a round-tripped id).
func NewAdjustment(p NewAdjustmentParams) (Adjustment, error) {
	if p.Type == "" {
		p.Type = AdjustmentAdditive
	}
	if p.Scenario == "" {
		p.Scenario = "default"
	}
	scale := p.Scale
	if scale < 0 || scale > 1 {
		return Adjustment{}, newAdjustmentScaleError(scale)
	}

	tags := make(map[string]struct{}, len(p.Tags))
	for _, t := range p.Tags {
		tags[t] = struct{}{}
	}

	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	return Adjustment{
		id:        id,
		node:      p.Node,
		period:    p.Period,
		value:     p.Value,
		adjType:   p.Type,
		scale:     scale,
		priority:  p.Priority,
		tags:      tags,
		scenario:  p.Scenario,
		reason:    p.Reason,
		user:      p.User,
		hasUser:   p.HasUser,
		timestamp: p.Now,
	}, nil
}

// ID returns the adjustment's stable identifier.
func (a Adjustment) ID() uuid.UUID { return a.id }

// Node returns the target node code.
func (a Adjustment) Node() string { return a.node }

// Period returns the target period string.
func (a Adjustment) Period() string { return a.period }

// Value returns the adjustment's raw value (meaning depends on Type).
func (a Adjustment) Value() float64 { return a.value }

// Type returns the adjustment's arithmetic type.
func (a Adjustment) Type() AdjustmentType { return a.adjType }

// Scale returns the adjustment's scale factor, in [0, 1].
func (a Adjustment) Scale() float64 { return a.scale }

// Priority returns the adjustment's priority; lower values apply first.
func (a Adjustment) Priority() int { return a.priority }

// Tags returns the sorted slice of hierarchical tags.
func (a Adjustment) Tags() []string {
	out := make([]string, 0, len(a.tags))
	for t := range a.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// HasTag reports whether the adjustment carries the exact tag t.
func (a Adjustment) HasTag(t string) bool {
	_, ok := a.tags[t]
	return ok
}

// Scenario returns the adjustment's scenario name.
func (a Adjustment) Scenario() string { return a.scenario }

// Reason returns the free-text justification for the adjustment.
func (a Adjustment) Reason() string { return a.reason }

// User returns the attributed user and whether one was set.
func (a Adjustment) User() (string, bool) { return a.user, a.hasUser }

// Timestamp returns the instant the adjustment was created.
func (a Adjustment) Timestamp() time.Time { return a.timestamp }

// AdjustmentFilter is a declarative, permissive-by-default predicate over
// adjustments (spec.md §3). A field left at its zero value imposes no
// constraint.
type AdjustmentFilter struct {
	IncludeScenarios []string
	ExcludeScenarios []string
	IncludeTags      []string // prefix match against "/"-separated tag paths
	ExcludeTags      []string // prefix match; dominates IncludeTags
	RequireAllTags   []string // exact match, all required
	IncludeTypes     []AdjustmentType
	ExcludeTypes     []AdjustmentType
	Period           string // empty means "no period constraint"
}

// Matches reports whether adj satisfies the filter.
func (f AdjustmentFilter) Matches(adj Adjustment) bool {
	if f.Period != "" && adj.Period() != f.Period {
		return false
	}
	// A nil Include* slice imposes no constraint; a non-nil but empty one
	// is an explicit "match nothing" filter (spec.md §8 E4: passing
	// include_scenarios=∅ differs from omitting the filter altogether).
	if f.IncludeScenarios != nil && !containsString(f.IncludeScenarios, adj.Scenario()) {
		return false
	}
	if containsString(f.ExcludeScenarios, adj.Scenario()) {
		return false
	}
	if f.IncludeTypes != nil && !containsType(f.IncludeTypes, adj.Type()) {
		return false
	}
	if containsType(f.ExcludeTypes, adj.Type()) {
		return false
	}
	if f.IncludeTags != nil && !anyTagPrefixMatch(adj, f.IncludeTags) {
		return false
	}
	if anyTagPrefixMatch(adj, f.ExcludeTags) {
		return false
	}
	for _, required := range f.RequireAllTags {
		if !adj.HasTag(required) {
			return false
		}
	}
	return true
}

func newAdjustmentScaleError(scale float64) error {
	return fsmerrors.New(fsmerrors.CodeAdjustment,
		fmt.Sprintf("scale %v out of range [0, 1]", scale), nil)
}

func anyTagPrefixMatch(adj Adjustment, prefixes []string) bool {
	for _, prefix := range prefixes {
		for _, tag := range adj.Tags() {
			if tag == prefix || strings.HasPrefix(tag, prefix+"/") {
				return true
			}
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsType(list []AdjustmentType, v AdjustmentType) bool {
	for _, t := range list {
		if t == v {
			return true
		}
	}
	return false
}
