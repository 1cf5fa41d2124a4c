// Package adjustment implements the discretionary adjustment overlay
// service: a two-level (node, period) store of graph.Adjustment values,
// filtered and priority-ordered application arithmetic, and tabular
// export/ingest. The store's locking shape follows the same
// RWMutex-guarded-map idiom as internal/calc.Engine and the teacher's
// ConditionEvaluator.
package adjustment

import (
	"math"
	"sort"
	"sync"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/graph"
)

// Service stores adjustments keyed by node then period, in insertion
// order, and applies them in ascending-priority order at query time.
type Service struct {
	mu     sync.RWMutex
	store  map[string]map[string][]graph.Adjustment
	strict bool
}

// NewService creates an empty Service. strict selects the domain-guard
// policy used by ApplyAdjustments (spec.md §4.5): strict mode fails with
// CodeAdjustment on a domain violation; non-strict silently returns the
// base value unchanged for that adjustment.
func NewService(strict bool) *Service {
	return &Service{store: make(map[string]map[string][]graph.Adjustment), strict: strict}
}

// Add appends adj to its (node, period) bucket.
func (s *Service) Add(adj graph.Adjustment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(adj)
}

// AddMany appends every adjustment in adjs.
func (s *Service) AddMany(adjs []graph.Adjustment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, adj := range adjs {
		s.addLocked(adj)
	}
}

func (s *Service) addLocked(adj graph.Adjustment) {
	byPeriod, ok := s.store[adj.Node()]
	if !ok {
		byPeriod = make(map[string][]graph.Adjustment)
		s.store[adj.Node()] = byPeriod
	}
	byPeriod[adj.Period()] = append(byPeriod[adj.Period()], adj)
}

// ListAll returns every stored adjustment, in no particular cross-bucket
// order.
func (s *Service) ListAll() []graph.Adjustment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []graph.Adjustment
	for _, byPeriod := range s.store {
		for _, adjs := range byPeriod {
			out = append(out, adjs...)
		}
	}
	return out
}

// GetFor returns the adjustments stored for (node, period), in insertion
// order.
func (s *Service) GetFor(node, periodKey string) []graph.Adjustment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]graph.Adjustment(nil), s.store[node][periodKey]...)
}

// Clear removes every stored adjustment.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = make(map[string]map[string][]graph.Adjustment)
}

// GetFiltered returns the adjustments for (node, period) that satisfy
// filter.
func (s *Service) GetFiltered(node, periodKey string, filter graph.AdjustmentFilter) []graph.Adjustment {
	all := s.GetFor(node, periodKey)
	out := make([]graph.Adjustment, 0, len(all))
	for _, adj := range all {
		if filter.Matches(adj) {
			out = append(out, adj)
		}
	}
	return out
}

// ApplyAdjustments applies adjs (sorted by ascending priority, insertion
// order breaking ties) over base in turn and returns the final value and
// whether any adjustment actually changed it.
func (s *Service) ApplyAdjustments(base float64, adjs []graph.Adjustment) (float64, bool, error) {
	sorted := make([]graph.Adjustment, len(adjs))
	copy(sorted, adjs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })

	value := base
	changed := false
	for _, adj := range sorted {
		next, ok, err := s.applyOne(value, adj)
		if err != nil {
			return 0, false, err
		}
		if ok {
			changed = true
			value = next
		}
	}
	return value, changed, nil
}

// applyOne applies a single adjustment to value, returning the new value
// and whether it differs from the input (false on a non-strict domain
// guard no-op).
func (s *Service) applyOne(value float64, adj graph.Adjustment) (float64, bool, error) {
	switch adj.Type() {
	case graph.AdjustmentAdditive:
		next := value + adj.Value()*adj.Scale()
		return next, next != value, nil

	case graph.AdjustmentReplacement:
		return adj.Value(), adj.Value() != value, nil

	case graph.AdjustmentMultiplicative:
		return s.applyMultiplicative(value, adj)

	default:
		return value, false, nil
	}
}

func (s *Service) applyMultiplicative(value float64, adj graph.Adjustment) (float64, bool, error) {
	scale := adj.Scale()
	if value <= 0 && scale > 0 && scale < 1 {
		if s.strict {
			return 0, false, fsmerrors.New(fsmerrors.CodeAdjustment,
				"multiplicative adjustment with fractional scale on a non-positive base is undefined", nil)
		}
		return value, false, nil
	}

	result := value * math.Pow(adj.Value(), scale)
	if !isFinite(result) {
		if s.strict {
			return 0, false, fsmerrors.New(fsmerrors.CodeAdjustment,
				"multiplicative adjustment produced a non-finite result", nil)
		}
		return value, false, nil
	}

	return result, result != value, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
