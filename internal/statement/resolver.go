package statement

import (
	"fmt"
	"sync"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/graph"
	"github.com/jeickmeier/fin-statement-model-sub001/internal/registry"
)

// Resolver maps statement item IDs to graph node codes (spec.md §4.8).
// For a LineItem the mapping is to NodeID (or a standard node name
// resolved through the StandardNodeRegistry); for every other item kind
// the mapping is identity. Both directions are cached.
type Resolver struct {
	mu            sync.RWMutex
	idToCode      map[string]string
	codeToID      map[string]string
	standardNodes *registry.StandardNodeRegistry
}

// NewResolver creates a Resolver backed by reg, which may be nil if no
// LineItem in the structure uses a standard-node reference.
func NewResolver(reg *registry.StandardNodeRegistry) *Resolver {
	return &Resolver{
		idToCode:      make(map[string]string),
		codeToID:      make(map[string]string),
		standardNodes: reg,
	}
}

// RegisterLineItem establishes and caches item.ID's mapping to its
// backing node code, from either NodeID or a resolved StandardNodeRef.
func (r *Resolver) RegisterLineItem(item LineItem) (string, error) {
	var code string
	switch {
	case item.NodeID != "":
		code = item.NodeID
	case item.StandardNodeRef != "":
		if r.standardNodes == nil {
			return "", fsmerrors.New(fsmerrors.CodeNotFound,
				fmt.Sprintf("line item %q: no standard node registry configured to resolve %q", item.ID, item.StandardNodeRef), nil)
		}
		code = r.standardNodes.GetStandardName(item.StandardNodeRef)
	default:
		return "", fsmerrors.New(fsmerrors.CodeInvalidFormula,
			fmt.Sprintf("line item %q: exactly one of node_id or standard_node_ref is required", item.ID), nil)
	}

	r.mu.Lock()
	r.idToCode[item.ID] = code
	r.codeToID[code] = item.ID
	r.mu.Unlock()
	return code, nil
}

// RegisterIdentity caches and returns the identity mapping itemID ->
// itemID, used for calculated/subtotal/metric items whose node code is
// always their own item ID.
func (r *Resolver) RegisterIdentity(itemID string) string {
	r.mu.Lock()
	r.idToCode[itemID] = itemID
	r.codeToID[itemID] = itemID
	r.mu.Unlock()
	return itemID
}

// Resolve returns the node code for itemID. If itemID is not yet cached
// and state is non-nil and already has a node named itemID, the identity
// mapping is recorded and returned; otherwise ok is false.
func (r *Resolver) Resolve(itemID string, state *graph.State) (string, bool) {
	r.mu.RLock()
	code, ok := r.idToCode[itemID]
	r.mu.RUnlock()
	if ok {
		return code, true
	}
	if state != nil && state.Has(itemID) {
		return r.RegisterIdentity(itemID), true
	}
	return "", false
}

// CodeToItemID returns the item ID a node code was registered under, if
// any.
func (r *Resolver) CodeToItemID(code string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.codeToID[code]
	return id, ok
}
