package graph

// Merge implements the merge_from operation (spec.md §4.7): nodes present
// only in other are added to base; INPUT nodes present in both have
// other's values layered on top of base's (other wins on overlapping
// periods); periods are unioned. FORMULA/AGGREGATE nodes present in both
// are replaced wholesale by other's definition.
//
// Merge commits with the ordinary topological sort first. Graphs merged
// from independently-valid sources are themselves virtually always
// acyclic, but interop callers (e.g. loading two statement fragments
// authored without knowledge of each other) can produce a cross-reference
// cycle; rather than fail the whole merge, Merge falls back to the
// cycle-tolerant, insertion-order commit for that case, leaving cycle
// detection to the caller's next Calculate call.
func Merge(base, other *State) *State {
	b := FromState(base)

	for _, code := range other.Order() {
		n, _ := other.Node(code)
		existing, has := b.nodes[code]

		switch {
		case !has:
			b.nodes[code] = n
			b.insertOrder = append(b.insertOrder, code)
		case n.Kind() != KindInput || existing.Kind() != KindInput:
			b.nodes[code] = n
		default:
			merged := existing
			for periodKey, value := range n.Data() {
				merged = merged.withValue(periodKey, value)
			}
			b.nodes[code] = merged
		}
	}

	for _, p := range other.Periods().All() {
		b.AddPeriod(p)
	}

	if committed, err := b.Commit(); err == nil {
		return committed
	}
	return b.commitUnsorted()
}
