package liftoff

import "sort"

// orderedLayers returns the output's layers sorted by descending
// current_priority, ties broken by insertion order (spec.md §4.6 step
// 1). sort.SliceStable preserves the original (insertion) order among
// equal priorities.
func orderedLayers(o *Output) []*Layer {
	out := make([]*Layer, len(o.layers))
	copy(out, o.layers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].currentPriority > out[j].currentPriority
	})
	return out
}
