package drug

// mergeRanked concatenates the pass results in the order given, deduplicates
// by identifier keeping the first occurrence, and truncates to limit. Pass
// order is the relevance tie-break: an earlier pass always outranks a later
// one regardless of per-pass similarity ordering.
func mergeRanked(limit int, passes ...[]Brand) []Brand {
	seen := make(map[int64]bool)
	out := make([]Brand, 0, limit)
	for _, pass := range passes {
		for _, b := range pass {
			if seen[b.Identifier] {
				continue
			}
			seen[b.Identifier] = true
			out = append(out, b)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}
