package search

import "sort"

// mergeOverlay combines a base-index result set with a ref overlay's
// result set (spec.md §4.5 step 7). Overlay rows win over base rows at
// the same canonical merge key; base rows whose path is tombstoned by
// the overlay are suppressed unless the overlay re-provides the same
// merge key (re-provisioning). When overlay is nil the base results
// are returned unchanged.
func mergeOverlay(base, overlay []*Result, tombstonedPaths map[string]bool) []*Result {
	if overlay == nil {
		return base
	}

	overlayByKey := make(map[string]*Result, len(overlay))
	for _, r := range overlay {
		overlayByKey[resultMergeKey(r)] = r
	}

	merged := make([]*Result, 0, len(base)+len(overlay))
	for _, b := range base {
		key := resultMergeKey(b)
		if _, reprovisioned := overlayByKey[key]; reprovisioned {
			continue
		}
		if tombstonedPaths[b.Path] {
			continue
		}
		merged = append(merged, b)
	}

	for _, o := range overlay {
		o.SourceLayer = SourceLayerOverlay
		merged = append(merged, o)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		if merged[i].Path != merged[j].Path {
			return merged[i].Path < merged[j].Path
		}
		return merged[i].LineStart < merged[j].LineStart
	})
	return merged
}

// resultMergeKey is the canonical merge key described in spec.md §4.5
// step 7: symbol stable-id plus kind for symbol rows, bare path for file
// rows, and path plus line range for every other row (snippet rows
// included; chunk kind is not part of the key).
func resultMergeKey(r *Result) string {
	if r.SymbolStableID != "" {
		return "symbol:" + r.SymbolStableID + ":" + r.Kind
	}
	if r.Kind == "file" {
		return "file:" + r.Path
	}
	return "range:" + r.Path + ":" + itoa(r.LineStart) + ":" + itoa(r.LineEnd)
}
