// Package compress implements the geohash-set compressor: it collapses
// complete groups of 32 sibling cells into their parent, bottom-up, and
// prunes redundant ancestor/descendant pairs, producing the minimal prefix
// set covering the same region.
package compress

import (
	"errors"
	"sort"

	"github.com/flybeeper/geocover/geohash"
)

// ErrNullInput is returned when Compress is called with a nil slice.
// An empty, non-nil slice is valid and returns an empty result.
var ErrNullInput = errors.New("compress: input is nil")

// Compress returns the minimal prefix set covering the same cells as
// geohashes, respecting [minLevel, maxLevel] precision bounds. Geohashes
// shorter than minLevel pass through unchanged; geohashes longer than
// maxLevel are truncated to their maxLevel-length prefix before
// processing. The result is sorted lexicographically.
func Compress(geohashes []string, minLevel, maxLevel int) ([]string, error) {
	if geohashes == nil {
		return nil, ErrNullInput
	}
	if minLevel < geohash.MinPrecision {
		minLevel = geohash.MinPrecision
	}
	if maxLevel > geohash.MaxPrecision {
		maxLevel = geohash.MaxPrecision
	}

	normalized := normalize(geohashes, maxLevel)
	if len(normalized) == 0 {
		return []string{}, nil
	}

	pruned := prune(normalized)
	merged := mergeSiblings(pruned, minLevel)

	out := make([]string, 0, len(merged))
	for h := range merged {
		out = append(out, h)
	}
	sort.Strings(out)
	return out, nil
}

// normalize drops empty strings, truncates anything longer than maxLevel
// to its maxLevel-length prefix, and deduplicates.
func normalize(geohashes []string, maxLevel int) map[string]struct{} {
	out := make(map[string]struct{}, len(geohashes))
	for _, h := range geohashes {
		if h == "" {
			continue
		}
		if len(h) > maxLevel {
			h = h[:maxLevel]
		}
		out[h] = struct{}{}
	}
	return out
}

// prune drops any entry that has a proper prefix also present in the set,
// processing candidates in ascending length so ancestors are considered
// before their descendants.
func prune(set map[string]struct{}) map[string]struct{} {
	entries := make([]string, 0, len(set))
	for h := range set {
		entries = append(entries, h)
	}
	sort.Slice(entries, func(i, j int) bool { return len(entries[i]) < len(entries[j]) })

	kept := make(map[string]struct{}, len(entries))
	for _, h := range entries {
		redundant := false
		for i := 1; i < len(h); i++ {
			if _, ok := kept[h[:i]]; ok {
				redundant = true
				break
			}
		}
		if !redundant {
			kept[h] = struct{}{}
		}
	}
	return kept
}

// mergeSiblings repeatedly collapses complete 32-way sibling groups into
// their parent, from the deepest present length down to minLevel+1. Cells
// already at or below minLevel are never merged further.
func mergeSiblings(set map[string]struct{}, minLevel int) map[string]struct{} {
	working := make(map[string]struct{}, len(set))
	maxLen := 0
	for h := range set {
		working[h] = struct{}{}
		if len(h) > maxLen {
			maxLen = len(h)
		}
	}

	for length := maxLen; length > minLevel; length-- {
		groups := make(map[string][]string)
		for h := range working {
			if len(h) != length {
				continue
			}
			parent := h[:length-1]
			groups[parent] = append(groups[parent], h)
		}
		for parent, children := range groups {
			if len(children) != 32 {
				continue
			}
			if !isFullSiblingSet(parent, children) {
				continue
			}
			for _, c := range children {
				delete(working, c)
			}
			working[parent] = struct{}{}
		}
	}
	return working
}

// isFullSiblingSet reports whether children is exactly the 32 children of
// parent (the group-by-prefix construction already guarantees the right
// count and shared prefix; this rechecks against the alphabet to rule out
// pathological duplicate-key collisions).
func isFullSiblingSet(parent string, children []string) bool {
	all, err := geohash.Children(parent)
	if err != nil {
		return false
	}
	want := make(map[string]struct{}, 32)
	for _, c := range all {
		want[c] = struct{}{}
	}
	for _, c := range children {
		if _, ok := want[c]; !ok {
			return false
		}
		delete(want, c)
	}
	return len(want) == 0
}
