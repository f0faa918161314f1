package merge

import (
	"strings"

	"folio/internal/dom"
)

// conflictSuffix names the companion key recording disagreeing source
// values next to the canonical key.
const conflictSuffix = "_conflicts"

// reconcileMetadata merges metadata from N sources. For every key present in
// any source, values are compared with deep structural equality: agreement
// keeps the single value, disagreement keeps the first source's value as
// canonical and records the other distinct values under "{key}_conflicts" as
// a pipe-separated "ALT:" list. The same rules apply at document level and
// at each chunk level.
func reconcileMetadata(sources []*dom.Metadata) *dom.Metadata {
	out := dom.NewMetadata()
	for _, key := range unionKeys(sources) {
		canonical, others := collectValues(sources, key)
		out.Set(key, canonical)
		if len(others) > 0 {
			out.SetAfter(key, key+conflictSuffix, formatConflicts(others))
		}
	}
	return out
}

// unionKeys returns every key present in any source, ordered by first
// appearance across sources in source order.
func unionKeys(sources []*dom.Metadata) []string {
	var keys []string
	seen := make(map[string]struct{})
	for _, source := range sources {
		for _, key := range source.Keys() {
			if strings.HasSuffix(key, conflictSuffix) {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

// collectValues returns the canonical value (the first source holding the
// key) and the distinct disagreeing values from the remaining sources.
func collectValues(sources []*dom.Metadata, key string) (any, []any) {
	var canonical any
	found := false
	var others []any
	for _, source := range sources {
		value, ok := source.Get(key)
		if !ok {
			continue
		}
		if !found {
			canonical = value
			found = true
			continue
		}
		if dom.ValuesEqual(canonical, value) {
			continue
		}
		duplicate := false
		for _, existing := range others {
			if dom.ValuesEqual(existing, value) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			others = append(others, value)
		}
	}
	return canonical, others
}

func formatConflicts(values []any) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		parts = append(parts, "ALT: "+dom.FormatValue(value))
	}
	return strings.Join(parts, " | ")
}
