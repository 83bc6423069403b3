// Package sliceutil provides generic slice manipulation utilities.
package sliceutil

// Deduplicate removes duplicate items from a slice while preserving order.
// The keyFunc extracts a unique key from each item for comparison.
// Only the first occurrence of each key is kept.
//
// Example:
//
//	defs := []config.CommandDefinition{{Pattern: "quote"}, {Pattern: "scores"}, {Pattern: "quote"}}
//	unique := sliceutil.Deduplicate(defs, func(d config.CommandDefinition) string { return d.Pattern })
//	// Result: [{Pattern: "quote"}, {Pattern: "scores"}]
func Deduplicate[T any, K comparable](items []T, keyFunc func(T) K) []T {
	if len(items) == 0 {
		return items
	}

	seen := make(map[K]bool, len(items))
	result := make([]T, 0, len(items))

	for _, item := range items {
		key := keyFunc(item)
		if !seen[key] {
			seen[key] = true
			result = append(result, item)
		}
	}

	return result
}

// Unique removes repeated values, keeping the first occurrence of each.
func Unique[T comparable](items []T) []T {
	return Deduplicate(items, func(v T) T { return v })
}
