// Package view derives presentation-ready projections from the canonical
// item set: category lists, filtered subsets, and price totals.
//
// All functions are pure and deterministic. They never mutate their inputs
// and hold no state, so callers may memoize results by comparing inputs.
package view

import (
	"sort"
	"strings"

	"github.com/heartmarshall/shoplist-sync/internal/domain"
)

// Categories returns the distinct non-empty trimmed categories across the
// item set, sorted lexicographically ascending.
func Categories(items []domain.Item) []string {
	seen := make(map[string]struct{})
	for _, item := range items {
		c := item.CategoryValue()
		if c == "" {
			continue
		}
		seen[c] = struct{}{}
	}

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// Filter returns the items matching both predicates:
//   - search is empty, or contained in the normalized Name or Description
//     (case- and whitespace-insensitive, see domain.NormalizeText);
//   - category is nil, or equals the item's trimmed category exactly
//     (case-sensitive).
//
// The input order is preserved.
func Filter(items []domain.Item, search string, category *string) []domain.Item {
	search = domain.NormalizeText(search)

	filtered := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if !matchesSearch(item, search) {
			continue
		}
		if category != nil && item.CategoryValue() != *category {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

// Total returns the exact sum of prices over the item set. Two-decimal
// display rounding belongs to the presentation layer.
func Total(items []domain.Item) float64 {
	var total float64
	for _, item := range items {
		total += item.Price
	}
	return total
}

func matchesSearch(item domain.Item, search string) bool {
	if search == "" {
		return true
	}
	if strings.Contains(domain.NormalizeText(item.Name), search) {
		return true
	}
	return item.Description != nil &&
		strings.Contains(domain.NormalizeText(*item.Description), search)
}
