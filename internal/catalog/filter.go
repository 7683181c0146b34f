package catalog

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxFuzzyDistance is the largest edit distance between the query and a word
// of the product name that still counts as a match.
const maxFuzzyDistance = 2

// Matches reports whether the product name matches query, either as a
// case-insensitive substring or as a near miss of one of its words.
// An empty query matches everything.
func Matches(p Product, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	name := strings.ToLower(p.Name)
	if strings.Contains(name, q) {
		return true
	}
	// Very short queries would fuzzy-match almost anything.
	if len(q) <= maxFuzzyDistance {
		return false
	}
	for _, word := range strings.Fields(name) {
		if levenshtein.ComputeDistance(word, q) <= maxFuzzyDistance {
			return true
		}
	}
	return false
}

// Filter returns the products matching query, preserving order.
// The input slice is not modified.
func Filter(products []Product, query string) []Product {
	if strings.TrimSpace(query) == "" {
		return products
	}
	var out []Product
	for _, p := range products {
		if Matches(p, query) {
			out = append(out, p)
		}
	}
	return out
}
