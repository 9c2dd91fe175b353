// Package search scores free text against keyword queries.
package search

import (
	"slices"
	"strings"
	"unicode"
)

// Words normalises a query into its search words: ASCII punctuation is
// removed, letters are lower-cased and the result is split on whitespace.
func Words(query string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
			return -1
		}
		return unicode.ToLower(r)
	}, query)
	return strings.Fields(cleaned)
}

// MatchPercentage returns the share of query words, in whole percent, that
// occur as case-insensitive substrings of text. A query with no words scores 0.
func MatchPercentage(text, query string) int {
	words := Words(query)
	if len(words) == 0 {
		return 0
	}
	haystack := strings.ToLower(text)
	matches := 0
	for _, w := range words {
		if strings.Contains(haystack, w) {
			matches++
		}
	}
	return 100 * matches / len(words)
}

// Scored pairs an item with its relevance.
type Scored[T any] struct {
	Item  T
	Score int
}

// Rank scores every item and returns those with a positive score ordered by
// descending score. Items with equal scores keep their input order.
func Rank[T any](items []T, score func(T) int) []Scored[T] {
	out := make([]Scored[T], 0, len(items))
	for _, it := range items {
		if s := score(it); s > 0 {
			out = append(out, Scored[T]{Item: it, Score: s})
		}
	}
	slices.SortStableFunc(out, func(a, b Scored[T]) int {
		return b.Score - a.Score
	})
	return out
}
