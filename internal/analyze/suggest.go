// Package analyze ranks labels against a query with a selectable lexical
// scoring model.
package analyze

import (
	"cmp"
	"slices"
	"strings"
)

// Suggestion pairs a known label with its similarity score (0-1, higher is better).
type Suggestion struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// DefaultThreshold is the minimum similarity score for a suggestion to be returned.
const DefaultThreshold = 0.5

// DefaultTopN is the maximum number of suggestions returned.
const DefaultTopN = 5

// SuggestN returns up to topN known labels scoring at least threshold against
// name, best first. Equal scores are ordered by label.
func SuggestN(name string, known []string, topN int, threshold float64, scorer Scorer) []Suggestion {
	if strings.TrimSpace(name) == "" || len(known) == 0 {
		return nil
	}

	var results []Suggestion
	for _, k := range known {
		score := scorer.Score(name, k)
		if score >= threshold {
			results = append(results, Suggestion{Name: k, Score: score})
		}
	}

	sortByScore(results)

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}

func sortByScore(s []Suggestion) {
	slices.SortStableFunc(s, func(a, b Suggestion) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}
