// Package rank orders scored ontology-term candidates. Higher scores come
// first; equal scores are resolved by a fixed sequence of tie-break rules.
package rank

import (
	"slices"
	"strings"

	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/textnorm"
)

// Candidate is an ontology term matched to a query through one of its
// synonyms (or its label).
type Candidate struct {
	Term           model.OntologyTerm
	MatchedSynonym string
	Score          float64
}

// LabelMatch reports whether the candidate was matched by the term's label.
func (c Candidate) LabelMatch() bool {
	return strings.EqualFold(strings.TrimSpace(c.MatchedSynonym), strings.TrimSpace(c.Term.Label))
}

// InformationContent is occurrences(synonym in joined synonyms) *
// len(synonym) / len(joined synonyms), all lowercased.
func (c Candidate) InformationContent() float64 {
	syn := strings.ToLower(strings.TrimSpace(c.MatchedSynonym))
	if syn == "" {
		return 0
	}
	lower := make([]string, len(c.Term.Synonyms))
	for i, s := range c.Term.Synonyms {
		lower[i] = strings.ToLower(s)
	}
	joined := strings.Join(lower, "")
	if joined == "" {
		return 0
	}
	return float64(strings.Count(joined, syn)) * float64(len(syn)) / float64(len(joined))
}

// Compare returns a negative number when a ranks before b.
//
// Scores are compared first. For equal scores whose matched synonyms are
// stem-equal, the candidate with semantic types wins, then a label match
// beats a synonym match, then, when both matched via a synonym, the higher
// information content wins. Remaining ties fall back to the IRI and then the
// matched synonym so the order never depends on input order.
func Compare(a, b Candidate) int {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
	if textnorm.CleanStemPhrase(a.MatchedSynonym) == textnorm.CleanStemPhrase(b.MatchedSynonym) {
		if c := preferTrue(a.Term.HasSemanticTypes(), b.Term.HasSemanticTypes()); c != 0 {
			return c
		}
		al, bl := a.LabelMatch(), b.LabelMatch()
		if c := preferTrue(al, bl); c != 0 {
			return c
		}
		if !al && !bl {
			ai, bi := a.InformationContent(), b.InformationContent()
			if ai > bi {
				return -1
			}
			if ai < bi {
				return 1
			}
		}
	}
	if c := strings.Compare(a.Term.IRI, b.Term.IRI); c != 0 {
		return c
	}
	return strings.Compare(a.MatchedSynonym, b.MatchedSynonym)
}

func preferTrue(a, b bool) int {
	switch {
	case a && !b:
		return -1
	case b && !a:
		return 1
	}
	return 0
}

// Sort orders candidates in place by Compare.
func Sort(cs []Candidate) {
	slices.SortStableFunc(cs, Compare)
}
