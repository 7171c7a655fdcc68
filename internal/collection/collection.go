// Package collection scores how similar whole collections are from the
// ontology terms tagged on their attributes.
package collection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/vsm"
)

// ErrUnknownStrategy is returned for a strategy name that is not registered.
var ErrUnknownStrategy = errors.New("unknown collection strategy")

// Strategy names a collection similarity algorithm.
type Strategy string

const (
	// StrategyFrequency sums relatedness weighted by term frequencies.
	StrategyFrequency Strategy = "frequency"
	// StrategyVector takes the cosine of term frequency vectors.
	StrategyVector Strategy = "vector"
)

// Strategies lists the available strategies.
func Strategies() []Strategy {
	return []Strategy{StrategyFrequency, StrategyVector}
}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	st := Strategy(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Strategies(), st) {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Relatedness scores two terms in [0,1]; *relcache.Cache implements it.
type Relatedness interface {
	Relatedness(target, source model.OntologyTerm, stopLevel int) float64
}

// Profile is the term frequency map of one collection.
type Profile struct {
	ID    string
	Terms []model.OntologyTerm
	Freq  map[string]int
}

// NewProfile counts the terms tagged on attrs. A term counts once per tag
// group it appears in; terms in keyConcepts are skipped.
func NewProfile(id string, attrs []model.Attribute, keyConcepts []model.SemanticType) Profile {
	p := Profile{ID: id, Freq: make(map[string]int)}
	for _, a := range attrs {
		for _, g := range a.TagGroups {
			seen := make(map[string]bool, len(g.Terms))
			for _, t := range g.Terms {
				if seen[t.IRI] || t.InSemanticTypes(keyConcepts) {
					continue
				}
				seen[t.IRI] = true
				if p.Freq[t.IRI] == 0 {
					p.Terms = append(p.Terms, t)
				}
				p.Freq[t.IRI]++
			}
		}
	}
	return p
}

// Total is the sum of all term frequencies.
func (p Profile) Total() int {
	n := 0
	for _, f := range p.Freq {
		n += f
	}
	return n
}

// Distinct is the number of distinct terms.
func (p Profile) Distinct() int { return len(p.Terms) }

// Scorer compares two collection profiles.
type Scorer interface {
	Strategy() Strategy
	Similarity(target, source Profile) float64
}

// New returns the Scorer for s. stopLevel bounds the tree distance at which
// terms still count as related.
func New(s Strategy, rel Relatedness, stopLevel int) (Scorer, error) {
	switch s {
	case StrategyFrequency:
		return &FrequencyScorer{rel: rel, stopLevel: stopLevel}, nil
	case StrategyVector:
		return &VectorScorer{rel: rel, stopLevel: stopLevel}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// FrequencyScorer computes
// Σ relatedness(t,s)·freq(t)·freq(s) / sqrt(total(target)·total(source)).
type FrequencyScorer struct {
	rel       Relatedness
	stopLevel int
}

func (*FrequencyScorer) Strategy() Strategy { return StrategyFrequency }

func (f *FrequencyScorer) Similarity(target, source Profile) float64 {
	denom := math.Sqrt(float64(target.Total()) * float64(source.Total()))
	if denom == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range target.Terms {
		for _, s := range source.Terms {
			r := f.rel.Relatedness(t, s, f.stopLevel)
			sum += r * float64(target.Freq[t.IRI]) * float64(source.Freq[s.IRI])
		}
	}
	return min(sum/denom, 1)
}

// VectorScorer builds one vector per collection over the union of both
// vocabularies. A term missing from a collection borrows the frequency of
// that collection's most related term, scaled by the relatedness.
type VectorScorer struct {
	rel       Relatedness
	stopLevel int
}

func (*VectorScorer) Strategy() Strategy { return StrategyVector }

func (v *VectorScorer) Similarity(target, source Profile) float64 {
	var vocab []model.OntologyTerm
	seen := make(map[string]bool)
	for _, t := range append(slices.Clone(target.Terms), source.Terms...) {
		if !seen[t.IRI] {
			seen[t.IRI] = true
			vocab = append(vocab, t)
		}
	}
	cos, err := vsm.Cosine(v.vector(target, vocab), v.vector(source, vocab))
	if err != nil {
		panic(err) // both vectors span vocab
	}
	return cos
}

func (v *VectorScorer) vector(p Profile, vocab []model.OntologyTerm) []float64 {
	out := make([]float64, len(vocab))
	for i, term := range vocab {
		if f := p.Freq[term.IRI]; f > 0 {
			out[i] = float64(f)
			continue
		}
		for _, own := range p.Terms {
			r := v.rel.Relatedness(own, term, v.stopLevel)
			out[i] = max(out[i], r*float64(p.Freq[own.IRI]))
		}
	}
	return out
}

// ScoreAll scores every unordered pair of profiles, ordered by target then
// source. Cancellation is checked between pairs; on cancel the results so
// far are returned with the context error.
func ScoreAll(ctx context.Context, profiles []Profile, s Scorer) ([]model.CollectionSimilarityResult, error) {
	var out []model.CollectionSimilarityResult
	for i := range profiles {
		for j := i + 1; j < len(profiles); j++ {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			a, b := profiles[i], profiles[j]
			if b.ID < a.ID {
				a, b = b, a
			}
			out = append(out, model.CollectionSimilarityResult{
				Target:     a.ID,
				Source:     b.ID,
				Strategy:   string(s.Strategy()),
				Similarity: s.Similarity(a, b),
				Coverage:   Coverage(a, b),
			})
		}
	}
	slices.SortFunc(out, model.CollectionSimilarityResult.Compare)
	return out, nil
}

// Coverage is the geometric mean of the distinct term counts, rounded down.
func Coverage(a, b Profile) int {
	return int(math.Floor(math.Sqrt(float64(a.Distinct()) * float64(b.Distinct()))))
}
