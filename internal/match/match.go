// Package match proposes source attributes that correspond to a target
// attribute, each with an explanation of why it was chosen.
//
// Two explanations are built for every source: a literal one from the words
// the labels share, and an ontology one from the tagged terms of both
// attributes, with the target's terms expanded to their descendants. The
// higher scoring explanation wins; ties go to the ontology explanation.
package match

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/scbrown/semmatch/internal/hierarchy"
	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/ngram"
	"github.com/scbrown/semmatch/internal/ontology"
	"github.com/scbrown/semmatch/internal/textnorm"
	"go.uber.org/zap"
)

const (
	DefaultHighQualityThreshold = 0.7
	DefaultExpansionLevel       = 5
	// MinMatchedWordsLength drops candidates whose matched words, without
	// stop words, are shorter than this.
	MinMatchedWordsLength = 3
)

// Relatedness scores two terms in [0,1]; *relcache.Cache implements it.
type Relatedness interface {
	Relatedness(target, source model.OntologyTerm, stopLevel int) float64
}

// Params tunes matching.
type Params struct {
	HighQualityThreshold float64
	ExpansionLevel       int
	KeyConcepts          []model.SemanticType
	NGram                ngram.Similarity
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		HighQualityThreshold: DefaultHighQualityThreshold,
		ExpansionLevel:       DefaultExpansionLevel,
		NGram:                ngram.New(ngram.DefaultN),
	}
}

// Matcher builds ranked mapping candidates.
type Matcher struct {
	index  ontology.Index
	rel    Relatedness
	params Params
	log    *zap.Logger
	newID  func() string
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger for degraded lookups.
func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) { m.log = l }
}

// WithIDFunc sets the generator for candidate and explanation IDs.
func WithIDFunc(fn func() string) Option {
	return func(m *Matcher) { m.newID = fn }
}

// New returns a Matcher.
func New(idx ontology.Index, rel Relatedness, p Params, opts ...Option) *Matcher {
	m := &Matcher{
		index:  idx,
		rel:    rel,
		params: p,
		log:    zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// hit relates a term tagged on the target to a term tagged on the source.
type hit struct {
	origin      model.OntologyTerm
	term        model.OntologyTerm
	relatedness float64
}

// Match returns the candidates for target among pool, best first. Sources
// with no usable explanation are left out; target itself is skipped. Index
// failures only shrink the descendant expansion.
func (m *Matcher) Match(ctx context.Context, target model.Attribute, pool []model.Attribute) []model.AttributeMappingCandidate {
	targetTerms := target.Terms(m.params.KeyConcepts)
	expanded := m.expand(ctx, targetTerms)

	var out []model.AttributeMappingCandidate
	for _, source := range pool {
		if source.ID == target.ID && source.Collection == target.Collection {
			continue
		}
		expl, ok := m.explain(target, targetTerms, expanded, source)
		if !ok {
			continue
		}
		expl.ID = m.newID()
		out = append(out, model.AttributeMappingCandidate{
			ID:               m.newID(),
			Target:           target.ID,
			Source:           source.ID,
			TargetCollection: target.Collection,
			SourceCollection: source.Collection,
			Explanation:      expl,
			HighQuality:      expl.NGramScore >= m.params.HighQualityThreshold,
		})
	}
	slices.SortStableFunc(out, func(a, b model.AttributeMappingCandidate) int {
		if c := cmp.Compare(b.Explanation.NGramScore, a.Explanation.NGramScore); c != 0 {
			return c
		}
		return strings.Compare(a.Source, b.Source)
	})
	return out
}

// expand maps each target term IRI to the IRIs of its descendants within
// the expansion level.
func (m *Matcher) expand(ctx context.Context, terms []model.OntologyTerm) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(terms))
	for _, t := range terms {
		set := map[string]bool{t.IRI: true}
		desc, err := ontology.Descendants(ctx, m.index, t, m.params.ExpansionLevel)
		if err != nil {
			m.log.Warn("descendant lookup failed",
				zap.String("iri", t.IRI),
				zap.Int("found", len(desc)),
				zap.Error(err))
		}
		for _, d := range desc {
			set[d.IRI] = true
		}
		out[t.IRI] = set
	}
	return out
}

func (m *Matcher) explain(target model.Attribute, targetTerms []model.OntologyTerm, expanded map[string]map[string]bool, source model.Attribute) (model.MatchingExplanation, bool) {
	literal := m.explainLiteral(target, targetTerms, source)
	best := literal
	if hits := m.relatedHits(targetTerms, expanded, source); len(hits) > 0 {
		if onto, ok := m.explainOntology(target, source, hits); ok && onto.NGramScore >= literal.NGramScore {
			best = onto
		}
	}
	if best.NGramScore <= 0 || len(strings.Join(textnorm.Terms(best.MatchedWords), "")) < MinMatchedWordsLength {
		return model.MatchingExplanation{}, false
	}
	return best, true
}

func (m *Matcher) relatedHits(targetTerms []model.OntologyTerm, expanded map[string]map[string]bool, source model.Attribute) []hit {
	level := m.params.ExpansionLevel
	var hits []hit
	for _, st := range source.Terms(m.params.KeyConcepts) {
		for _, tt := range targetTerms {
			related := expanded[tt.IRI][st.IRI] ||
				(hierarchy.Related(tt, st) && hierarchy.WithinDistance(tt, st, level))
			if !related {
				continue
			}
			rel := 1.0
			if !tt.Equal(st) {
				rel = m.rel.Relatedness(tt, st, level)
			}
			hits = append(hits, hit{origin: tt, term: st, relatedness: rel})
			break
		}
	}
	return hits
}

// explainOntology rewrites the target label by substituting the source's
// matched synonyms for the words the target's terms covered, scores the
// rewrite against the source label, and discounts each substituted synonym
// by the square of its relatedness.
func (m *Matcher) explainOntology(target, source model.Attribute, hits []hit) (model.MatchingExplanation, bool) {
	targetLabel, sourceLabel := target.Text(), source.Text()

	var originWords, sourceSynonyms []string
	var terms []model.OntologyTerm
	var weights []float64
	for _, h := range hits {
		syn := matchedSynonym(sourceLabel, h.term)
		if syn == "" {
			continue
		}
		originWords = append(originWords, matchedSynonym(targetLabel, h.origin))
		sourceSynonyms = append(sourceSynonyms, syn)
		terms = append(terms, h.term)
		weights = append(weights, h.relatedness)
	}
	if len(sourceSynonyms) == 0 {
		return model.MatchingExplanation{}, false
	}

	transformed := distinct(append(
		strings.Fields(strings.Join(sourceSynonyms, " ")),
		textnorm.UnmatchedWords(targetLabel, strings.Join(originWords, " "))...,
	))
	query := strings.Join(transformed, " ")
	score := m.params.NGram.Score(query, sourceLabel)
	for i, syn := range sourceSynonyms {
		if weights[i] == 1 {
			continue
		}
		contrib := score * float64(len(syn)) / float64(len(query))
		score = score - contrib + contrib*weights[i]*weights[i]
	}

	return model.MatchingExplanation{
		Terms:        distinctTerms(terms),
		QueryString:  query,
		MatchedWords: strings.Join(sourceSynonyms, " "),
		NGramScore:   score,
	}, true
}

// explainLiteral scores the labels directly. When they share no word, the
// words the target's term synonyms share with the source are used instead.
func (m *Matcher) explainLiteral(target model.Attribute, targetTerms []model.OntologyTerm, source model.Attribute) model.MatchingExplanation {
	targetLabel, sourceLabel := target.Text(), source.Text()
	query := targetLabel
	matched := textnorm.MatchedWords(targetLabel, sourceLabel)
	score := m.params.NGram.Score(targetLabel, sourceLabel)

	if len(matched) == 0 {
		var words []string
		for _, t := range targetTerms {
			for _, syn := range t.LowerCaseTerms() {
				words = append(words, textnorm.MatchedWords(syn, sourceLabel)...)
			}
		}
		if words = distinct(words); len(words) > 0 {
			extra := " " + strings.Join(words, " ")
			query = targetLabel + extra
			score = m.params.NGram.Score(query, sourceLabel+extra)
			matched = words
		}
	}

	return model.MatchingExplanation{
		QueryString:  query,
		MatchedWords: stripDigits(strings.Join(matched, " ")),
		NGramScore:   score,
	}
}

// matchedSynonym returns the longest synonym of t whose words all occur in
// label, as its stop-word-free words joined by spaces.
func matchedSynonym(label string, t model.OntologyTerm) string {
	stems := textnorm.StemSet(textnorm.Terms(label))
	best := ""
	for _, syn := range t.LowerCaseTerms() {
		words := textnorm.Terms(syn)
		synStems := make([]string, len(words))
		for i, w := range words {
			synStems[i] = textnorm.Stem(w)
		}
		if len(words) == 0 || !textnorm.ContainsAll(stems, synStems) {
			continue
		}
		if joined := strings.Join(words, " "); len(joined) > len(best) {
			best = joined
		}
	}
	return best
}

func stripDigits(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func distinct(words []string) []string {
	seen := make(map[string]bool, len(words))
	var out []string
	for _, w := range words {
		if w != "" && !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

func distinctTerms(terms []model.OntologyTerm) []model.OntologyTerm {
	seen := make(map[string]bool, len(terms))
	var out []model.OntologyTerm
	for _, t := range terms {
		if !seen[t.IRI] {
			seen[t.IRI] = true
			out = append(out, t)
		}
	}
	return out
}
