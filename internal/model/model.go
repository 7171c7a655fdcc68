// Package model defines the value types shared across semmatch: ontology terms,
// tag groups, tagged attributes, mapping candidates with their explanations and
// decisions, and collection similarity results.
package model

import (
	"math"
	"slices"
	"strings"
	"time"
)

// IRISeparator joins the atomic IRIs of a composite ontology term.
const IRISeparator = ","

// ScoreScale is the fixed-point multiplier applied to persisted TagGroup scores.
const ScoreScale = 100000

// SemanticType classifies an ontology term (e.g. "Disease or Syndrome").
type SemanticType struct {
	Name             string `json:"name" yaml:"name"`
	Group            string `json:"group,omitempty" yaml:"group,omitempty"`
	GlobalKeyConcept bool   `json:"global_key_concept,omitempty" yaml:"global_key_concept,omitempty"`
}

// OntologyTerm is a read-only copy of a concept from the ontology index.
// Two terms are the same term when their IRIs are equal.
type OntologyTerm struct {
	IRI           string         `json:"iri" yaml:"iri"`
	Ontology      string         `json:"ontology,omitempty" yaml:"ontology,omitempty"`
	Label         string         `json:"label" yaml:"label"`
	Synonyms      []string       `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
	NodePaths     []string       `json:"node_paths,omitempty" yaml:"node_paths,omitempty"`
	SemanticTypes []SemanticType `json:"semantic_types,omitempty" yaml:"semantic_types,omitempty"`
}

// NewOntologyTerm builds a term with synonyms deduplicated case-insensitively.
// The first spelling of each synonym wins.
func NewOntologyTerm(iri, label string, synonyms, nodePaths []string, types []SemanticType) OntologyTerm {
	return OntologyTerm{
		IRI:           iri,
		Label:         label,
		Synonyms:      dedupeFold(synonyms),
		NodePaths:     slices.Clone(nodePaths),
		SemanticTypes: slices.Clone(types),
	}
}

// Equal reports whether t and o identify the same term.
func (t OntologyTerm) Equal(o OntologyTerm) bool {
	return t.IRI == o.IRI
}

// AtomicIRIs splits a composite IRI into the IRIs of its atomic terms.
func (t OntologyTerm) AtomicIRIs() []string {
	var out []string
	for _, p := range strings.Split(t.IRI, IRISeparator) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LowerCaseTerms returns the synonyms followed by the label, lowercased and
// deduplicated, in first-seen order.
func (t OntologyTerm) LowerCaseTerms() []string {
	seen := make(map[string]bool, len(t.Synonyms)+1)
	var out []string
	for _, s := range append(slices.Clone(t.Synonyms), t.Label) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// MatchesExactly reports whether text equals the label or one of the
// synonyms, ignoring case.
func (t OntologyTerm) MatchesExactly(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	return slices.Contains(t.LowerCaseTerms(), text)
}

// HasSemanticTypes reports whether the term carries at least one semantic type.
func (t OntologyTerm) HasSemanticTypes() bool {
	return len(t.SemanticTypes) > 0
}

// InSemanticTypes reports whether any of the term's semantic types is in set.
// Types are compared by name.
func (t OntologyTerm) InSemanticTypes(set []SemanticType) bool {
	for _, st := range t.SemanticTypes {
		for _, k := range set {
			if strings.EqualFold(st.Name, k.Name) {
				return true
			}
		}
	}
	return false
}

// TagGroup is a scored association between a piece of text and one or more
// ontology terms. Score is stored multiplied by ScoreScale and rounded.
type TagGroup struct {
	Terms        []OntologyTerm `json:"terms"`
	MatchedWords string         `json:"matched_words"`
	Score        int            `json:"score"`
}

// NewTagGroup creates a TagGroup from a similarity in [0,1].
func NewTagGroup(terms []OntologyTerm, matchedWords string, similarity float64) TagGroup {
	return TagGroup{
		Terms:        slices.Clone(terms),
		MatchedWords: matchedWords,
		Score:        ScaleScore(similarity),
	}
}

// ScaleScore converts a similarity in [0,1] to its fixed-point form.
func ScaleScore(similarity float64) int {
	return int(math.Round(similarity * ScoreScale))
}

// Similarity returns the score as a float in [0,1].
func (g TagGroup) Similarity() float64 {
	return float64(g.Score) / ScoreScale
}

// IRI returns the composite IRI of the group's terms.
func (g TagGroup) IRI() string {
	iris := make([]string, len(g.Terms))
	for i, t := range g.Terms {
		iris[i] = t.IRI
	}
	return strings.Join(iris, IRISeparator)
}

// Attribute is a variable of a collection (dataset) together with the tag
// groups produced for it.
type Attribute struct {
	ID          string     `json:"id" yaml:"id"`
	Collection  string     `json:"collection" yaml:"collection"`
	Name        string     `json:"name" yaml:"name"`
	Label       string     `json:"label" yaml:"label"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	TagGroups   []TagGroup `json:"tag_groups,omitempty" yaml:"-"`
}

// Text returns the text used for tagging: the label, or the description when
// the label is empty.
func (a Attribute) Text() string {
	if strings.TrimSpace(a.Label) != "" {
		return a.Label
	}
	return a.Description
}

// Terms returns the distinct terms across all tag groups, in order of first
// appearance, skipping terms whose semantic types intersect keyConcepts.
func (a Attribute) Terms(keyConcepts []SemanticType) []OntologyTerm {
	seen := make(map[string]bool)
	var out []OntologyTerm
	for _, g := range a.TagGroups {
		for _, t := range g.Terms {
			if seen[t.IRI] || t.InSemanticTypes(keyConcepts) {
				continue
			}
			seen[t.IRI] = true
			out = append(out, t)
		}
	}
	return out
}

// MatchingExplanation records why a source attribute was proposed for a target.
type MatchingExplanation struct {
	ID           string         `json:"id"`
	Terms        []OntologyTerm `json:"terms,omitempty"`
	QueryString  string         `json:"query_string"`
	MatchedWords string         `json:"matched_words"`
	NGramScore   float64        `json:"ngram_score"`
}

// Decision is a reviewer's verdict on a mapping candidate.
type Decision string

const (
	DecisionAccept    Decision = "accept"
	DecisionReject    Decision = "reject"
	DecisionUndecided Decision = "undecided"
)

// ParseDecision validates a decision string.
func ParseDecision(s string) (Decision, bool) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case DecisionAccept, DecisionReject, DecisionUndecided:
		return d, true
	}
	return "", false
}

// AttributeMappingDecision is one entry in a candidate's decision history.
type AttributeMappingDecision struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidate_id"`
	Decision    Decision  `json:"decision"`
	Comment     string    `json:"comment,omitempty"`
	Owner       string    `json:"owner,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// AttributeMappingCandidate proposes that Source corresponds to Target.
type AttributeMappingCandidate struct {
	ID               string                     `json:"id"`
	Target           string                     `json:"target"`
	Source           string                     `json:"source"`
	TargetCollection string                     `json:"target_collection"`
	SourceCollection string                     `json:"source_collection"`
	Explanation      MatchingExplanation        `json:"explanation"`
	HighQuality      bool                       `json:"high_quality"`
	Decisions        []AttributeMappingDecision `json:"decisions,omitempty"`
}

// WithDecision returns a copy of c with d appended to its history.
func (c AttributeMappingCandidate) WithDecision(d AttributeMappingDecision) AttributeMappingCandidate {
	c.Decisions = append(slices.Clone(c.Decisions), d)
	return c
}

// LatestDecision returns the most recent decision, or DecisionUndecided.
func (c AttributeMappingCandidate) LatestDecision() Decision {
	if len(c.Decisions) == 0 {
		return DecisionUndecided
	}
	return c.Decisions[len(c.Decisions)-1].Decision
}

// CollectionSimilarityResult scores an unordered pair of collections.
type CollectionSimilarityResult struct {
	Target     string  `json:"target"`
	Source     string  `json:"source"`
	Strategy   string  `json:"strategy"`
	Similarity float64 `json:"similarity"`
	Coverage   int     `json:"coverage"`
}

// Compare orders results by target, then source.
func (r CollectionSimilarityResult) Compare(o CollectionSimilarityResult) int {
	if c := strings.Compare(r.Target, o.Target); c != 0 {
		return c
	}
	return strings.Compare(r.Source, o.Source)
}

func dedupeFold(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
