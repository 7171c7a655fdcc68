// Package ontology defines the contract of the ontology-term index the
// matching engine consumes, an in-memory implementation of it, and a loader
// for term and collection fixtures.
package ontology

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/textnorm"
)

// Index looks up ontology terms. Implementations must be safe for
// concurrent use.
type Index interface {
	// FindTerms returns terms in the given ontologies (all when scopes is
	// empty) having a synonym or label that shares a stem with queryTerms,
	// best matches first, at most pageSize.
	FindTerms(ctx context.Context, scopes, queryTerms []string, pageSize int) ([]model.OntologyTerm, error)
	// Children returns the direct descendants of term.
	Children(ctx context.Context, term model.OntologyTerm) ([]model.OntologyTerm, error)
	// Term returns the term with the given IRI, or nil when there is none.
	Term(ctx context.Context, iri string) (*model.OntologyTerm, error)
}

// MemIndex is an Index held in memory.
type MemIndex struct {
	mu    sync.RWMutex
	terms map[string]model.OntologyTerm
	order []string
	stems map[string][]string // stem -> IRIs
}

// NewMemIndex returns an index holding terms.
func NewMemIndex(terms ...model.OntologyTerm) *MemIndex {
	m := &MemIndex{
		terms: make(map[string]model.OntologyTerm),
		stems: make(map[string][]string),
	}
	m.Add(terms...)
	return m
}

// Add inserts or replaces terms.
func (m *MemIndex) Add(terms ...model.OntologyTerm) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range terms {
		if _, ok := m.terms[t.IRI]; !ok {
			m.order = append(m.order, t.IRI)
		}
		m.terms[t.IRI] = t
		for _, s := range TermStems(t) {
			if !slices.Contains(m.stems[s], t.IRI) {
				m.stems[s] = append(m.stems[s], t.IRI)
			}
		}
	}
}

// Len returns the number of terms.
func (m *MemIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.terms)
}

// TermStems returns the distinct stems of a term's label and synonyms.
func TermStems(t model.OntologyTerm) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range t.LowerCaseTerms() {
		for _, st := range textnorm.SplitAndStem(s) {
			if !seen[st] && !textnorm.IsStopWord(st) {
				seen[st] = true
				out = append(out, st)
			}
		}
	}
	return out
}

func (m *MemIndex) FindTerms(ctx context.Context, scopes, queryTerms []string, pageSize int) ([]model.OntologyTerm, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make(map[string]int)
	for _, q := range queryTerms {
		for _, st := range textnorm.SplitAndStem(q) {
			for _, iri := range m.stems[st] {
				hits[iri]++
			}
		}
	}
	var out []model.OntologyTerm
	for _, iri := range m.order {
		t := m.terms[iri]
		if hits[iri] == 0 || !inScope(t, scopes) {
			continue
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b model.OntologyTerm) int {
		if hits[a.IRI] != hits[b.IRI] {
			return hits[b.IRI] - hits[a.IRI]
		}
		return strings.Compare(a.IRI, b.IRI)
	})
	if pageSize > 0 && len(out) > pageSize {
		out = out[:pageSize]
	}
	return out, nil
}

func (m *MemIndex) Children(ctx context.Context, term model.OntologyTerm) ([]model.OntologyTerm, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.OntologyTerm
	for _, iri := range m.order {
		if c := m.terms[iri]; IsChild(c, term) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemIndex) Term(ctx context.Context, iri string) (*model.OntologyTerm, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.terms[iri]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// IsChild reports whether some path of child is exactly one level below a
// path of parent.
func IsChild(child, parent model.OntologyTerm) bool {
	for _, p := range parent.NodePaths {
		if p == "" {
			continue
		}
		for _, c := range child.NodePaths {
			rest, ok := strings.CutPrefix(c, p+".")
			if ok && rest != "" && !strings.Contains(rest, ".") {
				return true
			}
		}
	}
	return false
}

// ParentPath returns the path one level above path, or "" at the root.
func ParentPath(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[:i]
	}
	return ""
}

func inScope(t model.OntologyTerm, scopes []string) bool {
	return len(scopes) == 0 || slices.Contains(scopes, t.Ontology)
}

// Descendants walks Children breadth-first up to depth levels below term and
// returns every descendant once. Lookup failures end the walk early and are
// returned with the descendants found so far.
func Descendants(ctx context.Context, idx Index, term model.OntologyTerm, depth int) ([]model.OntologyTerm, error) {
	seen := map[string]bool{term.IRI: true}
	var out []model.OntologyTerm
	frontier := []model.OntologyTerm{term}
	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []model.OntologyTerm
		for _, t := range frontier {
			children, err := idx.Children(ctx, t)
			if err != nil {
				return out, err
			}
			for _, c := range children {
				if seen[c.IRI] {
					continue
				}
				seen[c.IRI] = true
				out = append(out, c)
				next = append(next, c)
			}
		}
		frontier = next
	}
	return out, nil
}
