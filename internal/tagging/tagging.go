// Package tagging annotates free text with ranked groups of ontology terms.
package tagging

import (
	"context"
	"slices"
	"strings"

	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/scbrown/semmatch/internal/hierarchy"
	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/ngram"
	"github.com/scbrown/semmatch/internal/ontology"
	"github.com/scbrown/semmatch/internal/rank"
	"github.com/scbrown/semmatch/internal/textnorm"
	"go.uber.org/zap"
)

const (
	// DefaultPageSize caps the number of terms requested from the index.
	DefaultPageSize = 100
	// MaxGroups is the most tag groups returned for one query.
	MaxGroups = 20
	// MaxCombinations caps the term combinations considered across groups.
	MaxCombinations = 3000
	// KeepRatio drops groups scoring below this fraction of the best group.
	KeepRatio = 0.8
)

// Generator maps text to tag groups using an ontology index.
type Generator struct {
	index       ontology.Index
	ngram       ngram.Similarity
	pageSize    int
	keyConcepts []model.SemanticType
	log         *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithNGram sets the lexical scorer.
func WithNGram(s ngram.Similarity) Option {
	return func(g *Generator) { g.ngram = s }
}

// WithPageSize sets how many terms are requested from the index.
func WithPageSize(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.pageSize = n
		}
	}
}

// WithKeyConcepts excludes terms carrying any of these semantic types.
func WithKeyConcepts(types []model.SemanticType) Option {
	return func(g *Generator) { g.keyConcepts = types }
}

// WithLogger sets the logger for index failures.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// New returns a Generator backed by idx.
func New(idx ontology.Index, opts ...Option) *Generator {
	g := &Generator{
		index:    idx,
		ngram:    ngram.New(ngram.DefaultN),
		pageSize: DefaultPageSize,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// hit is a term strictly matched by the query, with the query words its best
// synonym covers.
type hit struct {
	rank.Candidate
	words []string
}

// Tag returns the tag groups for text, best first. Empty or unusable text and
// index failures yield no groups.
func (g *Generator) Tag(ctx context.Context, text string, scopes []string) []model.TagGroup {
	return g.TagTerms(ctx, textnorm.Terms(text), scopes)
}

// TagTerms is Tag for pre-tokenized query words.
func (g *Generator) TagTerms(ctx context.Context, query []string, scopes []string) []model.TagGroup {
	query = textnorm.RemoveStopWords(query)
	if len(query) == 0 {
		return nil
	}
	terms, err := g.index.FindTerms(ctx, scopes, query, g.pageSize)
	if err != nil {
		g.log.Warn("ontology lookup failed",
			zap.Strings("query", query),
			zap.Strings("scopes", scopes),
			zap.Error(err))
		return nil
	}
	hits := pruneAncestors(g.match(query, terms))
	if len(hits) == 0 {
		return nil
	}
	return g.combine(query, hits)
}

// match keeps terms having a synonym whose stems are all in the query and
// scores the best such synonym against the query.
func (g *Generator) match(query []string, terms []model.OntologyTerm) []hit {
	queryStems := textnorm.StemSet(query)
	queryText := strings.Join(query, " ")

	var hits []hit
	for _, t := range terms {
		if t.InSemanticTypes(g.keyConcepts) {
			continue
		}
		var best *hit
		for _, syn := range t.LowerCaseTerms() {
			words := synonymWords(syn)
			stems := make([]string, len(words))
			for i, w := range words {
				stems[i] = textnorm.Stem(w)
			}
			if len(stems) == 0 || !textnorm.ContainsAll(queryStems, stems) {
				continue
			}
			score := g.ngram.Score(strings.Join(words, " "), queryText)
			if best == nil || score > best.Score {
				best = &hit{
					Candidate: rank.Candidate{Term: t, MatchedSynonym: syn, Score: score},
					words:     coveredWords(query, stems),
				}
			}
		}
		if best != nil {
			hits = append(hits, *best)
		}
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return rank.Compare(a.Candidate, b.Candidate) })
	return hits
}

func synonymWords(syn string) []string {
	var out []string
	for _, w := range strings.Split(textnorm.Clean(syn), " ") {
		if w != "" && !textnorm.IsStopWord(w) {
			out = append(out, w)
		}
	}
	return out
}

// coveredWords returns the query words whose stems are in stems, in query order.
func coveredWords(query, stems []string) []string {
	var out []string
	for _, q := range query {
		if slices.Contains(stems, textnorm.Stem(q)) {
			out = append(out, q)
		}
	}
	return out
}

// pruneAncestors drops a hit when a better-ranked hit is one of its
// descendants.
func pruneAncestors(hits []hit) []hit {
	var kept []hit
	for _, h := range hits {
		dominated := slices.ContainsFunc(kept, func(k hit) bool {
			return hierarchy.IsDescendant(k.Term, h.Term)
		})
		if !dominated {
			kept = append(kept, h)
		}
	}
	return kept
}

// bucket holds equally scored hits that cover the same query words.
type bucket struct {
	key   string
	words []string
	score float64
	hits  []hit
}

type group struct {
	members []*bucket
	words   []string
	score   float64
}

type candidateGroup struct {
	tg   model.TagGroup
	lead rank.Candidate
}

func (g *Generator) combine(query []string, hits []hit) []model.TagGroup {
	var buckets []*bucket
	byKey := make(map[string]*bucket)
	for _, h := range hits {
		key := strings.Join(h.words, " ")
		b, ok := byKey[key]
		if !ok {
			b = &bucket{key: key, words: h.words, score: h.Score}
			byKey[key] = b
			buckets = append(buckets, b)
		}
		if h.Score == b.score {
			b.hits = append(b.hits, h)
		}
	}

	queryText := strings.Join(query, " ")
	seen := make(map[string]bool)
	var groups []group
	for i, b := range buckets {
		grp := group{members: []*bucket{b}, words: b.words, score: b.score}
		for j, o := range buckets {
			if i == j || overlaps(grp.words, o.words) {
				continue
			}
			joined := inQueryOrder(query, append(slices.Clone(grp.words), o.words...))
			s := g.ngram.Score(strings.Join(joined, " "), queryText)
			if s >= grp.score && s >= o.score {
				grp.members = append(grp.members, o)
				grp.words = joined
				grp.score = s
			}
		}
		id := groupID(grp)
		if seen[id] {
			continue
		}
		seen[id] = true
		groups = append(groups, grp)
	}

	pq := priorityqueue.NewWith(func(a, b interface{}) int {
		x, y := a.(candidateGroup), b.(candidateGroup)
		if x.tg.Score != y.tg.Score {
			return y.tg.Score - x.tg.Score
		}
		if c := rank.Compare(x.lead, y.lead); c != 0 {
			return c
		}
		return strings.Compare(x.tg.IRI(), y.tg.IRI())
	})
	budget := MaxCombinations
	for _, grp := range groups {
		for _, combo := range product(grp.members, &budget) {
			terms := make([]model.OntologyTerm, len(combo))
			for i, h := range combo {
				terms[i] = h.Term
			}
			pq.Enqueue(candidateGroup{
				tg:   model.NewTagGroup(terms, strings.Join(grp.words, " "), grp.score),
				lead: combo[0].Candidate,
			})
		}
	}

	var out []model.TagGroup
	top := -1
	for len(out) < MaxGroups {
		v, ok := pq.Dequeue()
		if !ok {
			break
		}
		cg := v.(candidateGroup)
		if top < 0 {
			top = cg.tg.Score
		}
		if float64(cg.tg.Score) < KeepRatio*float64(top) {
			break
		}
		out = append(out, cg.tg)
	}
	return out
}

// product returns the cartesian product of the members' hits, consuming at
// most *budget combinations.
func product(members []*bucket, budget *int) [][]hit {
	combos := [][]hit{nil}
	for _, m := range members {
		var next [][]hit
		for _, c := range combos {
			for _, h := range m.hits {
				next = append(next, append(slices.Clone(c), h))
			}
		}
		combos = next
	}
	if len(combos) > *budget {
		combos = combos[:*budget]
	}
	*budget -= len(combos)
	return combos
}

func overlaps(a, b []string) bool {
	return slices.ContainsFunc(a, func(w string) bool { return slices.Contains(b, w) })
}

func inQueryOrder(query, words []string) []string {
	var out []string
	for _, q := range query {
		if slices.Contains(words, q) {
			out = append(out, q)
		}
	}
	return out
}

func groupID(g group) string {
	keys := make([]string, len(g.members))
	for i, m := range g.members {
		keys[i] = m.key
	}
	slices.Sort(keys)
	return strings.Join(keys, "|")
}

// TermLexicalSimilarity scores two terms by their closest synonyms: 1 when
// they share a cleaned synonym, otherwise the best n-gram score.
func TermLexicalSimilarity(s ngram.Similarity, t1, t2 model.OntologyTerm) float64 {
	a, b := cleanedSynonyms(t1), cleanedSynonyms(t2)
	best := 0.0
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return 1
			}
			best = max(best, s.Score(x, y))
		}
	}
	return best
}

func cleanedSynonyms(t model.OntologyTerm) []string {
	var out []string
	for _, s := range t.LowerCaseTerms() {
		if c := textnorm.Clean(s); c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
