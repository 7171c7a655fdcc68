// Package engine wires the matching components together from one set of
// settings and exposes tagging, attribute matching and collection scoring.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/scbrown/semmatch/internal/analyze"
	"github.com/scbrown/semmatch/internal/collection"
	"github.com/scbrown/semmatch/internal/job"
	"github.com/scbrown/semmatch/internal/match"
	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/ngram"
	"github.com/scbrown/semmatch/internal/ontology"
	"github.com/scbrown/semmatch/internal/relcache"
	"github.com/scbrown/semmatch/internal/tagging"
	"github.com/scbrown/semmatch/internal/vsm"
	"go.uber.org/zap"
)

// Settings holds every tunable of the engine.
type Settings struct {
	NGramSize            int
	HighQualityThreshold float64
	ExpansionLevel       int
	StopLevel            int
	PageSize             int
	CacheSize            int
	CacheTTL             time.Duration
	ProgressBatch        int
	KeyConcepts          []model.SemanticType
	ScoringModel         analyze.Model
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		NGramSize:            ngram.DefaultN,
		HighQualityThreshold: match.DefaultHighQualityThreshold,
		ExpansionLevel:       match.DefaultExpansionLevel,
		StopLevel:            match.DefaultExpansionLevel,
		PageSize:             tagging.DefaultPageSize,
		CacheSize:            relcache.DefaultSize,
		CacheTTL:             relcache.DefaultTTL,
		ProgressBatch:        job.DefaultBatchSize,
		ScoringModel:         analyze.ModelNGram,
	}
}

// AttributeSource lists stored collections and their attributes.
type AttributeSource interface {
	ListCollections(ctx context.Context) ([]string, error)
	ListAttributes(ctx context.Context, collection string) ([]model.Attribute, error)
}

// Engine is safe for concurrent use; the relatedness cache is its only
// mutable state.
type Engine struct {
	settings Settings
	index    ontology.Index
	attrs    AttributeSource
	cache    *relcache.Cache
	tagger   *tagging.Generator
	matcher  *match.Matcher
	log      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger passed to every component.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New builds an Engine over idx. attrs may be nil when collection scoring is
// not needed.
func New(idx ontology.Index, attrs AttributeSource, s Settings, opts ...Option) (*Engine, error) {
	e := &Engine{settings: s, index: idx, attrs: attrs, log: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}

	cache, err := relcache.New(s.CacheSize, s.CacheTTL, relcache.WithLogger(e.log))
	if err != nil {
		return nil, fmt.Errorf("create relatedness cache: %w", err)
	}
	e.cache = cache

	ng := ngram.New(s.NGramSize)
	e.tagger = tagging.New(idx,
		tagging.WithNGram(ng),
		tagging.WithPageSize(s.PageSize),
		tagging.WithKeyConcepts(s.KeyConcepts),
		tagging.WithLogger(e.log))
	e.matcher = match.New(idx, cache, match.Params{
		HighQualityThreshold: s.HighQualityThreshold,
		ExpansionLevel:       s.ExpansionLevel,
		KeyConcepts:          s.KeyConcepts,
		NGram:                ng,
	}, match.WithLogger(e.log))
	return e, nil
}

// Settings returns the settings the engine was built with.
func (e *Engine) Settings() Settings { return e.settings }

// Index returns the ontology index.
func (e *Engine) Index() ontology.Index { return e.index }

// CacheStats reports relatedness cache counters.
func (e *Engine) CacheStats() relcache.Stats { return e.cache.Stats() }

// Tag returns the tag groups for text within scopes.
func (e *Engine) Tag(ctx context.Context, text string, scopes []string) []model.TagGroup {
	return e.tagger.Tag(ctx, text, scopes)
}

// Match returns ranked mapping candidates for target among pool.
func (e *Engine) Match(ctx context.Context, target model.Attribute, pool []model.Attribute) []model.AttributeMappingCandidate {
	return e.matcher.Match(ctx, target, pool)
}

// Relatedness is the cached relatedness of two terms at the configured stop
// level.
func (e *Engine) Relatedness(target, source model.OntologyTerm) float64 {
	return e.cache.Relatedness(target, source, e.settings.StopLevel)
}

// ScoreCollections scores every pair among ids, or among all stored
// collections when ids is empty.
func (e *Engine) ScoreCollections(ctx context.Context, ids []string, strategy collection.Strategy) ([]model.CollectionSimilarityResult, error) {
	if e.attrs == nil {
		return nil, fmt.Errorf("score collections: no attribute source")
	}
	scorer, err := collection.New(strategy, e.cache, e.settings.StopLevel)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		if ids, err = e.attrs.ListCollections(ctx); err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
	}
	profiles := make([]collection.Profile, 0, len(ids))
	for _, id := range ids {
		attrs, err := e.attrs.ListAttributes(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("list attributes of %s: %w", id, err)
		}
		profiles = append(profiles, collection.NewProfile(id, attrs, e.settings.KeyConcepts))
	}
	return collection.ScoreAll(ctx, profiles, scorer)
}

// Runner returns a batch job runner reporting to progress.
func (e *Engine) Runner(progress job.ProgressFunc) job.Runner {
	return job.Runner{BatchSize: e.settings.ProgressBatch, Progress: progress, Log: e.log}
}

// Scorer returns the lexical scoring model m, or the configured model when m
// is empty. The vsm model weighs terms by their inverse document frequency
// over corpus.
func (e *Engine) Scorer(m analyze.Model, corpus []string) (analyze.Scorer, error) {
	if m == "" {
		m = e.settings.ScoringModel
	}
	opts := analyze.Options{NGramSize: e.settings.NGramSize}
	if m == analyze.ModelVSM && len(corpus) > 0 {
		opts.Frequencies = vsm.NewCorpusFrequency(corpus)
	}
	return analyze.New(m, opts)
}
