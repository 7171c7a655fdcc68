// Package store defines the storage interface for semmatch data.
package store

import (
	"context"
	"errors"

	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/ontology"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface for ontology terms, tagged attributes,
// mapping candidates with their decisions, and collection similarities.
// It also serves as the ontology index for the engine.
type Store interface {
	ontology.Index

	// PutTerms inserts or replaces ontology terms.
	PutTerms(ctx context.Context, terms []model.OntologyTerm) error

	// SaveAttributes inserts or replaces attributes together with their
	// tag groups.
	SaveAttributes(ctx context.Context, attrs []model.Attribute) error

	// GetAttribute returns one attribute, or ErrNotFound.
	GetAttribute(ctx context.Context, collection, id string) (*model.Attribute, error)

	// ListAttributes returns a collection's attributes ordered by ID.
	ListAttributes(ctx context.Context, collection string) ([]model.Attribute, error)

	// ListCollections returns the IDs of collections with attributes.
	ListCollections(ctx context.Context) ([]string, error)

	// SaveCandidates inserts or replaces mapping candidates. Existing
	// decisions are kept.
	SaveCandidates(ctx context.Context, cands []model.AttributeMappingCandidate) error

	// GetCandidate returns one candidate with its decisions, or ErrNotFound.
	GetCandidate(ctx context.Context, id string) (*model.AttributeMappingCandidate, error)

	// ListCandidates returns candidates matching opts, best score first.
	ListCandidates(ctx context.Context, opts CandidateOpts) ([]model.AttributeMappingCandidate, error)

	// RecordDecision appends a decision to a candidate's history.
	// It returns ErrNotFound when the candidate does not exist.
	RecordDecision(ctx context.Context, d model.AttributeMappingDecision) error

	// ReplaceCollectionSimilarities replaces every stored result of strategy.
	ReplaceCollectionSimilarities(ctx context.Context, strategy string, results []model.CollectionSimilarityResult) error

	// ListCollectionSimilarities returns stored results ordered by target
	// then source. An empty strategy returns all strategies.
	ListCollectionSimilarities(ctx context.Context, strategy string) ([]model.CollectionSimilarityResult, error)

	// Stats returns record counts.
	Stats(ctx context.Context) (Stats, error)

	// Close releases any resources held by the store.
	Close() error
}

// CandidateOpts controls filtering for ListCandidates.
type CandidateOpts struct {
	TargetCollection string // Filter by target collection.
	Target           string // Filter by target attribute ID.
	SourceCollection string // Filter by source collection.
	HighQualityOnly  bool   // Only candidates flagged high quality.
	Limit            int    // Maximum results; 0 means no limit.
}

// Stats holds summary counts of stored records.
type Stats struct {
	Terms        int `json:"terms"`
	Collections  int `json:"collections"`
	Attributes   int `json:"attributes"`
	TagGroups    int `json:"tag_groups"`
	Candidates   int `json:"candidates"`
	HighQuality  int `json:"high_quality"`
	Decisions    int `json:"decisions"`
	Similarities int `json:"similarities"`
}
