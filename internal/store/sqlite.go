// Package store provides SQLite-backed persistence for semmatch data.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/ontology"
	"github.com/scbrown/semmatch/internal/textnorm"

	_ "modernc.org/sqlite"
)

const schemaVersion = 2

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at dbPath.
// It auto-creates the parent directory (e.g. ~/.semmatch/) and runs
// schema migrations to ensure the database is up to date.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection for WAL mode simplicity.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate runs schema migrations up to the current version.
func (s *SQLiteStore) migrate() error {
	// Create version table if it doesn't exist.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}

	var ver int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&ver)
	if err == sql.ErrNoRows {
		ver = 0
	} else if err != nil {
		return fmt.Errorf("read version: %w", err)
	}

	if ver < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	if ver < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLiteStore) migrateV1() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS terms (
			iri            TEXT PRIMARY KEY,
			ontology       TEXT NOT NULL DEFAULT '',
			label          TEXT NOT NULL,
			synonyms       TEXT,
			node_paths     TEXT,
			semantic_types TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_terms_ontology ON terms(ontology)`,
		`CREATE TABLE IF NOT EXISTS term_stems (
			stem TEXT NOT NULL,
			iri  TEXT NOT NULL,
			PRIMARY KEY (stem, iri)
		)`,
		`CREATE TABLE IF NOT EXISTS term_paths (
			iri         TEXT NOT NULL,
			path        TEXT NOT NULL,
			parent_path TEXT NOT NULL,
			PRIMARY KEY (iri, path)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_term_paths_parent ON term_paths(parent_path)`,
		`CREATE TABLE IF NOT EXISTS attributes (
			collection  TEXT NOT NULL,
			id          TEXT NOT NULL,
			name        TEXT,
			label       TEXT,
			description TEXT,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE TABLE IF NOT EXISTS tag_groups (
			collection    TEXT NOT NULL,
			attribute_id  TEXT NOT NULL,
			position      INTEGER NOT NULL,
			terms         TEXT NOT NULL,
			matched_words TEXT,
			score         INTEGER NOT NULL,
			PRIMARY KEY (collection, attribute_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS candidates (
			id                TEXT PRIMARY KEY,
			target_collection TEXT NOT NULL,
			target            TEXT NOT NULL,
			source_collection TEXT NOT NULL,
			source            TEXT NOT NULL,
			explanation       TEXT NOT NULL,
			score             REAL NOT NULL,
			high_quality      INTEGER NOT NULL DEFAULT 0,
			created_at        TEXT NOT NULL,
			UNIQUE (target_collection, target, source_collection, source)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_target ON candidates(target_collection, target)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id           TEXT PRIMARY KEY,
			candidate_id TEXT NOT NULL,
			decision     TEXT NOT NULL,
			comment      TEXT,
			owner        TEXT,
			timestamp    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_candidate ON decisions(candidate_id)`,
		`INSERT OR REPLACE INTO schema_version (version) VALUES (1)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate v1: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) migrateV2() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS collection_similarities (
			strategy   TEXT NOT NULL,
			target     TEXT NOT NULL,
			source     TEXT NOT NULL,
			similarity REAL NOT NULL,
			coverage   INTEGER NOT NULL,
			PRIMARY KEY (strategy, target, source)
		)`,
		`UPDATE schema_version SET version = 2`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate v2: %w", err)
		}
	}
	return nil
}

// PutTerms inserts or replaces ontology terms along with their stem and
// path index rows.
func (s *SQLiteStore) PutTerms(ctx context.Context, terms []model.OntologyTerm) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, t := range terms {
		synonyms, _ := json.Marshal(t.Synonyms)
		paths, _ := json.Marshal(t.NodePaths)
		types, _ := json.Marshal(t.SemanticTypes)
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO terms (iri, ontology, label, synonyms, node_paths, semantic_types)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			t.IRI, t.Ontology, t.Label, string(synonyms), string(paths), string(types)); err != nil {
			return fmt.Errorf("insert term %s: %w", t.IRI, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM term_stems WHERE iri = ?`, t.IRI); err != nil {
			return fmt.Errorf("clear stems: %w", err)
		}
		for _, st := range ontology.TermStems(t) {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO term_stems (stem, iri) VALUES (?, ?)`, st, t.IRI); err != nil {
				return fmt.Errorf("insert stem: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM term_paths WHERE iri = ?`, t.IRI); err != nil {
			return fmt.Errorf("clear paths: %w", err)
		}
		for _, p := range t.NodePaths {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO term_paths (iri, path, parent_path) VALUES (?, ?, ?)`,
				t.IRI, p, ontology.ParentPath(p)); err != nil {
				return fmt.Errorf("insert path: %w", err)
			}
		}
	}
	return tx.Commit()
}

// FindTerms returns terms sharing stems with queryTerms, most shared stems
// first, then by IRI.
func (s *SQLiteStore) FindTerms(ctx context.Context, scopes, queryTerms []string, pageSize int) ([]model.OntologyTerm, error) {
	var stems []string
	seen := make(map[string]bool)
	for _, q := range queryTerms {
		for _, st := range textnorm.SplitAndStem(q) {
			if !seen[st] {
				seen[st] = true
				stems = append(stems, st)
			}
		}
	}
	if len(stems) == 0 {
		return nil, nil
	}

	query := `SELECT s.iri, COUNT(*) AS hits FROM term_stems s JOIN terms t ON t.iri = s.iri
		WHERE s.stem IN (` + placeholders(len(stems)) + `)`
	args := toArgs(stems)
	if len(scopes) > 0 {
		query += " AND t.ontology IN (" + placeholders(len(scopes)) + ")"
		args = append(args, toArgs(scopes)...)
	}
	query += " GROUP BY s.iri ORDER BY hits DESC, s.iri"
	if pageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d", pageSize)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find terms: %w", err)
	}
	var iris []string
	for rows.Next() {
		var iri string
		var hits int
		if err := rows.Scan(&iri, &hits); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan term hit: %w", err)
		}
		iris = append(iris, iri)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.loadTerms(ctx, iris)
}

// Children returns the terms having a path directly below one of term's paths.
func (s *SQLiteStore) Children(ctx context.Context, term model.OntologyTerm) ([]model.OntologyTerm, error) {
	var parents []string
	for _, p := range term.NodePaths {
		if p != "" {
			parents = append(parents, p)
		}
	}
	if len(parents) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT iri FROM term_paths WHERE parent_path IN (`+placeholders(len(parents))+`) AND iri != ? ORDER BY iri`,
		append(toArgs(parents), term.IRI)...)
	if err != nil {
		return nil, fmt.Errorf("children: %w", err)
	}
	var iris []string
	for rows.Next() {
		var iri string
		if err := rows.Scan(&iri); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan child: %w", err)
		}
		iris = append(iris, iri)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.loadTerms(ctx, iris)
}

// Term returns the term with the given IRI, or nil if there is none.
func (s *SQLiteStore) Term(ctx context.Context, iri string) (*model.OntologyTerm, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT iri, ontology, label, synonyms, node_paths, semantic_types FROM terms WHERE iri = ?`, iri)
	t, err := scanTerm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get term: %w", err)
	}
	return &t, nil
}

func (s *SQLiteStore) loadTerms(ctx context.Context, iris []string) ([]model.OntologyTerm, error) {
	out := make([]model.OntologyTerm, 0, len(iris))
	for _, iri := range iris {
		t, err := s.Term(ctx, iri)
		if err != nil {
			return nil, err
		}
		if t != nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTerm(row rowScanner) (model.OntologyTerm, error) {
	var t model.OntologyTerm
	var synonyms, paths, types sql.NullString
	if err := row.Scan(&t.IRI, &t.Ontology, &t.Label, &synonyms, &paths, &types); err != nil {
		return t, err
	}
	if err := unmarshalNullable(synonyms, &t.Synonyms); err != nil {
		return t, fmt.Errorf("decode synonyms of %s: %w", t.IRI, err)
	}
	if err := unmarshalNullable(paths, &t.NodePaths); err != nil {
		return t, fmt.Errorf("decode paths of %s: %w", t.IRI, err)
	}
	if err := unmarshalNullable(types, &t.SemanticTypes); err != nil {
		return t, fmt.Errorf("decode semantic types of %s: %w", t.IRI, err)
	}
	return t, nil
}

// SaveAttributes inserts or replaces attributes and their tag groups.
func (s *SQLiteStore) SaveAttributes(ctx context.Context, attrs []model.Attribute) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, a := range attrs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO attributes (collection, id, name, label, description) VALUES (?, ?, ?, ?, ?)`,
			a.Collection, a.ID, nullableString(a.Name), nullableString(a.Label), nullableString(a.Description)); err != nil {
			return fmt.Errorf("insert attribute %s/%s: %w", a.Collection, a.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tag_groups WHERE collection = ? AND attribute_id = ?`, a.Collection, a.ID); err != nil {
			return fmt.Errorf("clear tag groups: %w", err)
		}
		for i, g := range a.TagGroups {
			terms, err := json.Marshal(g.Terms)
			if err != nil {
				return fmt.Errorf("marshal tag group terms: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO tag_groups (collection, attribute_id, position, terms, matched_words, score) VALUES (?, ?, ?, ?, ?, ?)`,
				a.Collection, a.ID, i, string(terms), nullableString(g.MatchedWords), g.Score); err != nil {
				return fmt.Errorf("insert tag group: %w", err)
			}
		}
	}
	return tx.Commit()
}

// GetAttribute returns one attribute with its tag groups.
func (s *SQLiteStore) GetAttribute(ctx context.Context, collection, id string) (*model.Attribute, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT collection, id, name, label, description FROM attributes WHERE collection = ? AND id = ?`, collection, id)
	a, err := scanAttribute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attribute %s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get attribute: %w", err)
	}
	groups, err := s.tagGroups(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	a.TagGroups = groups[id]
	return &a, nil
}

// ListAttributes returns a collection's attributes ordered by ID.
func (s *SQLiteStore) ListAttributes(ctx context.Context, collection string) ([]model.Attribute, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT collection, id, name, label, description FROM attributes WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	var attrs []model.Attribute
	for rows.Next() {
		a, err := scanAttribute(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		attrs = append(attrs, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups, err := s.tagGroups(ctx, collection, "")
	if err != nil {
		return nil, err
	}
	for i := range attrs {
		attrs[i].TagGroups = groups[attrs[i].ID]
	}
	return attrs, nil
}

func scanAttribute(row rowScanner) (model.Attribute, error) {
	var a model.Attribute
	var name, label, desc sql.NullString
	if err := row.Scan(&a.Collection, &a.ID, &name, &label, &desc); err != nil {
		return a, err
	}
	a.Name, a.Label, a.Description = name.String, label.String, desc.String
	return a, nil
}

// tagGroups loads tag groups of a collection keyed by attribute ID, limited
// to one attribute when attributeID is set.
func (s *SQLiteStore) tagGroups(ctx context.Context, collection, attributeID string) (map[string][]model.TagGroup, error) {
	query := `SELECT attribute_id, terms, matched_words, score FROM tag_groups WHERE collection = ?`
	args := []any{collection}
	if attributeID != "" {
		query += " AND attribute_id = ?"
		args = append(args, attributeID)
	}
	query += " ORDER BY attribute_id, position"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tag groups: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.TagGroup)
	for rows.Next() {
		var id, terms string
		var matched sql.NullString
		var g model.TagGroup
		if err := rows.Scan(&id, &terms, &matched, &g.Score); err != nil {
			return nil, fmt.Errorf("scan tag group: %w", err)
		}
		if err := json.Unmarshal([]byte(terms), &g.Terms); err != nil {
			return nil, fmt.Errorf("decode tag group terms: %w", err)
		}
		g.MatchedWords = matched.String
		out[id] = append(out[id], g)
	}
	return out, rows.Err()
}

// ListCollections returns the IDs of collections with attributes.
func (s *SQLiteStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT collection FROM attributes ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveCandidates upserts candidates keyed by their target and source. When a
// candidate for the same pair already exists its ID is kept and written back
// into cands.
func (s *SQLiteStore) SaveCandidates(ctx context.Context, cands []model.AttributeMappingCandidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeFormat)
	for i := range cands {
		c := &cands[i]
		expl, err := json.Marshal(c.Explanation)
		if err != nil {
			return fmt.Errorf("marshal explanation: %w", err)
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO candidates (id, target_collection, target, source_collection, source, explanation, score, high_quality, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (target_collection, target, source_collection, source) DO UPDATE SET
				explanation = excluded.explanation,
				score = excluded.score,
				high_quality = excluded.high_quality
			 RETURNING id`,
			c.ID, c.TargetCollection, c.Target, c.SourceCollection, c.Source,
			string(expl), c.Explanation.NGramScore, boolToInt(c.HighQuality), now,
		).Scan(&c.ID)
		if err != nil {
			return fmt.Errorf("upsert candidate: %w", err)
		}
	}
	return tx.Commit()
}

const candidateColumns = `id, target_collection, target, source_collection, source, explanation, high_quality`

func scanCandidate(row rowScanner) (model.AttributeMappingCandidate, error) {
	var c model.AttributeMappingCandidate
	var expl string
	var hq int
	if err := row.Scan(&c.ID, &c.TargetCollection, &c.Target, &c.SourceCollection, &c.Source, &expl, &hq); err != nil {
		return c, err
	}
	if err := json.Unmarshal([]byte(expl), &c.Explanation); err != nil {
		return c, fmt.Errorf("decode explanation of %s: %w", c.ID, err)
	}
	c.HighQuality = hq != 0
	return c, nil
}

// GetCandidate returns one candidate with its decision history.
func (s *SQLiteStore) GetCandidate(ctx context.Context, id string) (*model.AttributeMappingCandidate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	decisions, err := s.decisions(ctx, "candidate_id = ?", []any{id})
	if err != nil {
		return nil, err
	}
	c.Decisions = decisions[id]
	return &c, nil
}

// ListCandidates returns candidates matching opts, best score first.
func (s *SQLiteStore) ListCandidates(ctx context.Context, opts CandidateOpts) ([]model.AttributeMappingCandidate, error) {
	where := "1=1"
	var args []any
	if opts.TargetCollection != "" {
		where += " AND target_collection = ?"
		args = append(args, opts.TargetCollection)
	}
	if opts.Target != "" {
		where += " AND target = ?"
		args = append(args, opts.Target)
	}
	if opts.SourceCollection != "" {
		where += " AND source_collection = ?"
		args = append(args, opts.SourceCollection)
	}
	if opts.HighQualityOnly {
		where += " AND high_quality = 1"
	}
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE ` + where + ` ORDER BY score DESC, target, source, id`
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	var cands []model.AttributeMappingCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		cands = append(cands, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	decisions, err := s.decisions(ctx, "candidate_id IN (SELECT id FROM candidates WHERE "+where+")", args)
	if err != nil {
		return nil, err
	}
	for i := range cands {
		cands[i].Decisions = decisions[cands[i].ID]
	}
	return cands, nil
}

// decisions loads decision histories keyed by candidate ID, oldest first.
func (s *SQLiteStore) decisions(ctx context.Context, where string, args []any) (map[string][]model.AttributeMappingDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, decision, comment, owner, timestamp FROM decisions WHERE `+where+` ORDER BY timestamp, rowid`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.AttributeMappingDecision)
	for rows.Next() {
		var d model.AttributeMappingDecision
		var decision, ts string
		var comment, owner sql.NullString
		if err := rows.Scan(&d.ID, &d.CandidateID, &decision, &comment, &owner, &ts); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Decision = model.Decision(decision)
		d.Comment, d.Owner = comment.String, owner.String
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		d.Timestamp = t
		out[d.CandidateID] = append(out[d.CandidateID], d)
	}
	return out, rows.Err()
}

// RecordDecision appends d to its candidate's history.
func (s *SQLiteStore) RecordDecision(ctx context.Context, d model.AttributeMappingDecision) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM candidates WHERE id = ?`, d.CandidateID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("candidate %s: %w", d.CandidateID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check candidate: %w", err)
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, candidate_id, decision, comment, owner, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.CandidateID, string(d.Decision), nullableString(d.Comment), nullableString(d.Owner),
		d.Timestamp.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// ReplaceCollectionSimilarities deletes the stored results of strategy and
// writes results in their place.
func (s *SQLiteStore) ReplaceCollectionSimilarities(ctx context.Context, strategy string, results []model.CollectionSimilarityResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM collection_similarities WHERE strategy = ?`, strategy); err != nil {
		return fmt.Errorf("clear similarities: %w", err)
	}
	for _, r := range results {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO collection_similarities (strategy, target, source, similarity, coverage) VALUES (?, ?, ?, ?, ?)`,
			strategy, r.Target, r.Source, r.Similarity, r.Coverage); err != nil {
			return fmt.Errorf("insert similarity: %w", err)
		}
	}
	return tx.Commit()
}

// ListCollectionSimilarities returns stored results for strategy, or for
// every strategy when it is empty.
func (s *SQLiteStore) ListCollectionSimilarities(ctx context.Context, strategy string) ([]model.CollectionSimilarityResult, error) {
	query := `SELECT strategy, target, source, similarity, coverage FROM collection_similarities`
	var args []any
	if strategy != "" {
		query += " WHERE strategy = ?"
		args = append(args, strategy)
	}
	query += " ORDER BY target, source, strategy"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list similarities: %w", err)
	}
	defer rows.Close()
	var out []model.CollectionSimilarityResult
	for rows.Next() {
		var r model.CollectionSimilarityResult
		if err := rows.Scan(&r.Strategy, &r.Target, &r.Source, &r.Similarity, &r.Coverage); err != nil {
			return nil, fmt.Errorf("scan similarity: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats returns record counts.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM terms`, &st.Terms},
		{`SELECT COUNT(DISTINCT collection) FROM attributes`, &st.Collections},
		{`SELECT COUNT(*) FROM attributes`, &st.Attributes},
		{`SELECT COUNT(*) FROM tag_groups`, &st.TagGroups},
		{`SELECT COUNT(*) FROM candidates`, &st.Candidates},
		{`SELECT COUNT(*) FROM candidates WHERE high_quality = 1`, &st.HighQuality},
		{`SELECT COUNT(*) FROM decisions`, &st.Decisions},
		{`SELECT COUNT(*) FROM collection_similarities`, &st.Similarities},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return st, fmt.Errorf("stats: %w", err)
		}
	}
	return st, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableString returns nil for empty strings so SQLite stores NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func unmarshalNullable(s sql.NullString, dst any) error {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dst)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
