// Package server provides an HTTP server that exposes the matching engine
// and the store as a JSON API, runs background jobs, and serves metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scbrown/semmatch/internal/collection"
	"github.com/scbrown/semmatch/internal/engine"
	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/store"
)

// Server wraps an engine and a store and exposes them over HTTP.
type Server struct {
	engine  *engine.Engine
	store   store.Store
	jobs    *jobRegistry
	metrics *metrics
	log     *zap.Logger
	mux     *http.ServeMux
	srv     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a Server that delegates to the given engine and store.
func New(e *engine.Engine, st store.Store, opts ...Option) *Server {
	srv := &Server{engine: e, store: st, log: zap.NewNop(), mux: http.NewServeMux()}
	for _, o := range opts {
		o(srv)
	}
	srv.metrics = newMetrics(e.CacheStats)
	srv.jobs = newJobRegistry(srv.metrics, srv.log)
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.handle("GET /api/v1/health", s.handleHealth)
	s.handle("GET /api/v1/stats", s.handleStats)
	s.handle("POST /api/v1/tag", s.handleTag)
	s.handle("POST /api/v1/match", s.handleMatch)
	s.handle("POST /api/v1/collections/score", s.handleScoreCollections)
	s.handle("GET /api/v1/collections/similarities", s.handleListSimilarities)
	s.handle("GET /api/v1/terms", s.handleFindTerms)
	s.handle("GET /api/v1/terms/get", s.handleGetTerm)
	s.handle("GET /api/v1/terms/children", s.handleChildren)
	s.handle("GET /api/v1/candidates", s.handleListCandidates)
	s.handle("POST /api/v1/candidates/{id}/decisions", s.handleRecordDecision)
	s.handle("POST /api/v1/jobs/tag", s.handleTagJob)
	s.handle("POST /api/v1/jobs/match", s.handleMatchJob)
	s.handle("GET /api/v1/jobs/{id}", s.handleGetJob)
	s.mux.Handle("GET /metrics", s.metrics.handler())
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, s.metrics.instrument(pattern, h))
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s.srv.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	s.srv = &http.Server{
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s.srv.Serve(ln)
}

// Handler returns the HTTP handler for use with httptest.Server or custom listeners.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Shutdown cancels running jobs and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	jobErr := s.jobs.stop(ctx)
	if s.srv == nil {
		return jobErr
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	return jobErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "getting stats: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"store": stats,
		"cache": s.engine.CacheStats(),
	})
}

type tagRequest struct {
	Text   string   `json:"text"`
	Scopes []string `json:"scopes,omitempty"`
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	groups := s.engine.Tag(r.Context(), req.Text, req.Scopes)
	if groups == nil {
		groups = []model.TagGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

type matchRequest struct {
	TargetCollection string `json:"target_collection"`
	Target           string `json:"target"`
	SourceCollection string `json:"source_collection"`
	Save             bool   `json:"save,omitempty"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.TargetCollection == "" || req.Target == "" || req.SourceCollection == "" {
		writeErr(w, http.StatusBadRequest, "target_collection, target and source_collection are required")
		return
	}
	ctx := r.Context()
	target, err := s.store.GetAttribute(ctx, req.TargetCollection, req.Target)
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "%v", err)
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "getting target: %v", err)
		return
	}
	pool, err := s.store.ListAttributes(ctx, req.SourceCollection)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "listing source attributes: %v", err)
		return
	}
	cands := s.engine.Match(ctx, *target, pool)
	if req.Save && len(cands) > 0 {
		if err := s.store.SaveCandidates(ctx, cands); err != nil {
			writeErr(w, http.StatusInternalServerError, "saving candidates: %v", err)
			return
		}
	}
	if cands == nil {
		cands = []model.AttributeMappingCandidate{}
	}
	writeJSON(w, http.StatusOK, cands)
}

type scoreRequest struct {
	Collections []string `json:"collections,omitempty"`
	Strategy    string   `json:"strategy"`
}

func (s *Server) handleScoreCollections(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Strategy == "" {
		req.Strategy = string(collection.StrategyFrequency)
	}
	strategy, err := collection.ParseStrategy(req.Strategy)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	results, err := s.engine.ScoreCollections(r.Context(), req.Collections, strategy)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "scoring collections: %v", err)
		return
	}
	if err := s.store.ReplaceCollectionSimilarities(r.Context(), string(strategy), results); err != nil {
		writeErr(w, http.StatusInternalServerError, "saving results: %v", err)
		return
	}
	if results == nil {
		results = []model.CollectionSimilarityResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleListSimilarities(w http.ResponseWriter, r *http.Request) {
	strategy := r.URL.Query().Get("strategy")
	if strategy != "" {
		if _, err := collection.ParseStrategy(strategy); err != nil {
			writeErr(w, http.StatusBadRequest, "%v", err)
			return
		}
	}
	results, err := s.store.ListCollectionSimilarities(r.Context(), strategy)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "listing similarities: %v", err)
		return
	}
	if results == nil {
		results = []model.CollectionSimilarityResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleFindTerms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseInt(r, "limit")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	if limit <= 0 {
		limit = s.engine.Settings().PageSize
	}
	terms, err := s.engine.Index().FindTerms(r.Context(), q["scope"], q["q"], limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "finding terms: %v", err)
		return
	}
	if terms == nil {
		terms = []model.OntologyTerm{}
	}
	writeJSON(w, http.StatusOK, terms)
}

// lookupTerm resolves the iri query parameter, writing an error response
// and returning nil when it cannot.
func (s *Server) lookupTerm(w http.ResponseWriter, r *http.Request) *model.OntologyTerm {
	iri := r.URL.Query().Get("iri")
	if iri == "" {
		writeErr(w, http.StatusBadRequest, "iri query parameter is required")
		return nil
	}
	term, err := s.engine.Index().Term(r.Context(), iri)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "getting term: %v", err)
		return nil
	}
	if term == nil {
		writeErr(w, http.StatusNotFound, "term %q not found", iri)
		return nil
	}
	return term
}

func (s *Server) handleGetTerm(w http.ResponseWriter, r *http.Request) {
	if term := s.lookupTerm(w, r); term != nil {
		writeJSON(w, http.StatusOK, term)
	}
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	term := s.lookupTerm(w, r)
	if term == nil {
		return
	}
	kids, err := s.engine.Index().Children(r.Context(), *term)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "getting children: %v", err)
		return
	}
	if kids == nil {
		kids = []model.OntologyTerm{}
	}
	writeJSON(w, http.StatusOK, kids)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	opts, err := parseCandidateOpts(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	cands, err := s.store.ListCandidates(r.Context(), opts)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "listing candidates: %v", err)
		return
	}
	if cands == nil {
		cands = []model.AttributeMappingCandidate{}
	}
	writeJSON(w, http.StatusOK, cands)
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Comment  string `json:"comment,omitempty"`
	Owner    string `json:"owner,omitempty"`
}

func (s *Server) handleRecordDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	decision, ok := model.ParseDecision(req.Decision)
	if !ok {
		writeErr(w, http.StatusBadRequest, "decision must be accept, reject or undecided, got %q", req.Decision)
		return
	}
	d := model.AttributeMappingDecision{
		ID:          uuid.NewString(),
		CandidateID: r.PathValue("id"),
		Decision:    decision,
		Comment:     req.Comment,
		Owner:       req.Owner,
		Timestamp:   time.Now().UTC(),
	}
	err := s.store.RecordDecision(r.Context(), d)
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "%v", err)
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "recording decision: %v", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

type tagJobRequest struct {
	Collection string   `json:"collection"`
	Scopes     []string `json:"scopes,omitempty"`
}

func (s *Server) handleTagJob(w http.ResponseWriter, r *http.Request) {
	var req tagJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Collection == "" {
		writeErr(w, http.StatusBadRequest, "collection is required")
		return
	}
	attrs, err := s.store.ListAttributes(r.Context(), req.Collection)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "listing attributes: %v", err)
		return
	}
	if len(attrs) == 0 {
		writeErr(w, http.StatusNotFound, "collection %q has no attributes", req.Collection)
		return
	}
	j := s.jobs.start("tag", len(attrs), func(ctx context.Context, progress func(int, int, string)) (int, error) {
		save := func(ctx context.Context, a model.Attribute) error {
			return s.store.SaveAttributes(ctx, []model.Attribute{a})
		}
		return s.engine.Runner(progress).TagAttributes(ctx, s.engine, attrs, req.Scopes, save)
	})
	writeJSON(w, http.StatusAccepted, j)
}

type matchJobRequest struct {
	TargetCollection string `json:"target_collection"`
	SourceCollection string `json:"source_collection"`
}

func (s *Server) handleMatchJob(w http.ResponseWriter, r *http.Request) {
	var req matchJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.TargetCollection == "" || req.SourceCollection == "" {
		writeErr(w, http.StatusBadRequest, "target_collection and source_collection are required")
		return
	}
	ctx := r.Context()
	targets, err := s.store.ListAttributes(ctx, req.TargetCollection)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "listing target attributes: %v", err)
		return
	}
	pool, err := s.store.ListAttributes(ctx, req.SourceCollection)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "listing source attributes: %v", err)
		return
	}
	if len(targets) == 0 || len(pool) == 0 {
		writeErr(w, http.StatusNotFound, "both collections need attributes")
		return
	}
	j := s.jobs.start("match", len(targets), func(ctx context.Context, progress func(int, int, string)) (int, error) {
		return s.engine.Runner(progress).MatchAttributes(ctx, s.engine, targets, pool, s.store.SaveCandidates)
	})
	writeJSON(w, http.StatusAccepted, j)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, ok := s.jobs.get(r.PathValue("id"))
	if !ok {
		writeErr(w, http.StatusNotFound, "job %q not found", r.PathValue("id"))
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// writeErr writes a JSON error response.
func writeErr(w http.ResponseWriter, status int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, status, map[string]string{"error": msg})
}
