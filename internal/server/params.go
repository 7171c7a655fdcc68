package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/scbrown/semmatch/internal/store"
)

func parseInt(r *http.Request, key string) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, s, err)
	}
	return n, nil
}

func parseBool(r *http.Request, key string) bool {
	s := r.URL.Query().Get(key)
	return s == "true" || s == "1"
}

func parseCandidateOpts(r *http.Request) (store.CandidateOpts, error) {
	limit, err := parseInt(r, "limit")
	if err != nil {
		return store.CandidateOpts{}, err
	}
	q := r.URL.Query()
	return store.CandidateOpts{
		TargetCollection: q.Get("target_collection"),
		Target:           q.Get("target"),
		SourceCollection: q.Get("source_collection"),
		HighQualityOnly:  parseBool(r, "high_quality"),
		Limit:            limit,
	}, nil
}
