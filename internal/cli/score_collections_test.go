package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/scbrown/semmatch/internal/model"
)

func tagCollections(t *testing.T, db string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		var err error
		captureStdoutAndStderr(t, func() {
			rootCmd.SetArgs([]string{"tag-collection", id, "--db", db})
			err = rootCmd.Execute()
		})
		if err != nil {
			t.Fatalf("tag-collection %s: %v", id, err)
		}
	}
}

func TestScoreCollectionsCmd(t *testing.T) {
	resetFlags(t)
	db := setupTestDB(t)
	tagCollections(t, db, "study-a", "study-b")

	out, err := run(t, "score-collections", "--db", db, "--json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var results []model.CollectionSimilarityResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1 pair", len(results))
	}
	if results[0].Target != "study-a" || results[0].Source != "study-b" {
		t.Errorf("pair = %s/%s, want study-a/study-b", results[0].Target, results[0].Source)
	}
	for _, r := range results {
		if r.Strategy != "frequency" {
			t.Errorf("strategy = %q", r.Strategy)
		}
		if r.Similarity <= 0 || r.Similarity > 1 {
			t.Errorf("%s/%s similarity = %v, want in (0,1]", r.Target, r.Source, r.Similarity)
		}
	}

	stored, err := openTestStore(t, db).ListCollectionSimilarities(context.Background(), "frequency")
	if err != nil {
		t.Fatalf("ListCollectionSimilarities: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("stored %d results, want 1", len(stored))
	}
}

func TestScoreCollectionsCmdStored(t *testing.T) {
	resetFlags(t)
	db := setupTestDB(t)
	tagCollections(t, db, "study-a", "study-b")

	if _, err := run(t, "score-collections", "study-a", "study-b", "--strategy", "vector", "--db", db); err != nil {
		t.Fatalf("score: %v", err)
	}
	resetFlags(t)
	out, err := run(t, "score-collections", "--stored", "--strategy", "vector", "--db", db)
	if err != nil {
		t.Fatalf("stored: %v", err)
	}
	for _, want := range []string{"TARGET", "study-a", "study-b", "vector"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestScoreCollectionsCmdUnknownStrategy(t *testing.T) {
	resetFlags(t)
	db := setupTestDB(t)

	if _, err := run(t, "score-collections", "--strategy", "jaccard", "--db", db); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
