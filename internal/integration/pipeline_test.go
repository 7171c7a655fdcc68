//go:build integration

package integration

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/scbrown/semmatch/internal/model"
)

func TestPipelineTagMatchDecide(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.importFixture()

	e.mustRun("tag-collection", "study-a")
	e.mustRun("tag-collection", "study-b")
	e.mustRun("match-collections", "study-a", "study-b")

	out := e.mustRun("candidates", "--target", "a1", "--json")
	var cands []model.AttributeMappingCandidate
	if err := json.Unmarshal([]byte(out), &cands); err != nil {
		t.Fatalf("unmarshal candidates: %v\n%s", err, out)
	}
	if len(cands) == 0 || cands[0].Source != "b1" {
		t.Fatalf("candidates for a1 = %+v, want b1 first", cands)
	}

	e.mustRun("decide", cands[0].ID, "reject", "--comment", "systolic only")
	e.mustRun("decide", cands[0].ID, "accept")

	// Re-matching keeps the candidate and its history.
	e.mustRun("match-collections", "study-a", "study-b")
	out = e.mustRun("candidates", "--target", "a1", "--json")
	cands = nil
	if err := json.Unmarshal([]byte(out), &cands); err != nil {
		t.Fatalf("unmarshal candidates: %v\n%s", err, out)
	}
	if len(cands[0].Decisions) != 2 || cands[0].LatestDecision() != model.DecisionAccept {
		t.Errorf("decisions = %+v, want reject then accept", cands[0].Decisions)
	}

	out = e.mustRun("score-collections", "--strategy", "vector")
	if !strings.Contains(out, "study-a") || !strings.Contains(out, "vector") {
		t.Errorf("score-collections output:\n%s", out)
	}

	out = e.mustRun("stats", "--json")
	var st map[string]any
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if st["decisions"].(float64) != 2 || st["similarities"].(float64) != 1 {
		t.Errorf("stats = %v", st)
	}
}

func TestDefaultFormatJSON(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.writeConfig(`default_format = "json"` + "\n")
	e.importFixture()

	out := e.mustRun("tag", "blood pressure")
	var groups []model.TagGroup
	if err := json.Unmarshal([]byte(out), &groups); err != nil {
		t.Fatalf("default_format json should emit JSON: %v\n%s", err, out)
	}
}

func TestRemoteIndexRequiresURL(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.writeConfig(`index_mode = "remote"` + "\n")

	_, stderr, err := e.run("tag", "blood pressure")
	if err == nil {
		t.Fatal("expected failure without index_url")
	}
	if !strings.Contains(stderr, "index_url is not set") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestInvalidConfigValueRejected(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	_, stderr, err := e.run("config", "ngram_size", "-1")
	if err == nil {
		t.Fatal("expected error for negative ngram_size")
	}
	if !strings.HasPrefix(stderr, "error: ") {
		t.Errorf("stderr = %q, want error: prefix", stderr)
	}
}
