package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/scbrown/semmatch/internal/config"
	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/store"
)

// resetFlags restores package-level flag variables and points the config
// file at an empty temp location.
func resetFlags(t *testing.T) {
	t.Helper()
	jsonOutput = false
	verbose = false
	indexMode = ""
	indexURL = ""
	for _, name := range []string{"index-mode", "index-url"} {
		rootCmd.PersistentFlags().Lookup(name).Changed = false
	}
	tagScopes = nil
	tagCollectionScopes = nil
	matchCollection, matchSource, matchSave = "", "", false
	candTargetCollection, candTarget, candSourceCollection = "", "", ""
	candHighQuality, candLimit = false, 0
	decideComment, decideOwner = "", ""
	similarCollection, similarKnown, similarModel = "", "", ""
	similarThreshold, similarTopN = 0, 5
	scoreStrategy, scoreStored = "frequency", false
	configPath = filepath.Join(t.TempDir(), "config.toml")
	t.Cleanup(func() {
		configPath = config.Path()
		jsonOutput = false
	})
}

// captureStdout runs fn while capturing stdout, returning the output.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// captureStdoutAndStderr runs fn while capturing both stdout and stderr.
func captureStdoutAndStderr(t *testing.T, fn func()) (stdout, stderr string) {
	t.Helper()

	oldOut := os.Stdout
	oldErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	// Drain stderr concurrently so progress output cannot fill the pipe.
	errCh := make(chan string)
	go func() {
		var b bytes.Buffer
		io.Copy(&b, rErr)
		errCh <- b.String()
	}()

	fn()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldOut
	os.Stderr = oldErr

	var bufOut bytes.Buffer
	io.Copy(&bufOut, rOut)
	return bufOut.String(), <-errCh
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var err error
	out := captureStdout(t, func() {
		rootCmd.SetArgs(args)
		err = rootCmd.Execute()
	})
	return out, err
}

const testFixture = `terms:
  - iri: "hp:htn"
    ontology: hp
    label: Hypertension
    synonyms: ["High blood pressure"]
    node_paths: ["0[0].0[1]"]
  - iri: "hp:bp"
    ontology: hp
    label: Blood pressure
    node_paths: ["0[0].1[1]"]
  - iri: "hp:weight"
    ontology: hp
    label: Body weight
    node_paths: ["1[0]"]
collections:
  - id: study-a
    attributes:
      - id: a1
        name: bp
        label: Blood pressure
      - id: a2
        name: htn
        label: History of hypertension
  - id: study-b
    attributes:
      - id: b1
        name: sbp
        label: Blood pressure systolic
      - id: b2
        name: wt
        label: Body weight
`

// setupTestDB writes the test fixture, imports it into a fresh database
// and returns the database path.
func setupTestDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	fixture := filepath.Join(dir, "fixture.yaml")
	if err := os.WriteFile(fixture, []byte(testFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	db := filepath.Join(dir, "test.db")
	if _, err := run(t, "import", fixture, "--db", db); err != nil {
		t.Fatalf("import: %v", err)
	}
	return db
}

// openTestStore opens db for direct inspection.
func openTestStore(t *testing.T, db string) *store.SQLiteStore {
	t.Helper()
	s, err := store.New(db)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func listCandidates(t *testing.T, db string) []model.AttributeMappingCandidate {
	t.Helper()
	cands, err := openTestStore(t, db).ListCandidates(context.Background(), store.CandidateOpts{})
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	return cands
}
