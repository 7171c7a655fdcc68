//go:build integration

// Package integration provides end-to-end tests that exercise the compiled
// semmatch binary. Tests in this package are excluded from normal
// `go test ./...` runs and require the build tag:
// go test -tags integration ./internal/integration/
//
// TestMain builds the binary once into a temporary directory. Each test
// creates an isolated env with its own HOME, config, and database so tests
// can run in parallel.
package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// bin holds the path to the compiled semmatch binary, set once in TestMain.
var bin string

// TestMain builds the semmatch binary and runs all integration tests.
func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "semmatch-integration-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration: create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmp)

	out := filepath.Join(tmp, "semmatch")
	cmd := exec.Command("go", "build", "-o", out, "./cmd/semmatch")
	cmd.Dir = modRoot()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "integration: build semmatch binary: %v\n", err)
		os.Exit(1)
	}

	bin = out
	os.Exit(m.Run())
}

// modRoot returns the module root directory by walking up from the working
// directory until go.mod is found.
func modRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("integration: getwd: %v", err))
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("integration: could not find go.mod in any parent directory")
		}
		dir = parent
	}
}

// env is an isolated test environment. Its HOME sandboxes the default
// ~/.semmatch paths and its config points at a private database.
type env struct {
	t       *testing.T
	home    string
	cfgPath string
	dbPath  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	home := t.TempDir()

	dir := filepath.Join(home, ".semmatch")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create .semmatch dir: %v", err)
	}
	e := &env{
		t:       t,
		home:    home,
		cfgPath: filepath.Join(dir, "config.toml"),
		dbPath:  filepath.Join(dir, "semmatch.db"),
	}
	e.writeConfig("")
	return e
}

// environ returns the process environment for commands run in e.
func (e *env) environ() []string {
	return append(os.Environ(),
		"HOME="+e.home,
		"XDG_CONFIG_HOME="+filepath.Join(e.home, ".config"),
	)
}

// run executes `semmatch <args>` and returns stdout, stderr and any error.
func (e *env) run(args ...string) (stdout, stderr string, err error) {
	e.t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Env = e.environ()
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// mustRun is like run but calls t.Fatal if the command fails.
func (e *env) mustRun(args ...string) string {
	e.t.Helper()
	stdout, stderr, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("semmatch %v failed: %v\nstdout: %s\nstderr: %s", args, err, stdout, stderr)
	}
	return stdout
}

// writeConfig writes config.toml with db_path always set to the sandboxed
// database followed by extra.
func (e *env) writeConfig(extra string) {
	e.t.Helper()
	cfg := fmt.Sprintf("db_path = %q\n%s", e.dbPath, extra)
	if err := os.WriteFile(e.cfgPath, []byte(cfg), 0o644); err != nil {
		e.t.Fatalf("write config: %v", err)
	}
}

const fixture = `terms:
  - iri: "hp:htn"
    ontology: hp
    label: Hypertension
    synonyms: ["High blood pressure"]
    node_paths: ["0[0].0[1]"]
  - iri: "hp:bp"
    ontology: hp
    label: Blood pressure
    node_paths: ["0[0].1[1]"]
  - iri: "hp:sbp"
    ontology: hp
    label: Systolic blood pressure
    node_paths: ["0[0].1[1].0[2]"]
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
        name: wt
        label: Weight of body
  - id: study-b
    attributes:
      - id: b1
        name: sbp
        label: Systolic blood pressure
      - id: b2
        name: wt
        label: Body weight
`

// importFixture writes the shared fixture and imports it.
func (e *env) importFixture() {
	e.t.Helper()
	path := filepath.Join(e.home, "fixture.yaml")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		e.t.Fatalf("write fixture: %v", err)
	}
	e.mustRun("import", path)
}
