package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestStatsCmdEmpty(t *testing.T) {
	resetFlags(t)
	db := filepath.Join(t.TempDir(), "test.db")

	out, err := run(t, "stats", "--db", db)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Ontology terms:     0") {
		t.Errorf("expected zero terms, got:\n%s", out)
	}
	if strings.Contains(out, "Attributes per collection") {
		t.Errorf("empty database should not list collections:\n%s", out)
	}
}

func TestStatsCmd(t *testing.T) {
	resetFlags(t)
	db := setupTestDB(t)

	out, err := run(t, "stats", "--db", db)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"Ontology terms:     3", "Collections:        2", "Attributes:         4", "study-a"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestStatsCmdJSON(t *testing.T) {
	resetFlags(t)
	db := setupTestDB(t)

	out, err := run(t, "stats", "--db", db, "--json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var st statsOutput
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if st.Terms != 3 || st.Attributes != 4 || st.Collections != 2 {
		t.Errorf("stats = %+v", st.Stats)
	}
	if len(st.Sizes) != 2 || st.Sizes[0].ID != "study-a" || st.Sizes[0].Attributes != 2 {
		t.Errorf("sizes = %+v", st.Sizes)
	}
}
