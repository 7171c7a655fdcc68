package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/scbrown/semmatch/internal/config"
)

func TestConfigCmdShowEmpty(t *testing.T) {
	resetFlags(t)

	out, err := run(t, "config")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "KEY") || !strings.Contains(out, "VALUE") {
		t.Errorf("expected table headers, got: %s", out)
	}
	for _, key := range []string{"db_path", "index_mode", "scoring_model"} {
		if !strings.Contains(out, key) {
			t.Errorf("expected %s key, got: %s", key, out)
		}
	}
	if !strings.Contains(out, "(not set)") {
		t.Errorf("expected (not set) for empty values, got: %s", out)
	}
}

func TestConfigCmdGet(t *testing.T) {
	resetFlags(t)
	cfg := &config.Config{DBPath: "/custom/path.db"}
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "config", "db_path")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := strings.TrimSpace(out); got != "/custom/path.db" {
		t.Errorf("got %q, want %q", got, "/custom/path.db")
	}
}

func TestConfigCmdGetEmpty(t *testing.T) {
	resetFlags(t)

	out, err := run(t, "config", "index_url")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := strings.TrimSpace(out); got != "" {
		t.Errorf("expected empty output for unset key, got %q", got)
	}
}

func TestConfigCmdSet(t *testing.T) {
	resetFlags(t)

	out, err := run(t, "config", "high_quality_threshold", "0.8")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "high_quality_threshold = 0.8") {
		t.Errorf("expected confirmation, got: %s", out)
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HighQualityThreshold != 0.8 {
		t.Errorf("persisted value: got %v, want 0.8", cfg.HighQualityThreshold)
	}
}

func TestConfigCmdSetKeyConcepts(t *testing.T) {
	resetFlags(t)

	if _, err := run(t, "config", "key_concepts", "Unit, Temporal Concept"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Unit", "Temporal Concept"}
	if len(cfg.KeyConcepts) != len(want) {
		t.Fatalf("key_concepts = %v, want %v", cfg.KeyConcepts, want)
	}
	for i, w := range want {
		if cfg.KeyConcepts[i] != w {
			t.Errorf("key_concepts[%d]: got %q, want %q", i, cfg.KeyConcepts[i], w)
		}
	}
}

func TestConfigCmdSetInvalidValue(t *testing.T) {
	resetFlags(t)

	if _, err := run(t, "config", "scoring_model", "bm25"); err == nil {
		t.Fatal("expected error for unknown scoring model")
	}
	if _, err := run(t, "config", "index_mode", "cluster"); err == nil {
		t.Fatal("expected error for unknown index mode")
	}
}

func TestConfigCmdInvalidKey(t *testing.T) {
	resetFlags(t)

	if _, err := run(t, "config", "bad_key"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestConfigCmdShowJSON(t *testing.T) {
	resetFlags(t)
	cfg := &config.Config{DBPath: "/custom/path.db", ScoringModel: "vsm"}
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "config", "--json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var result config.Config
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("json unmarshal: %v\nOutput: %s", err, out)
	}
	if result.DBPath != "/custom/path.db" {
		t.Errorf("db_path: got %q, want %q", result.DBPath, "/custom/path.db")
	}
	if result.ScoringModel != "vsm" {
		t.Errorf("scoring_model: got %q, want vsm", result.ScoringModel)
	}
}

func TestConfigCmdTooManyArgs(t *testing.T) {
	resetFlags(t)

	if _, err := run(t, "config", "a", "b", "c"); err == nil {
		t.Fatal("expected error for too many args")
	}
}

func TestIndexModeFollowsConfigEachRun(t *testing.T) {
	resetFlags(t)
	db := setupTestDB(t)

	remote := &config.Config{IndexMode: "remote"}
	if err := remote.SaveTo(configPath); err != nil {
		t.Fatal(err)
	}
	_, err := run(t, "tag", "blood pressure", "--db", db)
	if err == nil || !strings.Contains(err.Error(), "index_url is not set") {
		t.Fatalf("err = %v, want missing index_url", err)
	}

	if err := (&config.Config{}).SaveTo(configPath); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "tag", "blood pressure", "--db", db)
	if err != nil {
		t.Fatalf("index_mode from the previous run leaked: %v", err)
	}
	if !strings.Contains(out, "hp:bp") {
		t.Errorf("expected hp:bp in output, got:\n%s", out)
	}
}

func TestIndexModeFlagOverridesConfig(t *testing.T) {
	resetFlags(t)
	db := setupTestDB(t)

	remote := &config.Config{IndexMode: "remote"}
	if err := remote.SaveTo(configPath); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "tag", "blood pressure", "--db", db, "--index-mode", "local")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "hp:bp") {
		t.Errorf("expected hp:bp in output, got:\n%s", out)
	}
}
