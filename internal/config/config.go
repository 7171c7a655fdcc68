// Package config handles reading and writing the semmatch configuration file (~/.semmatch/config.toml).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"

	"github.com/scbrown/semmatch/internal/analyze"
	"github.com/scbrown/semmatch/internal/engine"
	"github.com/scbrown/semmatch/internal/model"
)

// Config holds semmatch configuration settings. Zero values mean the
// engine default.
type Config struct {
	DBPath               string   `toml:"db_path,omitempty" json:"db_path,omitempty"`
	DefaultFormat        string   `toml:"default_format,omitempty" json:"default_format,omitempty"`
	IndexMode            string   `toml:"index_mode,omitempty" json:"index_mode,omitempty"`
	IndexURL             string   `toml:"index_url,omitempty" json:"index_url,omitempty"`
	NGramSize            int      `toml:"ngram_size,omitempty" json:"ngram_size,omitempty"`
	HighQualityThreshold float64  `toml:"high_quality_threshold,omitempty" json:"high_quality_threshold,omitempty"`
	ExpansionLevel       int      `toml:"expansion_level,omitempty" json:"expansion_level,omitempty"`
	StopLevel            int      `toml:"stop_level,omitempty" json:"stop_level,omitempty"`
	PageSize             int      `toml:"page_size,omitempty" json:"page_size,omitempty"`
	CacheSize            int      `toml:"cache_size,omitempty" json:"cache_size,omitempty"`
	CacheTTL             string   `toml:"cache_ttl,omitempty" json:"cache_ttl,omitempty"`
	ProgressBatch        int      `toml:"progress_batch,omitempty" json:"progress_batch,omitempty"`
	KeyConcepts          []string `toml:"key_concepts,omitempty" json:"key_concepts,omitempty"`
	ScoringModel         string   `toml:"scoring_model,omitempty" json:"scoring_model,omitempty"`
	LogLevel             string   `toml:"log_level,omitempty" json:"log_level,omitempty"`
}

// keys lists the allowed configuration keys in sorted order.
var keys = []string{
	"cache_size",
	"cache_ttl",
	"db_path",
	"default_format",
	"expansion_level",
	"high_quality_threshold",
	"index_mode",
	"index_url",
	"key_concepts",
	"log_level",
	"ngram_size",
	"page_size",
	"progress_batch",
	"scoring_model",
	"stop_level",
}

var validKeys = func() map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}()

// ValidKeys returns the sorted list of valid configuration keys.
func ValidKeys() []string {
	return append([]string(nil), keys...)
}

// Dir returns the semmatch data directory (~/.semmatch).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".semmatch")
	}
	return filepath.Join(home, ".semmatch")
}

// Path returns the default config file path (~/.semmatch/config.toml).
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultDBPath returns the default database path (~/.semmatch/semmatch.db).
func DefaultDBPath() string {
	return filepath.Join(Dir(), "semmatch.db")
}

// Load reads the config from the default path.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config from a specific path. Returns an empty Config if
// the file does not exist. Supports both TOML and JSON formats (detected by
// file extension; defaults to TOML).
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = toml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to the default path.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo writes the config to a specific path, creating parent directories as needed.
// Writes TOML format regardless of file extension.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// Get returns the string value of a configuration key.
func (c *Config) Get(key string) (string, error) {
	if !validKeys[key] {
		return "", fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(keys, ", "))
	}
	switch key {
	case "db_path":
		return c.DBPath, nil
	case "default_format":
		return c.DefaultFormat, nil
	case "index_mode":
		return c.IndexMode, nil
	case "index_url":
		return c.IndexURL, nil
	case "ngram_size":
		return itoa(c.NGramSize), nil
	case "high_quality_threshold":
		if c.HighQualityThreshold == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.HighQualityThreshold, 'g', -1, 64), nil
	case "expansion_level":
		return itoa(c.ExpansionLevel), nil
	case "stop_level":
		return itoa(c.StopLevel), nil
	case "page_size":
		return itoa(c.PageSize), nil
	case "cache_size":
		return itoa(c.CacheSize), nil
	case "cache_ttl":
		return c.CacheTTL, nil
	case "progress_batch":
		return itoa(c.ProgressBatch), nil
	case "key_concepts":
		return strings.Join(c.KeyConcepts, ","), nil
	case "scoring_model":
		return c.ScoringModel, nil
	case "log_level":
		return c.LogLevel, nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// parsePositive parses a positive integer; the empty string resets to 0.
func parsePositive(key, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
	}
	return n, nil
}

// Set assigns a value to a configuration key. An empty value resets the key
// to its default.
func (c *Config) Set(key, value string) error {
	if !validKeys[key] {
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(keys, ", "))
	}
	var err error
	switch key {
	case "db_path":
		c.DBPath = value
	case "default_format":
		if value != "" && value != "table" && value != "json" {
			return fmt.Errorf("default_format must be \"table\" or \"json\", got %q", value)
		}
		c.DefaultFormat = value
	case "index_mode":
		if value != "" && value != "local" && value != "remote" {
			return fmt.Errorf("index_mode must be \"local\" or \"remote\", got %q", value)
		}
		c.IndexMode = value
	case "index_url":
		c.IndexURL = value
	case "ngram_size":
		c.NGramSize, err = parsePositive(key, value)
	case "high_quality_threshold":
		if value == "" {
			c.HighQualityThreshold = 0
			return nil
		}
		f, perr := strconv.ParseFloat(value, 64)
		if perr != nil || f <= 0 || f > 1 {
			return fmt.Errorf("high_quality_threshold must be a number in (0,1], got %q", value)
		}
		c.HighQualityThreshold = f
	case "expansion_level":
		c.ExpansionLevel, err = parsePositive(key, value)
	case "stop_level":
		c.StopLevel, err = parsePositive(key, value)
	case "page_size":
		c.PageSize, err = parsePositive(key, value)
	case "cache_size":
		c.CacheSize, err = parsePositive(key, value)
	case "cache_ttl":
		if value != "" {
			d, perr := time.ParseDuration(value)
			if perr != nil || d <= 0 {
				return fmt.Errorf("cache_ttl must be a positive duration such as \"30m\", got %q", value)
			}
		}
		c.CacheTTL = value
	case "progress_batch":
		c.ProgressBatch, err = parsePositive(key, value)
	case "key_concepts":
		c.KeyConcepts = nil
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				c.KeyConcepts = append(c.KeyConcepts, name)
			}
		}
	case "scoring_model":
		if value != "" {
			if _, perr := analyze.ParseModel(value); perr != nil {
				return perr
			}
		}
		c.ScoringModel = value
	case "log_level":
		if value != "" {
			if _, perr := zapcore.ParseLevel(value); perr != nil {
				return fmt.Errorf("log_level: %w", perr)
			}
		}
		c.LogLevel = value
	}
	return err
}

// Settings resolves the config into engine settings, filling unset keys with
// engine defaults.
func (c *Config) Settings() (engine.Settings, error) {
	s := engine.DefaultSettings()
	setInt := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	setInt(&s.NGramSize, c.NGramSize)
	setInt(&s.ExpansionLevel, c.ExpansionLevel)
	setInt(&s.StopLevel, c.StopLevel)
	setInt(&s.PageSize, c.PageSize)
	setInt(&s.CacheSize, c.CacheSize)
	setInt(&s.ProgressBatch, c.ProgressBatch)
	if c.HighQualityThreshold > 0 {
		s.HighQualityThreshold = c.HighQualityThreshold
	}
	if c.CacheTTL != "" {
		d, err := time.ParseDuration(c.CacheTTL)
		if err != nil {
			return s, fmt.Errorf("parse cache_ttl: %w", err)
		}
		s.CacheTTL = d
	}
	for _, name := range c.KeyConcepts {
		s.KeyConcepts = append(s.KeyConcepts, model.SemanticType{Name: name})
	}
	if c.ScoringModel != "" {
		m, err := analyze.ParseModel(c.ScoringModel)
		if err != nil {
			return s, err
		}
		s.ScoringModel = m
	}
	return s, nil
}

// Level returns the configured log level, or def when unset.
func (c *Config) Level(def zapcore.Level) zapcore.Level {
	if c.LogLevel == "" {
		return def
	}
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return def
	}
	return l
}
