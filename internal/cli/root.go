// Package cli defines the cobra command tree for the semmatch CLI.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scbrown/semmatch/internal/config"
	"github.com/scbrown/semmatch/internal/engine"
	"github.com/scbrown/semmatch/internal/ontology"
	"github.com/scbrown/semmatch/internal/store"
)

var (
	dbPath     string
	jsonOutput bool
	verbose    bool
	indexMode  string
	indexURL   string

	// cfg is the configuration loaded before every command.
	cfg = &config.Config{}
	// logger writes structured diagnostics to stderr.
	logger = zap.NewNop()
)

// rootCmd is the top-level semmatch command.
var rootCmd = &cobra.Command{
	Use:   "semmatch",
	Short: "Semantic matching of dataset attributes against an ontology",
	Long: `semmatch tags dataset attributes with ontology terms, proposes mappings
between attributes of different collections, and scores how similar whole
collections are.

Terms, attributes, candidates and decisions are stored in a SQLite database
at ~/.semmatch/semmatch.db (configurable via --db flag or semmatch config
db_path). Ontology lookups use that database unless index_mode is "remote",
in which case they go to another semmatch serve instance at index_url.
All output commands support --json for machine-readable output.`,
	Example: `  # Load terms and collections
  semmatch import fixture.yaml

  # Tag free text and whole collections
  semmatch tag "history of hypertension"
  semmatch tag-collection study-a

  # Propose and review mappings
  semmatch match-collections study-a study-b
  semmatch candidates --target-collection study-a --high-quality
  semmatch decide 3f2a... accept --owner ana

  # Compare collections
  semmatch score-collections --strategy vector`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadFrom(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if cfg.DBPath != "" && !cmd.Flags().Changed("db") {
			dbPath = cfg.DBPath
		}
		if cfg.DefaultFormat == "json" && !cmd.Flags().Changed("json") {
			jsonOutput = true
		}
		if !cmd.Flags().Changed("index-mode") {
			indexMode = cfg.IndexMode
		}
		if !cmd.Flags().Changed("index-url") {
			indexURL = cfg.IndexURL
		}
		level := cfg.Level(zapcore.WarnLevel)
		if verbose {
			level = zapcore.DebugLevel
		}
		logger = newLogger(level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "path to SQLite database")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&indexMode, "index-mode", "", "ontology index: local or remote (overrides index_mode)")
	rootCmd.PersistentFlags().StringVar(&indexURL, "index-url", "", "remote index base URL (overrides index_url)")
}

// newLogger builds a production zap logger writing to stderr at level.
func newLogger(level zapcore.Level) *zap.Logger {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	l, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// openStore opens the local SQLite database.
func openStore() (*store.SQLiteStore, error) {
	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// openIndex returns the ontology index selected by index_mode: the local
// store, or a RemoteIndex at index_url.
func openIndex(ctx context.Context, s *store.SQLiteStore) (ontology.Index, error) {
	switch indexMode {
	case "", "local":
		return s, nil
	case "remote":
		if indexURL == "" {
			return nil, fmt.Errorf("index_mode is \"remote\" but index_url is not set; use: semmatch config index_url <url>")
		}
		remote := store.NewRemote(indexURL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := remote.Health(pingCtx); err != nil {
			return nil, fmt.Errorf("remote index %s: %w", indexURL, err)
		}
		return remote, nil
	default:
		return nil, fmt.Errorf("unknown index_mode %q", indexMode)
	}
}

// openEngine builds an engine over the configured index with s as the
// attribute source.
func openEngine(ctx context.Context, s *store.SQLiteStore) (*engine.Engine, error) {
	settings, err := cfg.Settings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	idx, err := openIndex(ctx, s)
	if err != nil {
		return nil, err
	}
	return engine.New(idx, s, settings, engine.WithLogger(logger))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Main runs the CLI and exits non-zero on error.
func Main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
