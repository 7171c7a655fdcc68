package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scbrown/semmatch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Show or modify configuration",
	Long: `View or change semmatch configuration stored in ~/.semmatch/config.toml.

With no arguments, shows all configuration settings.
With one argument, shows the value of that key.
With two arguments, sets the key to the given value.

Settings:
  db_path                 Path to the SQLite database
  default_format          Default output format: "table" or "json"
  index_mode              Where ontology lookups go: "local" or "remote"
  index_url               Base URL of a semmatch serve instance (remote mode)
  ngram_size              Character n-gram length for label similarity
  high_quality_threshold  Minimum n-gram score of a high quality candidate
  expansion_level         Hierarchy distance for matching related terms
  stop_level              Hierarchy distance beyond which relatedness is 0
  page_size               Index results fetched per query word when tagging
  cache_size              Capacity of the relatedness cache
  cache_ttl               Lifetime of a cached relatedness value (e.g. 1h)
  progress_batch          Attributes between progress reports
  key_concepts            Comma-separated semantic types left out of scoring
  scoring_model           Label similarity model: ngram, vsm, edit_distance
  log_level               Log level: debug, info, warn, error`,
	Example: `  semmatch config
  semmatch config db_path
  semmatch config db_path /custom/path/semmatch.db
  semmatch config index_mode remote
  semmatch config index_url http://ontology-host:7274
  semmatch config key_concepts "Unit,Temporal Concept"
  semmatch config default_format json`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFrom(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		w := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			return showConfig(w, cfg)
		case 1:
			return getConfig(w, cfg, args[0])
		default:
			return setConfig(w, cfg, args[0], args[1])
		}
	},
}

// configPath is the path to the config file, settable for testing.
var configPath = config.Path()

func init() {
	rootCmd.AddCommand(configCmd)
}

func showConfig(w io.Writer, cfg *config.Config) error {
	if jsonOutput {
		return printJSON(w, cfg)
	}

	tbl := NewTable(w, "KEY", "VALUE")
	for _, key := range config.ValidKeys() {
		val, _ := cfg.Get(key)
		if val == "" {
			val = "(not set)"
		}
		tbl.Row(key, val)
	}
	tbl.Flush()
	return nil
}

func getConfig(w io.Writer, cfg *config.Config, key string) error {
	val, err := cfg.Get(key)
	if err != nil {
		return err
	}
	if val == "" {
		return nil
	}
	fmt.Fprintln(w, val)
	return nil
}

func setConfig(w io.Writer, cfg *config.Config, key, value string) error {
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.SaveTo(configPath); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s = %s\n", key, value)
	return nil
}
