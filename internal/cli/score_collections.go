package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scbrown/semmatch/internal/collection"
	"github.com/scbrown/semmatch/internal/model"
)

var (
	scoreStrategy string
	scoreStored   bool
)

var scoreCollectionsCmd = &cobra.Command{
	Use:   "score-collections [collection...]",
	Short: "Score how similar collections are by their ontology terms",
	Long: `Score-collections builds a term frequency profile of each collection from
its tag groups and scores every pair of distinct collections. The
collection with the smaller ID is reported as the target.

Strategies:
  frequency  relatedness of every term pair weighted by both frequencies
  vector     cosine of term frequency vectors over the shared vocabulary

Without arguments all stored collections are scored. Results replace the
stored results of the same strategy. Use --stored to print the stored
results without scoring again.`,
	Example: `  semmatch score-collections
  semmatch score-collections study-a study-b study-c --strategy vector
  semmatch score-collections --stored --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := collection.ParseStrategy(scoreStrategy)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		var results []model.CollectionSimilarityResult
		if scoreStored {
			results, err = s.ListCollectionSimilarities(ctx, string(strategy))
			if err != nil {
				return fmt.Errorf("list similarities: %w", err)
			}
		} else {
			e, err := openEngine(ctx, s)
			if err != nil {
				return err
			}
			results, err = e.ScoreCollections(ctx, args, strategy)
			if err != nil {
				return err
			}
			if err := s.ReplaceCollectionSimilarities(ctx, string(strategy), results); err != nil {
				return fmt.Errorf("store similarities: %w", err)
			}
		}

		if jsonOutput {
			if results == nil {
				results = []model.CollectionSimilarityResult{}
			}
			return printJSON(cmd.OutOrStdout(), results)
		}
		writeSimilarities(cmd.OutOrStdout(), results)
		return nil
	},
}

func init() {
	scoreCollectionsCmd.Flags().StringVar(&scoreStrategy, "strategy", string(collection.StrategyFrequency), "scoring strategy: frequency or vector")
	scoreCollectionsCmd.Flags().BoolVar(&scoreStored, "stored", false, "print stored results instead of scoring")
	rootCmd.AddCommand(scoreCollectionsCmd)
}

func writeSimilarities(w io.Writer, results []model.CollectionSimilarityResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No collection pairs to score.")
		return
	}
	tbl := NewTable(w, "TARGET", "SOURCE", "STRATEGY", "SIMILARITY", "COVERAGE")
	for _, r := range results {
		tbl.Row(r.Target, r.Source, r.Strategy, score(r.Similarity), fmt.Sprintf("%d", r.Coverage))
	}
	tbl.Flush()
}
