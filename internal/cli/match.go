package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/store"
)

var (
	matchCollection string
	matchSource     string
	matchSave       bool
)

var matchCmd = &cobra.Command{
	Use:   "match <attribute-id>",
	Short: "Propose mappings for one attribute from another collection",
	Long: `Match looks up the tag groups of a target attribute, expands them through
the ontology hierarchy, and compares them with every attribute of the source
collection. Candidates sharing related terms are scored by n-gram similarity
of their labels; candidates above high_quality_threshold are flagged.

Tag both collections first with semmatch tag-collection. Use --save to store
the candidates for review with semmatch candidates and semmatch decide.`,
	Example: `  semmatch match sbp --collection study-a --source study-b
  semmatch match sbp --collection study-a --source study-b --save --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if matchCollection == "" || matchSource == "" {
			return fmt.Errorf("--collection and --source are required")
		}
		ctx := cmd.Context()
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		e, err := openEngine(ctx, s)
		if err != nil {
			return err
		}

		target, err := s.GetAttribute(ctx, matchCollection, args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("attribute %q not found in collection %q", args[0], matchCollection)
		}
		if err != nil {
			return fmt.Errorf("get attribute: %w", err)
		}
		pool, err := s.ListAttributes(ctx, matchSource)
		if err != nil {
			return fmt.Errorf("list attributes: %w", err)
		}

		cands := e.Match(ctx, *target, pool)
		if matchSave && len(cands) > 0 {
			if err := s.SaveCandidates(ctx, cands); err != nil {
				return fmt.Errorf("save candidates: %w", err)
			}
		}
		if jsonOutput {
			if cands == nil {
				cands = []model.AttributeMappingCandidate{}
			}
			return printJSON(cmd.OutOrStdout(), cands)
		}
		writeCandidates(cmd.OutOrStdout(), cands)
		return nil
	},
}

func init() {
	matchCmd.Flags().StringVar(&matchCollection, "collection", "", "collection of the target attribute")
	matchCmd.Flags().StringVar(&matchSource, "source", "", "collection to search for candidates")
	matchCmd.Flags().BoolVar(&matchSave, "save", false, "store the candidates")
	rootCmd.AddCommand(matchCmd)
}

func writeCandidates(w io.Writer, cands []model.AttributeMappingCandidate) {
	if len(cands) == 0 {
		fmt.Fprintln(w, "No candidates found.")
		return
	}
	tbl := NewTable(w, "ID", "TARGET", "SOURCE", "MATCHED", "SCORE", "HQ", "DECISION")
	for _, c := range cands {
		hq := ""
		if c.HighQuality {
			hq = "*"
		}
		tbl.Row(
			c.ID,
			c.TargetCollection+"/"+c.Target,
			c.SourceCollection+"/"+c.Source,
			tbl.Fit(c.Explanation.MatchedWords, 70, 16),
			score(c.Explanation.NGramScore),
			hq,
			string(c.LatestDecision()),
		)
	}
	tbl.Flush()
}
