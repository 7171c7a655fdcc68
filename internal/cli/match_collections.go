package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/scbrown/semmatch/internal/model"
)

var matchCollectionsCmd = &cobra.Command{
	Use:   "match-collections <target> <source>",
	Short: "Propose and store mappings for every attribute of a collection",
	Long: `Match-collections runs semmatch match for each attribute of the target
collection against all attributes of the source collection and stores the
candidates. Candidates already stored for the same pair keep their ID and
their decision history. Progress is written to stderr.`,
	Example: `  semmatch match-collections study-a study-b
  semmatch match-collections study-a study-b --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		targets, err := s.ListAttributes(ctx, args[0])
		if err != nil {
			return fmt.Errorf("list attributes: %w", err)
		}
		if len(targets) == 0 {
			return fmt.Errorf("collection %q has no attributes", args[0])
		}
		pool, err := s.ListAttributes(ctx, args[1])
		if err != nil {
			return fmt.Errorf("list attributes: %w", err)
		}

		high := 0
		save := func(ctx context.Context, cands []model.AttributeMappingCandidate) error {
			for _, c := range cands {
				if c.HighQuality {
					high++
				}
			}
			return s.SaveCandidates(ctx, cands)
		}
		n, err := e.Runner(progressPrinter(os.Stderr)).MatchAttributes(ctx, e, targets, pool, save)
		if err != nil {
			return fmt.Errorf("match collections: %w", err)
		}

		res := matchCollectionsResult{Target: args[0], Source: args[1], Attributes: len(targets), Candidates: n, HighQuality: high}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Matched %s attributes of %s against %s: %s candidates, %s high quality.\n",
			humanize.Comma(int64(len(targets))), args[0], args[1], humanize.Comma(int64(n)), humanize.Comma(int64(high)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(matchCollectionsCmd)
}

type matchCollectionsResult struct {
	Target      string `json:"target"`
	Source      string `json:"source"`
	Attributes  int    `json:"attributes"`
	Candidates  int    `json:"candidates"`
	HighQuality int    `json:"high_quality"`
}
