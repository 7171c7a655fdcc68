package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/store"
)

var (
	candTargetCollection string
	candTarget           string
	candSourceCollection string
	candHighQuality      bool
	candLimit            int
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List stored mapping candidates",
	Long: `List mapping candidates stored by semmatch match --save or
semmatch match-collections, best score first, with the latest decision.`,
	Example: `  semmatch candidates
  semmatch candidates --target-collection study-a --high-quality
  semmatch candidates --target sbp --limit 5 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		cands, err := s.ListCandidates(cmd.Context(), store.CandidateOpts{
			TargetCollection: candTargetCollection,
			Target:           candTarget,
			SourceCollection: candSourceCollection,
			HighQualityOnly:  candHighQuality,
			Limit:            candLimit,
		})
		if err != nil {
			return fmt.Errorf("list candidates: %w", err)
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
	candidatesCmd.Flags().StringVar(&candTargetCollection, "target-collection", "", "filter by target collection")
	candidatesCmd.Flags().StringVar(&candTarget, "target", "", "filter by target attribute ID")
	candidatesCmd.Flags().StringVar(&candSourceCollection, "source-collection", "", "filter by source collection")
	candidatesCmd.Flags().BoolVar(&candHighQuality, "high-quality", false, "only high quality candidates")
	candidatesCmd.Flags().IntVar(&candLimit, "limit", 0, "maximum number of results (0 for all)")
	rootCmd.AddCommand(candidatesCmd)
}
