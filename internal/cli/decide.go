package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/store"
)

var (
	decideComment string
	decideOwner   string
)

var decideCmd = &cobra.Command{
	Use:   "decide <candidate-id> <accept|reject|undecided>",
	Short: "Record a review decision for a mapping candidate",
	Long: `Decide appends a decision to a candidate's history. Earlier decisions are
kept; the latest one is shown by semmatch candidates.`,
	Example: `  semmatch decide 3f2a9c1e-... accept --owner ana
  semmatch decide 3f2a9c1e-... reject --comment "different unit"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		decision, ok := model.ParseDecision(args[1])
		if !ok {
			return fmt.Errorf("invalid decision %q: must be accept, reject or undecided", args[1])
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		d := model.AttributeMappingDecision{
			ID:          uuid.New().String(),
			CandidateID: args[0],
			Decision:    decision,
			Comment:     decideComment,
			Owner:       decideOwner,
			Timestamp:   time.Now().UTC(),
		}
		err = s.RecordDecision(cmd.Context(), d)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("candidate %q not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("record decision: %w", err)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), d)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s for candidate %s.\n", d.Decision, d.CandidateID)
		return nil
	},
}

func init() {
	decideCmd.Flags().StringVar(&decideComment, "comment", "", "comment stored with the decision")
	decideCmd.Flags().StringVar(&decideOwner, "owner", "", "who made the decision")
	rootCmd.AddCommand(decideCmd)
}
