package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/scbrown/semmatch/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show counts of stored terms, attributes and candidates",
	Long: `Display a summary of the database: ontology terms, collections and
attributes, tag groups, mapping candidates with their decisions, and stored
collection similarity results. The attribute count of each collection is
listed below the totals.`,
	Example: `  semmatch stats
  semmatch stats --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		st, err := s.Stats(ctx)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		ids, err := s.ListCollections(ctx)
		if err != nil {
			return fmt.Errorf("list collections: %w", err)
		}
		var sizes []collectionSize
		for _, id := range ids {
			attrs, err := s.ListAttributes(ctx, id)
			if err != nil {
				return fmt.Errorf("list attributes: %w", err)
			}
			sizes = append(sizes, collectionSize{ID: id, Attributes: len(attrs)})
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), statsOutput{Stats: st, Sizes: sizes})
		}
		printStatsText(cmd.OutOrStdout(), st, sizes)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

type collectionSize struct {
	ID         string `json:"id"`
	Attributes int    `json:"attributes"`
}

type statsOutput struct {
	store.Stats
	Sizes []collectionSize `json:"collection_sizes,omitempty"`
}

func printStatsText(w io.Writer, st store.Stats, sizes []collectionSize) {
	color := isTTY(w)
	n := func(v int) string { return humanize.Comma(int64(v)) }

	fmt.Fprintf(w, "Ontology terms:     %s\n", n(st.Terms))
	fmt.Fprintf(w, "Collections:        %s\n", n(st.Collections))
	fmt.Fprintf(w, "Attributes:         %s\n", n(st.Attributes))
	fmt.Fprintf(w, "Tag groups:         %s\n", n(st.TagGroups))
	fmt.Fprintf(w, "Candidates:         %s (%s high quality)\n", n(st.Candidates), n(st.HighQuality))
	fmt.Fprintf(w, "Decisions:          %s\n", n(st.Decisions))
	fmt.Fprintf(w, "Similarities:       %s\n", n(st.Similarities))

	if len(sizes) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, bold("Attributes per collection:", color))
	for _, c := range sizes {
		fmt.Fprintf(w, "  %-20s %s\n", c.ID, n(c.Attributes))
	}
}
