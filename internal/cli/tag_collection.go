package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/scbrown/semmatch/internal/model"
)

var tagCollectionScopes []string

var tagCollectionCmd = &cobra.Command{
	Use:   "tag-collection <collection>",
	Short: "Tag every attribute of a collection and store the tag groups",
	Long: `Tag-collection tags the label (or description) of each attribute in the
collection and replaces its stored tag groups. Progress is written to stderr
every progress_batch attributes. Interrupting the command stops it between
attributes; attributes already tagged stay saved.`,
	Example: `  semmatch tag-collection study-a
  semmatch tag-collection study-a --scope hp --json`,
	Args: cobra.ExactArgs(1),
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

		attrs, err := s.ListAttributes(ctx, args[0])
		if err != nil {
			return fmt.Errorf("list attributes: %w", err)
		}
		if len(attrs) == 0 {
			return fmt.Errorf("collection %q has no attributes", args[0])
		}

		groups := 0
		save := func(ctx context.Context, a model.Attribute) error {
			groups += len(a.TagGroups)
			return s.SaveAttributes(ctx, []model.Attribute{a})
		}
		n, err := e.Runner(progressPrinter(os.Stderr)).TagAttributes(ctx, e, attrs, tagCollectionScopes, save)
		if err != nil {
			return fmt.Errorf("tag collection: %w", err)
		}

		res := tagCollectionResult{Collection: args[0], Attributes: n, TagGroups: groups}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tagged %s attributes of %s with %s tag groups.\n",
			humanize.Comma(int64(n)), args[0], humanize.Comma(int64(groups)))
		return nil
	},
}

func init() {
	tagCollectionCmd.Flags().StringSliceVar(&tagCollectionScopes, "scope", nil, "ontology to search (repeatable)")
	rootCmd.AddCommand(tagCollectionCmd)
}

type tagCollectionResult struct {
	Collection string `json:"collection"`
	Attributes int    `json:"attributes"`
	TagGroups  int    `json:"tag_groups"`
}

// progressPrinter returns a job progress callback writing one line per report.
func progressPrinter(w io.Writer) func(current, total int, message string) {
	return func(current, total int, message string) {
		fmt.Fprintf(w, "%s (%s of %s)\n", message, humanize.Comma(int64(current)), humanize.Comma(int64(total)))
	}
}
