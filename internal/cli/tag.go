package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scbrown/semmatch/internal/model"
)

var tagScopes []string

var tagCmd = &cobra.Command{
	Use:   "tag <text>",
	Short: "Tag free text with ontology terms",
	Long: `Tag splits the text into query terms, looks them up in the ontology index,
and prints the ranked tag groups. Each group is one or more terms that
together explain the words listed under MATCHED.

Use --scope to restrict the lookup to one or more ontologies.`,
	Example: `  semmatch tag "history of hypertension"
  semmatch tag "body mass index" --scope hp --scope loinc
  semmatch tag "systolic blood pressure" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		e, err := openEngine(cmd.Context(), s)
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		groups := e.Tag(cmd.Context(), text, tagScopes)
		if jsonOutput {
			if groups == nil {
				groups = []model.TagGroup{}
			}
			return printJSON(cmd.OutOrStdout(), groups)
		}
		writeTagGroups(cmd.OutOrStdout(), text, groups)
		return nil
	},
}

func init() {
	tagCmd.Flags().StringSliceVar(&tagScopes, "scope", nil, "ontology to search (repeatable)")
	rootCmd.AddCommand(tagCmd)
}

func termLabels(terms []model.OntologyTerm) string {
	labels := make([]string, len(terms))
	for i, t := range terms {
		labels[i] = t.Label
	}
	return strings.Join(labels, " + ")
}

func writeTagGroups(w io.Writer, text string, groups []model.TagGroup) {
	if len(groups) == 0 {
		fmt.Fprintf(w, "No tags found for %q\n", text)
		return
	}
	tbl := NewTable(w, "RANK", "IRI", "TERMS", "MATCHED", "SCORE")
	for i, g := range groups {
		tbl.Row(fmt.Sprintf("%d", i+1), g.IRI(), tbl.Fit(termLabels(g.Terms), 50, 20), g.MatchedWords, score(g.Similarity()))
	}
	tbl.Flush()
}
