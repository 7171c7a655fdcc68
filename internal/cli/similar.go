package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scbrown/semmatch/internal/analyze"
	"github.com/scbrown/semmatch/internal/store"
)

var (
	similarCollection string
	similarKnown      string
	similarModel      string
	similarThreshold  float64
	similarTopN       int
)

// similarCmd ranks attribute labels by lexical similarity to a query.
var similarCmd = &cobra.Command{
	Use:   "similar <label>",
	Short: "Find attribute labels lexically similar to a label",
	Long: `Similar ranks attribute labels by string similarity to the given label,
without looking at ontology terms. Labels come from --collection, from the
--known list, or from every stored collection when neither is given.

Models:
  ngram          Dice coefficient over character n-grams (ngram_size)
  vsm            cosine of word vectors weighted by inverse label frequency
  edit_distance  normalized Levenshtein similarity

The default model is scoring_model from the configuration.`,
	Example: `  semmatch similar "systolic blood pressure" --collection study-b
  semmatch similar "body weight" --known "Weight,Body mass index,Height"
  semmatch similar "bmi" --model edit_distance --threshold 0.3 --top 3
  semmatch similar "age at visit" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
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

		known, err := similarLabels(ctx, s)
		if err != nil {
			return err
		}
		m, err := parseModelFlag(similarModel)
		if err != nil {
			return err
		}
		scorer, err := e.Scorer(m, known)
		if err != nil {
			return err
		}

		threshold := similarThreshold
		if threshold == 0 {
			threshold = analyze.DefaultThreshold
		}
		suggestions := analyze.SuggestN(query, known, similarTopN, threshold, scorer)

		w := cmd.OutOrStdout()
		if jsonOutput {
			if suggestions == nil {
				suggestions = []analyze.Suggestion{}
			}
			return printJSON(w, similarOutput{Query: query, Suggestions: suggestions})
		}
		writeSimilarTable(w, query, suggestions)
		return nil
	},
}

func init() {
	similarCmd.Flags().StringVar(&similarCollection, "collection", "", "collection whose labels are ranked")
	similarCmd.Flags().StringVar(&similarKnown, "known", "", "comma-separated list of labels to rank")
	similarCmd.Flags().StringVar(&similarModel, "model", "", "scoring model: ngram, vsm or edit_distance")
	similarCmd.Flags().Float64Var(&similarThreshold, "threshold", 0, "minimum similarity score (default 0.5)")
	similarCmd.Flags().IntVar(&similarTopN, "top", analyze.DefaultTopN, "maximum number of suggestions")
	rootCmd.AddCommand(similarCmd)
}

func parseModelFlag(s string) (analyze.Model, error) {
	if s == "" {
		return "", nil
	}
	return analyze.ParseModel(s)
}

// similarLabels collects the distinct labels to rank.
func similarLabels(ctx context.Context, s store.Store) ([]string, error) {
	var labels []string
	if similarKnown != "" {
		for _, k := range strings.Split(similarKnown, ",") {
			if k = strings.TrimSpace(k); k != "" {
				labels = append(labels, k)
			}
		}
	}

	var collections []string
	switch {
	case similarCollection != "":
		collections = []string{similarCollection}
	case similarKnown == "":
		ids, err := s.ListCollections(ctx)
		if err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
		collections = ids
	}
	for _, c := range collections {
		attrs, err := s.ListAttributes(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("list attributes: %w", err)
		}
		for _, a := range attrs {
			labels = append(labels, a.Text())
		}
	}

	seen := make(map[string]bool, len(labels))
	out := labels[:0]
	for _, l := range labels {
		if l != "" && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out, nil
}

// similarOutput is the JSON structure for similar results.
type similarOutput struct {
	Query       string               `json:"query"`
	Suggestions []analyze.Suggestion `json:"suggestions"`
}

// writeSimilarTable writes suggestions as an aligned text table.
func writeSimilarTable(w io.Writer, query string, suggestions []analyze.Suggestion) {
	if len(suggestions) == 0 {
		fmt.Fprintf(w, "No suggestions found for %q\n", query)
		return
	}
	tbl := NewTable(w, "RANK", "LABEL", "SCORE")
	for i, s := range suggestions {
		tbl.Row(fmt.Sprintf("%d", i+1), s.Name, fmt.Sprintf("%.2f", s.Score))
	}
	tbl.Flush()
}
