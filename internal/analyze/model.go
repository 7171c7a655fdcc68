package analyze

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/scbrown/semmatch/internal/ngram"
	"github.com/scbrown/semmatch/internal/textnorm"
	"github.com/scbrown/semmatch/internal/vsm"
)

// ErrUnknownModel is returned for a scoring model name that is not registered.
var ErrUnknownModel = errors.New("unknown scoring model")

// Model names a lexical scoring algorithm.
type Model string

const (
	ModelNGram        Model = "ngram"
	ModelVSM          Model = "vsm"
	ModelEditDistance Model = "levenshtein"
)

// Models lists the available models.
func Models() []Model {
	return []Model{ModelNGram, ModelVSM, ModelEditDistance}
}

// ParseModel validates a model name.
func ParseModel(s string) (Model, error) {
	m := Model(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Models() {
		if m == k {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

// Scorer compares two documents, returning a value in [0,1].
type Scorer interface {
	Score(a, b string) float64
}

// Options configures the models that need parameters.
type Options struct {
	// NGramSize is the n-gram length; 0 means ngram.DefaultN.
	NGramSize int
	// Frequencies weighs vsm terms; nil weighs every term 1.
	Frequencies vsm.FrequencyProvider
	// KeepStopWords keeps stop words for the ngram and vsm models.
	KeepStopWords bool
}

// New returns the Scorer for m.
func New(m Model, opts Options) (Scorer, error) {
	switch m {
	case ModelNGram:
		n := opts.NGramSize
		if n <= 0 {
			n = ngram.DefaultN
		}
		return ngram.Similarity{N: n, RemoveStopWords: !opts.KeepStopWords}, nil
	case ModelVSM:
		s := vsm.New(opts.Frequencies)
		s.KeepStopWords = opts.KeepStopWords
		return s, nil
	case ModelEditDistance:
		return EditDistance{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModel, m)
}

// EditDistance scores cleaned strings by normalized Levenshtein distance with
// small bonuses for a shared prefix and suffix.
type EditDistance struct{}

// Score implements Scorer.
func (EditDistance) Score(a, b string) float64 {
	a, b = textnorm.Clean(a), textnorm.Clean(b)
	if a == b {
		if a == "" {
			return 0
		}
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	// Normalized Levenshtein: 1 - (distance / max_length).
	maxLen := max(len(a), len(b))
	lev := 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)

	prefixBonus := 0.1 * float64(commonPrefixLen(a, b)) / float64(maxLen)
	suffixBonus := 0.05 * float64(commonSuffixLen(a, b)) / float64(maxLen)

	return min(lev+prefixBonus+suffixBonus, 1.0)
}

// commonPrefixLen returns the length of the common prefix of a and b.
func commonPrefixLen(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// commonSuffixLen returns the length of the common suffix of a and b.
func commonSuffixLen(a, b string) int {
	la, lb := len(a), len(b)
	n := min(la, lb)
	for i := 0; i < n; i++ {
		if a[la-1-i] != b[lb-1-i] {
			return i
		}
	}
	return n
}
