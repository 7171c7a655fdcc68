// Package ngram scores lexical similarity between two strings with a Dice
// coefficient over stemmed, boundary-marked character n-grams.
package ngram

import (
	"strings"

	"github.com/scbrown/semmatch/internal/textnorm"
)

// DefaultN is the n-gram size used when none is configured.
const DefaultN = 2

// Similarity is a configured n-gram scorer. The zero value uses DefaultN
// and keeps stop words.
type Similarity struct {
	N               int
	RemoveStopWords bool
}

// New returns a scorer for n-grams of size n with stop words removed.
func New(n int) Similarity {
	return Similarity{N: n, RemoveStopWords: true}
}

// Score returns a value in [0,1]: 0 when a and b share no n-gram and 1 when
// their normalized word bags are identical. Score(a,b) == Score(b,a).
func (s Similarity) Score(a, b string) float64 {
	return dice(s.Grams(a), s.Grams(b))
}

// Score is the default bigram similarity with stop words removed.
func Score(a, b string) float64 {
	return New(DefaultN).Score(a, b)
}

// Grams counts the n-grams of text. Each cleaned, stemmed word is wrapped as
// ^word$ before slicing; the last gram of a word is its two-character tail.
func (s Similarity) Grams(text string) map[string]int {
	n := s.N
	if n < 1 {
		n = DefaultN
	}
	grams := make(map[string]int)
	for _, w := range strings.Split(textnorm.Clean(text), " ") {
		if w == "" || (s.RemoveStopWords && textnorm.IsStopWord(w)) {
			continue
		}
		w = "^" + textnorm.Stem(w) + "$"
		for i := 0; i < len(w)-1; i++ {
			if i+n < len(w) {
				grams[w[i:i+n]]++
			} else {
				grams[w[len(w)-2:]]++
			}
		}
	}
	return grams
}

func dice(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	total := 0
	for _, c := range a {
		total += c
	}
	for _, c := range b {
		total += c
	}
	shared := 0
	for g, ca := range a {
		shared += min(ca, b[g])
	}
	return 2 * float64(shared) / float64(total)
}
