// Package vsm scores documents by the cosine of their weighted term vectors.
package vsm

import (
	"errors"
	"math"
	"strings"

	"github.com/scbrown/semmatch/internal/textnorm"
)

// ErrDimensionMismatch is returned by Cosine for vectors of different length.
var ErrDimensionMismatch = errors.New("vsm: vectors have different dimensions")

// FrequencyProvider weights a stemmed term. Unknown terms weigh 0.
type FrequencyProvider interface {
	Frequency(stem string) float64
}

// FrequencyMap is a FrequencyProvider backed by a map keyed by stem.
type FrequencyMap map[string]float64

// Frequency implements FrequencyProvider.
func (m FrequencyMap) Frequency(stem string) float64 { return m[stem] }

// Stemmed re-keys m by the stem of each key. Weights of keys sharing a stem
// keep the last value seen in key order.
func Stemmed(m map[string]float64) FrequencyMap {
	out := make(FrequencyMap, len(m))
	for k, v := range m {
		out[textnorm.Stem(strings.ToLower(k))] = v
	}
	return out
}

// NewCorpusFrequency derives inverse document frequencies from docs:
// log10(N / documents containing the stem).
func NewCorpusFrequency(docs []string) FrequencyMap {
	df := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]bool)
		for _, s := range stems(d, false) {
			if !seen[s] {
				seen[s] = true
				df[s]++
			}
		}
	}
	out := make(FrequencyMap, len(df))
	n := float64(len(docs))
	for s, c := range df {
		out[s] = math.Log10(n / float64(c))
	}
	return out
}

// Cosine returns the cosine similarity of a and b. A zero vector scores 0.
// Vectors of different length score 0 with ErrDimensionMismatch.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return min(max(dot/(math.Sqrt(na)*math.Sqrt(nb)), 0), 1), nil
}

// Scorer compares two documents over their shared stemmed vocabulary.
type Scorer struct {
	freq FrequencyProvider
	// KeepStopWords retains stop words in the vocabulary.
	KeepStopWords bool
}

// New returns a Scorer weighting terms by freq. A nil freq weighs every term 1.
func New(freq FrequencyProvider) *Scorer {
	return &Scorer{freq: freq}
}

// Score returns the cosine of the two documents' weight vectors, in [0,1].
func (s *Scorer) Score(a, b string) float64 {
	return s.score(a, b, s.KeepStopWords)
}

// ScoreWith is Score with an explicit stop-word setting.
func (s *Scorer) ScoreWith(a, b string, keepStopWords bool) float64 {
	return s.score(a, b, keepStopWords)
}

func (s *Scorer) score(a, b string, keepStopWords bool) float64 {
	sa, sb := stems(a, keepStopWords), stems(b, keepStopWords)
	vocab := vocabulary(sa, sb)
	cos, _ := Cosine(s.vector(sa, vocab), s.vector(sb, vocab))
	return cos
}

func (s *Scorer) weight(stem string) float64 {
	if s.freq == nil {
		return 1
	}
	return s.freq.Frequency(stem)
}

func (s *Scorer) vector(doc []string, vocab []string) []float64 {
	counts := make(map[string]int, len(doc))
	for _, t := range doc {
		counts[t]++
	}
	v := make([]float64, len(vocab))
	for i, t := range vocab {
		v[i] = float64(counts[t]) * s.weight(t)
	}
	return v
}

// stems returns every stemmed word of text, duplicates kept.
func stems(text string, keepStopWords bool) []string {
	var out []string
	for _, w := range strings.Split(textnorm.Clean(text), " ") {
		if w == "" || (!keepStopWords && textnorm.IsStopWord(w)) {
			continue
		}
		out = append(out, textnorm.Stem(w))
	}
	return out
}

func vocabulary(docs ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range docs {
		for _, t := range d {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}
