// Package textnorm turns free text into normalized query terms: unicode
// folding, tokenizing, lowercasing, stop-word removal, and stemming.
package textnorm

import (
	_ "embed"
	"regexp"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"
)

//go:embed stopwords.txt
var stopWordList string

var stopWords = parseStopWords(stopWordList)

var (
	// termSplit separates tokens on anything outside letters, digits,
	// apostrophe, period and tilde.
	termSplit = regexp.MustCompile(`[^\p{L}\p{Nd}'.~]+`)
	// illegalChars is what Clean replaces with a space.
	illegalChars = regexp.MustCompile(`[^a-z0-9 ]`)
	nonLetters   = regexp.MustCompile(`[^\p{L}]+`)
	spaceRun     = regexp.MustCompile(` +`)
)

// Options selects the optional normalization stages.
type Options struct {
	RemoveStopWords bool
	Stem            bool
}

func parseStopWords(data string) map[string]bool {
	set := make(map[string]bool)
	for _, line := range strings.Split(data, "\n") {
		w := strings.TrimSpace(line)
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		set[strings.ToLower(w)] = true
	}
	return set
}

// IsStopWord reports whether w (any case) is in the stop-word list.
func IsStopWord(w string) bool {
	return stopWords[strings.ToLower(w)]
}

// Fold applies NFKC compatibility folding and strips combining marks.
func Fold(s string) string {
	s = norm.NFD.String(norm.NFKC.String(s))
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, s)
	return norm.NFC.String(s)
}

// Tokenize folds and lowercases text and splits it into distinct tokens in
// order of first appearance.
func Tokenize(text string) []string {
	parts := termSplit.Split(strings.ToLower(Fold(text)), -1)
	tokens := parts[:0]
	for _, p := range parts {
		if strings.IndexFunc(p, isWordRune) >= 0 {
			tokens = append(tokens, p)
		}
	}
	return distinct(tokens)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Normalize tokenizes text and applies the stages selected by opts.
// The result is a set of tokens; order follows first appearance.
func Normalize(text string, opts Options) []string {
	tokens := Tokenize(text)
	if opts.RemoveStopWords {
		tokens = RemoveStopWords(tokens)
	}
	if opts.Stem {
		for i, t := range tokens {
			tokens[i] = stemFixed(t)
		}
		tokens = distinct(tokens)
		if opts.RemoveStopWords {
			tokens = RemoveStopWords(tokens)
		}
	}
	return tokens
}

// stemFixed stems word until the stemmer leaves it unchanged, so stemmed
// tokens survive another pass.
func stemFixed(word string) string {
	for range maxStemPasses {
		s := Stem(word)
		if s == word {
			break
		}
		word = s
	}
	return word
}

const maxStemPasses = 8

// Terms splits text into lowercase query terms with stop words removed.
func Terms(text string) []string {
	return Normalize(text, Options{RemoveStopWords: true})
}

// RemoveStopWords returns words without stop words, keeping order.
func RemoveStopWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if !IsStopWord(w) {
			out = append(out, w)
		}
	}
	return out
}

// Stem reduces a single word with the English snowball stemmer.
func Stem(word string) string {
	return english.Stem(word, true)
}

// Clean lowercases s, replaces every character outside [a-z0-9 ] with a space
// and collapses runs of spaces.
func Clean(s string) string {
	s = illegalChars.ReplaceAllString(strings.ToLower(Fold(s)), " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// StemAndJoin stems each word, drops blanks, and joins with single spaces.
func StemAndJoin(words []string) string {
	stemmed := make([]string, 0, len(words))
	for _, w := range words {
		if s := strings.TrimSpace(Stem(w)); s != "" {
			stemmed = append(stemmed, s)
		}
	}
	return strings.Join(stemmed, " ")
}

// CleanStemPhrase is the canonical form used to decide whether two phrases
// differ only by inflection.
func CleanStemPhrase(phrase string) string {
	return StemAndJoin(strings.Split(Clean(phrase), " "))
}

// SplitAndStem splits phrase on non-letters and returns the distinct stems.
func SplitAndStem(phrase string) []string {
	parts := nonLetters.Split(strings.ToLower(Fold(phrase)), -1)
	stems := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			stems = append(stems, Stem(p))
		}
	}
	return distinct(stems)
}

// StemSet returns the set of stems of words.
func StemSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if w != "" {
			set[Stem(w)] = true
		}
	}
	return set
}

// ContainsAll reports whether every element of words is in set.
func ContainsAll(set map[string]bool, words []string) bool {
	for _, w := range words {
		if !set[w] {
			return false
		}
	}
	return true
}

// MatchedWords returns the words of a, in order, whose stems occur among the
// stems of b.
func MatchedWords(a, b string) []string {
	stems := make(map[string]bool)
	for _, s := range SplitAndStem(b) {
		stems[s] = true
	}
	var out []string
	for _, w := range Terms(a) {
		if stems[Stem(w)] {
			out = append(out, w)
		}
	}
	return out
}

// UnmatchedWords returns the words of a whose stems do not occur in b.
func UnmatchedWords(a, b string) []string {
	stems := make(map[string]bool)
	for _, s := range SplitAndStem(b) {
		stems[s] = true
	}
	var out []string
	for _, w := range Terms(a) {
		if !stems[Stem(w)] {
			out = append(out, w)
		}
	}
	return out
}

func distinct(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
