package ngram

import (
	"math"
	"testing"
)

func TestScoreKnownValue(t *testing.T) {
	s := Similarity{N: 2}
	if got := s.Score("abc", "abd"); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Score(abc, abd) = %v, want 0.5", got)
	}
}

func TestScoreIdentity(t *testing.T) {
	inputs := []string{"hypertension", "history of hypertension", "Body Mass Index", "x"}
	for _, n := range []int{2, 3} {
		s := New(n)
		for _, in := range inputs {
			if got := s.Score(in, in); got != 1 {
				t.Errorf("n=%d Score(%q, %q) = %v, want 1", n, in, in, got)
			}
		}
	}
}

func TestScoreSymmetric(t *testing.T) {
	inputs := []string{
		"history of hypertension",
		"history of medication",
		"hypertension",
		"systolic blood pressure",
		"blood pressure, diastolic",
		"",
		"the of and",
	}
	for _, n := range []int{1, 2, 3, 4} {
		for _, rm := range []bool{false, true} {
			s := Similarity{N: n, RemoveStopWords: rm}
			for _, a := range inputs {
				for _, b := range inputs {
					if s.Score(a, b) != s.Score(b, a) {
						t.Errorf("n=%d rm=%v Score(%q,%q) != Score(%q,%q)", n, rm, a, b, b, a)
					}
				}
			}
		}
	}
}

func TestScoreDisjointAndEmpty(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"disjoint", "xyz", "qqq"},
		{"empty left", "", "hypertension"},
		{"empty both", "", ""},
		{"punctuation only", "---", "hypertension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.a, tt.b); got != 0 {
				t.Errorf("Score(%q, %q) = %v, want 0", tt.a, tt.b, got)
			}
		})
	}
}

func TestScoreStopWordRemoval(t *testing.T) {
	keep := Similarity{N: 2}
	drop := Similarity{N: 2, RemoveStopWords: true}
	if got := drop.Score("the of", "the of"); got != 0 {
		t.Errorf("stop-word-only input scored %v with removal, want 0", got)
	}
	if got := keep.Score("the of", "the of"); got != 1 {
		t.Errorf("stop-word-only input scored %v without removal, want 1", got)
	}
	if drop.Score("history of hypertension", "history hypertension") != 1 {
		t.Error("stop words should not affect the score when removed")
	}
}

func TestScoreBounds(t *testing.T) {
	pairs := [][2]string{
		{"systolic blood pressure", "blood pressure"},
		{"smoking status", "smoker"},
		{"glucose", "glucagon"},
	}
	for _, p := range pairs {
		got := Score(p[0], p[1])
		if got <= 0 || got >= 1 {
			t.Errorf("Score(%q, %q) = %v, want strictly between 0 and 1", p[0], p[1], got)
		}
	}
}

func TestGramsTail(t *testing.T) {
	g := Similarity{N: 2}.Grams("ab")
	for _, want := range []string{"^a", "ab", "b$"} {
		if g[want] != 1 {
			t.Errorf("Grams(ab)[%q] = %d, want 1 (all: %v)", want, g[want], g)
		}
	}
}
