package collection

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/scbrown/semmatch/internal/model"
)

// relTable returns the listed relatedness for a pair in either direction and
// 0 otherwise.
type relTable map[[2]string]float64

func (r relTable) Relatedness(t, s model.OntologyTerm, _ int) float64 {
	if v, ok := r[[2]string{t.IRI, s.IRI}]; ok {
		return v
	}
	return r[[2]string{s.IRI, t.IRI}]
}

func tagged(terms ...model.OntologyTerm) model.Attribute {
	return model.Attribute{TagGroups: []model.TagGroup{model.NewTagGroup(terms, "", 1)}}
}

var (
	x = model.OntologyTerm{IRI: "x"}
	y = model.OntologyTerm{IRI: "y"}
	z = model.OntologyTerm{IRI: "z"}
)

func TestSingleSharedTerm(t *testing.T) {
	a := NewProfile("a", []model.Attribute{tagged(x)}, nil)
	b := NewProfile("b", []model.Attribute{tagged(x)}, nil)
	for _, st := range Strategies() {
		self, _ := New(st, relTable{{"x", "x"}: 1}, 5)
		if got := self.Similarity(a, b); math.Abs(got-1) > 1e-12 {
			t.Errorf("%s: self-related shared term = %v, want 1", st, got)
		}
	}
	none, _ := New(StrategyFrequency, relTable{}, 5)
	if got := none.Similarity(a, b); got != 0 {
		t.Errorf("unrelated shared term = %v, want 0", got)
	}
}

func TestFrequencyScorer(t *testing.T) {
	a := NewProfile("a", []model.Attribute{tagged(x), tagged(x), tagged(y)}, nil)
	b := NewProfile("b", []model.Attribute{tagged(x), tagged(z)}, nil)
	rel := relTable{{"x", "x"}: 1, {"y", "z"}: 0.2}
	s, _ := New(StrategyFrequency, rel, 5)
	// (1*2*1 + 0.2*1*1) / sqrt(3*2)
	want := 2.2 / math.Sqrt(6)
	if got := s.Similarity(a, b); math.Abs(got-want) > 1e-12 {
		t.Errorf("Similarity = %v, want %v", got, want)
	}
}

func TestVectorScorerBorrowsRelatedWeight(t *testing.T) {
	a := NewProfile("a", []model.Attribute{tagged(y)}, nil)
	b := NewProfile("b", []model.Attribute{tagged(z)}, nil)
	s, _ := New(StrategyVector, relTable{{"y", "z"}: 0.5}, 5)
	// vocab [y z]: a = [1, 0.5], b = [0.5, 1]
	want := 1.0 / (1.25)
	if got := s.Similarity(a, b); math.Abs(got-want) > 1e-12 {
		t.Errorf("Similarity = %v, want %v", got, want)
	}
}

func TestProfileCountsOncePerGroupAndSkipsKeyConcepts(t *testing.T) {
	unit := model.SemanticType{Name: "Unit"}
	kg := model.OntologyTerm{IRI: "kg", SemanticTypes: []model.SemanticType{unit}}
	p := NewProfile("a", []model.Attribute{tagged(x, x, kg), tagged(x, y)}, []model.SemanticType{unit})
	if p.Freq["x"] != 2 || p.Freq["y"] != 1 || p.Freq["kg"] != 0 {
		t.Errorf("Freq = %v", p.Freq)
	}
	if p.Distinct() != 2 || p.Total() != 3 {
		t.Errorf("Distinct = %d, Total = %d; want 2, 3", p.Distinct(), p.Total())
	}
}

func TestScoreAll(t *testing.T) {
	profiles := []Profile{
		NewProfile("c", []model.Attribute{tagged(x, y, z)}, nil),
		NewProfile("a", []model.Attribute{tagged(x)}, nil),
		NewProfile("b", []model.Attribute{tagged(x, y)}, nil),
	}
	s, _ := New(StrategyFrequency, relTable{{"x", "x"}: 1}, 5)
	got, err := ScoreAll(context.Background(), profiles, s)
	if err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	wantPairs := [][2]string{{"a", "b"}, {"a", "c"}, {"b", "c"}}
	wantCoverage := []int{1, 1, 2} // floor(sqrt(2)), floor(sqrt(3)), floor(sqrt(6))
	for i, r := range got {
		if r.Target != wantPairs[i][0] || r.Source != wantPairs[i][1] {
			t.Errorf("result %d = %s/%s, want %v", i, r.Target, r.Source, wantPairs[i])
		}
		if r.Coverage != wantCoverage[i] {
			t.Errorf("result %d coverage = %d, want %d", i, r.Coverage, wantCoverage[i])
		}
		if r.Strategy != "frequency" || r.Similarity < 0 || r.Similarity > 1 {
			t.Errorf("result %d = %+v", i, r)
		}
	}
}

func TestScoreAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	profiles := []Profile{{ID: "a"}, {ID: "b"}}
	s, _ := New(StrategyVector, relTable{}, 5)
	if _, err := ScoreAll(ctx, profiles, s); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestUnknownStrategy(t *testing.T) {
	if _, err := New("cosine", relTable{}, 5); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("New err = %v", err)
	}
	if _, err := ParseStrategy("Vector"); err != nil {
		t.Errorf("ParseStrategy(Vector): %v", err)
	}
}
