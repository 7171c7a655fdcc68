package rank

import (
	"math"
	"math/rand"
	"testing"

	"github.com/scbrown/semmatch/internal/model"
)

func cand(iri, label, matched string, score float64, synonyms ...string) Candidate {
	return Candidate{
		Term:           model.OntologyTerm{IRI: iri, Label: label, Synonyms: synonyms},
		MatchedSynonym: matched,
		Score:          score,
	}
}

func TestScoreDominates(t *testing.T) {
	low := cand("a", "x", "x", 0.4)
	high := cand("b", "y", "y", 0.9)
	cs := []Candidate{low, high}
	Sort(cs)
	if cs[0].Term.IRI != "b" {
		t.Errorf("first = %s, want b", cs[0].Term.IRI)
	}
}

func TestSemanticTypeRule(t *testing.T) {
	plain := cand("a", "Smoking", "smoking", 0.8, "smoking")
	typed := cand("z", "Smoking", "smoked", 0.8, "smoked")
	typed.Term.SemanticTypes = []model.SemanticType{{Name: "Finding"}}

	cs := []Candidate{plain, typed}
	Sort(cs)
	if cs[0].Term.IRI != "z" {
		t.Errorf("first = %s, want z (has semantic type)", cs[0].Term.IRI)
	}
}

func TestLabelRule(t *testing.T) {
	bySynonym := cand("a", "Tobacco use", "smoking", 0.8, "smoking", "tobacco use")
	byLabel := cand("z", "Smoking", "smoking", 0.8, "smoking")

	cs := []Candidate{bySynonym, byLabel}
	Sort(cs)
	if cs[0].Term.IRI != "z" {
		t.Errorf("first = %s, want z (label match)", cs[0].Term.IRI)
	}
}

func TestInformationContentRule(t *testing.T) {
	// "bp" occurs three times across the synonyms of a, once for z.
	rich := cand("z", "Blood pressure", "bp", 0.8, "bp", "bp systolic", "bp diastolic")
	poor := cand("a", "Arterial pressure", "bp", 0.8, "bp", "arterial blood pressure measurement")

	if rich.InformationContent() <= poor.InformationContent() {
		t.Fatalf("IC(rich)=%v should exceed IC(poor)=%v", rich.InformationContent(), poor.InformationContent())
	}
	cs := []Candidate{poor, rich}
	Sort(cs)
	if cs[0].Term.IRI != "z" {
		t.Errorf("first = %s, want z (higher information content)", cs[0].Term.IRI)
	}
}

func TestInformationContentValue(t *testing.T) {
	c := cand("a", "A", "bp", 1, "bp", "bp high")
	// joined = "bpbphigh" (8 chars), "bp" occurs twice, length 2.
	want := 2.0 * 2.0 / 8.0
	if got := c.InformationContent(); math.Abs(got-want) > 1e-12 {
		t.Errorf("InformationContent = %v, want %v", got, want)
	}
	if got := cand("a", "A", "", 1, "x").InformationContent(); got != 0 {
		t.Errorf("empty synonym IC = %v, want 0", got)
	}
}

func TestRulesApplyOnlyToStemEqualSynonyms(t *testing.T) {
	// Lexically different synonyms: semantic types must not reorder them,
	// only the IRI fallback applies.
	typed := cand("z", "Glucose", "glucose", 0.8, "glucose")
	typed.Term.SemanticTypes = []model.SemanticType{{Name: "Substance"}}
	plain := cand("a", "Insulin", "insulin", 0.8, "insulin")

	cs := []Candidate{typed, plain}
	Sort(cs)
	if cs[0].Term.IRI != "a" {
		t.Errorf("first = %s, want a (IRI fallback)", cs[0].Term.IRI)
	}
}

func TestRuleOrder(t *testing.T) {
	// Semantic types outrank a label match.
	typedSynonym := cand("a", "Tobacco use", "smoking", 0.8, "smoking")
	typedSynonym.Term.SemanticTypes = []model.SemanticType{{Name: "Finding"}}
	untypedLabel := cand("b", "Smoking", "smoking", 0.8, "smoking")
	if Compare(typedSynonym, untypedLabel) >= 0 {
		t.Error("semantic type rule should be applied before label rule")
	}
	// A label match outranks higher information content.
	label := cand("c", "bp", "bp", 0.8, "x")
	richSynonym := cand("d", "Blood pressure", "bp", 0.8, "bp", "bp bp")
	if Compare(label, richSynonym) >= 0 {
		t.Error("label rule should be applied before information content")
	}
}

func TestSortDeterministic(t *testing.T) {
	base := []Candidate{
		cand("e", "E", "blood pressure", 0.7, "blood pressure"),
		cand("d", "D", "blood pressures", 0.7, "blood pressures", "bp"),
		cand("c", "C", "pressure", 0.7, "pressure"),
		cand("b", "Blood pressure", "blood pressure", 0.7, "blood pressure"),
		cand("a", "A", "bp", 0.9, "bp"),
	}
	want := append([]Candidate(nil), base...)
	Sort(want)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		cs := append([]Candidate(nil), base...)
		r.Shuffle(len(cs), func(i, j int) { cs[i], cs[j] = cs[j], cs[i] })
		Sort(cs)
		for k := range cs {
			if cs[k].Term.IRI != want[k].Term.IRI {
				t.Fatalf("run %d: position %d = %s, want %s", i, k, cs[k].Term.IRI, want[k].Term.IRI)
			}
		}
	}
	if want[0].Term.IRI != "a" {
		t.Errorf("highest score first: got %s", want[0].Term.IRI)
	}
}
