package ontology

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/scbrown/semmatch/internal/model"
)

func testIndex() *MemIndex {
	return NewMemIndex(
		model.OntologyTerm{IRI: "cv", Ontology: "umls", Label: "Cardiovascular disease", NodePaths: []string{"0[0]"}},
		model.OntologyTerm{IRI: "htn", Ontology: "umls", Label: "Hypertension", Synonyms: []string{"high blood pressure"}, NodePaths: []string{"0[0].0[1]"}},
		model.OntologyTerm{IRI: "htn-ess", Ontology: "umls", Label: "Essential hypertension", NodePaths: []string{"0[0].0[1].0[2]"}},
		model.OntologyTerm{IRI: "bp", Ontology: "loinc", Label: "Blood pressure", NodePaths: []string{"1[0]"}},
		model.OntologyTerm{IRI: "orphan", Ontology: "umls", Label: "Pressure ulcer"},
	)
}

func iris(ts []model.OntologyTerm) string {
	var out []string
	for _, t := range ts {
		out = append(out, t.IRI)
	}
	return strings.Join(out, ",")
}

func TestFindTerms(t *testing.T) {
	idx := testIndex()
	ctx := context.Background()

	got, err := idx.FindTerms(ctx, nil, []string{"blood", "pressure"}, 10)
	if err != nil {
		t.Fatalf("FindTerms: %v", err)
	}
	// htn and bp share two stems, orphan shares one.
	if iris(got) != "bp,htn,orphan" {
		t.Errorf("FindTerms = %s, want bp,htn,orphan", iris(got))
	}

	got, _ = idx.FindTerms(ctx, []string{"umls"}, []string{"blood", "pressure"}, 10)
	if iris(got) != "htn,orphan" {
		t.Errorf("scoped FindTerms = %s, want htn,orphan", iris(got))
	}

	got, _ = idx.FindTerms(ctx, nil, []string{"blood", "pressure"}, 1)
	if len(got) != 1 {
		t.Errorf("page size not honored: %s", iris(got))
	}

	got, _ = idx.FindTerms(ctx, nil, []string{"hypertensive"}, 10)
	if iris(got) != "htn,htn-ess" {
		t.Errorf("stemmed lookup = %s, want htn,htn-ess", iris(got))
	}

	got, _ = idx.FindTerms(ctx, nil, []string{"unrelated"}, 10)
	if len(got) != 0 {
		t.Errorf("unexpected hits: %s", iris(got))
	}
}

func TestFindTermsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testIndex().FindTerms(ctx, nil, []string{"blood"}, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestChildrenAndTerm(t *testing.T) {
	idx := testIndex()
	ctx := context.Background()

	cv, err := idx.Term(ctx, "cv")
	if err != nil || cv == nil {
		t.Fatalf("Term(cv) = %v, %v", cv, err)
	}
	children, _ := idx.Children(ctx, *cv)
	if iris(children) != "htn" {
		t.Errorf("Children(cv) = %s, want htn", iris(children))
	}
	missing, err := idx.Term(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Term(nope) = %v, %v; want nil, nil", missing, err)
	}
	orphan, _ := idx.Term(ctx, "orphan")
	if c, _ := idx.Children(ctx, *orphan); len(c) != 0 {
		t.Errorf("terms without paths have no children, got %s", iris(c))
	}
}

func TestDescendants(t *testing.T) {
	idx := testIndex()
	ctx := context.Background()
	cv, _ := idx.Term(ctx, "cv")

	one, err := Descendants(ctx, idx, *cv, 1)
	if err != nil {
		t.Fatalf("Descendants: %v", err)
	}
	if iris(one) != "htn" {
		t.Errorf("depth 1 = %s, want htn", iris(one))
	}
	all, _ := Descendants(ctx, idx, *cv, 5)
	if iris(all) != "htn,htn-ess" {
		t.Errorf("depth 5 = %s, want htn,htn-ess", iris(all))
	}
}

func TestIsChildAndParentPath(t *testing.T) {
	p := model.OntologyTerm{NodePaths: []string{"0[0].1[1]"}}
	c := model.OntologyTerm{NodePaths: []string{"0[0].1[1].2[2]"}}
	g := model.OntologyTerm{NodePaths: []string{"0[0].1[1].2[2].3[3]"}}
	if !IsChild(c, p) || IsChild(g, p) || IsChild(p, c) {
		t.Error("IsChild wrong")
	}
	if ParentPath("0[0].1[1]") != "0[0]" || ParentPath("0[0]") != "" {
		t.Error("ParentPath wrong")
	}
}

func TestDecodeFixtureYAML(t *testing.T) {
	src := `
terms:
  - iri: htn
    ontology: umls
    label: Hypertension
    synonyms: [High blood pressure, high BLOOD pressure]
    node_paths: ["0[0].0[1]"]
    semantic_types:
      - name: Disease or Syndrome
collections:
  - id: lifelines
    attributes:
      - name: HTN
        label: history of hypertension
      - id: custom
        name: BMI
        label: body mass index
`
	fx, err := DecodeFixture(strings.NewReader(src), "yaml")
	if err != nil {
		t.Fatalf("DecodeFixture: %v", err)
	}
	if len(fx.Terms) != 1 || len(fx.Terms[0].Synonyms) != 1 {
		t.Fatalf("terms = %+v", fx.Terms)
	}
	if fx.Terms[0].Ontology != "umls" || fx.Terms[0].SemanticTypes[0].Name != "Disease or Syndrome" {
		t.Errorf("term fields lost: %+v", fx.Terms[0])
	}
	attrs := fx.Attributes()
	if len(attrs) != 2 {
		t.Fatalf("attributes = %+v", attrs)
	}
	if attrs[0].ID != "lifelines:HTN" || attrs[0].Collection != "lifelines" {
		t.Errorf("attrs[0] = %+v", attrs[0])
	}
	if attrs[1].ID != "custom" {
		t.Errorf("explicit id overwritten: %q", attrs[1].ID)
	}
}

func TestDecodeFixtureJSON(t *testing.T) {
	src := `{"terms":[{"iri":"a","label":"A"}],"collections":[{"id":"c","attributes":[{"name":"x","label":"X"}]}]}`
	fx, err := DecodeFixture(strings.NewReader(src), "json")
	if err != nil {
		t.Fatalf("DecodeFixture: %v", err)
	}
	if len(fx.Terms) != 1 || len(fx.Attributes()) != 1 {
		t.Errorf("fixture = %+v", fx)
	}
}

func TestDecodeFixtureErrors(t *testing.T) {
	tests := []struct {
		name, src, format string
	}{
		{"missing iri", "terms:\n  - label: x\n", "yaml"},
		{"collection id", "collections:\n  - attributes: []\n", "yaml"},
		{"bad json", "{", "json"},
		{"format", "", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFixture(strings.NewReader(tt.src), tt.format); err == nil {
				t.Error("expected error")
			}
		})
	}
}
