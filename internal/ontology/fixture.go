package ontology

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/scbrown/semmatch/internal/model"
	"gopkg.in/yaml.v3"
)

// Fixture is the import format for terms and collections.
type Fixture struct {
	Terms       []model.OntologyTerm `json:"terms" yaml:"terms"`
	Collections []Collection         `json:"collections" yaml:"collections"`
}

// Collection groups the attributes of one dataset in a fixture.
type Collection struct {
	ID         string            `json:"id" yaml:"id"`
	Attributes []model.Attribute `json:"attributes" yaml:"attributes"`
}

// Attributes returns every attribute with its Collection field filled in.
func (f *Fixture) Attributes() []model.Attribute {
	var out []model.Attribute
	for _, c := range f.Collections {
		for _, a := range c.Attributes {
			a.Collection = c.ID
			if a.ID == "" {
				a.ID = c.ID + ":" + a.Name
			}
			out = append(out, a)
		}
	}
	return out
}

// LoadFixture reads a fixture file. Files ending in .json are decoded as JSON,
// everything else as YAML.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return DecodeFixture(f, format)
}

// DecodeFixture decodes a fixture in the given format ("json" or "yaml") and
// normalizes its terms.
func DecodeFixture(r io.Reader, format string) (*Fixture, error) {
	var fx Fixture
	switch format {
	case "json":
		if err := json.NewDecoder(r).Decode(&fx); err != nil {
			return nil, fmt.Errorf("parsing fixture: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing fixture: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown fixture format %q", format)
	}
	for i, t := range fx.Terms {
		if t.IRI == "" {
			return nil, fmt.Errorf("term %d: missing iri", i)
		}
		nt := model.NewOntologyTerm(t.IRI, t.Label, t.Synonyms, t.NodePaths, t.SemanticTypes)
		nt.Ontology = t.Ontology
		fx.Terms[i] = nt
	}
	for _, c := range fx.Collections {
		if c.ID == "" {
			return nil, fmt.Errorf("collection without id")
		}
	}
	return &fx, nil
}
