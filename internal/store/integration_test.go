package store

import (
	"context"
	"testing"

	"github.com/scbrown/semmatch/internal/model"
	"github.com/scbrown/semmatch/internal/tagging"
)

// TestTagWithStoreIndexRoundTrip tags attribute text against the SQLite term
// index, persists the tag groups, and reads them back.
func TestTagWithStoreIndexRoundTrip(t *testing.T) {
	s := newTestStore(t)
	seedTerms(t, s)
	ctx := context.Background()

	gen := tagging.New(s)
	groups := gen.Tag(ctx, "High blood pressure", nil)
	if len(groups) == 0 {
		t.Fatal("Tag returned no groups")
	}
	if groups[0].IRI() != "htn" || groups[0].Score != model.ScoreScale {
		t.Fatalf("top group = %s/%d, want htn/%d", groups[0].IRI(), groups[0].Score, model.ScoreScale)
	}

	attr := model.Attribute{Collection: "c", ID: "sbp", Label: "High blood pressure", TagGroups: groups}
	if err := s.SaveAttributes(ctx, []model.Attribute{attr}); err != nil {
		t.Fatalf("SaveAttributes: %v", err)
	}
	got, err := s.GetAttribute(ctx, "c", "sbp")
	if err != nil {
		t.Fatalf("GetAttribute: %v", err)
	}
	if len(got.TagGroups) != len(groups) {
		t.Fatalf("TagGroups = %d, want %d", len(got.TagGroups), len(groups))
	}
	for i := range groups {
		if got.TagGroups[i].IRI() != groups[i].IRI() || got.TagGroups[i].Score != groups[i].Score {
			t.Errorf("TagGroups[%d] = %s/%d, want %s/%d", i,
				got.TagGroups[i].IRI(), got.TagGroups[i].Score, groups[i].IRI(), groups[i].Score)
		}
	}
	if terms := got.Terms(nil); terms[0].NodePaths[0] != "0[0].0[1]" {
		t.Errorf("stored term lost its paths: %+v", terms[0])
	}
}
