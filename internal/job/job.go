// Package job runs tagging and matching over whole collections, checking for
// cancellation between attributes and reporting progress in batches.
package job

import (
	"context"
	"fmt"

	"github.com/scbrown/semmatch/internal/model"
	"go.uber.org/zap"
)

// DefaultBatchSize is how many attributes are processed between progress
// reports.
const DefaultBatchSize = 50

// ProgressFunc receives progress at batch boundaries and once at the end.
type ProgressFunc func(current, total int, message string)

// Tagger produces tag groups for text.
type Tagger interface {
	Tag(ctx context.Context, text string, scopes []string) []model.TagGroup
}

// Matcher proposes mapping candidates for a target attribute.
type Matcher interface {
	Match(ctx context.Context, target model.Attribute, pool []model.Attribute) []model.AttributeMappingCandidate
}

// Runner holds the settings shared by batch jobs.
type Runner struct {
	BatchSize int
	Progress  ProgressFunc
	Log       *zap.Logger
}

func (r Runner) batch() int {
	if r.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return r.BatchSize
}

func (r Runner) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r Runner) report(done, total int, final bool) {
	if r.Progress == nil {
		return
	}
	if final || done%r.batch() == 0 {
		r.Progress(done, total, fmt.Sprintf("Processed %d input terms.", done))
	}
}

// TagAttributes tags each attribute's text and hands the tagged attribute to
// save. It returns how many attributes were saved. A canceled context stops
// the run between attributes and is returned as the error.
func (r Runner) TagAttributes(ctx context.Context, t Tagger, attrs []model.Attribute, scopes []string, save func(context.Context, model.Attribute) error) (int, error) {
	log := r.logger()
	done := 0
	for _, a := range attrs {
		if err := ctx.Err(); err != nil {
			log.Info("tagging canceled", zap.Int("done", done), zap.Int("total", len(attrs)))
			return done, err
		}
		a.TagGroups = t.Tag(ctx, a.Text(), scopes)
		if err := save(ctx, a); err != nil {
			return done, fmt.Errorf("saving attribute %s: %w", a.ID, err)
		}
		done++
		r.report(done, len(attrs), done == len(attrs))
	}
	log.Debug("tagging finished", zap.Int("attributes", done))
	return done, nil
}

// MatchAttributes matches each target against pool and hands the candidates
// to save. It returns the number of candidates saved.
func (r Runner) MatchAttributes(ctx context.Context, m Matcher, targets, pool []model.Attribute, save func(context.Context, []model.AttributeMappingCandidate) error) (int, error) {
	log := r.logger()
	saved := 0
	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			log.Info("matching canceled", zap.Int("done", i), zap.Int("total", len(targets)))
			return saved, err
		}
		cands := m.Match(ctx, target, pool)
		if len(cands) > 0 {
			if err := save(ctx, cands); err != nil {
				return saved, fmt.Errorf("saving candidates for %s: %w", target.ID, err)
			}
			saved += len(cands)
		}
		r.report(i+1, len(targets), i+1 == len(targets))
	}
	log.Debug("matching finished", zap.Int("targets", len(targets)), zap.Int("candidates", saved))
	return saved, nil
}
