// Package hierarchy measures how far apart two ontology terms sit in the
// concept tree, using their encoded node paths ("0[0].1[1]").
//
// A term may occur at several tree positions; distances take the minimum and
// relatedness the maximum over all pairs of paths. A term without paths is
// treated as a single empty path.
package hierarchy

import (
	"strings"

	"github.com/scbrown/semmatch/internal/model"
)

// EmptyPathPenalty is added for each side of a pair whose path is unknown.
const EmptyPathPenalty = 10

const pathSeparator = "."

func fragments(path string) []string {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	return strings.Split(path, pathSeparator)
}

func overlap(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func penalty(frags []string) int {
	if len(frags) == 0 {
		return EmptyPathPenalty
	}
	return 0
}

// PathDistance is depth1 + depth2 - 2*overlap plus EmptyPathPenalty for
// each empty path.
func PathDistance(p1, p2 string) int {
	f1, f2 := fragments(p1), fragments(p2)
	return penalty(f1) + penalty(f2) + len(f1) + len(f2) - 2*overlap(f1, f2)
}

// PathRelatedness is 2*max(overlap,1) / (penalty1 + penalty2 + depth1 + depth2),
// where an empty path has depth 1.
func PathRelatedness(p1, p2 string) float64 {
	f1, f2 := fragments(p1), fragments(p2)
	ov := max(overlap(f1, f2), 1)
	d1, d2 := max(len(f1), 1), max(len(f2), 1)
	return 2 * float64(ov) / float64(penalty(f1)+penalty(f2)+d1+d2)
}

func paths(t model.OntologyTerm) []string {
	if len(t.NodePaths) == 0 {
		return []string{""}
	}
	return t.NodePaths
}

// Distance returns the smallest PathDistance over all path pairs of t1 and t2.
func Distance(t1, t2 model.OntologyTerm) int {
	best := -1
	for _, p1 := range paths(t1) {
		for _, p2 := range paths(t2) {
			if d := PathDistance(p1, p2); best < 0 || d < best {
				best = d
			}
		}
	}
	return best
}

// Relatedness returns the largest PathRelatedness over all path pairs.
func Relatedness(t1, t2 model.OntologyTerm) float64 {
	best := 0.0
	for _, p1 := range paths(t1) {
		for _, p2 := range paths(t2) {
			best = max(best, PathRelatedness(p1, p2))
		}
	}
	return best
}

// WithinDistance reports whether Distance(t1, t2) <= level.
func WithinDistance(t1, t2 model.OntologyTerm, level int) bool {
	return Distance(t1, t2) <= level
}

// Related reports whether t1 and t2 are the same term or one is an ancestor
// of the other.
func Related(t1, t2 model.OntologyTerm) bool {
	if t1.Equal(t2) {
		return true
	}
	return IsDescendant(t1, t2) || IsDescendant(t2, t1)
}

// IsDescendant reports whether some path of t lies strictly below some path
// of ancestor.
func IsDescendant(t, ancestor model.OntologyTerm) bool {
	for _, p := range t.NodePaths {
		for _, a := range ancestor.NodePaths {
			if a != "" && strings.HasPrefix(p, a+pathSeparator) {
				return true
			}
		}
	}
	return false
}
