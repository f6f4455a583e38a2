// Package dedup collapses search hits that describe the same story.
package dedup

import (
	"github.com/pmezard/go-difflib/difflib"

	"MomentumScanner/internal/domain"
)

// DefaultThreshold is the title similarity at which two same-day stubs are duplicates.
const DefaultThreshold = 0.6

// Similarity returns the Ratcliff/Obershelp ratio of a and b over runes, in [0, 1].
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

// Deduplicate keeps input order and drops a stub when its link was already
// kept, or when its title is at least threshold-similar to a title kept for
// the same publication day.
func Deduplicate(stubs []domain.ArticleStub, threshold float64) []domain.ArticleStub {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	seen := make(map[string]struct{}, len(stubs))
	byDay := make(map[string][][]string)
	unique := make([]domain.ArticleStub, 0, len(stubs))

	for _, stub := range stubs {
		if _, ok := seen[stub.Link]; ok {
			continue
		}

		day := stub.Day()
		title := runes(stub.Title)
		if isDuplicate(title, byDay[day], threshold) {
			continue
		}

		seen[stub.Link] = struct{}{}
		byDay[day] = append(byDay[day], title)
		unique = append(unique, stub)
	}

	return unique
}

func isDuplicate(title []string, admitted [][]string, threshold float64) bool {
	for _, existing := range admitted {
		if difflib.NewMatcher(title, existing).Ratio() >= threshold {
			return true
		}
	}
	return false
}

// runes splits s into one-rune strings so difflib compares characters, not lines.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
