// Package filter decides whether a fetched article is about the target entity.
package filter

import (
	"strings"

	"MomentumScanner/internal/config"
	"MomentumScanner/internal/entity"
)

// Reason names the rule that rejected an article.
type Reason string

const (
	Admitted         Reason = ""
	ReasonEmpty      Reason = "empty"
	ReasonTooShort   Reason = "too_short"
	ReasonAbsent     Reason = "target_absent"
	ReasonNotInHead  Reason = "target_not_in_head"
	ReasonRoundup    Reason = "roundup"
	ReasonDenylisted Reason = "denylisted"
)

// Filter applies the body rules of one pipeline configuration. Lengths and
// windows are measured in characters, not bytes.
type Filter struct {
	Config  config.PipelineConfig
	Matcher *entity.Matcher
}

// New returns a filter over cfg; matcher may be nil when no entity list is loaded.
func New(cfg config.PipelineConfig, matcher *entity.Matcher) Filter {
	return Filter{Config: cfg, Matcher: matcher}
}

// Admit reports whether body may be published for target. Rules are checked in
// a fixed order and the first failing rule is returned.
func (f Filter) Admit(target, body string) (bool, Reason) {
	if body == "" {
		return false, ReasonEmpty
	}

	runes := []rune(body)
	if len(runes) < f.Config.MinBodyLength {
		return false, ReasonTooShort
	}
	if !strings.Contains(body, target) {
		return false, ReasonAbsent
	}
	if !strings.Contains(prefix(runes, f.Config.HeadWindowSize), target) {
		return false, ReasonNotInHead
	}
	if f.Matcher.CountOtherMentions(prefix(runes, f.Config.CoMentionWindow), target) >= f.Config.MaxOtherEntities {
		return false, ReasonRoundup
	}
	for _, phrase := range f.Config.BodyDenylist {
		if phrase != "" && strings.Contains(body, phrase) {
			return false, ReasonDenylisted
		}
	}
	return true, Admitted
}

func prefix(runes []rune, n int) string {
	if n >= len(runes) {
		return string(runes)
	}
	return string(runes[:n])
}
