// Package entity recognises known company names inside free text.
package entity

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// mentionCap bounds CountOtherMentions; callers only compare against small thresholds.
const mentionCap = 10

// boundary is what may follow a name for it to count as a standalone mention:
// end of text, whitespace, a case particle, punctuation, or any rune that
// cannot continue a Hangul/Latin/digit token.
const boundary = `(?:[ 은는이가을를의와과로서에.,"'\n\r]|$|[^가-힣a-zA-Z0-9])`

type pattern struct {
	name string
	re   *regexp.Regexp
}

// Matcher holds one compiled pattern per known name. It is immutable after
// NewMatcher and safe for concurrent use.
type Matcher struct {
	patterns []pattern
	index    map[string]struct{}
	compact  map[string]string
}

// NewMatcher compiles the given names; blanks and duplicates are dropped.
func NewMatcher(names []string) *Matcher {
	m := &Matcher{
		index:   make(map[string]struct{}, len(names)),
		compact: make(map[string]string, len(names)),
	}
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := m.index[name]; ok {
			continue
		}
		m.index[name] = struct{}{}
		if _, ok := m.compact[stripSpaces(name)]; !ok {
			m.compact[stripSpaces(name)] = name
		}
		m.patterns = append(m.patterns, pattern{
			name: name,
			re:   regexp.MustCompile(regexp.QuoteMeta(name) + boundary),
		})
	}
	return m
}

// Len reports how many distinct names are known.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}

// Names returns the known names in insertion order.
func (m *Matcher) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.patterns))
	for i, p := range m.patterns {
		out[i] = p.name
	}
	return out
}

// Contains reports whether name is known, ignoring inner whitespace.
func (m *Matcher) Contains(name string) bool {
	_, ok := m.Canonical(name)
	return ok
}

// Canonical returns the known spelling of name, matching exactly first and
// then with all whitespace removed.
func (m *Matcher) Canonical(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	name = strings.TrimSpace(name)
	if _, ok := m.index[name]; ok {
		return name, true
	}
	known, ok := m.compact[stripSpaces(name)]
	return known, ok
}

// CountOtherMentions counts distinct known names other than exclude found in
// text. Counting stops once 10 names have matched.
func (m *Matcher) CountOtherMentions(text, exclude string) int {
	if m == nil || text == "" {
		return 0
	}
	count := 0
	for _, p := range m.patterns {
		if p.name == exclude {
			continue
		}
		if p.re.MatchString(text) {
			count++
			if count >= mentionCap {
				break
			}
		}
	}
	return count
}

// AnyOtherMention reports whether any known name other than exclude appears in text.
func (m *Matcher) AnyOtherMention(text, exclude string) bool {
	if m == nil || text == "" {
		return false
	}
	for _, p := range m.patterns {
		if p.name == exclude {
			continue
		}
		if p.re.MatchString(text) {
			return true
		}
	}
	return false
}

// LoadCSV reads names from the first column of a listed-company CSV file.
func LoadCSV(path string) (*Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open entity list: %w", err)
	}
	defer f.Close()

	m, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read entity list %s: %w", path, err)
	}
	return m, nil
}

// ReadCSV builds a Matcher from the first column of r, skipping the header row.
func ReadCSV(r io.Reader) (*Matcher, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var names []string
	header := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(record) == 0 {
			continue
		}
		names = append(names, record[0])
	}
	return NewMatcher(names), nil
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
