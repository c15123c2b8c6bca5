// Package feedback parses the tagged markup returned by the model into
// exercise content, hints and annotated error lists. All tolerance rules
// (case, the "None." sentinel, missing tags) live here.
package feedback

import (
	"regexp"
	"strings"
	"sync"

	"github.com/felixgeelhaar/langtutor/internal/prompt"
)

// SectionState describes the outcome of a section lookup
type SectionState int

const (
	// SectionMissing means the tag pair was not found
	SectionMissing SectionState = iota
	// SectionEmpty means the tag was found but held nothing or the "None." sentinel
	SectionEmpty
	// SectionFound means the tag held real content
	SectionFound
)

func (s SectionState) String() string {
	switch s {
	case SectionMissing:
		return "missing"
	case SectionEmpty:
		return "empty"
	case SectionFound:
		return "found"
	default:
		return "unknown"
	}
}

// Section is the result of extracting one tagged section
type Section struct {
	State SectionState
	Text  string
}

// Found reports whether the section held real content
func (s Section) Found() bool {
	return s.State == SectionFound
}

// Or returns the section text, or def when the section has no content
func (s Section) Or(def string) string {
	if s.State == SectionFound {
		return s.Text
	}
	return def
}

var sectionPatterns sync.Map // tag -> *regexp.Regexp

func sectionPattern(tag string) *regexp.Regexp {
	if re, ok := sectionPatterns.Load(tag); ok {
		return re.(*regexp.Regexp)
	}
	q := regexp.QuoteMeta(tag)
	re := regexp.MustCompile(`(?is)<` + q + `>(.*?)</` + q + `>`)
	actual, _ := sectionPatterns.LoadOrStore(tag, re)
	return actual.(*regexp.Regexp)
}

// ExtractSection finds the first <tag>...</tag> span, ignoring case and
// spanning lines. Content is trimmed; empty content and the "None."
// sentinel yield SectionEmpty.
func ExtractSection(raw, tag string) Section {
	m := sectionPattern(tag).FindStringSubmatch(raw)
	if m == nil {
		return Section{State: SectionMissing}
	}
	content := strings.TrimSpace(m[1])
	if IsNone(content) {
		return Section{State: SectionEmpty}
	}
	return Section{State: SectionFound, Text: content}
}

// IsNone reports whether s is empty or the "None." sentinel
func IsNone(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, prompt.NoneSentinel)
}
