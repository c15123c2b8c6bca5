// Package locate finds the span of the learner's text that an annotated
// error quotes. Matching is stateless and safe for concurrent use.
package locate

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/felixgeelhaar/langtutor/internal/domain"
)

// Span is a half-open byte range [Start, End) into the source text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span length in bytes
func (s Span) Len() int {
	return s.End - s.Start
}

// Text returns the covered substring of source
func (s Span) Text(source string) string {
	return source[s.Start:s.End]
}

// Runes converts the span to rune offsets into source
func (s Span) Runes(source string) (start, end int) {
	start = utf8.RuneCountInString(source[:s.Start])
	end = start + utf8.RuneCountInString(source[s.Start:s.End])
	return start, end
}

// whitespace matches any Unicode space run, including no-break spaces
const whitespace = `[\s\v\x{85}\p{Z}]+`

// Find locates fragment in source. The fragment's whitespace is collapsed
// and searched case-sensitively first; failing that, tokens are matched
// case-insensitively across any whitespace. ok is false when nothing matches.
func Find(source, fragment string) (Span, bool) {
	tokens := strings.Fields(fragment)
	if len(tokens) == 0 {
		return Span{}, false
	}

	needle := strings.Join(tokens, " ")
	if i := strings.Index(source, needle); i >= 0 {
		return Span{Start: i, End: i + len(needle)}, true
	}

	return findRelaxed(source, needle, tokens)
}

func findRelaxed(source, needle string, tokens []string) (Span, bool) {
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = regexp.QuoteMeta(tok)
	}
	re, err := regexp.Compile(`(?i)` + strings.Join(quoted, whitespace))
	if err != nil {
		return Span{}, false
	}

	first, _ := utf8.DecodeRuneInString(needle)
	last, _ := utf8.DecodeLastRuneInString(needle)
	anchorStart := isWordRune(first)
	anchorEnd := isWordRune(last)

	for off := 0; off <= len(source); {
		loc := re.FindStringIndex(source[off:])
		if loc == nil {
			break
		}
		start, end := off+loc[0], off+loc[1]
		if (!anchorStart || atWordStart(source, start)) && (!anchorEnd || atWordEnd(source, end)) {
			return Span{Start: start, End: end}, true
		}
		_, size := utf8.DecodeRuneInString(source[start:])
		if size == 0 {
			break
		}
		off = start + size
	}

	return Span{}, false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func atWordStart(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func atWordEnd(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

// Match pairs an annotated error with its located span
type Match struct {
	Error domain.AnnotatedError `json:"error"`
	Span  Span                  `json:"span"`
}

// Locate finds spans for every error with a fragment. Errors that concern
// the whole text or cannot be found are skipped.
func Locate(source string, errs []domain.AnnotatedError) []Match {
	var matches []Match
	for _, e := range errs {
		if e.WholeText() {
			continue
		}
		if span, ok := Find(source, e.Fragment); ok {
			matches = append(matches, Match{Error: e, Span: span})
		}
	}
	return matches
}

// Highlight wraps each span of source in open and close markers.
// Overlapping spans are merged.
func Highlight(source string, spans []Span, open, close string) string {
	if len(spans) == 0 {
		return source
	}

	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	merged := []Span{sorted[0]}
	for _, s := range sorted[1:] {
		cur := &merged[len(merged)-1]
		if s.Start <= cur.End {
			if s.End > cur.End {
				cur.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}

	var sb strings.Builder
	pos := 0
	for _, s := range merged {
		sb.WriteString(source[pos:s.Start])
		sb.WriteString(open)
		sb.WriteString(source[s.Start:s.End])
		sb.WriteString(close)
		pos = s.End
	}
	sb.WriteString(source[pos:])
	return sb.String()
}
