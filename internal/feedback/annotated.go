package feedback

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/langtutor/internal/domain"
)

var (
	textSpan = regexp.MustCompile(`(?is)<text>(.*?)</text>`)
	// A <text> opening a new line, optionally behind a bullet marker,
	// starts the next entry. Inline <text> spans stay in the explanation.
	entryStart = regexp.MustCompile(`(?i)\n\s*(?:[-*•]|\d+[.)])?\s*<text>`)
)

// ExtractAnnotatedErrors parses a mistakes or stylistic_errors section body
// into ordered (fragment, explanation) pairs. An empty fragment is kept:
// it marks an issue with the whole text.
func ExtractAnnotatedErrors(content string) []domain.AnnotatedError {
	errs := []domain.AnnotatedError{}
	if IsNone(content) {
		return errs
	}

	pos := 0
	for pos < len(content) {
		m := textSpan.FindStringSubmatchIndex(content[pos:])
		if m == nil {
			break
		}
		fragment := strings.TrimSpace(content[pos+m[2] : pos+m[3]])
		start := pos + m[1]

		end := len(content)
		if b := entryStart.FindStringIndex(content[start:]); b != nil {
			end = start + b[0]
		}

		explanation := strings.TrimSpace(content[start:end])
		if strings.HasPrefix(explanation, "-") {
			explanation = strings.TrimSpace(explanation[1:])
		}

		if fragment != "" || explanation != "" {
			errs = append(errs, domain.AnnotatedError{
				Fragment:    fragment,
				Explanation: explanation,
			})
		}
		pos = end
	}

	return errs
}

// FormatErrors renders a list as markdown bullets, or empty when the list is empty
func FormatErrors(errs []domain.AnnotatedError, empty string) string {
	if len(errs) == 0 {
		return empty
	}

	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Fragment != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", e.Fragment, e.Explanation))
		} else {
			lines = append(lines, fmt.Sprintf("- %s", e.Explanation))
		}
	}
	return strings.Join(lines, "\n")
}
