package feedback

import (
	"regexp"
	"strings"

	"github.com/felixgeelhaar/langtutor/internal/domain"
	"github.com/felixgeelhaar/langtutor/internal/prompt"
)

// Warnings produced when the response did not follow the requested schema
const (
	WarnExerciseFallback = "exercise section not found; showing best-effort text from the response"
	WarnNoFeedback       = "no feedback sections found in the response"
	WarnHintsMissing     = "hints section not found in the response"
)

// ParseExercise extracts the exercise text and hints. It never fails:
// when the exercise tag is missing the text before the hints marker is
// used, and as a last resort the whole response.
func ParseExercise(raw string) (domain.ExerciseContent, []string) {
	var warnings []string

	text := ExtractSection(raw, prompt.TagExercise).Or("")
	if text == "" {
		text = fallbackExercise(raw)
		warnings = append(warnings, WarnExerciseFallback)
	}

	return domain.ExerciseContent{
		Text:  text,
		Hints: ExtractSection(raw, prompt.TagHints).Or(""),
	}, warnings
}

// ParseHints extracts the hints section of a hints-only response
func ParseHints(raw string) (string, []string) {
	s := ExtractSection(raw, prompt.TagHints)
	if s.State == SectionMissing {
		return "", []string{WarnHintsMissing}
	}
	return s.Or(""), nil
}

// ParseFeedback extracts mistakes, stylistic errors and recommendations.
// Cost is left for the caller to fill in.
func ParseFeedback(raw string) (domain.Feedback, []string) {
	mistakes := ExtractSection(raw, prompt.TagMistakes)
	style := ExtractSection(raw, prompt.TagStylisticErrors)
	recs := ExtractSection(raw, prompt.TagRecommendations)

	var warnings []string
	if mistakes.State == SectionMissing && style.State == SectionMissing && recs.State == SectionMissing {
		warnings = append(warnings, WarnNoFeedback)
	}

	return domain.Feedback{
		Mistakes:        ExtractAnnotatedErrors(mistakes.Or("")),
		StyleErrors:     ExtractAnnotatedErrors(style.Or("")),
		Recommendations: recs.Or(""),
	}, warnings
}

var (
	hintsOpen    = regexp.MustCompile(`(?i)<hints>`)
	exerciseTags = regexp.MustCompile(`(?i)</?exercise>`)
)

func fallbackExercise(raw string) string {
	text := raw
	if loc := hintsOpen.FindStringIndex(raw); loc != nil {
		text = raw[:loc[0]]
	} else if i := strings.Index(raw, prompt.LegacyHintsMarker); i >= 0 {
		text = raw[:i]
	}

	text = exerciseTags.ReplaceAllString(text, "")
	text = strings.Replace(text, prompt.LegacyExerciseLabel, "", 1)
	text = strings.TrimSpace(text)

	if text == "" {
		return strings.TrimSpace(raw)
	}
	return text
}
