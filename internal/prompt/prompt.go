// Package prompt builds the instruction strings sent to the model.
// Every builder is pure: the same request always yields the same text.
package prompt

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/langtutor/internal/domain"
)

// GenerationRequest contains data for an exercise generation prompt
type GenerationRequest struct {
	Language     string
	Level        domain.Level
	ExerciseType string
	Definition   domain.ExerciseDefinition
	Nonce        int
}

// CheckingRequest contains data for a writing check prompt
type CheckingRequest struct {
	Language     string
	Level        domain.Level
	ExerciseType string
	ExerciseText string
	Submission   string

	// Requirements of the exercise type, omitted from the prompt when empty
	Requirements string
}

// CustomHintsRequest contains data for a hints-only prompt
type CustomHintsRequest struct {
	Language     string
	Level        domain.Level
	ExerciseText string
}

// AnswerRequest contains data for a free-form question prompt
type AnswerRequest struct {
	Language     string
	Level        domain.Level
	ExerciseType string
	ExerciseText string
	Question     string
}

// Generation builds the prompt asking for one exercise and its hints
func Generation(req GenerationRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Create a short '%s' writing exercise for a learner of %s at proficiency level %s.\n",
		req.ExerciseType, req.Language, req.Level))
	sb.WriteString(fmt.Sprintf("The expected length of the writing is between %d and %d words.\n",
		req.Definition.MinWords, req.Definition.MaxWords))
	sb.WriteString(fmt.Sprintf("Random number: %d (ignore this number, it only varies the prompt).\n", req.Nonce))
	sb.WriteString("Provide the exercise text and optionally some hints. The requirements for the exercise are:\n")
	sb.WriteString(fmt.Sprintf("'%s'\n", req.Definition.Requirements))
	sb.WriteString("Generate exactly one exercise. It must be a task for the learner, not a sample answer.\n\n")

	sb.WriteString("Format the output EXACTLY like this, using these XML tags:\n\n")
	writeSection(&sb, TagExercise, "The exercise text goes here")
	sb.WriteString("\n")
	writeSection(&sb, TagHints, fmt.Sprintf(
		"Optional hints go here. You can add useful phrases in addition to the hints. If there are no hints, write %q", NoneSentinel))
	sb.WriteString("Use markdown to format the hints.\n")

	return sb.String()
}

// Checking builds the prompt asking for mistakes, stylistic errors and
// recommendations. Only strictly grammatical issues belong in mistakes.
func Checking(req CheckingRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("A student learning %s was given this %s level '%s' writing exercise:\n",
		req.Language, req.Level, req.ExerciseType))
	sb.WriteString(fmt.Sprintf("'%s'\n\n", req.ExerciseText))
	if req.Requirements != "" {
		sb.WriteString(fmt.Sprintf("The requirements for the exercise are:\n'%s'\n\n", req.Requirements))
	}
	sb.WriteString("Their response was:\n")
	sb.WriteString(fmt.Sprintf("'%s'\n\n", req.Submission))

	sb.WriteString(`Please check their writing. Provide feedback listing:
1. Grammatical mistakes.
2. Stylistic errors.
3. Recommendations for improvement.
4. Whether the response follows the requirements of the exercise.

For mistakes and stylistic errors, wrap the exact problematic text from the writing in <text></text> tags,
followed by your explanation. The text should be as specific as possible, and the explanation should be
clear and educational.
Only strict grammatical mistakes belong in the <mistakes> section.
No recommendations or stylistic errors may appear in the <mistakes> section.

Format the output EXACTLY like this, using these XML tags:

`)
	writeSection(&sb, TagMistakes, fmt.Sprintf(`- <text>problematic text from the writing</text> explanation of the grammatical error
- <text>another error</text> explanation
(Or %q if there are no strictly grammatical mistakes)`, NoneSentinel))
	sb.WriteString("\n")
	writeSection(&sb, TagStylisticErrors, fmt.Sprintf(`- <text>stylistic issue</text> explanation of the stylistic issue
- <text>another issue</text> explanation
- <text></text> explanation when the issue applies to the whole text
(Or %q if there are no stylistic errors)`, NoneSentinel))
	sb.WriteString("\n")
	writeSection(&sb, TagRecommendations, fmt.Sprintf(`List of recommendations for improvement
(Or %q if there are no recommendations)`, NoneSentinel))

	return sb.String()
}

// CustomHints builds the prompt asking only for hints to a user-supplied exercise
func CustomHints(req CustomHintsRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Provide helpful hints or useful phrases for the following %s writing exercise aimed at level %s learners:\n",
		req.Language, req.Level))
	sb.WriteString(req.ExerciseText)
	sb.WriteString("\n\nFormat the output EXACTLY like this using XML tags:\n")
	writeSection(&sb, TagHints, fmt.Sprintf("Your hints here or %q", NoneSentinel))
	sb.WriteString("\nUse markdown to format the hints.\n")

	return sb.String()
}

// Answer frames a learner question with the exercise context.
// The model's reply is used verbatim.
func Answer(req AnswerRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are a helpful language learning assistant. The user is learning %s\n", req.Language))
	sb.WriteString(fmt.Sprintf("at %s level. They are working on a %s exercise:\n\n", req.Level, req.ExerciseType))
	sb.WriteString(fmt.Sprintf("\"%s\"\n\n", req.ExerciseText))
	sb.WriteString("The user's question is:\n")
	sb.WriteString(req.Question)
	sb.WriteString("\n\nPlease provide a helpful, educational response focused on language learning.")

	return sb.String()
}

func writeSection(sb *strings.Builder, tag, body string) {
	sb.WriteString(Open(tag))
	sb.WriteString("\n")
	sb.WriteString(body)
	sb.WriteString("\n")
	sb.WriteString(Close(tag))
	sb.WriteString("\n")
}
