package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/langtutor/internal/feedback"
)

const none = "None."

// Markdown renders the session as a Markdown document
func (s *State) Markdown() string {
	var b strings.Builder

	b.WriteString("# Language Tutor Export\n\n")
	fmt.Fprintf(&b, "**Language:** %s\n", s.Language)
	fmt.Fprintf(&b, "**Level:** %s\n", s.Level)
	fmt.Fprintf(&b, "**Exercise Type:** %s\n", s.ExerciseType)

	section(&b, "Exercise", s.Exercise, "")
	section(&b, "Hints", s.Hints, none)
	section(&b, "Your Writing", s.Writing, "")
	section(&b, "Mistakes", feedback.FormatErrors(s.Mistakes, ""), none)
	section(&b, "Stylistic Errors", feedback.FormatErrors(s.StyleErrors, ""), none)
	section(&b, "Recommendations", s.Recommendations, none)

	if len(s.QA) > 0 {
		b.WriteString("\n## Questions\n")
		for _, qa := range s.QA {
			fmt.Fprintf(&b, "\n**Q (%s):** %s\n\n%s\n", qa.Model, qa.Question, qa.Answer)
		}
	}
	return b.String()
}

func section(b *strings.Builder, title, body, empty string) {
	if strings.TrimSpace(body) == "" {
		body = empty
	}
	fmt.Fprintf(b, "\n## %s\n%s\n", title, body)
}

// ExportName returns the file name used by Export
func (s *State) ExportName() string {
	return fmt.Sprintf("%s-%s.md", s.UpdatedAt.UTC().Format("20060102-150405"), s.ID)
}

// Export writes the Markdown rendering of state into dir and returns the path
func Export(state *State, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(dir, state.ExportName())
	if err := os.WriteFile(path, []byte(state.Markdown()), 0644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
