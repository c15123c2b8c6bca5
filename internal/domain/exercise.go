package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// ExerciseDefinition describes one exercise type of one language.
// Definitions are loaded once and never mutated.
type ExerciseDefinition struct {
	Language     string `json:"language" yaml:"-"`
	Type         string `json:"type" yaml:"id" validate:"required"`
	MinWords     int    `json:"min_words" yaml:"min_words" validate:"gt=0"`
	MaxWords     int    `json:"max_words" yaml:"max_words" validate:"gtefield=MinWords"`
	Requirements string `json:"requirements" yaml:"requirements" validate:"required"`
}

// Validate checks the definition invariants
func (d *ExerciseDefinition) Validate() error {
	switch {
	case strings.TrimSpace(d.Type) == "":
		return fmt.Errorf("%w: missing type", ErrInvalidDefinition)
	case d.MinWords <= 0 || d.MaxWords <= 0:
		return fmt.Errorf("%w: %s: word limits must be positive", ErrInvalidDefinition, d.Type)
	case d.MinWords > d.MaxWords:
		return fmt.Errorf("%w: %s: min_words %d > max_words %d", ErrInvalidDefinition, d.Type, d.MinWords, d.MaxWords)
	case strings.TrimSpace(d.Requirements) == "":
		return fmt.Errorf("%w: %s: missing requirements", ErrInvalidDefinition, d.Type)
	}
	return nil
}

// LengthStatus describes a word count relative to the expected range
type LengthStatus string

const (
	LengthTooShort LengthStatus = "too_short"
	LengthOK       LengthStatus = "ok"
	LengthTooLong  LengthStatus = "too_long"
)

// CheckLength classifies the word count of text against the definition
func (d *ExerciseDefinition) CheckLength(text string) (int, LengthStatus) {
	n := WordCount(text)
	switch {
	case n < d.MinWords:
		return n, LengthTooShort
	case n > d.MaxWords:
		return n, LengthTooLong
	default:
		return n, LengthOK
	}
}

// WordCount counts whitespace-separated words containing at least one letter or digit
func WordCount(text string) int {
	n := 0
	for _, f := range strings.Fields(text) {
		if strings.IndexFunc(f, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r)
		}) >= 0 {
			n++
		}
	}
	return n
}

// ExerciseContent is the parsed result of an exercise generation.
// Empty Hints means no hints.
type ExerciseContent struct {
	Text  string `json:"text"`
	Hints string `json:"hints"`
}
