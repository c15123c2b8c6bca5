package domain

import (
	"fmt"
	"strings"
)

// Language identifies a target language by ISO code and display name
type Language struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// String returns the display name, falling back to the code
func (l Language) String() string {
	if l.Name != "" {
		return l.Name
	}
	return l.Code
}

// Level is a CEFR proficiency marker passed to the generator as context
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

var levelNames = map[Level]string{
	LevelA1: "Beginner",
	LevelA2: "Elementary",
	LevelB1: "Intermediate",
	LevelB2: "Upper Intermediate",
	LevelC1: "Advanced",
	LevelC2: "Proficient",
}

// Levels returns all levels in ascending order
func Levels() []Level {
	return []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}
}

// Name returns the descriptive name of the level
func (l Level) Name() string {
	return levelNames[l]
}

// Label returns "B1 (Intermediate)"
func (l Level) Label() string {
	if name := l.Name(); name != "" {
		return fmt.Sprintf("%s (%s)", l, name)
	}
	return string(l)
}

// IsValid reports whether l is one of the known levels
func (l Level) IsValid() bool {
	_, ok := levelNames[l]
	return ok
}

// ParseLevel parses a level code case-insensitively
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !l.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
	return l, nil
}
