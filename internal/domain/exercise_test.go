package domain

import (
	"errors"
	"testing"
)

func TestExerciseDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     ExerciseDefinition
		wantErr bool
	}{
		{"valid", ExerciseDefinition{Type: "essay", MinWords: 170, MaxWords: 175, Requirements: "Write an essay."}, false},
		{"equal bounds", ExerciseDefinition{Type: "note", MinWords: 30, MaxWords: 30, Requirements: "Leave a note."}, false},
		{"missing type", ExerciseDefinition{MinWords: 1, MaxWords: 2, Requirements: "x"}, true},
		{"zero min", ExerciseDefinition{Type: "a", MinWords: 0, MaxWords: 2, Requirements: "x"}, true},
		{"min above max", ExerciseDefinition{Type: "a", MinWords: 30, MaxWords: 25, Requirements: "x"}, true},
		{"blank requirements", ExerciseDefinition{Type: "a", MinWords: 1, MaxWords: 2, Requirements: "  "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Validate() error = %v, want ErrInvalidDefinition", err)
			}
		})
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"I goes to school.", 4},
		{"Cześć, jak się masz?", 4},
		{"one - two", 2},
		{"line\nbreak\ttab", 3},
	}

	for _, tt := range tests {
		if got := WordCount(tt.text); got != tt.want {
			t.Errorf("WordCount(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestExerciseDefinition_CheckLength(t *testing.T) {
	def := &ExerciseDefinition{Type: "note", MinWords: 3, MaxWords: 4, Requirements: "x"}

	tests := []struct {
		text string
		want LengthStatus
	}{
		{"one two", LengthTooShort},
		{"one two three", LengthOK},
		{"one two three four", LengthOK},
		{"one two three four five", LengthTooLong},
	}

	for _, tt := range tests {
		if _, got := def.CheckLength(tt.text); got != tt.want {
			t.Errorf("CheckLength(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
