package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// -----------------------------------------------------------------------------

// Exercise errors
var (
	ErrInvalidDefinition = errors.New("invalid exercise definition")
	ErrEmptyExercise     = errors.New("exercise text is empty")
)

// Submission errors
var (
	ErrEmptySubmission = errors.New("submission is empty")
	ErrEmptyQuestion   = errors.New("question is empty")
)

// Level errors
var (
	ErrUnknownLevel = errors.New("unknown proficiency level")
)
