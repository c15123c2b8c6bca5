// Package session holds the state of one writing exercise from generation
// through feedback, and persists it.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/langtutor/internal/domain"
)

// State is one practice session
type State struct {
	ID           string `json:"id"`
	Language     string `json:"language"`
	Level        string `json:"level"`
	ExerciseType string `json:"exercise_type"`

	Exercise string `json:"exercise"`
	Hints    string `json:"hints"`
	Writing  string `json:"writing"`

	Mistakes        []domain.AnnotatedError `json:"mistakes"`
	StyleErrors     []domain.AnnotatedError `json:"style_errors"`
	Recommendations string                  `json:"recommendations"`

	QA []Exchange `json:"qa,omitempty"`

	// TotalCost sums the known costs; UnpricedCalls counts calls with unknown cost
	TotalCost     float64 `json:"total_cost"`
	UnpricedCalls int     `json:"unpriced_calls"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Exchange is one answered question
type Exchange struct {
	Model    string    `json:"model"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// New creates an empty session for the given selection
func New(language, level, exerciseType string) *State {
	now := time.Now().UTC()
	return &State{
		ID:           uuid.NewString(),
		Language:     language,
		Level:        level,
		ExerciseType: exerciseType,
		Mistakes:     []domain.AnnotatedError{},
		StyleErrors:  []domain.AnnotatedError{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AddCost accumulates the cost of one model call
func (s *State) AddCost(c domain.Cost) {
	if amount, ok := c.Value(); ok {
		s.TotalCost += amount
	} else {
		s.UnpricedCalls++
	}
	s.touch()
}

// Cost returns the accumulated cost; unknown when nothing was priced
func (s *State) Cost() domain.Cost {
	if s.TotalCost == 0 && s.UnpricedCalls > 0 {
		return domain.UnknownCost()
	}
	return domain.KnownCost(s.TotalCost)
}

// SetExercise stores a new exercise and clears earlier feedback
func (s *State) SetExercise(content domain.ExerciseContent) {
	s.Exercise = content.Text
	s.Hints = content.Hints
	s.Mistakes = []domain.AnnotatedError{}
	s.StyleErrors = []domain.AnnotatedError{}
	s.Recommendations = ""
	s.touch()
}

// SetFeedback records the checked submission and its feedback
func (s *State) SetFeedback(writing string, fb domain.Feedback) {
	s.Writing = writing
	s.Mistakes = fb.Mistakes
	s.StyleErrors = fb.StyleErrors
	s.Recommendations = fb.Recommendations
	if s.Mistakes == nil {
		s.Mistakes = []domain.AnnotatedError{}
	}
	if s.StyleErrors == nil {
		s.StyleErrors = []domain.AnnotatedError{}
	}
	s.touch()
}

// AddExchange records an answered question
func (s *State) AddExchange(model, question, answer string) {
	now := time.Now().UTC()
	s.QA = append(s.QA, Exchange{Model: model, Question: question, Answer: answer, AskedAt: now})
	s.UpdatedAt = now
}

func (s *State) touch() {
	s.UpdatedAt = time.Now().UTC()
}
