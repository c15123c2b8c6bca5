// Package tutor implements the writing-practice operations: exercise
// generation, submission checking, custom hints and free-form questions.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/felixgeelhaar/langtutor/internal/domain"
	"github.com/felixgeelhaar/langtutor/internal/feedback"
	"github.com/felixgeelhaar/langtutor/internal/llm"
	"github.com/felixgeelhaar/langtutor/internal/prompt"
)

var (
	ErrNoProvider = errors.New("no model provider configured")
	ErrNoModel    = errors.New("no model selected")
)

// Models names the model used by each operation
type Models struct {
	Generate string
	Check    string
}

// Config holds the service dependencies
type Config struct {
	Provider llm.Provider
	Models   Models
	// Nonce returns the number embedded in generation prompts. Defaults to 1..10000.
	Nonce  func() int
	Logger *slog.Logger
}

// Service runs the tutor operations against a replaceable provider
type Service struct {
	mu       sync.RWMutex
	provider llm.Provider
	models   Models

	nonce  func() int
	logger *slog.Logger
}

// NewService creates a new tutor service
func NewService(cfg Config) *Service {
	nonce := cfg.Nonce
	if nonce == nil {
		nonce = func() int { return rand.IntN(10000) + 1 }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: cfg.Provider,
		models:   cfg.Models,
		nonce:    nonce,
		logger:   logger.With("component", "tutor"),
	}
}

// SetProvider replaces the provider; calls already in flight keep the old one
func (s *Service) SetProvider(p llm.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = p
}

// Provider returns the current provider
func (s *Service) Provider() llm.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// SetModels replaces the operation models
func (s *Service) SetModels(m Models) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = m
}

// Models returns the operation models
func (s *Service) Models() Models {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.models
}

// ExerciseRequest selects the exercise to generate
type ExerciseRequest struct {
	Language     string
	Level        domain.Level
	ExerciseType string
	Definition   domain.ExerciseDefinition
}

// ExerciseResult is a generated exercise
type ExerciseResult struct {
	domain.ExerciseContent
	Cost     domain.Cost `json:"cost"`
	Model    string      `json:"model"`
	Warnings []string    `json:"warnings,omitempty"`
}

// GenerateExercise asks the model for a new exercise of the requested type.
// Backend failures are returned; an off-schema response is not an error.
func (s *Service) GenerateExercise(ctx context.Context, req ExerciseRequest) (*ExerciseResult, error) {
	exerciseType := req.ExerciseType
	if exerciseType == "" {
		exerciseType = req.Definition.Type
	}
	if err := req.Definition.Validate(); err != nil {
		return nil, err
	}

	text := prompt.Generation(prompt.GenerationRequest{
		Language:     req.Language,
		Level:        req.Level,
		ExerciseType: exerciseType,
		Definition:   req.Definition,
		Nonce:        s.nonce(),
	})

	res, model, err := s.complete(ctx, "generate", s.Models().Generate, text)
	if err != nil {
		return nil, fmt.Errorf("generate exercise: %w", err)
	}

	content, warnings := feedback.ParseExercise(res.Text)
	s.warn("generate", warnings)

	return &ExerciseResult{
		ExerciseContent: content,
		Cost:            res.Cost,
		Model:           model,
		Warnings:        warnings,
	}, nil
}

// CheckRequest is a submission to check
type CheckRequest struct {
	Language     string
	Level        domain.Level
	ExerciseType string
	ExerciseText string
	Submission   string
	// Definition is nil for custom exercises
	Definition *domain.ExerciseDefinition
}

// CheckResult is the feedback on a submission
type CheckResult struct {
	domain.Feedback
	Model     string              `json:"model"`
	Warnings  []string            `json:"warnings,omitempty"`
	WordCount int                 `json:"word_count"`
	Length    domain.LengthStatus `json:"length,omitempty"`
}

// CheckWriting asks the model for grammar and style feedback on a submission
func (s *Service) CheckWriting(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	if strings.TrimSpace(req.ExerciseText) == "" {
		return nil, domain.ErrEmptyExercise
	}
	if strings.TrimSpace(req.Submission) == "" {
		return nil, domain.ErrEmptySubmission
	}

	pr := prompt.CheckingRequest{
		Language:     req.Language,
		Level:        req.Level,
		ExerciseType: req.ExerciseType,
		ExerciseText: req.ExerciseText,
		Submission:   req.Submission,
	}
	result := &CheckResult{WordCount: domain.WordCount(req.Submission)}
	if req.Definition != nil {
		pr.Requirements = req.Definition.Requirements
		result.WordCount, result.Length = req.Definition.CheckLength(req.Submission)
	}

	res, model, err := s.complete(ctx, "check", s.Models().Check, prompt.Checking(pr))
	if err != nil {
		return nil, fmt.Errorf("check writing: %w", err)
	}

	fb, warnings := feedback.ParseFeedback(res.Text)
	fb.Cost = res.Cost
	s.warn("check", warnings)

	result.Feedback = fb
	result.Model = model
	result.Warnings = warnings
	return result, nil
}

// HintsRequest asks for hints on a learner-supplied exercise
type HintsRequest struct {
	Language     string
	Level        domain.Level
	ExerciseText string
}

// HintsResult holds generated hints. Empty Hints means none.
type HintsResult struct {
	Hints    string      `json:"hints"`
	Cost     domain.Cost `json:"cost"`
	Model    string      `json:"model"`
	Warnings []string    `json:"warnings,omitempty"`
}

// GenerateCustomHints asks the model for hints on a custom exercise text
func (s *Service) GenerateCustomHints(ctx context.Context, req HintsRequest) (*HintsResult, error) {
	if strings.TrimSpace(req.ExerciseText) == "" {
		return nil, domain.ErrEmptyExercise
	}

	text := prompt.CustomHints(prompt.CustomHintsRequest{
		Language:     req.Language,
		Level:        req.Level,
		ExerciseText: req.ExerciseText,
	})

	res, model, err := s.complete(ctx, "hints", s.Models().Generate, text)
	if err != nil {
		return nil, fmt.Errorf("generate hints: %w", err)
	}

	hints, warnings := feedback.ParseHints(res.Text)
	s.warn("hints", warnings)

	return &HintsResult{Hints: hints, Cost: res.Cost, Model: model, Warnings: warnings}, nil
}

// Question is a free-form question about the current exercise
type Question struct {
	// Model overrides the generation model when set
	Model        string
	Question     string
	Language     string
	Level        domain.Level
	ExerciseType string
	ExerciseText string
}

// Answer is the model's reply, used verbatim
type Answer struct {
	Text  string      `json:"text"`
	Cost  domain.Cost `json:"cost"`
	Model string      `json:"model"`
}

// AnswerQuestion asks the model a free-form question in the exercise context
func (s *Service) AnswerQuestion(ctx context.Context, q Question) (*Answer, error) {
	if strings.TrimSpace(q.Question) == "" {
		return nil, domain.ErrEmptyQuestion
	}

	model := q.Model
	if model == "" {
		model = s.Models().Generate
	}

	text := prompt.Answer(prompt.AnswerRequest{
		Language:     q.Language,
		Level:        q.Level,
		ExerciseType: q.ExerciseType,
		ExerciseText: q.ExerciseText,
		Question:     q.Question,
	})

	res, model, err := s.complete(ctx, "ask", model, text)
	if err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}
	return &Answer{Text: res.Text, Cost: res.Cost, Model: model}, nil
}

// complete sends one user prompt. The provider is captured once per call.
func (s *Service) complete(ctx context.Context, op, model, text string) (*llm.CompletionResult, string, error) {
	provider := s.Provider()
	if provider == nil {
		return nil, "", ErrNoProvider
	}
	if !provider.IsConfigured() {
		return nil, "", fmt.Errorf("%w: %s has no API key", ErrNoProvider, provider.Name())
	}
	if model == "" {
		return nil, "", ErrNoModel
	}

	s.logger.Debug("sending prompt", "op", op, "provider", provider.Name(), "model", model, "prompt_chars", len(text))

	res, err := provider.Complete(ctx, model, []llm.Message{llm.UserMessage(text)})
	if err != nil {
		s.logger.Error("completion failed", "op", op, "provider", provider.Name(), "model", model, "error", err)
		return nil, model, err
	}

	s.logger.Debug("raw response", "op", op, "text", res.Text)
	s.logger.Info("completion",
		"op", op,
		"provider", provider.Name(),
		"model", model,
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens,
		"cost", res.Cost.String(),
	)
	return res, model, nil
}

func (s *Service) warn(op string, warnings []string) {
	for _, w := range warnings {
		s.logger.Warn("response did not follow schema", "op", op, "warning", w)
	}
}
