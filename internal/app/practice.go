package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/langtutor/internal/catalog"
	"github.com/felixgeelhaar/langtutor/internal/domain"
	"github.com/felixgeelhaar/langtutor/internal/progress"
	"github.com/felixgeelhaar/langtutor/internal/session"
	"github.com/felixgeelhaar/langtutor/internal/tutor"
)

// Latest refers to the most recently updated session
const Latest = "latest"

// StartRequest selects the exercise of a new session. Empty fields fall
// back to the configured defaults; an empty type picks one at random.
type StartRequest struct {
	Language     string
	Level        string
	ExerciseType string
}

// Start generates an exercise and saves it as a new session
func (a *App) Start(ctx context.Context, req StartRequest) (*session.State, *tutor.ExerciseResult, error) {
	lang, level, err := a.selection(req.Language, req.Level)
	if err != nil {
		return nil, nil, err
	}

	exerciseType := req.ExerciseType
	if exerciseType == "" {
		exerciseType = catalog.Random
	}
	def, err := a.Catalog.Lookup(lang.Code, exerciseType)
	if err != nil {
		return nil, nil, err
	}

	res, err := a.Tutor.GenerateExercise(ctx, tutor.ExerciseRequest{
		Language:     lang.Name,
		Level:        level,
		ExerciseType: def.Type,
		Definition:   def,
	})
	if err != nil {
		return nil, nil, err
	}

	state := session.New(lang.Name, string(level), def.Type)
	state.SetExercise(res.ExerciseContent)
	state.AddCost(res.Cost)
	if err := a.Store.Save(state); err != nil {
		return nil, nil, fmt.Errorf("save session: %w", err)
	}
	return state, res, nil
}

// CustomRequest starts a session on a learner-supplied exercise
type CustomRequest struct {
	Language     string
	Level        string
	ExerciseText string
	// Hints asks the model for hints on the exercise
	Hints bool
}

// StartCustom saves a custom exercise as a new session, generating hints
// when requested. The returned hints result is nil when none were asked for.
func (a *App) StartCustom(ctx context.Context, req CustomRequest) (*session.State, *tutor.HintsResult, error) {
	if strings.TrimSpace(req.ExerciseText) == "" {
		return nil, nil, domain.ErrEmptyExercise
	}
	lang, level, err := a.selection(req.Language, req.Level)
	if err != nil {
		return nil, nil, err
	}

	state := session.New(lang.Name, string(level), catalog.Custom)
	state.SetExercise(domain.ExerciseContent{Text: req.ExerciseText})

	var hints *tutor.HintsResult
	if req.Hints {
		hints, err = a.Tutor.GenerateCustomHints(ctx, tutor.HintsRequest{
			Language:     lang.Name,
			Level:        level,
			ExerciseText: req.ExerciseText,
		})
		if err != nil {
			return nil, nil, err
		}
		state.Hints = hints.Hints
		state.AddCost(hints.Cost)
	}

	if err := a.Store.Save(state); err != nil {
		return nil, nil, fmt.Errorf("save session: %w", err)
	}
	return state, hints, nil
}

// Session loads a session by ID; "" and Latest select the newest one
func (a *App) Session(id string) (*session.State, error) {
	if id == "" || id == Latest {
		return a.Store.Latest()
	}
	return a.Store.Get(id)
}

// Check checks a submission against the session's exercise and stores
// the feedback
func (a *App) Check(ctx context.Context, id, writing string) (*session.State, *tutor.CheckResult, error) {
	state, err := a.Session(id)
	if err != nil {
		return nil, nil, err
	}

	req := tutor.CheckRequest{
		Language:     state.Language,
		Level:        domain.Level(state.Level),
		ExerciseType: state.ExerciseType,
		ExerciseText: state.Exercise,
		Submission:   writing,
	}
	if def, err := a.Catalog.Lookup(state.Language, state.ExerciseType); err == nil {
		req.Definition = &def
	} else if !errors.Is(err, catalog.ErrNoDefinition) {
		a.logger.Warn("exercise definition unavailable", "language", state.Language, "type", state.ExerciseType, "error", err)
	}

	res, err := a.Tutor.CheckWriting(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	state.SetFeedback(writing, res.Feedback)
	state.AddCost(res.Cost)
	if err := a.Store.Save(state); err != nil {
		return nil, nil, fmt.Errorf("save session: %w", err)
	}
	return state, res, nil
}

// Hints generates hints for the session's exercise and stores them
func (a *App) Hints(ctx context.Context, id string) (*session.State, *tutor.HintsResult, error) {
	state, err := a.Session(id)
	if err != nil {
		return nil, nil, err
	}

	res, err := a.Tutor.GenerateCustomHints(ctx, tutor.HintsRequest{
		Language:     state.Language,
		Level:        domain.Level(state.Level),
		ExerciseText: state.Exercise,
	})
	if err != nil {
		return nil, nil, err
	}

	state.Hints = res.Hints
	state.AddCost(res.Cost)
	if err := a.Store.Save(state); err != nil {
		return nil, nil, fmt.Errorf("save session: %w", err)
	}
	return state, res, nil
}

// Ask answers a question in the context of the session's exercise. model
// is a configured question model name or a raw model ID; empty uses the
// generation model.
func (a *App) Ask(ctx context.Context, id, model, question string) (*session.State, *tutor.Answer, error) {
	state, err := a.Session(id)
	if err != nil {
		return nil, nil, err
	}

	ans, err := a.Tutor.AnswerQuestion(ctx, tutor.Question{
		Model:        a.QAModel(model),
		Question:     question,
		Language:     state.Language,
		Level:        domain.Level(state.Level),
		ExerciseType: state.ExerciseType,
		ExerciseText: state.Exercise,
	})
	if err != nil {
		return nil, nil, err
	}

	state.AddExchange(ans.Model, question, ans.Text)
	state.AddCost(ans.Cost)
	if err := a.Store.Save(state); err != nil {
		return nil, nil, fmt.Errorf("save session: %w", err)
	}
	return state, ans, nil
}

// Stats summarizes practice across all saved sessions
func (a *App) Stats() (*progress.Overview, error) {
	states, err := a.Store.List()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return progress.Compute(states, time.Now()), nil
}

// QAModel resolves a question model display name to its ID. Unknown names
// are returned unchanged.
func (a *App) QAModel(name string) string {
	for _, m := range a.Config.Models.QA {
		if strings.EqualFold(m.Name, name) {
			return m.ID
		}
	}
	return name
}

func (a *App) selection(language, level string) (domain.Language, domain.Level, error) {
	if language == "" {
		language = a.Config.Defaults.Language
	}
	if level == "" {
		level = a.Config.Defaults.Level
	}

	lang, err := a.Catalog.Language(language)
	if err != nil {
		return domain.Language{}, "", err
	}
	lvl, err := domain.ParseLevel(level)
	if err != nil {
		return domain.Language{}, "", err
	}
	return lang, lvl, nil
}
