package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/langtutor/internal/app"
	"github.com/felixgeelhaar/langtutor/internal/domain"
	"github.com/felixgeelhaar/langtutor/internal/locate"
	"github.com/felixgeelhaar/langtutor/internal/progress"
	"github.com/felixgeelhaar/langtutor/internal/session"
	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
)

// Server exposes the tutor operations as MCP tools
type Server struct {
	mcpServer *server.Server
	app       *app.App
}

// Config contains configuration for the MCP server
type Config struct {
	App     *app.App
	Version string
}

// NewServer creates a new MCP server
func NewServer(cfg Config) *Server {
	s := &Server{app: cfg.App}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "langtutor",
		Version: version,
	}, server.WithInstructions(`
Language Tutor generates writing exercises for language learners and checks their submissions.

Available tools:
- tutor_exercises: List languages and exercise types
- tutor_generate: Generate an exercise and start a session
- tutor_check: Check a writing submission for grammar and style
- tutor_hints: Generate hints, or start a session on a custom exercise
- tutor_ask: Ask a free-form question about the exercise
- tutor_locate: Find where a quoted fragment occurs in a text

Sessions are identified by session_id; omit it to use the most recent session.
`))

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("tutor_exercises").
		Description("List the available languages, or the exercise types of one language").
		Handler(s.handleExercises)

	s.mcpServer.Tool("tutor_generate").
		Description("Generate a writing exercise and start a new session").
		Handler(s.handleGenerate)

	s.mcpServer.Tool("tutor_check").
		Description("Check a writing submission and return mistakes, stylistic errors and recommendations").
		Handler(s.handleCheck)

	s.mcpServer.Tool("tutor_hints").
		Description("Generate hints for a session's exercise, or start a session on a custom exercise text").
		Handler(s.handleHints)

	s.mcpServer.Tool("tutor_ask").
		Description("Ask a question about the current exercise").
		Handler(s.handleAsk)

	s.mcpServer.Tool("tutor_locate").
		Description("Locate a fragment in a text, tolerating whitespace and line-break differences").
		Handler(s.handleLocate)

	s.mcpServer.Tool("tutor_stats").
		Description("Summarize practice across saved sessions: mistakes per check, languages and most practiced exercise types").
		Handler(s.handleStats)
}

// Input/Output types for tools

type ExercisesInput struct {
	Language string `json:"language,omitempty" jsonschema:"description=Language code or name; omit to list languages"`
}

type ExerciseType struct {
	ID           string `json:"id"`
	MinWords     int    `json:"min_words"`
	MaxWords     int    `json:"max_words"`
	Requirements string `json:"requirements"`
}

type ExercisesOutput struct {
	Languages []domain.Language `json:"languages,omitempty"`
	Types     []ExerciseType    `json:"types,omitempty"`
}

type GenerateInput struct {
	Language     string `json:"language,omitempty" jsonschema:"description=Language code or name"`
	Level        string `json:"level,omitempty" jsonschema:"description=CEFR level,enum=A1,enum=A2,enum=B1,enum=B2,enum=C1,enum=C2"`
	ExerciseType string `json:"exercise_type,omitempty" jsonschema:"description=Exercise type ID; omit or Random for a random type"`
}

type GenerateOutput struct {
	SessionID    string   `json:"session_id"`
	Language     string   `json:"language"`
	Level        string   `json:"level"`
	ExerciseType string   `json:"exercise_type"`
	Exercise     string   `json:"exercise"`
	Hints        string   `json:"hints"`
	Cost         string   `json:"cost"`
	Warnings     []string `json:"warnings,omitempty"`
}

type CheckInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session ID; omit for the latest session"`
	Writing   string `json:"writing" jsonschema:"description=The learner's text"`
}

type Finding struct {
	Fragment    string `json:"fragment,omitempty"`
	Explanation string `json:"explanation"`
	// Start and End are byte offsets into the writing; both are -1 when
	// the fragment was not found or concerns the whole text
	Start int `json:"start"`
	End   int `json:"end"`
}

type CheckOutput struct {
	SessionID       string    `json:"session_id"`
	Mistakes        []Finding `json:"mistakes"`
	StyleErrors     []Finding `json:"style_errors"`
	Recommendations string    `json:"recommendations"`
	WordCount       int       `json:"word_count"`
	Length          string    `json:"length,omitempty"`
	Highlighted     string    `json:"highlighted"`
	Cost            string    `json:"cost"`
	Warnings        []string  `json:"warnings,omitempty"`
}

type HintsInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session ID; omit for the latest session"`
	Exercise  string `json:"exercise,omitempty" jsonschema:"description=Custom exercise text; starts a new session when set"`
	Language  string `json:"language,omitempty" jsonschema:"description=Language for a custom exercise"`
	Level     string `json:"level,omitempty" jsonschema:"description=Level for a custom exercise"`
}

type HintsOutput struct {
	SessionID string   `json:"session_id"`
	Hints     string   `json:"hints"`
	Cost      string   `json:"cost"`
	Warnings  []string `json:"warnings,omitempty"`
}

type AskInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Session ID; omit for the latest session"`
	Question  string `json:"question" jsonschema:"description=The question"`
	Model     string `json:"model,omitempty" jsonschema:"description=Question model name or ID"`
}

type AskOutput struct {
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
	Answer    string `json:"answer"`
	Cost      string `json:"cost"`
}

type LocateInput struct {
	Text     string `json:"text" jsonschema:"description=Text to search"`
	Fragment string `json:"fragment" jsonschema:"description=Fragment to find"`
}

type LocateOutput struct {
	Found bool   `json:"found"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Match string `json:"match,omitempty"`
}

// Tool handlers

func (s *Server) handleExercises(ctx context.Context, input ExercisesInput) (ExercisesOutput, error) {
	if input.Language == "" {
		return ExercisesOutput{Languages: s.app.Catalog.Languages()}, nil
	}

	defs, err := s.app.Catalog.Types(input.Language)
	if err != nil {
		return ExercisesOutput{}, err
	}
	out := ExercisesOutput{Types: make([]ExerciseType, 0, len(defs))}
	for _, d := range defs {
		out.Types = append(out.Types, ExerciseType{
			ID:           d.Type,
			MinWords:     d.MinWords,
			MaxWords:     d.MaxWords,
			Requirements: d.Requirements,
		})
	}
	return out, nil
}

func (s *Server) handleGenerate(ctx context.Context, input GenerateInput) (GenerateOutput, error) {
	state, res, err := s.app.Start(ctx, app.StartRequest{
		Language:     input.Language,
		Level:        input.Level,
		ExerciseType: input.ExerciseType,
	})
	if err != nil {
		return GenerateOutput{}, err
	}

	return GenerateOutput{
		SessionID:    state.ID,
		Language:     state.Language,
		Level:        state.Level,
		ExerciseType: state.ExerciseType,
		Exercise:     state.Exercise,
		Hints:        state.Hints,
		Cost:         res.Cost.String(),
		Warnings:     res.Warnings,
	}, nil
}

func (s *Server) handleCheck(ctx context.Context, input CheckInput) (CheckOutput, error) {
	state, res, err := s.app.Check(ctx, input.SessionID, input.Writing)
	if err != nil {
		return CheckOutput{}, err
	}

	mistakes, mistakeSpans := findings(input.Writing, res.Mistakes)
	style, styleSpans := findings(input.Writing, res.StyleErrors)

	return CheckOutput{
		SessionID:       state.ID,
		Mistakes:        mistakes,
		StyleErrors:     style,
		Recommendations: res.Recommendations,
		WordCount:       res.WordCount,
		Length:          string(res.Length),
		Highlighted:     locate.Highlight(input.Writing, append(mistakeSpans, styleSpans...), "[[", "]]"),
		Cost:            res.Cost.String(),
		Warnings:        res.Warnings,
	}, nil
}

func (s *Server) handleHints(ctx context.Context, input HintsInput) (HintsOutput, error) {
	if strings.TrimSpace(input.Exercise) != "" {
		state, res, err := s.app.StartCustom(ctx, app.CustomRequest{
			Language:     input.Language,
			Level:        input.Level,
			ExerciseText: input.Exercise,
			Hints:        true,
		})
		if err != nil {
			return HintsOutput{}, err
		}
		return hintsOutput(state, res.Cost.String(), res.Warnings), nil
	}

	state, res, err := s.app.Hints(ctx, input.SessionID)
	if err != nil {
		return HintsOutput{}, err
	}
	return hintsOutput(state, res.Cost.String(), res.Warnings), nil
}

func (s *Server) handleAsk(ctx context.Context, input AskInput) (AskOutput, error) {
	state, ans, err := s.app.Ask(ctx, input.SessionID, input.Model, input.Question)
	if err != nil {
		return AskOutput{}, err
	}

	return AskOutput{
		SessionID: state.ID,
		Model:     ans.Model,
		Answer:    ans.Text,
		Cost:      ans.Cost.String(),
	}, nil
}

func (s *Server) handleLocate(ctx context.Context, input LocateInput) (LocateOutput, error) {
	if input.Fragment == "" {
		return LocateOutput{}, fmt.Errorf("fragment is required")
	}

	span, ok := locate.Find(input.Text, input.Fragment)
	if !ok {
		return LocateOutput{Start: -1, End: -1}, nil
	}
	return LocateOutput{
		Found: true,
		Start: span.Start,
		End:   span.End,
		Match: span.Text(input.Text),
	}, nil
}

// StatsInput takes no arguments
type StatsInput struct{}

func (s *Server) handleStats(ctx context.Context, _ StatsInput) (progress.Overview, error) {
	o, err := s.app.Stats()
	if err != nil {
		return progress.Overview{}, err
	}
	return *o, nil
}

func hintsOutput(state *session.State, cost string, warnings []string) HintsOutput {
	return HintsOutput{
		SessionID: state.ID,
		Hints:     state.Hints,
		Cost:      cost,
		Warnings:  warnings,
	}
}

// findings converts errors to tool output and returns the located spans
func findings(writing string, errs []domain.AnnotatedError) ([]Finding, []locate.Span) {
	out := make([]Finding, 0, len(errs))
	var spans []locate.Span
	for _, e := range errs {
		f := Finding{Fragment: e.Fragment, Explanation: e.Explanation, Start: -1, End: -1}
		if !e.WholeText() {
			if span, ok := locate.Find(writing, e.Fragment); ok {
				f.Start, f.End = span.Start, span.End
				spans = append(spans, span)
			}
		}
		out = append(out, f)
	}
	return out, spans
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
