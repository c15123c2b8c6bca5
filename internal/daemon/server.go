// Package daemon serves the tutor operations over a local HTTP JSON API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/langtutor/internal/app"
	"github.com/felixgeelhaar/langtutor/internal/catalog"
	"github.com/felixgeelhaar/langtutor/internal/domain"
	"github.com/felixgeelhaar/langtutor/internal/llm"
	"github.com/felixgeelhaar/langtutor/internal/locate"
	"github.com/felixgeelhaar/langtutor/internal/session"
	"github.com/felixgeelhaar/langtutor/internal/tutor"
)

// maxBodyBytes bounds request bodies; submissions are short texts
const maxBodyBytes = 1 << 20

// Server is the HTTP API server
type Server struct {
	app     *app.App
	server  *http.Server
	router  *http.ServeMux
	logger  *slog.Logger
	version string
	started time.Time
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	App     *app.App
	Addr    string
	Version string
	Logger  *slog.Logger
}

// NewServer creates a new API server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("daemon: missing app")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		app:     cfg.App,
		router:  http.NewServeMux(),
		logger:  logger.With("component", "daemon"),
		version: cfg.Version,
		started: time.Now(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// Checking calls a thinking model and can take a while
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)
	s.router.HandleFunc("GET /v1/providers", s.handleListProviders)

	// Catalog
	s.router.HandleFunc("GET /v1/languages", s.handleListLanguages)
	s.router.HandleFunc("POST /v1/languages/reload", s.handleReloadLanguages)
	s.router.HandleFunc("GET /v1/languages/{lang}/exercises", s.handleListExercises)
	s.router.HandleFunc("GET /v1/languages/{lang}/exercises/{type...}", s.handleGetExercise)

	// Sessions
	s.router.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	s.router.HandleFunc("GET /v1/sessions", s.handleListSessions)
	s.router.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.router.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)
	s.router.HandleFunc("GET /v1/sessions/{id}/export", s.handleExportSession)

	// Tutor operations
	s.router.HandleFunc("POST /v1/sessions/{id}/check", s.handleCheck)
	s.router.HandleFunc("POST /v1/sessions/{id}/hints", s.handleHints)
	s.router.HandleFunc("POST /v1/sessions/{id}/ask", s.handleAsk)
	s.router.HandleFunc("POST /v1/locate", s.handleLocate)

	// Analytics
	s.router.HandleFunc("GET /v1/stats", s.handleStats)
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return recoveryMiddleware(s.logger, requestIDMiddleware(loggingMiddleware(s.logger, s.router)))
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting API server",
		"addr", s.server.Addr,
		"llm_providers", s.app.Registry.List(),
	)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// Handler implementations

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	provider := ""
	if p := s.app.Tutor.Provider(); p != nil {
		provider = p.Name()
	}
	models := s.app.Tutor.Models()
	stats := s.app.Catalog.Stats()

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":         "running",
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"provider":       provider,
		"llm_providers":  s.app.Registry.List(),
		"models":         map[string]string{"generate": models.Generate, "check": models.Check},
		"languages":      stats.LanguageCount,
		"exercise_types": stats.TypeCount,
		"storage":        s.app.Config.Storage.Driver,
	})
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers := make([]map[string]any, 0)
	for _, name := range s.app.Registry.List() {
		p, err := s.app.Registry.Get(name)
		if err != nil {
			continue
		}
		generate, check := s.app.Config.ModelsFor(name)
		providers = append(providers, map[string]any{
			"name":       name,
			"configured": p.IsConfigured(),
			"generate":   generate,
			"check":      check,
		})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"default":   s.app.Registry.DefaultName(),
		"providers": providers,
		"qa_models": s.app.Config.Models.QA,
	})
}

func (s *Server) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	stats := s.app.Catalog.Stats()
	langs := s.app.Catalog.Languages()

	result := make([]map[string]any, 0, len(langs))
	for _, l := range langs {
		result = append(result, map[string]any{
			"code":           l.Code,
			"name":           l.Name,
			"exercise_count": stats.ByLanguage[l.Code],
		})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"languages": result,
		"levels":    domain.Levels(),
	})
}

// handleReloadLanguages rereads the user pack directory
func (s *Server) handleReloadLanguages(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Catalog.Load(); err != nil {
		s.errorResponse(w, err)
		return
	}
	stats := s.app.Catalog.Stats()
	s.logger.Info("catalog reloaded", "languages", stats.LanguageCount, "exercise_types", stats.TypeCount)
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"languages":      stats.LanguageCount,
		"exercise_types": stats.TypeCount,
	})
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	lang, err := s.app.Catalog.Language(r.PathValue("lang"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	defs, err := s.app.Catalog.Types(lang.Code)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"language":  lang,
		"exercises": defs,
	})
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	def, err := s.app.Catalog.Lookup(r.PathValue("lang"), r.PathValue("type"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, def)
}

// Session handlers

type createSessionRequest struct {
	Language     string `json:"language,omitempty"`
	Level        string `json:"level,omitempty"`
	ExerciseType string `json:"exercise_type,omitempty"`
	// Exercise starts a custom session on the given text
	Exercise string `json:"exercise,omitempty"`
	Hints    bool   `json:"hints,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.Exercise != "" || strings.EqualFold(req.ExerciseType, catalog.Custom) {
		state, hints, err := s.app.StartCustom(r.Context(), app.CustomRequest{
			Language:     req.Language,
			Level:        req.Level,
			ExerciseText: req.Exercise,
			Hints:        req.Hints,
		})
		if err != nil {
			s.errorResponse(w, err)
			return
		}
		resp := map[string]any{"session": state}
		if hints != nil {
			resp["cost"] = hints.Cost
			resp["warnings"] = hints.Warnings
		}
		s.jsonResponse(w, http.StatusCreated, resp)
		return
	}

	state, res, err := s.app.Start(r.Context(), app.StartRequest{
		Language:     req.Language,
		Level:        req.Level,
		ExerciseType: req.ExerciseType,
	})
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"session":  state,
		"model":    res.Model,
		"cost":     res.Cost,
		"warnings": res.Warnings,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	states, err := s.app.Store.List()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"sessions": states,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.app.Session(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Store.Delete(r.PathValue("id")); err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"deleted": true,
	})
}

func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.app.Session(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+state.ExportName()+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(state.Markdown())); err != nil {
		s.logger.Error("failed to write export", "error", err)
	}
}

// Tutor operation handlers

type located struct {
	domain.AnnotatedError
	Span *locate.Span `json:"span,omitempty"`
}

func locateAll(writing string, errs []domain.AnnotatedError) []located {
	out := make([]located, 0, len(errs))
	for _, e := range errs {
		l := located{AnnotatedError: e}
		if !e.WholeText() {
			if span, ok := locate.Find(writing, e.Fragment); ok {
				l.Span = &span
			}
		}
		out = append(out, l)
	}
	return out
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Writing string `json:"writing"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	state, res, err := s.app.Check(r.Context(), r.PathValue("id"), req.Writing)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"session_id":      state.ID,
		"mistakes":        locateAll(req.Writing, res.Mistakes),
		"style_errors":    locateAll(req.Writing, res.StyleErrors),
		"recommendations": res.Recommendations,
		"word_count":      res.WordCount,
		"length":          res.Length,
		"model":           res.Model,
		"cost":            res.Cost,
		"session_cost":    state.Cost(),
		"warnings":        res.Warnings,
	})
}

func (s *Server) handleHints(w http.ResponseWriter, r *http.Request) {
	state, res, err := s.app.Hints(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"session_id": state.ID,
		"hints":      res.Hints,
		"model":      res.Model,
		"cost":       res.Cost,
		"warnings":   res.Warnings,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		Model    string `json:"model,omitempty"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	state, ans, err := s.app.Ask(r.Context(), r.PathValue("id"), req.Model, req.Question)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"session_id": state.ID,
		"answer":     ans.Text,
		"model":      ans.Model,
		"cost":       ans.Cost,
	})
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string `json:"text"`
		Fragment string `json:"fragment"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Fragment == "" {
		s.jsonError(w, http.StatusBadRequest, "fragment is required", nil)
		return
	}

	span, ok := locate.Find(req.Text, req.Fragment)
	if !ok {
		s.jsonResponse(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"found": true,
		"span":  span,
		"match": span.Text(req.Text),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	overview, err := s.app.Stats()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, overview)
}

// Helper methods

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}

// errorResponse maps domain errors to HTTP statuses
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(message, "error", err)
	}
	s.jsonError(w, status, message, err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, catalog.ErrUnknownLanguage),
		errors.Is(err, catalog.ErrUnknownExerciseType):
		return http.StatusNotFound, "exercise not found"
	case errors.Is(err, catalog.ErrNoDefinition),
		errors.Is(err, domain.ErrUnknownLevel),
		errors.Is(err, domain.ErrEmptyExercise),
		errors.Is(err, domain.ErrEmptySubmission),
		errors.Is(err, domain.ErrEmptyQuestion),
		errors.Is(err, domain.ErrInvalidDefinition):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, tutor.ErrNoProvider),
		errors.Is(err, tutor.ErrNoModel):
		return http.StatusServiceUnavailable, "no model provider configured"
	case llm.StatusCode(err) != 0:
		return http.StatusBadGateway, "model backend error"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
