package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/langtutor/internal/domain"
	"github.com/felixgeelhaar/langtutor/internal/session"
)

const sessionColumns = `id, language, level, exercise_type, exercise, hints, writing,
	mistakes, style_errors, recommendations, total_cost, unpriced_calls,
	created_at, updated_at`

// SessionStore implements session persistence backed by SQLite.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new SQLite-backed session store.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Save persists a session and its question history (insert or update).
func (s *SessionStore) Save(state *session.State) error {
	mistakes, err := json.Marshal(nonNil(state.Mistakes))
	if err != nil {
		return fmt.Errorf("marshal mistakes: %w", err)
	}
	styleErrors, err := json.Marshal(nonNil(state.StyleErrors))
	if err != nil {
		return fmt.Errorf("marshal style_errors: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			language=excluded.language, level=excluded.level,
			exercise_type=excluded.exercise_type, exercise=excluded.exercise,
			hints=excluded.hints, writing=excluded.writing,
			mistakes=excluded.mistakes, style_errors=excluded.style_errors,
			recommendations=excluded.recommendations,
			total_cost=excluded.total_cost, unpriced_calls=excluded.unpriced_calls,
			updated_at=excluded.updated_at`,
		state.ID, state.Language, state.Level, state.ExerciseType,
		state.Exercise, state.Hints, state.Writing,
		string(mistakes), string(styleErrors), state.Recommendations,
		state.TotalCost, state.UnpricedCalls,
		state.CreatedAt, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM exchanges WHERE session_id = ?", state.ID); err != nil {
		return fmt.Errorf("clear exchanges: %w", err)
	}
	for i, qa := range state.QA {
		_, err := tx.Exec(`
			INSERT INTO exchanges (session_id, seq, model, question, answer, asked_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			state.ID, i, qa.Model, qa.Question, qa.Answer, qa.AskedAt,
		)
		if err != nil {
			return fmt.Errorf("insert exchange: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(id string) (*session.State, error) {
	row := s.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	state, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadExchanges(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Latest returns the most recently updated session.
func (s *SessionStore) Latest() (*session.State, error) {
	row := s.db.QueryRow("SELECT " + sessionColumns + " FROM sessions ORDER BY updated_at DESC, id LIMIT 1")
	state, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadExchanges(state); err != nil {
		return nil, err
	}
	return state, nil
}

// List returns all sessions, most recently updated first.
func (s *SessionStore) List() ([]*session.State, error) {
	rows, err := s.db.Query("SELECT " + sessionColumns + " FROM sessions ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var states []*session.State
	for rows.Next() {
		state, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	rows.Close()

	for _, state := range states {
		if err := s.loadExchanges(state); err != nil {
			return nil, err
		}
	}
	return states, nil
}

// Delete removes a session and its cascaded exchanges.
func (s *SessionStore) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (s *SessionStore) loadExchanges(state *session.State) error {
	rows, err := s.db.Query(`
		SELECT model, question, answer, asked_at
		FROM exchanges WHERE session_id = ? ORDER BY seq`, state.ID)
	if err != nil {
		return fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var qa session.Exchange
		if err := rows.Scan(&qa.Model, &qa.Question, &qa.Answer, &qa.AskedAt); err != nil {
			return fmt.Errorf("scan exchange: %w", err)
		}
		state.QA = append(state.QA, qa)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*session.State, error) {
	var state session.State
	var mistakesJSON, styleJSON string

	err := row.Scan(
		&state.ID, &state.Language, &state.Level, &state.ExerciseType,
		&state.Exercise, &state.Hints, &state.Writing,
		&mistakesJSON, &styleJSON, &state.Recommendations,
		&state.TotalCost, &state.UnpricedCalls,
		&state.CreatedAt, &state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if err := json.Unmarshal([]byte(mistakesJSON), &state.Mistakes); err != nil {
		return nil, fmt.Errorf("unmarshal mistakes: %w", err)
	}
	if err := json.Unmarshal([]byte(styleJSON), &state.StyleErrors); err != nil {
		return nil, fmt.Errorf("unmarshal style_errors: %w", err)
	}
	return &state, nil
}

func nonNil(errs []domain.AnnotatedError) []domain.AnnotatedError {
	if errs == nil {
		return []domain.AnnotatedError{}
	}
	return errs
}
