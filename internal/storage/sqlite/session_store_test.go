package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/langtutor/internal/domain"
	"github.com/felixgeelhaar/langtutor/internal/session"
)

func TestSessionStore_SaveGet(t *testing.T) {
	store := NewSessionStore(openTestDB(t))

	state := session.New("pl", "B2", "list (letter)")
	state.SetExercise(domain.ExerciseContent{Text: "Napisz list.", Hints: "Użyj formy grzecznościowej."})
	state.SetFeedback("Drogi Panie, ja jest...", domain.Feedback{
		Mistakes:        []domain.AnnotatedError{{Fragment: "ja jest", Explanation: "jestem"}},
		StyleErrors:     []domain.AnnotatedError{{Explanation: "Too informal overall."}},
		Recommendations: "Read more letters.",
	})
	state.AddCost(domain.KnownCost(0.0012))
	state.AddCost(domain.UnknownCost())
	state.AddExchange("openrouter/openai/gpt-4o", "Czy 'Pan' wielką literą?", "Tak.")

	if err := store.Save(state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(state.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Language != "pl" || got.ExerciseType != "list (letter)" || got.Hints != state.Hints {
		t.Errorf("Get() = %+v", got)
	}
	if len(got.Mistakes) != 1 || got.Mistakes[0].Fragment != "ja jest" {
		t.Errorf("Mistakes = %+v", got.Mistakes)
	}
	if len(got.StyleErrors) != 1 || !got.StyleErrors[0].WholeText() {
		t.Errorf("StyleErrors = %+v", got.StyleErrors)
	}
	if got.TotalCost != 0.0012 || got.UnpricedCalls != 1 {
		t.Errorf("cost = %v / %d", got.TotalCost, got.UnpricedCalls)
	}
	if len(got.QA) != 1 || got.QA[0].Answer != "Tak." {
		t.Errorf("QA = %+v", got.QA)
	}
	if !got.CreatedAt.Equal(state.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, state.CreatedAt)
	}
}

func TestSessionStore_Update(t *testing.T) {
	store := NewSessionStore(openTestDB(t))

	state := session.New("en", "B1", "essay")
	state.AddExchange("m", "q1", "a1")
	if err := store.Save(state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	state.Writing = "updated"
	state.QA = nil
	if err := store.Save(state); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := store.Get(state.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Writing != "updated" {
		t.Errorf("Writing = %q, want updated", got.Writing)
	}
	if len(got.QA) != 0 {
		t.Errorf("QA = %+v, want none after update", got.QA)
	}
}

func TestSessionStore_NotFound(t *testing.T) {
	store := NewSessionStore(openTestDB(t))

	if _, err := store.Get("missing"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := store.Latest(); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Latest() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete("missing"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSessionStore_ListLatestDelete(t *testing.T) {
	db := openTestDB(t)
	store := NewSessionStore(db)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		state := session.New("pt", "A2", "convite (invitation)")
		state.UpdatedAt = base.Add(time.Duration(i) * time.Minute)
		state.AddExchange("m", "q", "a")
		state.UpdatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.Save(state); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		ids = append(ids, state.ID)
	}

	states, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(states) != 3 || states[0].ID != ids[2] {
		t.Fatalf("List() order wrong: first = %v", states[0].ID)
	}
	for _, s := range states {
		if len(s.QA) != 1 {
			t.Errorf("session %s has %d exchanges, want 1", s.ID, len(s.QA))
		}
	}

	latest, err := store.Latest()
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.ID != ids[2] {
		t.Errorf("Latest() = %s, want %s", latest.ID, ids[2])
	}

	if err := store.Delete(ids[2]); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM exchanges WHERE session_id = ?", ids[2]).Scan(&n); err != nil {
		t.Fatalf("count exchanges: %v", err)
	}
	if n != 0 {
		t.Errorf("exchanges not cascaded on delete: %d left", n)
	}
}
