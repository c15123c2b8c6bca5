package session

import (
	"errors"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/langtutor/internal/storage/local"
)

const collectionSessions = "sessions"

var (
	ErrNotFound = errors.New("session not found")
)

// Store persists session state
type Store interface {
	Save(state *State) error
	Get(id string) (*State, error)
	// Latest returns the most recently updated session
	Latest() (*State, error)
	// List returns all sessions, most recently updated first
	List() ([]*State, error)
	Delete(id string) error
}

// JSONStore keeps one JSON file per session
type JSONStore struct {
	store *local.Store
}

var _ Store = (*JSONStore)(nil)

// NewJSONStore creates a new file-backed session store
func NewJSONStore(basePath string) (*JSONStore, error) {
	store, err := local.NewStore(basePath)
	if err != nil {
		return nil, fmt.Errorf("create local store: %w", err)
	}
	return &JSONStore{store: store}, nil
}

// Save persists a session
func (s *JSONStore) Save(state *State) error {
	return s.store.Save(collectionSessions, state.ID, state)
}

// Get retrieves a session by ID
func (s *JSONStore) Get(id string) (*State, error) {
	var state State
	if err := s.store.Load(collectionSessions, id, &state); err != nil {
		if errors.Is(err, local.ErrNotFound) || errors.Is(err, local.ErrInvalidID) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &state, nil
}

// Delete removes a session
func (s *JSONStore) Delete(id string) error {
	if err := s.store.Delete(collectionSessions, id); err != nil {
		if errors.Is(err, local.ErrNotFound) || errors.Is(err, local.ErrInvalidID) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// List returns all sessions, most recently updated first
func (s *JSONStore) List() ([]*State, error) {
	ids, err := s.store.List(collectionSessions)
	if err != nil {
		return nil, err
	}

	states := make([]*State, 0, len(ids))
	for _, id := range ids {
		state, err := s.Get(id)
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", id, err)
		}
		states = append(states, state)
	}
	SortByRecent(states)
	return states, nil
}

// Latest returns the most recently updated session
func (s *JSONStore) Latest() (*State, error) {
	states, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, ErrNotFound
	}
	return states[0], nil
}

// SortByRecent orders states by UpdatedAt descending, then by ID
func SortByRecent(states []*State) {
	sort.SliceStable(states, func(i, j int) bool {
		if !states[i].UpdatedAt.Equal(states[j].UpdatedAt) {
			return states[i].UpdatedAt.After(states[j].UpdatedAt)
		}
		return states[i].ID < states[j].ID
	})
}
