package sqlite

import "github.com/felixgeelhaar/langtutor/internal/session"

// Ensure SQLite stores implement the storage interfaces.
var (
	_ session.Store = (*SessionStore)(nil)
)
