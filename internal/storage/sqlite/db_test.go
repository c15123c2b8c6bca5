package sqlite

import (
	"path/filepath"
	"testing"
)

// openTestDB opens and migrates a database in a temp dir
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMigrated(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("OpenMigrated() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_Pragmas(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "nested", "sessions.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	var journalMode string
	var fk int
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if journalMode != "wal" || fk != 1 {
		t.Errorf("journal_mode = %q, foreign_keys = %d", journalMode, fk)
	}
}

func TestMigrate_Schema(t *testing.T) {
	db := openTestDB(t)

	// A second run finds nothing pending
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if v, err := db.Version(); err != nil || v != 2 {
		t.Errorf("Version() = %d, %v; want 2", v, err)
	}

	_, err := db.Exec(`INSERT INTO sessions (id, language, level, exercise_type, exercise, created_at, updated_at)
		VALUES ('s1', 'Polish', 'A2', 'zaproszenie (invitation)', 'Napisz zaproszenie.', datetime('now'), datetime('now'))`)
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}
	_, err = db.Exec(`INSERT INTO exchanges (session_id, seq, model, question, answer, asked_at)
		VALUES ('s1', 1, 'gpt-4o', 'Czy to formalne?', 'Tak.', datetime('now'))`)
	if err != nil {
		t.Fatalf("insert exchange: %v", err)
	}

	// Exchanges go with their session
	if _, err := db.Exec(`DELETE FROM sessions WHERE id = 's1'`); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM exchanges`).Scan(&n); err != nil {
		t.Fatalf("count exchanges: %v", err)
	}
	if n != 0 {
		t.Errorf("exchanges left after delete = %d", n)
	}

	// Orphan exchanges are rejected
	if _, err := db.Exec(`INSERT INTO exchanges (session_id, seq, model, question, answer, asked_at)
		VALUES ('missing', 1, 'm', 'q', 'a', datetime('now'))`); err == nil {
		t.Error("expected foreign key violation")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"001_sessions.sql", 1, false},
		{"002_exchanges.sql", 2, false},
		{"012_qa_index.sql", 12, false},
		{"sessions.sql", 0, true},
		{"v1_sessions.sql", 0, true},
	}
	for _, tt := range tests {
		got, err := parseVersion(tt.name)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseVersion(%q) = %d, %v; want %d, err %v", tt.name, got, err, tt.want, tt.wantErr)
		}
	}
}
