package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/langtutor/internal/app"
	"github.com/felixgeelhaar/langtutor/internal/session"
)

// cmdSession manages saved sessions
func cmdSession(args []string) error {
	if len(args) < 1 {
		fmt.Println(`Session commands:

  langtutor session list           List saved sessions
  langtutor session show [id]      Show a session (default: latest)
  langtutor session export [id]    Export a session to Markdown
  langtutor session delete <id>    Delete a session`)
		return nil
	}

	id := app.Latest
	if len(args) > 1 {
		id = args[1]
	}

	switch args[0] {
	case "list":
		return cmdSessionList()
	case "show":
		return cmdSessionShow(id)
	case "export":
		return cmdSessionExport(id)
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("session ID required")
		}
		return cmdSessionDelete(args[1])
	default:
		return fmt.Errorf("unknown session command: %s", args[0])
	}
}

func cmdSessionList() error {
	a, cleanup, err := openApp(slog.LevelWarn)
	if err != nil {
		return err
	}
	defer cleanup()

	states, err := a.Store.List()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(states) == 0 {
		fmt.Println("No sessions yet. Run 'langtutor generate' to start one.")
		return nil
	}

	fmt.Println("Sessions (most recent first):")
	for _, s := range states {
		status := "not checked"
		if s.Writing != "" {
			status = fmt.Sprintf("%d mistakes", len(s.Mistakes))
		}
		fmt.Printf("  %s  %s  %s/%s  %s  [%s]\n",
			s.ID, s.UpdatedAt.Local().Format("2006-01-02 15:04"), s.Language, s.Level, s.ExerciseType, status)
	}
	return nil
}

func cmdSessionShow(id string) error {
	a, cleanup, err := openApp(slog.LevelWarn)
	if err != nil {
		return err
	}
	defer cleanup()

	state, err := a.Session(id)
	if err != nil {
		return err
	}

	fmt.Println(state.Markdown())
	fmt.Printf("Session: %s | Total cost: %s\n", state.ID, state.Cost())
	if len(state.QA) > 0 {
		models := make([]string, 0, len(state.QA))
		for _, qa := range state.QA {
			models = append(models, qa.Model)
		}
		fmt.Printf("Questions answered by: %s\n", strings.Join(models, ", "))
	}
	return nil
}

func cmdSessionExport(id string) error {
	a, cleanup, err := openApp(slog.LevelWarn)
	if err != nil {
		return err
	}
	defer cleanup()

	state, err := a.Session(id)
	if err != nil {
		return err
	}

	path, err := session.Export(state, a.ExportDir())
	if err != nil {
		return err
	}
	fmt.Printf("✓ Exported to %s\n", path)
	return nil
}

func cmdSessionDelete(id string) error {
	a, cleanup, err := openApp(slog.LevelWarn)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.Store.Delete(id); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted session %s\n", id)
	return nil
}
