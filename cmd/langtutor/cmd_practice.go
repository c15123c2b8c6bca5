package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/felixgeelhaar/langtutor/internal/app"
	"github.com/felixgeelhaar/langtutor/internal/domain"
	"github.com/felixgeelhaar/langtutor/internal/feedback"
	"github.com/felixgeelhaar/langtutor/internal/locate"
)

const (
	highlightOpen  = "\033[1;4;31m"
	highlightClose = "\033[0m"
)

// cmdGenerate generates an exercise and starts a session
func cmdGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	language := fs.String("lang", "", "language code or name (default from config)")
	level := fs.String("level", "", "CEFR level A1-C2 (default from config)")
	exerciseType := fs.String("type", "", "exercise type, or Random")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, cleanup, err := openApp(slog.LevelWarn)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	state, res, err := a.Start(ctx, app.StartRequest{
		Language:     *language,
		Level:        *level,
		ExerciseType: *exerciseType,
	})
	if err != nil {
		return err
	}

	def, _ := a.Catalog.Lookup(state.Language, state.ExerciseType)

	fmt.Printf("%s - %s - %s (%d-%d words)\n\n", state.Language, domain.Level(state.Level).Label(), state.ExerciseType, def.MinWords, def.MaxWords)
	fmt.Println("Exercise:")
	fmt.Println(state.Exercise)
	fmt.Println()
	fmt.Println("Hints:")
	fmt.Println(orNone(state.Hints))
	fmt.Println()
	printWarnings(res.Warnings)
	fmt.Printf("Cost: %s | Session: %s\n", res.Cost, state.ID)
	return nil
}

// cmdCheck checks a submission against the session's exercise
func cmdCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	sessionID := fs.String("session", app.Latest, "session ID")
	file := fs.String("file", "", "read the writing from a file ('-' for stdin)")
	noColor := fs.Bool("no-color", false, "mark located errors with brackets instead of color")
	if err := fs.Parse(args); err != nil {
		return err
	}

	writing, err := readText(*file, fs.Args())
	if err != nil {
		return err
	}

	a, cleanup, err := openApp(slog.LevelWarn)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	state, res, err := a.Check(ctx, *sessionID, writing)
	if err != nil {
		return err
	}

	switch res.Length {
	case "":
		fmt.Printf("Words: %d\n\n", res.WordCount)
	default:
		fmt.Printf("Words: %d (%s)\n\n", res.WordCount, strings.ReplaceAll(string(res.Length), "_", " "))
	}

	openMark, closeMark := highlightOpen, highlightClose
	if *noColor {
		openMark, closeMark = "[", "]"
	}
	var spans []locate.Span
	for _, m := range locate.Locate(writing, slices.Concat(res.Mistakes, res.StyleErrors)) {
		spans = append(spans, m.Span)
	}
	fmt.Println("Your Writing:")
	fmt.Println(locate.Highlight(writing, spans, openMark, closeMark))
	fmt.Println()

	fmt.Println("Mistakes:")
	fmt.Println(feedback.FormatErrors(res.Mistakes, "No mistakes found."))
	fmt.Println()
	fmt.Println("Stylistic Errors:")
	fmt.Println(feedback.FormatErrors(res.StyleErrors, "None."))
	fmt.Println()
	fmt.Println("Recommendations:")
	fmt.Println(orNone(res.Recommendations))
	fmt.Println()
	printWarnings(res.Warnings)
	fmt.Printf("Cost: %s | Session total: %s\n", res.Cost, state.Cost())
	return nil
}

// cmdHints generates hints for a session, or starts a custom exercise
func cmdHints(args []string) error {
	fs := flag.NewFlagSet("hints", flag.ContinueOnError)
	sessionID := fs.String("session", app.Latest, "session ID")
	exercise := fs.String("exercise", "", "custom exercise text; starts a new session")
	file := fs.String("file", "", "read the custom exercise from a file ('-' for stdin)")
	language := fs.String("lang", "", "language of the custom exercise")
	level := fs.String("level", "", "level of the custom exercise")
	if err := fs.Parse(args); err != nil {
		return err
	}

	custom := *exercise
	if custom == "" && *file != "" {
		text, err := readText(*file, nil)
		if err != nil {
			return err
		}
		custom = text
	}

	a, cleanup, err := openApp(slog.LevelWarn)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	if custom != "" {
		state, res, err := a.StartCustom(ctx, app.CustomRequest{
			Language:     *language,
			Level:        *level,
			ExerciseText: custom,
			Hints:        true,
		})
		if err != nil {
			return err
		}
		fmt.Println("Hints:")
		fmt.Println(orNone(state.Hints))
		fmt.Println()
		printWarnings(res.Warnings)
		fmt.Printf("Cost: %s | Session: %s\n", res.Cost, state.ID)
		return nil
	}

	state, res, err := a.Hints(ctx, *sessionID)
	if err != nil {
		return err
	}
	fmt.Println("Hints:")
	fmt.Println(orNone(state.Hints))
	fmt.Println()
	printWarnings(res.Warnings)
	fmt.Printf("Cost: %s | Session: %s\n", res.Cost, state.ID)
	return nil
}

// cmdAsk asks a free-form question about the session's exercise
func cmdAsk(args []string) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	sessionID := fs.String("session", app.Latest, "session ID")
	model := fs.String("model", "", "question model name or ID (default: generation model)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return domain.ErrEmptyQuestion
	}

	a, cleanup, err := openApp(slog.LevelWarn)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	_, ans, err := a.Ask(ctx, *sessionID, *model, question)
	if err != nil {
		return err
	}

	fmt.Println(ans.Text)
	fmt.Println()
	fmt.Printf("Model: %s | Cost: %s\n", ans.Model, ans.Cost)
	return nil
}

// readText returns the file contents, stdin for "-", or the joined args
func readText(file string, args []string) (string, error) {
	var data []byte
	var err error
	switch {
	case file == "-":
		data, err = io.ReadAll(os.Stdin)
	case file != "":
		data, err = os.ReadFile(file)
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "", fmt.Errorf("no text given (pass it as arguments or use -file)")
	}
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return string(data), nil
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None."
	}
	return s
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Printf("⚠ %s\n", w)
	}
}
