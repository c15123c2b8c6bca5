package main

import (
	"fmt"
	"log/slog"
	"strings"
)

// cmdExercise lists the exercise catalog
func cmdExercise(args []string) error {
	if len(args) < 1 {
		fmt.Println(`Exercise commands:

  langtutor exercise list [language]         List languages, or the types of one language
  langtutor exercise info <language> <type>  Show exercise type details`)
		return nil
	}

	switch args[0] {
	case "list":
		language := ""
		if len(args) > 1 {
			language = args[1]
		}
		return cmdExerciseList(language)
	case "info":
		if len(args) < 3 {
			return fmt.Errorf("language and exercise type required (e.g., en essay)")
		}
		return cmdExerciseInfo(args[1], strings.Join(args[2:], " "))
	default:
		return fmt.Errorf("unknown exercise command: %s", args[0])
	}
}

func cmdExerciseList(language string) error {
	a, cleanup, err := openApp(slog.LevelWarn)
	if err != nil {
		return err
	}
	defer cleanup()

	if language == "" {
		stats := a.Catalog.Stats()
		fmt.Println("Available Languages:")
		for _, lang := range a.Catalog.Languages() {
			fmt.Printf("  %s (%s) - %d exercise types\n", lang.Name, lang.Code, stats.ByLanguage[lang.Code])
		}
		fmt.Println("\nUse 'langtutor exercise list <language>' for exercise types")
		return nil
	}

	lang, err := a.Catalog.Language(language)
	if err != nil {
		return err
	}
	defs, err := a.Catalog.Types(lang.Code)
	if err != nil {
		return err
	}

	fmt.Printf("%s Exercise Types:\n", lang.Name)
	for _, d := range defs {
		fmt.Printf("  %-50s %d-%d words\n", d.Type, d.MinWords, d.MaxWords)
	}
	fmt.Println("\nUse 'Random' to pick a type at random, or 'hints -exercise' for a custom exercise")
	return nil
}

func cmdExerciseInfo(language, exerciseType string) error {
	a, cleanup, err := openApp(slog.LevelWarn)
	if err != nil {
		return err
	}
	defer cleanup()

	def, err := a.Catalog.Lookup(language, exerciseType)
	if err != nil {
		return err
	}

	fmt.Printf("Exercise: %s\n\n", def.Type)
	fmt.Printf("Language: %s\n", def.Language)
	fmt.Printf("Length:   %d-%d words\n", def.MinWords, def.MaxWords)
	fmt.Printf("\nRequirements:\n%s\n", def.Requirements)

	return nil
}
