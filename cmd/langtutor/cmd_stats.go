package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/langtutor/internal/domain"
	"github.com/felixgeelhaar/langtutor/internal/progress"
)

// cmdStats shows practice statistics from saved sessions
func cmdStats() error {
	a, cleanup, err := openApp(slog.LevelWarn)
	if err != nil {
		return err
	}
	defer cleanup()

	o, err := a.Stats()
	if err != nil {
		return err
	}
	if o.TotalSessions == 0 {
		fmt.Println("No sessions yet. Run 'langtutor generate' to start one.")
		return nil
	}

	printOverview(o)
	return nil
}

func printOverview(o *progress.Overview) {
	fmt.Println("Practice Statistics")
	fmt.Println("===================")
	fmt.Printf("Sessions:            %d\n", o.TotalSessions)
	fmt.Printf("Checked:             %d %s %.0f%%\n", o.CheckedSessions, renderProgressBar(o.CheckRate, 20), o.CheckRate*100)
	fmt.Printf("Words written:       %d\n", o.TotalWords)
	fmt.Printf("Mistakes per check:  %.1f\n", o.MistakesPerCheck)
	fmt.Printf("Stylistic errors:    %d\n", o.StyleErrors)
	fmt.Printf("Questions asked:     %d\n", o.Questions)
	fmt.Printf("Total cost:          %s", domain.KnownCost(o.TotalCost))
	if o.UnpricedCalls > 0 {
		fmt.Printf(" (+%d calls with unknown cost)", o.UnpricedCalls)
	}
	fmt.Println()

	fmt.Println("\nLanguages")
	fmt.Println("---------")
	for _, l := range o.Languages {
		fmt.Printf("%-12s %3d sessions, %3d checked  levels: %s\n", l.Language, l.Sessions, l.Checked, strings.Join(l.Levels, ", "))
	}

	if len(o.MostPracticed) > 0 {
		fmt.Println("\nMost Practiced")
		fmt.Println("--------------")
		for _, t := range o.MostPracticed {
			fmt.Printf("%-32s %3d sessions  %.1f mistakes  %s\n", t.Language+" / "+t.ExerciseType, t.Sessions, t.AvgMistakes, t.Trend)
		}
	}

	if len(o.Progression) > 1 {
		fmt.Println("\nRecent Days")
		fmt.Println("-----------")
		for _, p := range o.Progression {
			fmt.Printf("%s  %2d sessions  %.1f mistakes\n", p.Date, p.Sessions, p.AvgMistakes)
		}
	}
}

// renderProgressBar draws a fraction in [0, 1] as a fixed-width bar
func renderProgressBar(fraction float64, width int) string {
	filled := int(min(max(fraction, 0), 1) * float64(width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
