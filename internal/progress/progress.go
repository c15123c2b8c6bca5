// Package progress derives learner statistics from saved sessions.
package progress

import (
	"cmp"
	"slices"
	"time"

	"github.com/felixgeelhaar/langtutor/internal/domain"
	"github.com/felixgeelhaar/langtutor/internal/session"
)

// Trend values for a practiced exercise type
const (
	TrendNew        = "new"
	TrendImproving  = "improving"
	TrendStable     = "stable"
	TrendStruggling = "struggling"
	TrendInactive   = "inactive"
)

const (
	inactiveAfter = 14 * 24 * time.Hour
	maxTopTypes   = 5
	maxDays       = 30
)

// Overview provides aggregate statistics
type Overview struct {
	TotalSessions   int     `json:"total_sessions"`
	CheckedSessions int     `json:"checked_sessions"`
	CheckRate       float64 `json:"check_rate"`
	TotalWords      int     `json:"total_words"`
	Mistakes        int     `json:"mistakes"`
	StyleErrors     int     `json:"style_errors"`
	// MistakesPerCheck averages grammar mistakes over checked sessions
	MistakesPerCheck float64 `json:"mistakes_per_check"`
	Questions        int     `json:"questions"`
	TotalCost        float64 `json:"total_cost"`
	UnpricedCalls    int     `json:"unpriced_calls"`

	Languages     []LanguageStat  `json:"languages"`
	MostPracticed []TypeStat      `json:"most_practiced"`
	Progression   []ProgressPoint `json:"progression"`
}

// LanguageStat summarizes practice in one language
type LanguageStat struct {
	Language string   `json:"language"`
	Sessions int      `json:"sessions"`
	Checked  int      `json:"checked"`
	Levels   []string `json:"levels"`
}

// TypeStat summarizes practice of one exercise type
type TypeStat struct {
	Language     string    `json:"language"`
	ExerciseType string    `json:"exercise_type"`
	Sessions     int       `json:"sessions"`
	AvgMistakes  float64   `json:"avg_mistakes"`
	LastSeen     time.Time `json:"last_seen"`
	Trend        string    `json:"trend"`
}

// ProgressPoint is one day of practice
type ProgressPoint struct {
	Date        string  `json:"date"`
	Sessions    int     `json:"sessions"`
	AvgMistakes float64 `json:"avg_mistakes"`
}

// Compute builds the overview. now anchors the inactivity check.
func Compute(states []*session.State, now time.Time) *Overview {
	o := &Overview{
		Languages:     []LanguageStat{},
		MostPracticed: []TypeStat{},
		Progression:   []ProgressPoint{},
	}

	// Oldest first so per-type histories are chronological
	sorted := slices.Clone(states)
	slices.SortFunc(sorted, func(a, b *session.State) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	langs := make(map[string]*LanguageStat)
	types := make(map[[2]string]*typeHistory)

	for _, s := range sorted {
		o.TotalSessions++
		o.Questions += len(s.QA)
		o.TotalCost += s.TotalCost
		o.UnpricedCalls += s.UnpricedCalls

		ls, ok := langs[s.Language]
		if !ok {
			ls = &LanguageStat{Language: s.Language, Levels: []string{}}
			langs[s.Language] = ls
		}
		ls.Sessions++
		if !slices.Contains(ls.Levels, s.Level) {
			ls.Levels = append(ls.Levels, s.Level)
		}

		key := [2]string{s.Language, s.ExerciseType}
		th, ok := types[key]
		if !ok {
			th = &typeHistory{language: s.Language, exerciseType: s.ExerciseType}
			types[key] = th
		}
		th.sessions++
		th.lastSeen = latest(th.lastSeen, s.UpdatedAt)

		if !checked(s) {
			continue
		}
		o.CheckedSessions++
		ls.Checked++
		o.TotalWords += domain.WordCount(s.Writing)
		o.Mistakes += len(s.Mistakes)
		o.StyleErrors += len(s.StyleErrors)
		th.mistakes = append(th.mistakes, len(s.Mistakes))
	}

	if o.TotalSessions > 0 {
		o.CheckRate = float64(o.CheckedSessions) / float64(o.TotalSessions)
	}
	if o.CheckedSessions > 0 {
		o.MistakesPerCheck = float64(o.Mistakes) / float64(o.CheckedSessions)
	}

	for _, ls := range langs {
		slices.Sort(ls.Levels)
		o.Languages = append(o.Languages, *ls)
	}
	slices.SortFunc(o.Languages, func(a, b LanguageStat) int {
		return cmp.Or(cmp.Compare(b.Sessions, a.Sessions), cmp.Compare(a.Language, b.Language))
	})

	for _, th := range types {
		o.MostPracticed = append(o.MostPracticed, th.stat(now))
	}
	slices.SortFunc(o.MostPracticed, func(a, b TypeStat) int {
		return cmp.Or(
			cmp.Compare(b.Sessions, a.Sessions),
			b.LastSeen.Compare(a.LastSeen),
			cmp.Compare(a.ExerciseType, b.ExerciseType),
		)
	})
	if len(o.MostPracticed) > maxTopTypes {
		o.MostPracticed = o.MostPracticed[:maxTopTypes]
	}

	o.Progression = buildProgression(sorted)
	return o
}

func checked(s *session.State) bool {
	return s.Writing != ""
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

type typeHistory struct {
	language     string
	exerciseType string
	sessions     int
	lastSeen     time.Time
	// mistakes per checked submission, oldest first
	mistakes []int
}

func (th *typeHistory) stat(now time.Time) TypeStat {
	return TypeStat{
		Language:     th.language,
		ExerciseType: th.exerciseType,
		Sessions:     th.sessions,
		AvgMistakes:  mean(th.mistakes),
		LastSeen:     th.lastSeen,
		Trend:        trend(th.mistakes, th.lastSeen, now),
	}
}

// trend compares mistakes in the older and newer halves of the history
func trend(mistakes []int, lastSeen, now time.Time) string {
	if len(mistakes) < 2 {
		return TrendNew
	}
	if now.Sub(lastSeen) > inactiveAfter {
		return TrendInactive
	}

	half := len(mistakes) / 2
	older := mean(mistakes[:half])
	newer := mean(mistakes[len(mistakes)-half:])
	switch {
	case newer < older:
		return TrendImproving
	case newer > older:
		return TrendStruggling
	default:
		return TrendStable
	}
}

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum int
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

// buildProgression groups sessions by creation day, keeping the last 30 days with practice
func buildProgression(sorted []*session.State) []ProgressPoint {
	points := []ProgressPoint{}
	var checkedToday, mistakesToday int

	flush := func() {
		if n := len(points); n > 0 && checkedToday > 0 {
			points[n-1].AvgMistakes = float64(mistakesToday) / float64(checkedToday)
		}
		checkedToday, mistakesToday = 0, 0
	}

	for _, s := range sorted {
		day := s.CreatedAt.Format(time.DateOnly)
		if n := len(points); n == 0 || points[n-1].Date != day {
			flush()
			points = append(points, ProgressPoint{Date: day})
		}
		points[len(points)-1].Sessions++
		if checked(s) {
			checkedToday++
			mistakesToday += len(s.Mistakes)
		}
	}
	flush()

	if len(points) > maxDays {
		points = points[len(points)-maxDays:]
	}
	return points
}
