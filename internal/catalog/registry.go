package catalog

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/langtutor/internal/domain"
)

// Selection sentinels accepted in place of an exercise type
const (
	// Random picks a random type of the language
	Random = "Random"
	// Custom means the learner supplies the exercise text; no definition applies
	Custom = "Custom"
)

var (
	ErrUnknownLanguage     = errors.New("unknown language")
	ErrUnknownExerciseType = errors.New("unknown exercise type")
	ErrNoDefinition        = errors.New("custom exercises have no definition")
)

// Registry provides read access to exercise definitions by language
type Registry struct {
	loader    *Loader
	mu        sync.RWMutex
	languages map[string]domain.Language
	defs      map[string][]domain.ExerciseDefinition
	intn      func(n int) int
}

// NewRegistry creates a new registry backed by loader
func NewRegistry(loader *Loader) *Registry {
	return &Registry{
		loader:    loader,
		languages: make(map[string]domain.Language),
		defs:      make(map[string][]domain.ExerciseDefinition),
		intn:      rand.IntN,
	}
}

// Load reads all packs and replaces the loaded set. On error the
// previous set stays in place.
func (r *Registry) Load() error {
	packs, err := r.loader.LoadAll()
	if err != nil {
		return fmt.Errorf("load packs: %w", err)
	}

	languages := make(map[string]domain.Language, len(packs))
	defs := make(map[string][]domain.ExerciseDefinition, len(packs))
	for _, p := range packs {
		languages[p.Language.Code] = p.Language
		defs[p.Language.Code] = p.Definitions
	}

	r.mu.Lock()
	r.languages = languages
	r.defs = defs
	r.mu.Unlock()
	return nil
}

// Language resolves a code or display name, case-insensitively
func (r *Registry) Language(s string) (domain.Language, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.languageLocked(s)
}

func (r *Registry) languageLocked(s string) (domain.Language, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if lang, ok := r.languages[key]; ok {
		return lang, nil
	}
	for _, lang := range r.languages {
		if strings.EqualFold(lang.Name, key) {
			return lang, nil
		}
	}
	return domain.Language{}, fmt.Errorf("%w: %s", ErrUnknownLanguage, s)
}

// Languages returns all languages sorted by code
func (r *Registry) Languages() []domain.Language {
	r.mu.RLock()
	defer r.mu.RUnlock()

	langs := make([]domain.Language, 0, len(r.languages))
	for _, l := range r.languages {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].Code < langs[j].Code })
	return langs
}

// Types returns the definitions of a language in pack order
func (r *Registry) Types(language string) ([]domain.ExerciseDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lang, err := r.languageLocked(language)
	if err != nil {
		return nil, err
	}
	defs := r.defs[lang.Code]
	out := make([]domain.ExerciseDefinition, len(defs))
	copy(out, defs)
	return out, nil
}

// Lookup returns the definition of an exercise type. The Random sentinel
// picks one at random; Custom returns ErrNoDefinition.
func (r *Registry) Lookup(language, exerciseType string) (domain.ExerciseDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lang, err := r.languageLocked(language)
	if err != nil {
		return domain.ExerciseDefinition{}, err
	}
	defs := r.defs[lang.Code]

	switch {
	case strings.EqualFold(exerciseType, Random):
		if len(defs) == 0 {
			return domain.ExerciseDefinition{}, fmt.Errorf("%w: %s has no types", ErrUnknownExerciseType, lang.Code)
		}
		return defs[r.intn(len(defs))], nil
	case strings.EqualFold(exerciseType, Custom):
		return domain.ExerciseDefinition{}, ErrNoDefinition
	}

	for _, d := range defs {
		if d.Type == exerciseType {
			return d, nil
		}
	}
	for _, d := range defs {
		if strings.EqualFold(d.Type, strings.TrimSpace(exerciseType)) {
			return d, nil
		}
	}
	return domain.ExerciseDefinition{}, fmt.Errorf("%w: %s/%s", ErrUnknownExerciseType, lang.Code, exerciseType)
}

// Random returns a random definition of language
func (r *Registry) Random(language string) (domain.ExerciseDefinition, error) {
	return r.Lookup(language, Random)
}

// Stats returns statistics about loaded packs
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{
		LanguageCount: len(r.languages),
		ByLanguage:    make(map[string]int, len(r.defs)),
	}
	for code, defs := range r.defs {
		stats.TypeCount += len(defs)
		stats.ByLanguage[code] = len(defs)
	}
	return stats
}

// RegistryStats holds statistics about the registry
type RegistryStats struct {
	LanguageCount int
	TypeCount     int
	ByLanguage    map[string]int
}
