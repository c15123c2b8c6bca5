package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/langtutor/internal/domain"
)

//go:embed packs/*.yaml
var builtinPacks embed.FS

// PackFile represents the YAML structure for a language pack
type PackFile struct {
	Language string                      `yaml:"language" validate:"required"`
	Name     string                      `yaml:"name" validate:"required"`
	Types    []domain.ExerciseDefinition `yaml:"types" validate:"required,min=1,dive"`
}

// Pack is a validated language pack
type Pack struct {
	Language    domain.Language
	Definitions []domain.ExerciseDefinition
}

// Loader reads language packs from the embedded set and an optional directory
type Loader struct {
	basePath string
	validate *validator.Validate
}

// NewLoader creates a loader. An empty basePath loads only the built-in packs.
func NewLoader(basePath string) *Loader {
	return &Loader{
		basePath: basePath,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// BasePath returns the user pack directory
func (l *Loader) BasePath() string {
	return l.basePath
}

// ParsePack decodes and validates one pack document
func (l *Loader) ParsePack(data []byte) (*Pack, error) {
	var pf PackFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse pack file: %w", err)
	}
	if err := l.validate.Struct(&pf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidDefinition, pf.Language, err)
	}

	code := strings.ToLower(strings.TrimSpace(pf.Language))
	pack := &Pack{
		Language:    domain.Language{Code: code, Name: pf.Name},
		Definitions: make([]domain.ExerciseDefinition, 0, len(pf.Types)),
	}

	seen := make(map[string]bool, len(pf.Types))
	for _, def := range pf.Types {
		def.Language = code
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if seen[def.Type] {
			return nil, fmt.Errorf("%w: %s: duplicate type %q", domain.ErrInvalidDefinition, code, def.Type)
		}
		seen[def.Type] = true
		pack.Definitions = append(pack.Definitions, def)
	}
	return pack, nil
}

// LoadBuiltin loads the packs compiled into the binary
func (l *Loader) LoadBuiltin() ([]*Pack, error) {
	return l.loadFS(builtinPacks, "packs")
}

// LoadDir loads *.yaml packs from the user directory.
// A missing directory yields no packs.
func (l *Loader) LoadDir() ([]*Pack, error) {
	if l.basePath == "" {
		return nil, nil
	}
	if _, err := os.Stat(l.basePath); os.IsNotExist(err) {
		return nil, nil
	}
	return l.loadFS(os.DirFS(l.basePath), ".")
}

// LoadAll loads built-in packs then user packs; a user pack replaces
// the built-in pack of the same language.
func (l *Loader) LoadAll() ([]*Pack, error) {
	builtin, err := l.LoadBuiltin()
	if err != nil {
		return nil, fmt.Errorf("load builtin packs: %w", err)
	}
	user, err := l.LoadDir()
	if err != nil {
		return nil, fmt.Errorf("load user packs: %w", err)
	}

	byLang := make(map[string]*Pack, len(builtin)+len(user))
	for _, p := range builtin {
		byLang[p.Language.Code] = p
	}
	for _, p := range user {
		byLang[p.Language.Code] = p
	}

	packs := make([]*Pack, 0, len(byLang))
	for _, p := range byLang {
		packs = append(packs, p)
	}
	sort.Slice(packs, func(i, j int) bool {
		return packs[i].Language.Code < packs[j].Language.Code
	})
	return packs, nil
}

func (l *Loader) loadFS(fsys fs.FS, dir string) ([]*Pack, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read packs directory: %w", err)
	}

	var packs []*Pack
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := path.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read pack %s: %w", entry.Name(), err)
		}
		pack, err := l.ParsePack(data)
		if err != nil {
			return nil, fmt.Errorf("load pack %s: %w", entry.Name(), err)
		}
		packs = append(packs, pack)
	}
	return packs, nil
}
