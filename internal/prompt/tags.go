package prompt

// Section tags the generator is instructed to emit. The parser in
// internal/feedback reads the same vocabulary.
const (
	TagExercise         = "exercise"
	TagHints            = "hints"
	TagMistakes         = "mistakes"
	TagStylisticErrors  = "stylistic_errors"
	TagRecommendations  = "recommendations"
	TagText             = "text"
	NoneSentinel        = "None."
	LegacyHintsMarker   = "**Hints:**"
	LegacyExerciseLabel = "**Exercise:**"
)

// Open returns the opening markup of a tag
func Open(tag string) string {
	return "<" + tag + ">"
}

// Close returns the closing markup of a tag
func Close(tag string) string {
	return "</" + tag + ">"
}
