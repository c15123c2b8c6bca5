package feedback

import (
	"reflect"
	"testing"

	"github.com/felixgeelhaar/langtutor/internal/domain"
)

func TestExtractAnnotatedErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []domain.AnnotatedError
	}{
		{
			name:    "empty",
			content: "",
			want:    []domain.AnnotatedError{},
		},
		{
			name:    "none sentinel",
			content: "NONE.",
			want:    []domain.AnnotatedError{},
		},
		{
			name: "two bullets",
			content: `- <text>I goes</text> Use "I go".
- <text>to the school</text> Drop the article.`,
			want: []domain.AnnotatedError{
				{Fragment: "I goes", Explanation: `Use "I go".`},
				{Fragment: "to the school", Explanation: "Drop the article."},
			},
		},
		{
			name:    "leading dash stripped once",
			content: "- <text>a apple</text> - - odd formatting",
			want: []domain.AnnotatedError{
				{Fragment: "a apple", Explanation: "- odd formatting"},
			},
		},
		{
			name: "empty fragment kept",
			content: `- <text></text> The text is too informal overall.
- <text>gonna</text> Avoid slang.`,
			want: []domain.AnnotatedError{
				{Fragment: "", Explanation: "The text is too informal overall."},
				{Fragment: "gonna", Explanation: "Avoid slang."},
			},
		},
		{
			name:    "multiline explanation",
			content: "- <text>byłem</text> Wrong gender.\nThe writer is female, use \"byłam\".\n- <text>dom</text> Case.",
			want: []domain.AnnotatedError{
				{Fragment: "byłem", Explanation: "Wrong gender.\nThe writer is female, use \"byłam\"."},
				{Fragment: "dom", Explanation: "Case."},
			},
		},
		{
			name:    "inline text span stays in explanation",
			content: "- <text>goed</text> Use <text>went</text> instead.",
			want: []domain.AnnotatedError{
				{Fragment: "goed", Explanation: "Use <text>went</text> instead."},
			},
		},
		{
			name:    "numbered bullets",
			content: "1. <text>he go</text> Use goes.\n2. <text>she have</text> Use has.",
			want: []domain.AnnotatedError{
				{Fragment: "he go", Explanation: "Use goes."},
				{Fragment: "she have", Explanation: "Use has."},
			},
		},
		{
			name:    "fragment whitespace trimmed",
			content: "- <text>  I goes  </text>\n   explanation on next line",
			want: []domain.AnnotatedError{
				{Fragment: "I goes", Explanation: "explanation on next line"},
			},
		},
		{
			name:    "no text spans",
			content: "The writing has no issues worth noting.",
			want:    []domain.AnnotatedError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAnnotatedErrors(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractAnnotatedErrors() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestExtractAnnotatedErrors_Idempotent(t *testing.T) {
	content := "- <text>I goes</text> agreement\n- <text></text> whole text\n- <text>x</text> - y"
	first := ExtractAnnotatedErrors(content)
	second := ExtractAnnotatedErrors(content)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("ExtractAnnotatedErrors() not idempotent: %v vs %v", first, second)
	}
}

func TestFormatErrors(t *testing.T) {
	if got := FormatErrors(nil, "No mistakes found."); got != "No mistakes found." {
		t.Errorf("FormatErrors(nil) = %q", got)
	}

	got := FormatErrors([]domain.AnnotatedError{
		{Fragment: "I goes", Explanation: "Use I go."},
		{Explanation: "Too short overall."},
	}, "")
	want := "- I goes: Use I go.\n- Too short overall."
	if got != want {
		t.Errorf("FormatErrors() = %q, want %q", got, want)
	}
}
