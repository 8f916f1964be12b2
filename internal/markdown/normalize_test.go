package markdown

import (
	"encoding/json"
	"testing"
)

func TestNormalize_Unwrap(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "markdown fence",
			input: "```markdown\n# Title\n```",
			want:  "# Title",
		},
		{
			name:  "md fence with trailing newline",
			input: "```md\n# Title\n\nBody\n```\n",
			want:  "# Title\n\nBody",
		},
		{
			name:  "bare code fence",
			input: "```\nplain text\n```",
			want:  "plain text",
		},
		{
			name:  "markdown fence wrapping a bare fence",
			input: "```markdown\n```\ninner\n```\n```",
			want:  "inner",
		},
		{
			name:  "inner code blocks preserved",
			input: "```markdown\n# Code\n\n```go\nfmt.Println()\n```\n```",
			want:  "# Code\n\n```go\nfmt.Println()\n```",
		},
		{
			name:  "html fence",
			input: "```html\n<table><tr><td>1</td></tr></table>\n```",
			want:  "<table><tr><td>1</td></tr></table>",
		},
		{
			name:  "latex fence",
			input: "```latex\n\\frac{a}{b}\n```",
			want:  "\\frac{a}{b}",
		},
		{
			name:  "trailing blank lines after closing fence",
			input: "```markdown\n# T\n```\n\n",
			want:  "# T",
		},
		{
			name:  "uppercase info string is left alone",
			input: "```Python\nprint(1)\n```",
			want:  "```Python\nprint(1)\n```",
		},
		{
			name:  "fence not at start is left alone",
			input: "Intro\n```markdown\n# Title\n```",
			want:  "Intro\n```markdown\n# Title\n```",
		},
		{
			name:  "empty fence",
			input: "```markdown\n```",
			want:  "",
		},
		{
			name:  "no fences",
			input: "# Heading\n\nParagraph",
			want:  "# Heading\n\nParagraph",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "unterminated fence",
			input: "```markdown\n# Title",
			want:  "```markdown\n# Title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input, nil)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Hello",
		"# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |",
		"Text with ``` in the middle",
		"```python\nx = 1\n```",
		"line\n```\n",
	}
	for _, in := range inputs {
		once := Normalize(in, nil)
		twice := Normalize(once, nil)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalize_BoundingBoxes(t *testing.T) {
	t.Run("single box", func(t *testing.T) {
		boxes := []BoundingBox{{Image: "AAAA", Box: json.RawMessage(`[0,0,10,10]`)}}
		got := Normalize("body", boxes)
		want := "body\n\n![Image](data:image/png;base64,AAAA)\n\nBounding Box: [0,0,10,10]"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("multiple boxes separated by blank line", func(t *testing.T) {
		boxes := []BoundingBox{
			{Image: "AAAA", Box: json.RawMessage(`[0, 0, 10, 10]`)},
			{Image: "BBBB", Box: json.RawMessage(`{"x": 1, "y": 2}`)},
		}
		got := Normalize("```markdown\nbody\n```", boxes)
		want := "body\n\n" +
			"![Image](data:image/png;base64,AAAA)\n\nBounding Box: [0,0,10,10]\n\n" +
			"![Image](data:image/png;base64,BBBB)\n\nBounding Box: {\"x\":1,\"y\":2}"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("missing coordinates", func(t *testing.T) {
		got := FormatBoundingBox(BoundingBox{Image: "CC"})
		want := "![Image](data:image/png;base64,CC)\n\nBounding Box: null"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("empty slice is identity", func(t *testing.T) {
		if got := Normalize("body", []BoundingBox{}); got != "body" {
			t.Errorf("got %q", got)
		}
	})
}
