package output

import (
	"bytes"
	"strings"
	"testing"
)

type summary struct {
	Name  string `json:"name" yaml:"name"`
	Pages int    `json:"pages" yaml:"pages"`
}

type doc struct{ text string }

func (d doc) Markdown() string { return d.text }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"yaml", FormatYAML, false},
		{"json", FormatJSON, false},
		{"markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"", DefaultFormat, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteTo(t *testing.T) {
	data := summary{Name: "report", Pages: 3}

	tests := []struct {
		format Format
		data   any
		want   string
	}{
		{FormatJSON, data, "{\n  \"name\": \"report\",\n  \"pages\": 3\n}\n"},
		{FormatYAML, data, "name: report\npages: 3\n"},
		{FormatMarkdown, doc{"# Title"}, "# Title\n"},
		{FormatMarkdown, data, "name: report\npages: 3\n"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteTo(&buf, tt.format, tt.data); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}

	var buf bytes.Buffer
	if err := WriteTo(&buf, Format("xml"), data); err == nil || !strings.Contains(err.Error(), "unknown") {
		t.Errorf("expected unknown format error, got %v", err)
	}
}

func TestGlobalFormat(t *testing.T) {
	defer SetFormat(GetFormat())
	SetFormat(FormatJSON)
	if GetFormat() != FormatJSON {
		t.Errorf("GetFormat() = %q", GetFormat())
	}
}
