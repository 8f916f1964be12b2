// Package output renders command results for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Format defines the output format for CLI commands.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	// FormatMarkdown prints converted markdown instead of a summary.
	FormatMarkdown Format = "markdown"
)

// DefaultFormat is the default output format.
var DefaultFormat = FormatYAML

// globalFormat is set by the root command's --output flag.
var globalFormat = FormatYAML

// ParseFormat validates a format name.
func ParseFormat(format string) (Format, error) {
	switch Format(format) {
	case FormatJSON, FormatYAML, FormatMarkdown:
		return Format(format), nil
	case "md":
		return FormatMarkdown, nil
	case "":
		return DefaultFormat, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want yaml, json or markdown)", format)
	}
}

// SetFormat sets the global output format.
func SetFormat(format Format) {
	globalFormat = format
}

// GetFormat returns the current global output format.
func GetFormat() Format {
	return globalFormat
}

// Write writes data to stdout in the configured format.
func Write(data any) error {
	return WriteTo(os.Stdout, globalFormat, data)
}

// Markdowner is implemented by results that have a markdown rendering.
type Markdowner interface {
	Markdown() string
}

// WriteTo writes data to the given writer in the specified format.
func WriteTo(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	case FormatMarkdown:
		md, ok := data.(Markdowner)
		if !ok {
			return WriteTo(w, FormatYAML, data)
		}
		_, err := fmt.Fprintln(w, md.Markdown())
		return err
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
