package config

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// Entry documents a single configuration key.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries returns the documented configuration keys with their defaults.
func DefaultEntries() []Entry {
	cfg := DefaultConfig()
	d := cfg.Defaults
	openai := cfg.Providers["openai"]

	return []Entry{
		// Providers
		{Key: "providers.openai.type", Value: openai.Type, Description: "Provider type: openai, openrouter, anthropic, deepinfra"},
		{Key: "providers.openai.model", Value: openai.Model, Description: "Vision model used for page conversion"},
		{Key: "providers.openai.api_key", Value: openai.APIKey, Description: "API key (uses environment variable)"},
		{Key: "providers.openai.base_url", Value: "", Description: "Endpoint override for compatible APIs"},
		{Key: "providers.openai.rate_limit", Value: 0, Description: "Requests per minute (0 = unlimited)"},
		{Key: "providers.openai.timeout_seconds", Value: 0, Description: "HTTP timeout in seconds (0 = client default)"},
		{Key: "providers.openai.max_retries", Value: 0, Description: "Retry attempts for failed requests (0 = client default)"},
		{Key: "providers.openai.vision", Value: nil, Description: "Force vision support on or off for unknown models"},
		{Key: "providers.openai.options", Value: nil, Description: "Extra request parameters, e.g. temperature"},

		// Defaults
		{Key: "defaults.provider", Value: d.Provider, Description: "Provider used when --provider is not given"},
		{Key: "defaults.maintain_format", Value: d.MaintainFormat, Description: "Convert pages in order, feeding each page to the next"},
		{Key: "defaults.concurrency", Value: d.Concurrency, Description: "Max concurrent page requests"},
		{Key: "defaults.bounding_boxes", Value: d.BoundingBoxes, Description: "Ask the model for image bounding boxes"},
		{Key: "defaults.system_prompt", Value: d.SystemPrompt, Description: "Replace the built-in system prompt"},
		{Key: "defaults.output_dir", Value: d.OutputDir, Description: "Directory for converted markdown files"},
		{Key: "defaults.temp_dir", Value: d.TempDir, Description: "Directory for rendered page images"},
		{Key: "defaults.cleanup", Value: d.Cleanup, Description: "Remove rendered images after conversion"},
		{Key: "defaults.failure_policy", Value: d.FailurePolicy, Description: "continue or abort when a page fails"},
		{Key: "defaults.dpi", Value: d.DPI, Description: "Page rendering resolution"},
	}
}

// GetDefault returns the default value for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	// Don't allow keys starting or ending with dots
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}
