// Package prompts provides the page conversion prompts.
//
// Two built-in system prompts ship with the binary:
//   - the base prompt, which asks for a markdown transcription of the page
//   - the bounding box prompt, which additionally asks for image coordinates
//
// Callers pick one before a run starts. A custom prompt replaces the built-in
// text; Custom returns a Notice describing the override so the caller can
// surface it. The prompt is a plain value, so a run that captured it is not
// affected by later overrides.
package prompts

import (
	_ "embed"
	"strings"
)

//go:embed system.md
var systemPrompt string

//go:embed bounding_box.md
var boundingBoxPrompt string

// Prompt keys used for call traceability.
const (
	KeyDefault     = "pagemark.system"
	KeyBoundingBox = "pagemark.system.bounding_box"
	KeyCustom      = "pagemark.system.custom"
)

// SystemPrompt is the system instruction sent as the first message of every page request.
type SystemPrompt struct {
	key    string
	text   string
	custom bool
}

// Notice is a non-fatal diagnostic returned when a prompt override is applied.
type Notice struct {
	Message string
	Default string
}

func (n Notice) String() string {
	return n.Message + ". Default prompt is:\n" + n.Default
}

// Default returns the built-in system prompt.
// When boundingBoxes is true the prompt also requests image coordinates.
func Default(boundingBoxes bool) SystemPrompt {
	if boundingBoxes {
		return SystemPrompt{key: KeyBoundingBox, text: strings.TrimSpace(boundingBoxPrompt)}
	}
	return SystemPrompt{key: KeyDefault, text: strings.TrimSpace(systemPrompt)}
}

// Custom returns a system prompt that replaces the built-in one.
// The override is always applied; the returned Notice should be shown to the user.
func Custom(text string) (SystemPrompt, Notice) {
	return SystemPrompt{key: KeyCustom, text: text, custom: true}, Notice{
		Message: "custom system prompt in use; this changes how pages are converted and may degrade output",
		Default: Default(false).Text(),
	}
}

// Text returns the prompt text.
func (p SystemPrompt) Text() string {
	if p.key == "" {
		return Default(false).text
	}
	return p.text
}

// Key returns the prompt key.
func (p SystemPrompt) Key() string {
	if p.key == "" {
		return KeyDefault
	}
	return p.key
}

// IsCustom reports whether the prompt overrides the built-in text.
func (p SystemPrompt) IsCustom() bool {
	return p.custom
}

// Hash returns the SHA256 of the prompt text.
func (p SystemPrompt) Hash() string {
	return HashText(p.Text())
}
