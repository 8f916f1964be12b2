package providers

import (
	"context"
	"os"
	"strings"
)

// PreflightInput describes a provider/model pair to validate before any page is sent.
type PreflightInput struct {
	Transport   Transport
	Model       string
	RequiredEnv []string
	// Vision overrides the built-in capability table when set.
	Vision *bool
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Preflight checks credentials, vision capability and model access, in that
// order. It never calls Send.
func Preflight(ctx context.Context, in PreflightInput) error {
	name := in.Transport.Name()

	lookup := in.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var missing []string
	for _, key := range in.RequiredEnv {
		if v, ok := lookup(key); !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &MissingEnvironmentVariablesError{Provider: name, Missing: missing}
	}

	vision := SupportsVision(in.Model)
	if in.Vision != nil {
		vision = *in.Vision
	}
	if !vision {
		return &NotAVisionModelError{Provider: name, Model: in.Model}
	}

	if ac, ok := in.Transport.(AccessChecker); ok {
		if err := ac.CheckAccess(ctx, in.Model); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &ModelAccessError{Provider: name, Model: in.Model, Cause: err}
		}
	}
	return nil
}

// textOnlyModels are model name prefixes known to reject image input.
var textOnlyModels = []string{
	"gpt-3.5",
	"o1-mini",
	"o1-preview",
	"o3-mini",
	"text-",
	"davinci",
	"babbage",
	"claude-2",
	"claude-instant",
	"deepseek-r1",
	"deepseek-chat",
	"mistral-7b",
	"mixtral",
}

// visionHints are substrings that mark a model as accepting image input.
var visionHints = []string{
	"gpt-4o",
	"gpt-4.1",
	"gpt-4-turbo",
	"gpt-4-vision",
	"gpt-5",
	"o1",
	"o3",
	"o4",
	"claude-3",
	"claude-sonnet",
	"claude-opus",
	"claude-haiku",
	"gemini",
	"vision",
	"-vl",
	"vl-",
	"llava",
	"pixtral",
	"qwen2.5-vl",
	"llama-3.2-11b",
	"llama-3.2-90b",
	"llama-4",
	"mock",
}

// SupportsVision reports whether a model name is known to accept image input.
// A "vendor/" prefix (as used by OpenRouter) is ignored.
func SupportsVision(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(m, "/"); i >= 0 {
		m = m[i+1:]
	}
	if m == "" {
		return false
	}
	for _, prefix := range textOnlyModels {
		if strings.HasPrefix(m, prefix) {
			return false
		}
	}
	for _, hint := range visionHints {
		if strings.Contains(m, hint) {
			return true
		}
	}
	return false
}
