package completion

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jackzampolin/pagemark/internal/providers"
)

// parsed is a provider response reduced to the fields the pipeline needs.
type parsed struct {
	Content       string
	InputTokens   int
	OutputTokens  int
	BoundingBoxes string // raw JSON, "" when absent
}

// shape extracts a parsed response from a provider body.
type shape func(body []byte) (*parsed, error)

// shapes maps provider names to the response shape they answer with.
var shapes = map[string]shape{
	providers.OpenAIName:     chatShape,
	providers.DeepInfraName:  chatShape,
	providers.OpenRouterName: chatShape,
	providers.MockClientName: chatShape,
	providers.AnthropicName:  anthropicShape,
}

func shapeFor(provider string) (shape, error) {
	s, ok := shapes[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, provider)
	}
	return s, nil
}

// chatShape reads an OpenAI-style chat completion.
func chatShape(body []byte) (*parsed, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(body)

	if msg := root.Get("error.message"); msg.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrProviderReport, msg.String())
	}

	message := root.Get("choices.0.message")
	if !message.Exists() {
		return nil, ErrNoChoices
	}

	prompt, err := tokenCount(root, "usage.prompt_tokens")
	if err != nil {
		return nil, err
	}
	completion, err := tokenCount(root, "usage.completion_tokens")
	if err != nil {
		return nil, err
	}

	return &parsed{
		Content:       messageText(message.Get("content")),
		InputTokens:   prompt,
		OutputTokens:  completion,
		BoundingBoxes: message.Get("bounding_boxes").Raw,
	}, nil
}

// anthropicShape reads an Anthropic messages response.
func anthropicShape(body []byte) (*parsed, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(body)

	if root.Get("type").String() == "error" {
		return nil, fmt.Errorf("%w: %s", ErrProviderReport, root.Get("error.message").String())
	}

	content := root.Get("content")
	if !content.Exists() {
		return nil, ErrNoChoices
	}

	input, err := tokenCount(root, "usage.input_tokens")
	if err != nil {
		return nil, err
	}
	output, err := tokenCount(root, "usage.output_tokens")
	if err != nil {
		return nil, err
	}

	return &parsed{
		Content:       messageText(content),
		InputTokens:   input,
		OutputTokens:  output,
		BoundingBoxes: root.Get("bounding_boxes").Raw,
	}, nil
}

// tokenCount reads a usage field. Missing and null fields are
// ErrMissingUsage; anything but a non-negative integer is ErrMalformedUsage.
func tokenCount(root gjson.Result, path string) (int, error) {
	r := root.Get(path)
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return 0, fmt.Errorf("%w: %s", ErrMissingUsage, path)
	case r.Type != gjson.Number:
		return 0, fmt.Errorf("%w: %s is %s", ErrMalformedUsage, path, r.Raw)
	}
	n := r.Num
	if n < 0 || n != float64(int64(n)) {
		return 0, fmt.Errorf("%w: %s is %s", ErrMalformedUsage, path, r.Raw)
	}
	return int(n), nil
}

// messageText flattens message content: a plain string, or an array of
// content parts whose text parts are concatenated in order.
func messageText(content gjson.Result) string {
	if !content.IsArray() {
		if content.Type == gjson.Null {
			return ""
		}
		return content.String()
	}
	var b strings.Builder
	content.ForEach(func(_, part gjson.Result) bool {
		if t := part.Get("type").String(); t == "" || t == "text" {
			b.WriteString(part.Get("text").String())
		}
		return true
	})
	return b.String()
}
