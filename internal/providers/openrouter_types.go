package providers

import (
	"encoding/json"
	"fmt"
)

// OpenAI-compatible chat completion request types, used by transports that
// speak the chat shape over plain HTTP.

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []chatContentPart
}

// chatMessages converts messages to the chat shape. A message carrying images
// becomes a content-part array; text-only messages stay plain strings.
func chatMessages(msgs []Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		if len(m.Images) == 0 {
			out = append(out, chatMessage{Role: m.Role, Content: m.Content})
			continue
		}
		parts := make([]chatContentPart, 0, len(m.Images)+1)
		for _, img := range m.Images {
			parts = append(parts, chatContentPart{
				Type:     "image_url",
				ImageURL: &chatImageURL{URL: img.DataURL()},
			})
		}
		if m.Content != "" {
			parts = append(parts, chatContentPart{Type: "text", Text: m.Content})
		}
		out = append(out, chatMessage{Role: m.Role, Content: parts})
	}
	return out
}

// chatBody marshals a chat completion request. Options are merged at the top
// level; model and messages cannot be overridden by them.
func chatBody(model string, req *ChatRequest) ([]byte, error) {
	body := make(map[string]any, len(req.Options)+2)
	for k, v := range req.Options {
		body[k] = v
	}
	body["model"] = model
	body["messages"] = chatMessages(req.Messages)

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return data, nil
}
