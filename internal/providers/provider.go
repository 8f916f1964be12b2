package providers

import (
	"context"
	"time"
)

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Transport sends a chat request to a vision model provider and returns the
// provider-shaped response body. Transports do not interpret the body; the
// completion package normalizes it by provider name.
type Transport interface {
	// Name returns the provider identifier (e.g., "openai", "openrouter").
	Name() string

	// Send dispatches a chat request.
	Send(ctx context.Context, req *ChatRequest) (*Response, error)
}

// AccessChecker is implemented by transports that can verify a credential
// works for a model without spending tokens.
type AccessChecker interface {
	CheckAccess(ctx context.Context, model string) error
}

// Image is an inline base64 image payload.
type Image struct {
	MIMEType string
	Base64   string
}

// DataURL returns the image as a data: URL.
func (i Image) DataURL() string {
	mime := i.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + i.Base64
}

// Message is one entry of a chat request.
type Message struct {
	Role    string  `json:"role"` // "system", "user"
	Content string  `json:"content,omitempty"`
	Images  []Image `json:"-"`
}

// ChatRequest is a request to a vision model.
type ChatRequest struct {
	// Required
	Messages []Message `json:"messages"`

	// Model selection (uses transport default if empty)
	Model string `json:"model,omitempty"`

	// Options are provider keyword arguments (temperature, max_tokens, ...)
	// merged into the request body as-is.
	Options map[string]any `json:"-"`

	// Request tracking
	RequestID string `json:"-"`
}

// Response is the raw reply from a provider.
type Response struct {
	Provider  string
	Model     string
	RequestID string
	Body      []byte
	Latency   time.Duration
}
