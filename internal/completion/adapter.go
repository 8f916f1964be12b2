// Package completion sends page requests to a vision model and reduces the
// provider-specific reply to a uniform Result.
//
// The adapter never retries; retries belong to the transport. Every failure,
// whether from the transport, a malformed body or a provider error payload,
// comes back as a *Failure.
package completion

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/pagemark/internal/markdown"
	"github.com/jackzampolin/pagemark/internal/providers"
)

// Request is the ordered message sequence for one page.
type Request struct {
	Messages []providers.Message
}

// ModelConfig selects the model and carries opaque provider options.
type ModelConfig struct {
	Model   string
	Options map[string]any
}

// Result is a normalized provider reply.
type Result struct {
	Content       string
	InputTokens   int
	OutputTokens  int
	BoundingBoxes []markdown.BoundingBox
	Provider      string
	Model         string
	RequestID     string
	Latency       time.Duration
}

// Config holds configuration for the Adapter.
type Config struct {
	Transport providers.Transport
	Model     ModelConfig
	Logger    *slog.Logger
}

// Adapter dispatches requests through a transport.
type Adapter struct {
	transport providers.Transport
	model     ModelConfig
	logger    *slog.Logger
}

// NewAdapter creates a new completion adapter.
func NewAdapter(cfg Config) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		transport: cfg.Transport,
		model:     cfg.Model,
		logger:    logger,
	}
}

// Model returns the configured model identifier.
func (a *Adapter) Model() string {
	return a.model.Model
}

// Provider returns the transport name.
func (a *Adapter) Provider() string {
	return a.transport.Name()
}

// Complete sends the request and parses the reply.
func (a *Adapter) Complete(ctx context.Context, req Request) (*Result, error) {
	provider := a.transport.Name()
	fail := func(err error) error {
		return &Failure{Provider: provider, Model: a.model.Model, Cause: err}
	}

	resp, err := a.transport.Send(ctx, &providers.ChatRequest{
		Model:     a.model.Model,
		Messages:  req.Messages,
		Options:   a.model.Options,
		RequestID: uuid.New().String(),
	})
	if err != nil {
		return nil, fail(err)
	}

	if resp.Provider != "" {
		provider = resp.Provider
	}
	parse, err := shapeFor(provider)
	if err != nil {
		return nil, fail(err)
	}
	p, err := parse(resp.Body)
	if err != nil {
		return nil, fail(err)
	}
	boxes, err := parseBoundingBoxes(p.BoundingBoxes)
	if err != nil {
		return nil, fail(err)
	}

	model := resp.Model
	if model == "" {
		model = a.model.Model
	}

	a.logger.Debug("completion",
		"provider", provider,
		"model", model,
		"request_id", resp.RequestID,
		"input_tokens", p.InputTokens,
		"output_tokens", p.OutputTokens,
		"bounding_boxes", len(boxes),
		"latency", resp.Latency,
	)

	return &Result{
		Content:       p.Content,
		InputTokens:   p.InputTokens,
		OutputTokens:  p.OutputTokens,
		BoundingBoxes: boxes,
		Provider:      provider,
		Model:         model,
		RequestID:     resp.RequestID,
		Latency:       resp.Latency,
	}, nil
}
