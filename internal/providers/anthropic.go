package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
)

const (
	AnthropicName      = "anthropic"
	AnthropicEnvKey    = "ANTHROPIC_API_KEY"
	anthropicMaxTokens = 4096
)

// AnthropicConfig holds configuration for the Anthropic transport.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string // Optional (tests)
	DefaultModel string
	MaxTokens    int64         // Default max_tokens (required by the API)
	MaxRetries   int           // Retry attempts for SDK transport (default: 3)
	Timeout      time.Duration // HTTP timeout
	HTTPClient   *http.Client  // Optional (tests)
}

// AnthropicClient sends messages through the official Anthropic SDK.
type AnthropicClient struct {
	defaultModel string
	maxTokens    int64
	client       anthropic.Client
}

// NewAnthropicClient creates a new Anthropic transport.
func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-3-5-sonnet-latest"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = anthropicMaxTokens
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
		client:       anthropic.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *AnthropicClient) Name() string {
	return AnthropicName
}

// Send creates a message and returns the raw response body.
// System messages become the top-level system field.
func (c *AnthropicClient) Send(ctx context.Context, req *ChatRequest) (*Response, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: c.maxTokens,
	}
	var system []string
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Images)+1)
		for _, img := range m.Images {
			mime := img.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			blocks = append(blocks, anthropic.NewImageBlockBase64(mime, img.Base64))
		}
		if m.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(m.Content))
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(blocks...))
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}

	var opts []option.RequestOption
	for k, v := range req.Options {
		opts = append(opts, option.WithJSONSet(k, v))
	}

	message, err := c.client.Messages.New(ctx, params, opts...)
	if err != nil {
		return nil, mapAnthropicError(err)
	}

	return &Response{
		Provider:  AnthropicName,
		Model:     model,
		RequestID: requestID,
		Body:      []byte(message.RawJSON()),
		Latency:   time.Since(start),
	}, nil
}

// CheckAccess retrieves the model, which fails for bad keys and unknown models.
func (c *AnthropicClient) CheckAccess(ctx context.Context, model string) error {
	if _, err := c.client.Models.Get(ctx, model, anthropic.ModelGetParams{}); err != nil {
		return mapAnthropicError(err)
	}
	return nil
}

func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("anthropic rate limited: %v", apiErr),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		return &StatusError{Provider: AnthropicName, StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
	}
	return err
}

var (
	_ Transport     = (*AnthropicClient)(nil)
	_ AccessChecker = (*AnthropicClient)(nil)
)
