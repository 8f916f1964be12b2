package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName       = "openai"
	OpenAIEnvKey     = "OPENAI_API_KEY"
	DeepInfraName    = "deepinfra"
	DeepInfraEnvKey  = "DEEPINFRA_API_KEY"
	DeepInfraBaseURL = "https://api.deepinfra.com/v1/openai"
)

// OpenAIConfig holds configuration for an OpenAI-compatible transport.
// DeepInfra is served by the same client with its own name and base URL.
type OpenAIConfig struct {
	Name         string // Provider identifier (default: "openai")
	APIKey       string
	BaseURL      string // Optional (DeepInfra, tests)
	DefaultModel string
	MaxRetries   int           // Retry attempts for SDK transport (default: 3)
	Timeout      time.Duration // HTTP timeout
	HTTPClient   *http.Client  // Optional (tests)
}

// OpenAIClient sends chat completions through the official OpenAI SDK.
type OpenAIClient struct {
	name         string
	defaultModel string
	client       openai.Client
}

// NewOpenAIClient creates a new OpenAI-compatible transport.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Name == "" {
		cfg.Name = OpenAIName
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = string(openai.ChatModelGPT4oMini)
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

	return &OpenAIClient{
		name:         cfg.Name,
		defaultModel: cfg.DefaultModel,
		client:       openai.NewClient(opts...),
	}
}

// NewDeepInfraClient creates a transport for DeepInfra's OpenAI-compatible API.
func NewDeepInfraClient(cfg OpenAIConfig) *OpenAIClient {
	cfg.Name = DeepInfraName
	if cfg.BaseURL == "" {
		cfg.BaseURL = DeepInfraBaseURL
	}
	return NewOpenAIClient(cfg)
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Send creates a chat completion and returns the raw response body.
func (c *OpenAIClient) Send(ctx context.Context, req *ChatRequest) (*Response, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: openAIMessages(req.Messages),
	}

	// Provider options go straight into the request body.
	var opts []option.RequestOption
	for k, v := range req.Options {
		opts = append(opts, option.WithJSONSet(k, v))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return nil, c.mapError(err)
	}

	return &Response{
		Provider:  c.name,
		Model:     model,
		RequestID: requestID,
		Body:      []byte(completion.RawJSON()),
		Latency:   time.Since(start),
	}, nil
}

// CheckAccess retrieves the model, which fails for bad keys and unknown models.
func (c *OpenAIClient) CheckAccess(ctx context.Context, model string) error {
	if _, err := c.client.Models.Get(ctx, model); err != nil {
		return c.mapError(err)
	}
	return nil
}

func openAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch {
		case m.Role == RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case len(m.Images) == 0:
			out = append(out, openai.UserMessage(m.Content))
		default:
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(m.Images)+1)
			for _, img := range m.Images {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: img.DataURL(),
				}))
			}
			if m.Content != "" {
				parts = append(parts, openai.TextContentPart(m.Content))
			}
			out = append(out, openai.UserMessage(parts))
		}
	}
	return out
}

func (c *OpenAIClient) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("%s rate limited: %s", c.name, apiErr.Message),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		return &StatusError{Provider: c.name, StatusCode: apiErr.StatusCode, Body: apiErr.Message}
	}
	return err
}

var (
	_ Transport     = (*OpenAIClient)(nil)
	_ AccessChecker = (*OpenAIClient)(nil)
)
