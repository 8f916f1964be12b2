package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	OpenRouterName    = "openrouter"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OpenRouterEnvKey  = "OPENROUTER_API_KEY"
)

// OpenRouterConfig holds configuration for the OpenRouter transport.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int           // Max retry attempts after the first (default: 3)
	RetryDelay   time.Duration // Base delay between retries (default: 1s)
	HTTPClient   *http.Client
}

// OpenRouterClient sends chat-shaped requests to OpenRouter over HTTP.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	maxRetries   int
	retryDelay   time.Duration
}

// NewOpenRouterClient creates a new OpenRouter transport.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "openai/gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client:       client,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}
}

// Name returns the provider identifier.
func (c *OpenRouterClient) Name() string {
	return OpenRouterName
}

// Send posts a chat completion request and returns the raw response body.
func (c *OpenRouterClient) Send(ctx context.Context, req *ChatRequest) (*Response, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	body, err := chatBody(model, req)
	if err != nil {
		return nil, err
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/chat/completions", body)
	if err != nil {
		return nil, err
	}

	return &Response{
		Provider:  OpenRouterName,
		Model:     model,
		RequestID: requestID,
		Body:      respBody,
		Latency:   time.Since(start),
	}, nil
}

// CheckAccess verifies the API key is accepted and the model is listed.
func (c *OpenRouterClient) CheckAccess(ctx context.Context, model string) error {
	if _, err := c.doRequest(ctx, http.MethodGet, "/key", nil); err != nil {
		return err
	}

	listing, err := c.doRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`data.#(id==%q)`, model)
	if !gjson.GetBytes(listing, query).Exists() {
		return fmt.Errorf("model %q not found", model)
	}
	return nil
}

var (
	_ Transport     = (*OpenRouterClient)(nil)
	_ AccessChecker = (*OpenRouterClient)(nil)
)
