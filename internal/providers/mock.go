package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockReply is what the mock transport answers for one request.
type MockReply struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	// Extra is merged into the top level of the response body.
	Extra map[string]any
	// Body, when set, is returned verbatim instead of a generated chat body.
	Body []byte
}

// MockClient is a Transport for testing. It answers in the chat shape.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	AccessErr    error

	// Reply, when set, decides the answer for each request. The index is the
	// zero-based request count.
	Reply func(ctx context.Context, req *ChatRequest, n int) (MockReply, error)

	// State
	requestCount atomic.Int64
	accessCount  atomic.Int64
	mu           sync.Mutex
	requests     []*ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Send records the request and returns a chat-shaped body.
func (c *MockClient) Send(ctx context.Context, req *ChatRequest) (*Response, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.ShouldFail {
		return nil, fmt.Errorf("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return nil, fmt.Errorf("mock client failed after %d requests", c.FailAfter)
	}

	// Simulate latency
	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	reply := MockReply{Content: c.ResponseText}
	if c.Reply != nil {
		var err error
		reply, err = c.Reply(ctx, req, int(count-1))
		if err != nil {
			return nil, err
		}
	}

	body := reply.Body
	if body == nil {
		var err error
		body, err = mockBody(req, reply)
		if err != nil {
			return nil, err
		}
	}

	return &Response{
		Provider:  MockClientName,
		Model:     req.Model,
		RequestID: fmt.Sprintf("mock-%d", count),
		Body:      body,
		Latency:   time.Since(start),
	}, nil
}

// CheckAccess returns AccessErr. It does not count as a Send.
func (c *MockClient) CheckAccess(ctx context.Context, model string) error {
	c.accessCount.Add(1)
	return c.AccessErr
}

func mockBody(req *ChatRequest, reply MockReply) ([]byte, error) {
	promptTokens := reply.PromptTokens
	if promptTokens == 0 {
		for _, m := range req.Messages {
			promptTokens += len(m.Content)/4 + 85*len(m.Images) // Rough estimate
		}
	}
	completionTokens := reply.CompletionTokens
	if completionTokens == 0 {
		completionTokens = len(reply.Content) / 4
	}

	body := map[string]any{
		"id":    "mock",
		"model": req.Model,
		"choices": []map[string]any{{
			"message":       map[string]any{"role": "assistant", "content": reply.Content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
		},
	}
	for k, v := range reply.Extra {
		body[k] = v
	}
	return json.Marshal(body)
}

// RequestCount returns the number of Send calls made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// AccessCount returns the number of CheckAccess calls made.
func (c *MockClient) AccessCount() int64 {
	return c.accessCount.Load()
}

// Requests returns a copy of the recorded requests in arrival order.
func (c *MockClient) Requests() []*ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Reset clears counters and recorded requests.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.accessCount.Store(0)
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

var (
	_ Transport     = (*MockClient)(nil)
	_ AccessChecker = (*MockClient)(nil)
)
