package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// doRequest makes an HTTP request to OpenRouter with retry logic.
// Rate limits, server errors and network failures are retried with jittered
// backoff; any other non-200 status fails immediately.
func (c *OpenRouterClient) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	return retry.DoWithData(
		func() ([]byte, error) {
			return c.attempt(ctx, method, path, body)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries+1)),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retryAfterDelay),
		retry.LastErrorOnly(true),
	)
}

func (c *OpenRouterClient) attempt(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/jackzampolin/pagemark")
	req.Header.Set("X-Title", "Pagemark")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Unrecoverable(ctx.Err())
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return respBody, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{
			Message:    fmt.Sprintf("OpenRouter rate limited (status %d): %s", resp.StatusCode, string(respBody)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			StatusCode: resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("OpenRouter error (status %d): %s", resp.StatusCode, string(respBody))
	default:
		return nil, retry.Unrecoverable(&StatusError{
			Provider:   OpenRouterName,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		})
	}
}

// retryAfterDelay honors a server-provided Retry-After and otherwise falls
// back to jittered exponential backoff.
func retryAfterDelay(n uint, err error, config *retry.Config) time.Duration {
	if rle, ok := IsRateLimitError(err); ok && rle.RetryAfter > 0 {
		return rle.RetryAfter
	}
	return retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)(n, err, config)
}
