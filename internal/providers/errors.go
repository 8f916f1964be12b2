package providers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownProvider is returned when a provider type or name is not registered.
var ErrUnknownProvider = errors.New("unknown provider")

// MissingEnvironmentVariablesError reports credentials that are not set.
type MissingEnvironmentVariablesError struct {
	Provider string
	Missing  []string
}

func (e *MissingEnvironmentVariablesError) Error() string {
	return fmt.Sprintf("required environment variables for %s are not set: %s",
		e.Provider, strings.Join(e.Missing, ", "))
}

// NotAVisionModelError reports a model that cannot take image input.
type NotAVisionModelError struct {
	Provider string
	Model    string
}

func (e *NotAVisionModelError) Error() string {
	return fmt.Sprintf("model %q (%s) does not support vision input; pick a vision-capable model", e.Model, e.Provider)
}

// ModelAccessError reports a credential that cannot access the model.
type ModelAccessError struct {
	Provider string
	Model    string
	Cause    error
}

func (e *ModelAccessError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("cannot access model %q on %s; check the API key", e.Model, e.Provider)
	}
	return fmt.Sprintf("cannot access model %q on %s: %v", e.Model, e.Provider, e.Cause)
}

func (e *ModelAccessError) Unwrap() error {
	return e.Cause
}

// RateLimitError is returned when a provider answers 429.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// IsRateLimitError reports whether err is (or wraps) a RateLimitError.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// parseRetryAfter parses a Retry-After header given in seconds.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// StatusError is a non-retryable HTTP failure from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}
