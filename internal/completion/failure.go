package completion

import (
	"errors"
	"fmt"
)

// Failure is the single error kind returned by Complete. It wraps transport
// errors, malformed responses and provider error payloads alike.
type Failure struct {
	Provider string
	Model    string
	Cause    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("completion failed (%s/%s): %v", f.Provider, f.Model, f.Cause)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// Malformed-response causes.
var (
	ErrMissingUsage   = errors.New("response has no usage accounting")
	ErrMalformedUsage = errors.New("response usage is not a non-negative integer")
	ErrNoChoices      = errors.New("response has no choices")
	ErrUnknownShape   = errors.New("no response shape registered for provider")
	ErrInvalidJSON    = errors.New("response body is not valid JSON")
	ErrBoundingBoxes  = errors.New("invalid bounding_boxes")
	ErrProviderReport = errors.New("provider returned an error")
)
