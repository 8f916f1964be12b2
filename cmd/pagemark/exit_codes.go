package main

import (
	"context"
	"errors"
	"os"

	"github.com/jackzampolin/pagemark/internal/config"
	"github.com/jackzampolin/pagemark/internal/convert"
	"github.com/jackzampolin/pagemark/internal/pipeline"
	"github.com/jackzampolin/pagemark/internal/providers"
	"github.com/jackzampolin/pagemark/internal/rasterize"
)

// Exit codes for the pagemark CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess   = 0   // Successful conversion
	ExitGeneral   = 1   // General/unexpected error
	ExitUsage     = 2   // Invalid flags, config, or page selection
	ExitIO        = 3   // File not found, permission denied
	ExitProvider  = 4   // Missing credentials, non-vision model, no model access
	ExitPartial   = 5   // Some pages failed; markdown was written without them
	ExitInterrupt = 130 // Cancelled by signal
)

// errUsage marks errors caused by invalid input.
var errUsage = errors.New("usage error")

type usageErr struct{ err error }

func (e *usageErr) Error() string { return e.err.Error() }

func (e *usageErr) Unwrap() []error { return []error{e.err, errUsage} }

func usageError(err error) error { return &usageErr{err: err} }

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	var partial *pipeline.PartialFailureError
	if errors.As(err, &partial) {
		return ExitPartial
	}

	if convert.IsPreflightError(err) {
		return ExitProvider
	}

	if errors.Is(err, errUsage) ||
		errors.Is(err, rasterize.ErrInvalidPageSelection) ||
		errors.Is(err, providers.ErrUnknownProvider) ||
		errors.Is(err, config.ErrInvalidKey) ||
		errors.Is(err, config.ErrNoDefault) {
		return ExitUsage
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) {
		return ExitIO
	}

	return ExitGeneral
}
