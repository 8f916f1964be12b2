package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoPages is returned when a run is started with no pages.
var ErrNoPages = errors.New("no pages to convert")

// PageError is a failure attributed to one page.
type PageError struct {
	Index int
	Page  int
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// PartialFailureError summarizes pages that failed in a run that kept going.
type PartialFailureError struct {
	Failed    []*PageError
	Succeeded int
}

func (e *PartialFailureError) Error() string {
	pages := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		pages[i] = fmt.Sprintf("%d", f.Page)
	}
	return fmt.Sprintf("%d of %d pages failed (pages %s): %v",
		len(e.Failed), len(e.Failed)+e.Succeeded, strings.Join(pages, ", "), e.Failed[0].Err)
}

// Unwrap exposes every page failure to errors.Is and errors.As.
func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f
	}
	return errs
}
