package pipeline

import (
	"fmt"
	"strings"
)

// PageResult is the outcome for one page. Err is set when the page failed;
// Markdown and token counts are then zero.
type PageResult struct {
	Index        int
	Page         int
	Markdown     string
	InputTokens  int
	OutputTokens int
	Err          error
}

// Failed reports whether the page failed.
func (p PageResult) Failed() bool {
	return p.Err != nil
}

// Result is the outcome of a run. Pages are in index order.
type Result struct {
	Pages             []PageResult
	TotalInputTokens  int
	TotalOutputTokens int
}

// Err returns a *PartialFailureError if any page failed, otherwise nil.
func (r *Result) Err() error {
	var failed []*PageError
	for _, p := range r.Pages {
		if p.Err != nil {
			failed = append(failed, &PageError{Index: p.Index, Page: p.Page, Err: p.Err})
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &PartialFailureError{Failed: failed, Succeeded: len(r.Pages) - len(failed)}
}

// Succeeded returns the pages that converted.
func (r *Result) Succeeded() []PageResult {
	out := make([]PageResult, 0, len(r.Pages))
	for _, p := range r.Pages {
		if p.Err == nil {
			out = append(out, p)
		}
	}
	return out
}

// FailurePolicy decides what an independent run does when a page fails.
type FailurePolicy int

const (
	// FailurePolicyContinue records the failure on the page and keeps going.
	FailurePolicyContinue FailurePolicy = iota
	// FailurePolicyAbort cancels the remaining pages on the first failure.
	FailurePolicyAbort
)

func (p FailurePolicy) String() string {
	switch p {
	case FailurePolicyAbort:
		return "abort"
	default:
		return "continue"
	}
}

// ParseFailurePolicy parses "continue" or "abort". Empty means continue.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continue":
		return FailurePolicyContinue, nil
	case "abort":
		return FailurePolicyAbort, nil
	default:
		return FailurePolicyContinue, fmt.Errorf("unknown failure policy %q (want continue or abort)", s)
	}
}
