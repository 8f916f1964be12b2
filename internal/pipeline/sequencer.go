// Package pipeline drives page conversion: it builds a request per page,
// sends it through a completion adapter and normalizes the reply.
//
// In continuity mode pages run strictly in order and each page's markdown is
// fed into the next page's request. Otherwise pages are independent and run
// concurrently, bounded by Options.Concurrency, and are reassembled in order.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/pagemark/internal/completion"
	"github.com/jackzampolin/pagemark/internal/llmcall"
	"github.com/jackzampolin/pagemark/internal/markdown"
	"github.com/jackzampolin/pagemark/internal/prompts"
)

// DefaultConcurrency bounds independent runs when Options.Concurrency is unset.
const DefaultConcurrency = 10

// Completer sends one page request.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (*completion.Result, error)
}

// Config holds the collaborators for a Pipeline.
type Config struct {
	Completer Completer
	Encoder   ImageEncoder
	Prompt    prompts.SystemPrompt

	// Optional
	Recorder *llmcall.Recorder
	RunID    string
	Document string
	Logger   *slog.Logger
}

// Options controls a single run.
type Options struct {
	MaintainFormat bool
	Concurrency    int
	FailurePolicy  FailurePolicy
}

// Pipeline converts rendered pages to markdown.
type Pipeline struct {
	completer Completer
	encoder   ImageEncoder
	prompt    prompts.SystemPrompt
	recorder  *llmcall.Recorder
	runID     string
	document  string
	logger    *slog.Logger
}

// New creates a pipeline. The system prompt is fixed for its lifetime.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		completer: cfg.Completer,
		encoder:   cfg.Encoder,
		prompt:    cfg.Prompt,
		recorder:  cfg.Recorder,
		runID:     cfg.RunID,
		document:  cfg.Document,
		logger:    logger,
	}
}

// Run converts pages and returns their results in index order.
//
// With MaintainFormat the first failure stops the run; the pages completed so
// far are returned along with a *PageError. Without it, FailurePolicy decides:
// Continue records failures on the page results, Abort cancels the rest and
// returns the first *PageError. If ctx is cancelled, in-flight pages are
// dropped and the committed ones are returned with the context error.
// An empty page list returns ErrNoPages.
func (p *Pipeline) Run(ctx context.Context, pages []PageImage, opts Options) (*Result, error) {
	if len(pages) == 0 {
		return &Result{}, ErrNoPages
	}
	if opts.MaintainFormat {
		return p.runSequential(ctx, pages)
	}
	return p.runIndependent(ctx, pages, opts)
}

func (p *Pipeline) runSequential(ctx context.Context, pages []PageImage) (*Result, error) {
	res := &Result{Pages: make([]PageResult, 0, len(pages))}
	prior := ""

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		pr, err := p.convertPage(ctx, page, true, prior)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			p.logger.Error("page failed, stopping run", "page", page.Page, "error", err)
			return res, &PageError{Index: page.Index, Page: page.Page, Err: err}
		}

		res.Pages = append(res.Pages, pr)
		res.TotalInputTokens += pr.InputTokens
		res.TotalOutputTokens += pr.OutputTokens
		prior = pr.Markdown
	}
	return res, nil
}

func (p *Pipeline) runIndependent(ctx context.Context, pages []PageImage, opts Options) (*Result, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	slots := make([]*PageResult, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, page := range pages {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			pr, err := p.convertPage(gctx, page, false, "")
			if err == nil {
				slots[i] = &pr
				return nil
			}
			if gctx.Err() != nil {
				// Abandoned by cancellation; not committed.
				return nil
			}
			if opts.FailurePolicy == FailurePolicyAbort {
				return &PageError{Index: page.Index, Page: page.Page, Err: err}
			}
			p.logger.Warn("page failed", "page", page.Page, "error", err)
			slots[i] = &PageResult{Index: page.Index, Page: page.Page, Err: err}
			return nil
		})
	}
	groupErr := g.Wait()

	res := &Result{Pages: make([]PageResult, 0, len(pages))}
	for _, s := range slots {
		if s == nil {
			continue
		}
		res.Pages = append(res.Pages, *s)
		res.TotalInputTokens += s.InputTokens
		res.TotalOutputTokens += s.OutputTokens
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if groupErr != nil {
		return res, groupErr
	}
	return res, nil
}

// convertPage builds, sends and normalizes a single page.
func (p *Pipeline) convertPage(ctx context.Context, page PageImage, maintainFormat bool, prior string) (PageResult, error) {
	req, err := BuildRequest(p.prompt, p.encoder, page, maintainFormat, prior)
	if err != nil {
		return PageResult{}, err
	}

	result, err := p.completer.Complete(ctx, req)
	p.record(page, result, err, maintainFormat && prior != "")
	if err != nil {
		return PageResult{}, err
	}

	md := markdown.Normalize(result.Content, result.BoundingBoxes)
	p.logger.Info("page converted",
		"page", page.Page,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"content_length", len(md),
	)

	return PageResult{
		Index:        page.Index,
		Page:         page.Page,
		Markdown:     md,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
	}, nil
}

func (p *Pipeline) record(page PageImage, result *completion.Result, err error, continuity bool) {
	if p.recorder == nil {
		return
	}
	opts := llmcall.RecordOptions{
		RunID:      p.runID,
		Document:   p.document,
		Page:       page.Page,
		PromptKey:  p.prompt.Key(),
		PromptHash: p.prompt.Hash(),
		Continuity: continuity,
	}
	var f *completion.Failure
	if errors.As(err, &f) {
		opts.Provider = f.Provider
		opts.Model = f.Model
	}
	p.recorder.Record(result, err, opts)
}
