// Package convert turns a PDF into a markdown file.
//
// A Converter is created per provider/model pair; New validates credentials,
// vision support and model access before anything is rendered or sent.
// Convert then fetches remote sources, renders pages, runs them through the
// page pipeline and writes the joined markdown.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/pagemark/internal/completion"
	"github.com/jackzampolin/pagemark/internal/imageenc"
	"github.com/jackzampolin/pagemark/internal/llmcall"
	"github.com/jackzampolin/pagemark/internal/pipeline"
	"github.com/jackzampolin/pagemark/internal/prompts"
	"github.com/jackzampolin/pagemark/internal/providers"
	"github.com/jackzampolin/pagemark/internal/rasterize"
)

// Rasterizer renders PDF pages to image files.
type Rasterizer interface {
	Render(ctx context.Context, pdfPath, outDir string, pages []int) ([]pipeline.PageImage, error)
}

// Config configures a Converter.
type Config struct {
	Transport providers.Transport // Required
	Model     string              // Required
	Options   map[string]any      // Extra request parameters

	// Pre-flight
	RequiredEnv []string
	Vision      *bool
	LookupEnv   func(string) (string, bool)

	// Optional
	Rasterizer Rasterizer            // default: pdftoppm at 300 DPI
	Encoder    pipeline.ImageEncoder // default: imageenc.FileEncoder
	Recorder   *llmcall.Recorder
	WorkDir    string // parent of per-run scratch directories (default: os.TempDir())
	Fetch      rasterize.FetchConfig
	Logger     *slog.Logger
}

// Converter converts documents with one provider and model.
type Converter struct {
	adapter    *completion.Adapter
	rasterizer Rasterizer
	encoder    pipeline.ImageEncoder
	recorder   *llmcall.Recorder
	workDir    string
	fetch      rasterize.FetchConfig
	logger     *slog.Logger
}

// New validates the provider and model and returns a Converter. Pre-flight
// failures are returned as *providers.MissingEnvironmentVariablesError,
// *providers.NotAVisionModelError or *providers.ModelAccessError.
func New(ctx context.Context, cfg Config) (*Converter, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := providers.Preflight(ctx, providers.PreflightInput{
		Transport:   cfg.Transport,
		Model:       cfg.Model,
		RequiredEnv: cfg.RequiredEnv,
		Vision:      cfg.Vision,
		LookupEnv:   cfg.LookupEnv,
	}); err != nil {
		return nil, err
	}

	if cfg.Rasterizer == nil {
		cfg.Rasterizer = rasterize.New(rasterize.Config{Logger: logger})
	}
	if cfg.Encoder == nil {
		cfg.Encoder = imageenc.NewFileEncoder(0)
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}

	return &Converter{
		adapter: completion.NewAdapter(completion.Config{
			Transport: cfg.Transport,
			Model:     completion.ModelConfig{Model: cfg.Model, Options: cfg.Options},
			Logger:    logger,
		}),
		rasterizer: cfg.Rasterizer,
		encoder:    cfg.Encoder,
		recorder:   cfg.Recorder,
		workDir:    cfg.WorkDir,
		fetch:      cfg.Fetch,
		logger:     logger,
	}, nil
}

// Request describes one conversion.
type Request struct {
	Source         string // Local path or http(s) URL
	MaintainFormat bool
	Concurrency    int
	SelectPages    []int // 1-based; nil converts every page
	BoundingBoxes  bool
	SystemPrompt   string // Replaces the built-in prompt when set
	OutputDir      string // Markdown is written here when set
	TempDir        string // Parent for rendered images (default: the converter's WorkDir)
	Cleanup        bool   // Remove rendered images afterwards
	FailurePolicy  pipeline.FailurePolicy
}

// Page is one converted page in an Output.
type Page struct {
	Page          int    `json:"page" yaml:"page"`
	Content       string `json:"content" yaml:"content"`
	ContentLength int    `json:"content_length" yaml:"content_length"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Output summarizes a conversion.
type Output struct {
	RunID          string `json:"run_id" yaml:"run_id"`
	FileName       string `json:"file_name" yaml:"file_name"`
	OutputPath     string `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Provider       string `json:"provider" yaml:"provider"`
	Model          string `json:"model" yaml:"model"`
	CompletionTime int64  `json:"completion_time" yaml:"completion_time"` // Milliseconds
	InputTokens    int    `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens   int    `json:"output_tokens" yaml:"output_tokens"`
	Pages          []Page `json:"pages" yaml:"pages"`
	Failed         []int  `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Markdown joins the converted pages.
func (o *Output) Markdown() string {
	parts := make([]string, 0, len(o.Pages))
	for _, p := range o.Pages {
		if p.Error == "" {
			parts = append(parts, p.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Convert converts a document.
//
// When pages fail under FailurePolicyContinue the Output is complete, the
// markdown file is written from the pages that succeeded and the error is a
// *pipeline.PartialFailureError. Any other error returns the pages completed
// so far without writing a file.
func (c *Converter) Convert(ctx context.Context, req Request) (*Output, error) {
	start := time.Now()
	runID := uuid.New().String()
	logger := c.logger.With("run_id", runID)

	base := req.TempDir
	if base == "" {
		base = c.workDir
	}
	scratch := filepath.Join(base, "pagemark-"+runID)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	if req.Cleanup {
		defer func() {
			if err := os.RemoveAll(scratch); err != nil {
				logger.Warn("failed to remove temp directory", "path", scratch, "error", err)
			}
		}()
	}

	local := req.Source
	if rasterize.IsRemote(req.Source) {
		logger.Info("downloading document", "url", req.Source)
		path, err := rasterize.Fetch(ctx, req.Source, filepath.Join(scratch, "source"), c.fetch)
		if err != nil {
			return nil, err
		}
		local = path
	} else if _, err := os.Stat(local); err != nil {
		return nil, fmt.Errorf("document not found: %w", err)
	}

	if req.SelectPages != nil && req.MaintainFormat {
		logger.Warn("maintain_format with select_pages: formatting is carried only between the selected pages, not from skipped ones",
			"select_pages", req.SelectPages)
	}

	prompt := prompts.Default(req.BoundingBoxes)
	if req.SystemPrompt != "" {
		var notice prompts.Notice
		prompt, notice = prompts.Custom(req.SystemPrompt)
		logger.Warn(notice.String())
	}

	images, err := c.rasterizer.Render(ctx, local, filepath.Join(scratch, "pages"), req.SelectPages)
	if err != nil {
		return nil, fmt.Errorf("failed to render pages: %w", err)
	}
	if len(images) == 0 {
		return nil, pipeline.ErrNoPages
	}

	fileName := SanitizeFileName(local)
	out := &Output{
		RunID:    runID,
		FileName: fileName,
		Provider: c.adapter.Provider(),
		Model:    c.adapter.Model(),
	}

	p := pipeline.New(pipeline.Config{
		Completer: c.adapter,
		Encoder:   c.encoder,
		Prompt:    prompt,
		Recorder:  c.recorder,
		RunID:     runID,
		Document:  fileName,
		Logger:    logger,
	})
	logger.Info("converting document",
		"file", fileName,
		"pages", len(images),
		"maintain_format", req.MaintainFormat,
		"prompt", prompt.Key(),
	)
	res, runErr := p.Run(ctx, images, pipeline.Options{
		MaintainFormat: req.MaintainFormat,
		Concurrency:    req.Concurrency,
		FailurePolicy:  req.FailurePolicy,
	})

	if res != nil {
		for _, pr := range res.Pages {
			page := Page{Page: pr.Page, Content: pr.Markdown, ContentLength: len(pr.Markdown)}
			if pr.Err != nil {
				page.Error = pr.Err.Error()
				out.Failed = append(out.Failed, pr.Page)
			}
			out.Pages = append(out.Pages, page)
		}
		out.InputTokens = res.TotalInputTokens
		out.OutputTokens = res.TotalOutputTokens
	}
	out.CompletionTime = time.Since(start).Milliseconds()

	if runErr != nil {
		return out, runErr
	}

	if req.OutputDir != "" {
		path, err := writeMarkdown(req.OutputDir, fileName, out.Markdown())
		if err != nil {
			return out, err
		}
		out.OutputPath = path
	}

	logger.Info("conversion complete",
		"file", fileName,
		"pages", len(out.Pages),
		"failed", len(out.Failed),
		"input_tokens", out.InputTokens,
		"output_tokens", out.OutputTokens,
		"duration_ms", out.CompletionTime,
	)

	return out, res.Err()
}

func writeMarkdown(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, name+".md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write markdown: %w", err)
	}
	return path, nil
}

// IsPreflightError reports whether err came from provider validation.
func IsPreflightError(err error) bool {
	var missing *providers.MissingEnvironmentVariablesError
	var vision *providers.NotAVisionModelError
	var access *providers.ModelAccessError
	return errors.As(err, &missing) || errors.As(err, &vision) || errors.As(err, &access)
}
