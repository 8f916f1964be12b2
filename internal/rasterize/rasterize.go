// Package rasterize renders PDF pages to images.
package rasterize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/pagemark/internal/pipeline"
)

const (
	// DefaultDPI is the rendering resolution.
	DefaultDPI = 300
	// DefaultBinary is the poppler renderer invoked per page.
	DefaultBinary = "pdftoppm"
)

// Config configures a Rasterizer.
type Config struct {
	DPI     int    // Resolution (default: 300)
	Workers int    // Concurrent renders (default: NumCPU)
	Binary  string // Renderer executable (default: pdftoppm)
	Logger  *slog.Logger
}

// Rasterizer renders PDF pages to PNG files using pdftoppm (poppler-utils).
type Rasterizer struct {
	dpi     int
	workers int
	binary  string
	logger  *slog.Logger
}

// New creates a rasterizer.
func New(cfg Config) *Rasterizer {
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{
		dpi:     cfg.DPI,
		workers: cfg.Workers,
		binary:  cfg.Binary,
		logger:  logger,
	}
}

// PageCount returns the number of pages in a PDF.
func PageCount(pdfPath string) (int, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	n, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

// Render renders the given 1-based pages of pdfPath into outDir. A nil
// selection renders every page. Results are in selection order with
// Index set to their position.
func (r *Rasterizer) Render(ctx context.Context, pdfPath, outDir string, pages []int) ([]pipeline.PageImage, error) {
	count, err := PageCount(pdfPath)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, pipeline.ErrNoPages
	}

	if pages == nil {
		pages = make([]int, count)
		for i := range pages {
			pages[i] = i + 1
		}
	}
	for _, p := range pages {
		if p < 1 || p > count {
			return nil, fmt.Errorf("%w: page %d out of range (document has %d pages)", ErrInvalidPageSelection, p, count)
		}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	r.logger.Debug("rendering pages", "file", filepath.Base(pdfPath), "pages", len(pages), "of", count, "dpi", r.dpi)

	images := make([]pipeline.PageImage, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, page := range pages {
		g.Go(func() error {
			path, err := r.renderPage(gctx, pdfPath, outDir, page)
			if err != nil {
				return fmt.Errorf("failed to render page %d: %w", page, err)
			}
			images[i] = pipeline.PageImage{Index: i, Page: page, Path: path}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

// renderPage renders a single page to outDir/page_NNNN.png.
func (r *Rasterizer) renderPage(ctx context.Context, pdfPath, outDir string, page int) (string, error) {
	// -singlefile: don't add page number suffix
	prefix := filepath.Join(outDir, fmt.Sprintf("page_%04d", page))
	pageStr := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, r.binary,
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(r.dpi),
		"-singlefile",
		pdfPath,
		prefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s failed: %w (output: %s)", r.binary, err, string(output))
	}

	path := prefix + ".png"
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%s did not create expected output: %w", r.binary, err)
	}
	return path, nil
}

// Available reports whether the renderer binary is on PATH.
func (r *Rasterizer) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}
