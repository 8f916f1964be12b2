package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/pagemark/internal/pipeline"
	"github.com/jackzampolin/pagemark/internal/prompts"
	"github.com/jackzampolin/pagemark/internal/providers"
)

// fakeRasterizer writes one small file per page instead of running pdftoppm.
type fakeRasterizer struct {
	pages    int
	gotPath  string
	gotPages []int
	err      error
}

func (f *fakeRasterizer) Render(ctx context.Context, pdfPath, outDir string, pages []int) ([]pipeline.PageImage, error) {
	f.gotPath = pdfPath
	f.gotPages = pages
	if f.err != nil {
		return nil, f.err
	}
	if pages == nil {
		for i := 1; i <= f.pages; i++ {
			pages = append(pages, i)
		}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	images := make([]pipeline.PageImage, len(pages))
	for i, p := range pages {
		path := filepath.Join(outDir, fmt.Sprintf("page_%04d.png", p))
		if err := os.WriteFile(path, []byte(fmt.Sprintf("p%d", p)), 0o644); err != nil {
			return nil, err
		}
		images[i] = pipeline.PageImage{Index: i, Page: p, Path: path}
	}
	return images, nil
}

// pathEncoder sends the file contents as the image payload.
type pathEncoder struct{}

func (pathEncoder) Encode(path string) (providers.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return providers.Image{}, err
	}
	return providers.Image{MIMEType: "image/png", Base64: string(data)}, nil
}

func pageOf(req *providers.ChatRequest) string {
	last := req.Messages[len(req.Messages)-1]
	return last.Images[0].Base64
}

func writeSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func noEnv(string) (string, bool) { return "", false }

func newTestConverter(t *testing.T, mock *providers.MockClient, r *fakeRasterizer, logs io.Writer) *Converter {
	t.Helper()
	if logs == nil {
		logs = io.Discard
	}
	c, err := New(context.Background(), Config{
		Transport:  mock,
		Model:      "mock-vision",
		LookupEnv:  noEnv,
		Rasterizer: r,
		Encoder:    pathEncoder{},
		WorkDir:    t.TempDir(),
		Logger:     slog.New(slog.NewTextHandler(logs, nil)),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func isMissingEnv(err error) bool {
	var e *providers.MissingEnvironmentVariablesError
	return errors.As(err, &e)
}

func isNotVision(err error) bool {
	var e *providers.NotAVisionModelError
	return errors.As(err, &e)
}

func isNoAccess(err error) bool {
	var e *providers.ModelAccessError
	return errors.As(err, &e)
}

func TestNew_Preflight(t *testing.T) {
	yes := true
	tests := []struct {
		name   string
		cfg    Config
		access error
		check  func(error) bool
	}{
		{
			name:  "missing environment",
			cfg:   Config{Model: "gpt-4o", RequiredEnv: []string{"PAGEMARK_TEST_MISSING_KEY"}},
			check: isMissingEnv,
		},
		{
			name:  "not a vision model",
			cfg:   Config{Model: "gpt-3.5-turbo"},
			check: isNotVision,
		},
		{
			name:   "no model access",
			cfg:    Config{Model: "gpt-4o"},
			access: errors.New("model not found"),
			check:  isNoAccess,
		},
		{
			name:  "vision override",
			cfg:   Config{Model: "my-finetune", Vision: &yes},
			check: func(err error) bool { return err == nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := providers.NewMockClient()
			mock.AccessErr = tt.access
			cfg := tt.cfg
			cfg.Transport = mock
			cfg.LookupEnv = noEnv
			cfg.Rasterizer = &fakeRasterizer{pages: 1}

			_, err := New(context.Background(), cfg)
			if !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil && !IsPreflightError(err) {
				t.Errorf("IsPreflightError(%v) = false", err)
			}
			if mock.RequestCount() != 0 {
				t.Errorf("pre-flight must not send completions, got %d", mock.RequestCount())
			}
		})
	}

	t.Run("required fields", func(t *testing.T) {
		if _, err := New(context.Background(), Config{Model: "gpt-4o"}); err == nil {
			t.Error("expected error without transport")
		}
		if _, err := New(context.Background(), Config{Transport: providers.NewMockClient()}); err == nil {
			t.Error("expected error without model")
		}
	})
}

func TestConvert(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Reply = func(ctx context.Context, req *providers.ChatRequest, n int) (providers.MockReply, error) {
		return providers.MockReply{
			Content:          "```markdown\n# " + pageOf(req) + "\n```",
			PromptTokens:     100,
			CompletionTokens: 20,
		}, nil
	}
	r := &fakeRasterizer{pages: 3}
	c := newTestConverter(t, mock, r, nil)

	src := writeSource(t, "Annual Report (final).pdf")
	outDir := filepath.Join(t.TempDir(), "out")
	tempDir := t.TempDir()

	out, err := c.Convert(context.Background(), Request{
		Source:         src,
		MaintainFormat: true,
		OutputDir:      outDir,
		TempDir:        tempDir,
		Cleanup:        true,
	})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if out.FileName != "Annual_Report_final" {
		t.Errorf("FileName = %q", out.FileName)
	}
	if out.InputTokens != 300 || out.OutputTokens != 60 {
		t.Errorf("tokens = %d/%d", out.InputTokens, out.OutputTokens)
	}
	if len(out.Pages) != 3 || out.Pages[2].Page != 3 || out.Pages[2].Content != "# p3" || out.Pages[2].ContentLength != 4 {
		t.Errorf("pages = %+v", out.Pages)
	}
	if out.Provider != "mock" || out.Model != "mock-vision" || out.RunID == "" {
		t.Errorf("output = %+v", out)
	}
	if r.gotPath != src {
		t.Errorf("rasterized %s, want %s", r.gotPath, src)
	}

	want := filepath.Join(outDir, "Annual_Report_final.md")
	if out.OutputPath != want {
		t.Errorf("OutputPath = %q, want %q", out.OutputPath, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "# p1\n\n# p2\n\n# p3" {
		t.Errorf("markdown = %q", data)
	}

	// Continuity reached the provider.
	reqs := mock.Requests()
	if len(reqs[1].Messages) != 3 || reqs[1].Messages[1].Content != prompts.Continuity("# p1") {
		t.Errorf("page 2 request = %+v", reqs[1].Messages)
	}

	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Errorf("temp directory not cleaned up: %v", entries)
	}
}

func TestConvert_KeepImages(t *testing.T) {
	c := newTestConverter(t, providers.NewMockClient(), &fakeRasterizer{pages: 2}, nil)

	tempDir := t.TempDir()
	out, err := c.Convert(context.Background(), Request{Source: writeSource(t, "a.pdf"), TempDir: tempDir})
	if err != nil {
		t.Fatal(err)
	}
	if out.OutputPath != "" {
		t.Errorf("no file should be written without an output dir, got %s", out.OutputPath)
	}

	images, _ := filepath.Glob(filepath.Join(tempDir, "pagemark-"+out.RunID, "pages", "*.png"))
	if len(images) != 2 {
		t.Errorf("expected rendered images to be kept, got %v", images)
	}
}

func TestConvert_SelectPages(t *testing.T) {
	var logs bytes.Buffer
	mock := providers.NewMockClient()
	r := &fakeRasterizer{pages: 10}
	c := newTestConverter(t, mock, r, &logs)

	out, err := c.Convert(context.Background(), Request{
		Source:         writeSource(t, "doc.pdf"),
		SelectPages:    []int{2, 5},
		MaintainFormat: true,
		Cleanup:        true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(r.gotPages) != "[2 5]" {
		t.Errorf("rasterizer got pages %v", r.gotPages)
	}
	if len(out.Pages) != 2 || out.Pages[0].Page != 2 || out.Pages[1].Page != 5 {
		t.Errorf("pages = %+v", out.Pages)
	}
	if !strings.Contains(logs.String(), "level=WARN") || !strings.Contains(logs.String(), "select_pages") {
		t.Errorf("expected select_pages warning, logs:\n%s", logs.String())
	}
}

func TestConvert_CustomPrompt(t *testing.T) {
	var logs bytes.Buffer
	mock := providers.NewMockClient()
	c := newTestConverter(t, mock, &fakeRasterizer{pages: 1}, &logs)

	if _, err := c.Convert(context.Background(), Request{
		Source:       writeSource(t, "doc.pdf"),
		SystemPrompt: "Transcribe tables only.",
		Cleanup:      true,
	}); err != nil {
		t.Fatal(err)
	}

	if got := mock.Requests()[0].Messages[0].Content; got != "Transcribe tables only." {
		t.Errorf("system prompt = %q", got)
	}
	if !strings.Contains(logs.String(), "custom system prompt") {
		t.Errorf("expected override notice, logs:\n%s", logs.String())
	}
}

func TestConvert_BoundingBoxPrompt(t *testing.T) {
	mock := providers.NewMockClient()
	c := newTestConverter(t, mock, &fakeRasterizer{pages: 1}, nil)

	if _, err := c.Convert(context.Background(), Request{Source: writeSource(t, "doc.pdf"), BoundingBoxes: true, Cleanup: true}); err != nil {
		t.Fatal(err)
	}
	if got := mock.Requests()[0].Messages[0].Content; got != prompts.Default(true).Text() {
		t.Errorf("system prompt = %q", got)
	}
}

func TestConvert_PartialFailure(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Reply = func(ctx context.Context, req *providers.ChatRequest, n int) (providers.MockReply, error) {
		if pageOf(req) == "p2" {
			return providers.MockReply{}, errors.New("boom")
		}
		return providers.MockReply{Content: pageOf(req), PromptTokens: 5, CompletionTokens: 1}, nil
	}
	c := newTestConverter(t, mock, &fakeRasterizer{pages: 3}, nil)
	outDir := t.TempDir()

	out, err := c.Convert(context.Background(), Request{Source: writeSource(t, "doc.pdf"), OutputDir: outDir, Cleanup: true})

	var partial *pipeline.PartialFailureError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialFailureError, got %v", err)
	}
	if fmt.Sprint(out.Failed) != "[2]" {
		t.Errorf("Failed = %v", out.Failed)
	}
	if out.Pages[1].Error == "" {
		t.Error("failed page should carry its error")
	}
	if out.InputTokens != 10 {
		t.Errorf("InputTokens = %d", out.InputTokens)
	}
	data, _ := os.ReadFile(filepath.Join(outDir, "doc.md"))
	if string(data) != "p1\n\np3" {
		t.Errorf("markdown = %q", data)
	}
}

func TestConvert_SequentialFailure(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Reply = func(ctx context.Context, req *providers.ChatRequest, n int) (providers.MockReply, error) {
		if pageOf(req) == "p2" {
			return providers.MockReply{}, errors.New("boom")
		}
		return providers.MockReply{Content: "ok"}, nil
	}
	c := newTestConverter(t, mock, &fakeRasterizer{pages: 3}, nil)
	outDir := t.TempDir()

	out, err := c.Convert(context.Background(), Request{Source: writeSource(t, "doc.pdf"), MaintainFormat: true, OutputDir: outDir, Cleanup: true})

	var pe *pipeline.PageError
	if !errors.As(err, &pe) || pe.Page != 2 {
		t.Fatalf("expected PageError for page 2, got %v", err)
	}
	if len(out.Pages) != 1 {
		t.Errorf("pages = %+v", out.Pages)
	}
	if _, err := os.Stat(filepath.Join(outDir, "doc.md")); !os.IsNotExist(err) {
		t.Error("no markdown file should be written for an aborted run")
	}
}

func TestConvert_Errors(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		mock := providers.NewMockClient()
		c := newTestConverter(t, mock, &fakeRasterizer{pages: 1}, nil)
		if _, err := c.Convert(context.Background(), Request{Source: "/does/not/exist.pdf", Cleanup: true}); err == nil {
			t.Fatal("expected error")
		}
		if mock.RequestCount() != 0 {
			t.Error("no requests expected")
		}
	})

	t.Run("render failure", func(t *testing.T) {
		renderErr := errors.New("pdftoppm exploded")
		c := newTestConverter(t, providers.NewMockClient(), &fakeRasterizer{err: renderErr}, nil)
		_, err := c.Convert(context.Background(), Request{Source: writeSource(t, "doc.pdf"), Cleanup: true})
		if !errors.Is(err, renderErr) {
			t.Fatalf("expected render error, got %v", err)
		}
	})

	t.Run("no pages", func(t *testing.T) {
		c := newTestConverter(t, providers.NewMockClient(), &fakeRasterizer{pages: 0}, nil)
		_, err := c.Convert(context.Background(), Request{Source: writeSource(t, "doc.pdf"), Cleanup: true})
		if !errors.Is(err, pipeline.ErrNoPages) {
			t.Fatalf("expected ErrNoPages, got %v", err)
		}
	})
}

func TestConvert_RemoteSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 remote"))
	}))
	defer server.Close()

	r := &fakeRasterizer{pages: 1}
	c := newTestConverter(t, providers.NewMockClient(), r, nil)

	out, err := c.Convert(context.Background(), Request{Source: server.URL + "/papers/paper-1.pdf", Cleanup: true})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(r.gotPath) != "paper-1.pdf" {
		t.Errorf("rasterized %s", r.gotPath)
	}
	if out.FileName != "paper-1" {
		t.Errorf("FileName = %q", out.FileName)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"/tmp/report.pdf":      "report",
		"My File (v2).pdf":     "My_File_v2",
		"/a/b/über-straße.pdf": "über-straße",
		"///.pdf":              "document",
		"weird..name.pdf":      "weird_name",
	}
	for in, want := range tests {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}

	long := strings.Repeat("a", 300) + ".pdf"
	if got := SanitizeFileName(long); len(got) != 255 {
		t.Errorf("long name truncated to %d bytes, want 255", len(got))
	}
}
