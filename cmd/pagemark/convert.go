package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pagemark/internal/config"
	"github.com/jackzampolin/pagemark/internal/convert"
	"github.com/jackzampolin/pagemark/internal/home"
	"github.com/jackzampolin/pagemark/internal/llmcall"
	"github.com/jackzampolin/pagemark/internal/output"
	"github.com/jackzampolin/pagemark/internal/pipeline"
	"github.com/jackzampolin/pagemark/internal/providers"
	"github.com/jackzampolin/pagemark/internal/rasterize"
)

// convertFlags holds flags shared by convert and watch.
type convertFlags struct {
	provider         string
	model            string
	maintainFormat   bool
	concurrency      int
	pages            string
	boundingBoxes    bool
	systemPrompt     string
	systemPromptFile string
	outputDir        string
	tempDir          string
	keepImages       bool
	abortOnError     bool
	trace            bool
	dpi              int
}

func (f *convertFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.provider, "provider", "", "provider name from config (default: defaults.provider)")
	fs.StringVar(&f.model, "model", "", "model override for the selected provider")
	fs.BoolVar(&f.maintainFormat, "maintain-format", false, "convert pages in order, passing each page's markdown to the next")
	fs.IntVar(&f.concurrency, "concurrency", pipeline.DefaultConcurrency, "maximum pages converted at once")
	fs.StringVar(&f.pages, "pages", "", "pages to convert, e.g. 1,3-5 (default: all)")
	fs.BoolVar(&f.boundingBoxes, "bounding-boxes", false, "ask the model for image bounding boxes")
	fs.StringVar(&f.systemPrompt, "system-prompt", "", "replace the built-in system prompt")
	fs.StringVar(&f.systemPromptFile, "system-prompt-file", "", "read the system prompt from a file")
	fs.StringVar(&f.outputDir, "output-dir", "", "directory for the markdown file (default: defaults.output_dir)")
	fs.StringVar(&f.tempDir, "temp-dir", "", "parent directory for rendered page images")
	fs.BoolVar(&f.keepImages, "keep-images", false, "keep rendered page images after conversion")
	fs.BoolVar(&f.abortOnError, "abort-on-error", false, "stop at the first failed page")
	fs.BoolVar(&f.trace, "trace", false, "record every completion call to the call log")
	fs.IntVar(&f.dpi, "dpi", rasterize.DefaultDPI, "page rendering resolution")
}

// applyDefaults fills flags the user did not set from the config defaults.
func (f *convertFlags) applyDefaults(cmd *cobra.Command, d config.DefaultsCfg) {
	changed := cmd.Flags().Changed
	if !changed("maintain-format") {
		f.maintainFormat = d.MaintainFormat
	}
	if !changed("concurrency") && d.Concurrency > 0 {
		f.concurrency = d.Concurrency
	}
	if !changed("bounding-boxes") {
		f.boundingBoxes = d.BoundingBoxes
	}
	if !changed("system-prompt") && !changed("system-prompt-file") {
		f.systemPrompt = d.SystemPrompt
	}
	if !changed("output-dir") {
		f.outputDir = d.OutputDir
	}
	if !changed("temp-dir") {
		f.tempDir = d.TempDir
	}
	if !changed("keep-images") {
		f.keepImages = !d.Cleanup
	}
	if !changed("abort-on-error") {
		f.abortOnError = d.FailurePolicy == pipeline.FailurePolicyAbort.String()
	}
	if !changed("dpi") && d.DPI > 0 {
		f.dpi = d.DPI
	}
}

// request builds a conversion request for one source.
func (f *convertFlags) request(source string) (convert.Request, error) {
	pages, err := rasterize.ParsePageSelection(f.pages)
	if err != nil {
		return convert.Request{}, err
	}

	prompt := f.systemPrompt
	if f.systemPromptFile != "" {
		data, err := os.ReadFile(f.systemPromptFile)
		if err != nil {
			return convert.Request{}, fmt.Errorf("failed to read system prompt: %w", err)
		}
		prompt = string(data)
	}

	policy := pipeline.FailurePolicyContinue
	if f.abortOnError {
		policy = pipeline.FailurePolicyAbort
	}

	return convert.Request{
		Source:         source,
		MaintainFormat: f.maintainFormat,
		Concurrency:    f.concurrency,
		SelectPages:    pages,
		BoundingBoxes:  f.boundingBoxes,
		SystemPrompt:   prompt,
		OutputDir:      f.outputDir,
		TempDir:        f.tempDir,
		Cleanup:        !f.keepImages,
		FailurePolicy:  policy,
	}, nil
}

// openRecorder returns the call log recorder when tracing, otherwise nil.
func (f *convertFlags) openRecorder(h *home.Dir) (*llmcall.Recorder, error) {
	if !f.trace {
		return nil, nil
	}
	return llmcall.NewRecorder(llmcall.RecorderConfig{Path: h.CallLogPath()})
}

// converterInput is everything needed to build a Converter for one provider.
type converterInput struct {
	Config    *config.Config
	Home      *home.Dir
	Provider  string
	Model     string
	Transport providers.Transport // Built from config when nil
	Recorder  *llmcall.Recorder
	DPI       int
}

func buildConverter(cmd *cobra.Command, in converterInput) (*convert.Converter, error) {
	name, pcfg, err := in.Config.Provider(in.Provider)
	if err != nil {
		return nil, err
	}
	if in.Model != "" {
		pcfg.Model = in.Model
	}

	transport := in.Transport
	if transport == nil {
		transport, err = providers.NewTransport(pcfg.ToProviderConfig())
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
	}

	logger := slog.Default().With("provider", name)
	return convert.New(cmd.Context(), convert.Config{
		Transport:   transport,
		Model:       pcfg.Model,
		Options:     pcfg.Options,
		RequiredEnv: pcfg.RequiredEnv(),
		Vision:      pcfg.Vision,
		Rasterizer:  rasterize.New(rasterize.Config{DPI: in.DPI, Logger: logger}),
		Recorder:    in.Recorder,
		WorkDir:     in.Home.WorkPath(),
		Logger:      logger,
	})
}

func newConvertCmd() *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "convert <file-or-url>",
		Short: "Convert a PDF to markdown",
		Long: `Convert renders each page of a PDF, asks the configured vision model to
transcribe it, and writes <name>.md to the output directory.

With --maintain-format pages are converted one at a time and each page's
markdown is passed to the next so tables and lists continue consistently.
Otherwise pages are converted concurrently.

Examples:
  pagemark convert report.pdf
  pagemark convert https://example.com/paper.pdf --provider openrouter
  pagemark convert book.pdf --maintain-format --pages 1-20 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, h, err := loadConfig()
			if err != nil {
				return err
			}
			cfg := mgr.Get()
			flags.applyDefaults(cmd, cfg.Defaults)

			req, err := flags.request(args[0])
			if err != nil {
				return usageError(err)
			}
			if err := h.EnsureExists(); err != nil {
				return err
			}

			recorder, err := flags.openRecorder(h)
			if err != nil {
				return err
			}
			defer recorder.Close()

			conv, err := buildConverter(cmd, converterInput{
				Config:   cfg,
				Home:     h,
				Provider: flags.provider,
				Model:    flags.model,
				Recorder: recorder,
				DPI:      flags.dpi,
			})
			if err != nil {
				return err
			}

			out, err := conv.Convert(cmd.Context(), req)
			var partial *pipeline.PartialFailureError
			if err != nil && !errors.As(err, &partial) {
				return err
			}
			if werr := output.Write(out); werr != nil {
				return werr
			}
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

func init() {
	rootCmd.AddCommand(newConvertCmd())
}
