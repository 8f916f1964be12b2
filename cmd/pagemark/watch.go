package main

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pagemark/internal/config"
	"github.com/jackzampolin/pagemark/internal/pipeline"
	"github.com/jackzampolin/pagemark/internal/providers"
	"github.com/jackzampolin/pagemark/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var (
		flags    convertFlags
		existing bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Convert PDFs as they appear in a directory",
		Long: `Watch monitors a directory and converts each PDF that is created or
written there, one document at a time, once it has stopped changing.

The config file is reloaded when it changes; provider settings and
defaults from the new config apply to the next document.

Examples:
  pagemark watch ./inbox --output-dir ./markdown
  pagemark watch ./inbox --existing --maintain-format`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, h, err := loadConfig()
			if err != nil {
				return err
			}
			if err := h.EnsureExists(); err != nil {
				return err
			}
			logger := slog.Default()

			var current atomic.Pointer[config.Config]
			current.Store(mgr.Get())

			registry := providers.NewRegistry()
			registry.SetLogger(logger)
			registry.Reload(mgr.Get().ToProviderRegistryConfig())

			mgr.OnChange(func(cfg *config.Config) {
				current.Store(cfg)
				registry.Reload(cfg.ToProviderRegistryConfig())
				logger.Info("config reloaded", "file", mgr.File())
			})
			mgr.OnError(func(err error) {
				logger.Error("config reload failed, keeping previous config", "error", err)
			})
			if mgr.File() != "" {
				mgr.WatchConfig()
			}

			recorder, err := flags.openRecorder(h)
			if err != nil {
				return err
			}
			defer recorder.Close()

			handle := func(ctx context.Context, path string) error {
				cfg := current.Load()
				docFlags := flags
				docFlags.applyDefaults(cmd, cfg.Defaults)

				req, err := docFlags.request(path)
				if err != nil {
					return err
				}

				name, _, err := cfg.Provider(docFlags.provider)
				if err != nil {
					return err
				}
				// Fall back to building from config so pre-flight reports
				// missing credentials for providers the registry skipped.
				transport, _ := registry.Get(name)

				conv, err := buildConverter(cmd, converterInput{
					Config:    cfg,
					Home:      h,
					Provider:  name,
					Model:     docFlags.model,
					Transport: transport,
					Recorder:  recorder,
					DPI:       docFlags.dpi,
				})
				if err != nil {
					return err
				}

				out, err := conv.Convert(ctx, req)
				var partial *pipeline.PartialFailureError
				if err != nil && !errors.As(err, &partial) {
					return err
				}
				logger.Info("converted document",
					"source", path,
					"output", out.OutputPath,
					"pages", len(out.Pages),
					"failed", len(out.Failed),
				)
				return nil
			}

			w, err := watch.New(watch.Config{
				Dir:      args[0],
				Debounce: debounce,
				Existing: existing,
				Logger:   logger,
			}, handle)
			if err != nil {
				return err
			}
			return w.Run(cmd.Context())
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&existing, "existing", false, "also convert PDFs already in the directory")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "how long a file must stop changing before conversion")
	return cmd
}

func init() {
	rootCmd.AddCommand(newWatchCmd())
}
