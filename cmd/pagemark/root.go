package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/jackzampolin/pagemark/internal/config"
	"github.com/jackzampolin/pagemark/internal/home"
	"github.com/jackzampolin/pagemark/internal/output"
	"github.com/jackzampolin/pagemark/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "pagemark",
	Short: "Convert PDFs to markdown with vision LLMs",
	Long: `Pagemark converts PDF documents to markdown by rendering each page to an
image and asking a vision-capable LLM to transcribe it.

Features:
  - OpenAI, OpenRouter, Anthropic and DeepInfra providers
  - Format continuity across pages (--maintain-format)
  - Concurrent page conversion with bounded parallelism
  - Hot folder mode that converts PDFs as they arrive`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pagemark/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "pagemark home directory (default: ~/.pagemark)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml, json or markdown",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	// Set output format and logging before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(outputFormat)
		if err != nil {
			return usageError(err)
		}
		output.SetFormat(format)

		logger, err := newLogger(logLevel)
		if err != nil {
			return usageError(err)
		}
		slog.SetDefault(logger)

		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}))
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the stderr text logger for the given level.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// loadConfig resolves the home directory and loads configuration from
// --config, ./config.yaml or the home directory.
func loadConfig() (*config.Manager, *home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, nil, usageError(err)
	}
	return mgr, h, nil
}
