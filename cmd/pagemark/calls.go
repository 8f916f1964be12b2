package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pagemark/internal/home"
	"github.com/jackzampolin/pagemark/internal/llmcall"
	"github.com/jackzampolin/pagemark/internal/output"
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Inspect recorded completion calls",
	Long: `Calls reads the call log written by convert --trace
(~/.pagemark/calls.jsonl by default).`,
}

func callStore() (*llmcall.Store, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	return llmcall.NewStore(h.CallLogPath()), nil
}

func newCallsListCmd() *cobra.Command {
	var (
		filter  llmcall.QueryFilter
		since   time.Duration
		failed  bool
		success bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded calls, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if failed && success {
				return usageError(fmt.Errorf("--failed and --success are mutually exclusive"))
			}
			if failed || success {
				filter.Success = &success
			}
			if since > 0 {
				after := time.Now().Add(-since)
				filter.After = &after
			}

			store, err := callStore()
			if err != nil {
				return err
			}
			calls, err := store.List(filter)
			if err != nil {
				return err
			}
			return output.Write(calls)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&filter.RunID, "run", "", "only calls from this run ID")
	fs.StringVar(&filter.Document, "document", "", "only calls for this document name")
	fs.StringVar(&filter.PromptKey, "prompt", "", "only calls with this prompt key")
	fs.StringVar(&filter.Provider, "provider", "", "only calls to this provider")
	fs.StringVar(&filter.Model, "model", "", "only calls to this model")
	fs.DurationVar(&since, "since", 0, "only calls newer than this, e.g. 1h")
	fs.BoolVar(&failed, "failed", false, "only failed calls")
	fs.BoolVar(&success, "success", false, "only successful calls")
	fs.IntVar(&filter.Limit, "limit", 50, "maximum calls to list (0 for all)")
	fs.IntVar(&filter.Offset, "offset", 0, "calls to skip")
	return cmd
}

var callsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one recorded call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := callStore()
		if err != nil {
			return err
		}
		call, err := store.Get(args[0])
		if err != nil {
			return err
		}
		if call == nil {
			return fmt.Errorf("call %s not found", args[0])
		}
		return output.Write(call)
	},
}

func newCallsStatsCmd() *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count recorded calls per prompt key",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := callStore()
			if err != nil {
				return err
			}
			counts, err := store.CountByPromptKey(runID)
			if err != nil {
				return err
			}
			return output.Write(counts)
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "only count calls from this run ID")
	return cmd
}

func init() {
	callsCmd.AddCommand(newCallsListCmd())
	callsCmd.AddCommand(callsGetCmd)
	callsCmd.AddCommand(newCallsStatsCmd())
	rootCmd.AddCommand(callsCmd)
}
