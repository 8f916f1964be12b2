package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pagemark/internal/config"
	"github.com/jackzampolin/pagemark/internal/home"
	"github.com/jackzampolin/pagemark/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pagemark configuration",
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file to the home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := home.New(homeDir)
			if err != nil {
				return err
			}
			if err := h.EnsureExists(); err != nil {
				return err
			}

			path := h.ConfigPath()
			if cfgFile != "" {
				path = cfgFile
			}
			if _, err := os.Stat(path); err == nil && !force {
				return usageError(fmt.Errorf("config file %s already exists (use --force to overwrite)", path))
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := loadConfig()
		if err != nil {
			return err
		}
		return output.Write(mgr.Get())
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Long: `Print the effective value of a dotted config key, for example
defaults.concurrency or providers.openai.model.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := loadConfig()
		if err != nil {
			return err
		}
		v, err := mgr.Value(args[0])
		if err != nil {
			return err
		}
		return output.Write(map[string]any{args[0]: v})
	},
}

func init() {
	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}
