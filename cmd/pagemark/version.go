package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pagemark/internal/output"
	"github.com/jackzampolin/pagemark/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("output") {
			return output.Write(version.Get())
		}
		fmt.Printf("pagemark %s\n", version.GitRelease)
		fmt.Printf("  Go:     %s\n", version.GoInfo)
		fmt.Printf("  Commit: %s\n", version.GitCommit)
		fmt.Printf("  Date:   %s\n", version.GitCommitDate)
		return nil
	},
}
