package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/logger"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the verdict version",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "verdict %s\n", logger.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
