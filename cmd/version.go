package cmd

import (
	"fmt"

	"github.com/Layr-Labs/codehash/internal/version"
	"github.com/spf13/cobra"
)

var runVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version of codehash",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v := version.GetVersion()
		commit := version.GetCommit()

		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\nCommit: %s\n", v, commit)
	},
}
