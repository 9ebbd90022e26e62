package cmd

import (
	"strings"

	"github.com/Layr-Labs/codehash/internal/config"
	"github.com/Layr-Labs/codehash/internal/shutdown"
	"github.com/Layr-Labs/codehash/pkg/reporter"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [address]",
	Short: "Fetch, hash and persist the code hash of an address (default command)",
	Args:  configArgs(cobra.MaximumNArgs(1)),
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	if len(args) == 1 {
		cfg.Address = strings.TrimSpace(args[0])
	}

	// Nothing external is touched until the whole config checks out.
	if err := cfg.Validate(); err != nil {
		return reporter.NewConfigError(err)
	}

	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := shutdown.ContextWithShutdown(cmd.Context(), shutdown.CreateGracefulShutdownChannel(), a.logger)
	defer stop()

	_, err = a.reporter.Report(ctx, cmd.OutOrStdout(), cfg.Address)
	return err
}
