package cmd

import (
	"strings"

	"github.com/Layr-Labs/codehash/internal/config"
	"github.com/Layr-Labs/codehash/internal/shutdown"
	"github.com/Layr-Labs/codehash/pkg/reporter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var compareCmd = &cobra.Command{
	Use:   "compare <address> <address> [address...]",
	Short: "Check whether several addresses run identical code",
	Args:  configArgs(cobra.MinimumNArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.NewConfig()

		addresses := make([]string, 0, len(args))
		for _, arg := range args {
			address := strings.TrimSpace(arg)
			if err := cfg.ValidateAddress(address); err != nil {
				return reporter.NewConfigError(err)
			}
			addresses = append(addresses, address)
		}
		if err := cfg.ValidateSettings(); err != nil {
			return reporter.NewConfigError(err)
		}

		a, err := newApp(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.close()

		if dupes := reporter.DuplicateAddresses(addresses); len(dupes) > 0 {
			a.logger.Sugar().Warnw("Address given more than once", zap.Strings("addresses", dupes))
		}

		ctx, stop := shutdown.ContextWithShutdown(cmd.Context(), shutdown.CreateGracefulShutdownChannel(), a.logger)
		defer stop()

		_, err = a.reporter.Compare(ctx, cmd.OutOrStdout(), addresses...)
		return err
	},
}
