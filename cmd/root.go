package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Layr-Labs/codehash/internal/config"
	"github.com/Layr-Labs/codehash/pkg/hasher"
	"github.com/Layr-Labs/codehash/pkg/reporter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFileFlag = "config"

var rootCmd = &cobra.Command{
	Use:   "codehash [address]",
	Short: "Report the code hash of a contract deployed at an address",
	Long: `Fetches the bytecode deployed at an address through a JSON-RPC endpoint, hashes it,
writes the digest to a transient file and prints the address, the endpoint and the digest.

The address and endpoint are read from CODEHASH_ADDRESS / CODEHASH_ETHEREUM_RPC_URL,
or from DEFAULTADDRESS / RPCURL.`,
	Args:              configArgs(cobra.MaximumNArgs(1)),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: readConfigFile,
	RunE:              runReport,
}

// Main runs the root command and returns the process exit code.
func Main() int {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return reporter.ExitCode(err)
}

func Execute() {
	os.Exit(Main())
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().String(configFileFlag, "", `Path to a yaml, toml or json config file`)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)
	rootCmd.PersistentFlags().StringP(config.Address, "a", "", `Contract address, e.g. "0x7750d328b314effa365a0402ccfd489b80b0adda"`)

	rootCmd.PersistentFlags().String(config.EthereumRpcUrl, "", `e.g. "http://<hostname>:8545"`)
	rootCmd.PersistentFlags().String(config.EthereumRpcBlockTag, "latest", `Block to read the code at: latest, safe, finalized, pending, earliest or a hex number`)
	rootCmd.PersistentFlags().Duration(config.EthereumRpcTimeout, time.Second*10, `Timeout for a single JSON-RPC request`)

	rootCmd.PersistentFlags().String(config.FetcherBackendKey, string(config.FetcherBackend_Rpc), `How to fetch the code: rpc, ethclient or cast`)
	rootCmd.PersistentFlags().String(config.CastPath, "cast", `Path to Foundry's cast binary`)

	rootCmd.PersistentFlags().String(config.HashAlgorithm, hasher.Algorithm_Keccak256, fmt.Sprintf(`Digest algorithm: %s or cast`, strings.Join(hasher.Algorithms(), ", ")))

	rootCmd.PersistentFlags().String(config.OutputFile, "codehash.txt", `File the digest is written to, empty to disable`)
	rootCmd.PersistentFlags().StringP(config.OutputFormatKey, "o", string(config.OutputFormat_Text), `Report format: text, json or csv`)
	rootCmd.PersistentFlags().Bool(config.OutputVerify, false, `Read the digest file back after writing it`)
	rootCmd.PersistentFlags().Bool(config.OutputMetadata, false, `Decode the solc metadata trailer of the code`)

	rootCmd.PersistentFlags().String(config.LogFile, "", `Also write JSON logs to this file`)

	rootCmd.PersistentFlags().Bool(config.DataDogStatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.DataDogStatsdUrl, "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Float64(config.DataDogStatsdSampleRate, 1.0, `The sample rate to use for statsd metrics`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.PrometheusTextfile, "", `node-exporter textfile the metrics are written to on exit`)

	// setup sub commands
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(runVersionCmd)

	// bind any subcommand flags
	compareCmd.PersistentFlags().Float64(config.CompareRateLimit, 0, `Maximum fetches per second, 0 for unlimited`)
	compareCmd.PersistentFlags().Bool(config.CompareFailOnMismatch, false, `Exit non-zero when the code hashes differ`)
	compareCmd.PersistentFlags().Bool(config.CompareProgress, false, `Show a progress bar on stderr`)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return reporter.NewConfigError(err)
	})

	bindFlags(rootCmd.PersistentFlags())
	bindFlags(compareCmd.PersistentFlags())
}

// configArgs reports positional argument problems as configuration errors.
func configArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return reporter.NewConfigError(err)
		}
		return nil
	}
}

func bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == configFileFlag {
			return
		}
		key := config.KebabToSnakeCase(f.Name)
		names := append([]string{key}, config.EnvNames(f.Name)...)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(names...) //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}

func readConfigFile(cmd *cobra.Command, args []string) error {
	path, err := cmd.Flags().GetString(configFileFlag)
	if err != nil || path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return reporter.NewConfigError(errors.Wrapf(err, "failed to read config file '%s'", path))
	}
	return nil
}
