package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "CODEHASH"

type FetcherBackend string

const (
	FetcherBackend_Rpc       FetcherBackend = "rpc"
	FetcherBackend_Ethclient FetcherBackend = "ethclient"
	FetcherBackend_Cast      FetcherBackend = "cast"
)

type OutputFormat string

const (
	OutputFormat_Text OutputFormat = "text"
	OutputFormat_Json OutputFormat = "json"
	OutputFormat_Csv  OutputFormat = "csv"
)

var (
	ErrMissingAddress  = errors.New("address is required")
	ErrMissingEndpoint = errors.New("rpc url is required")
)

type Config struct {
	Debug             bool
	Address           string
	EthereumRpcConfig EthereumRpcConfig
	FetcherConfig     FetcherConfig
	HashConfig        HashConfig
	OutputConfig      OutputConfig
	CompareConfig     CompareConfig
	LogConfig         LogConfig
	DataDogConfig     DataDogConfig
	PrometheusConfig  PrometheusConfig
}

type EthereumRpcConfig struct {
	RpcUrl   string
	BlockTag string
	Timeout  time.Duration
}

type FetcherConfig struct {
	Backend  FetcherBackend
	CastPath string
}

type HashConfig struct {
	Algorithm string
}

type OutputConfig struct {
	File     string
	Format   OutputFormat
	Verify   bool
	Metadata bool
}

type CompareConfig struct {
	// requests per second, 0 disables pacing
	RateLimit      float64
	FailOnMismatch bool
	Progress       bool
}

type LogConfig struct {
	File string
}

type DataDogConfig struct {
	StatsdConfig StatsdConfig
}

type StatsdConfig struct {
	Enabled    bool
	Url        string
	SampleRate float64
}

type PrometheusConfig struct {
	Enabled  bool
	Textfile string
}

const (
	Debug = "debug"

	Address = "address"

	EthereumRpcUrl      = "ethereum.rpc-url"
	EthereumRpcBlockTag = "ethereum.block-tag"
	EthereumRpcTimeout  = "ethereum.timeout"

	FetcherBackendKey = "fetcher.backend"
	CastPath          = "cast.path"

	HashAlgorithm = "hash.algorithm"

	OutputFile      = "output.file"
	OutputFormatKey = "output.format"
	OutputVerify    = "output.verify"
	OutputMetadata  = "output.metadata"

	CompareRateLimit      = "compare.rate-limit"
	CompareFailOnMismatch = "compare.fail-on-mismatch"
	CompareProgress       = "compare.progress"

	LogFile = "log.file"

	DataDogStatsdEnabled    = "datadog.statsd.enabled"
	DataDogStatsdUrl        = "datadog.statsd.url"
	DataDogStatsdSampleRate = "datadog.statsd.sample-rate"

	PrometheusEnabled  = "prometheus.enabled"
	PrometheusTextfile = "prometheus.textfile"
)

// legacyEnvNames are unprefixed variables still exported by existing deploy scripts.
var legacyEnvNames = map[string][]string{
	Address:        {"DEFAULTADDRESS"},
	EthereumRpcUrl: {"RPCURL"},
}

func NewConfig() *Config {
	return &Config{
		Debug:   viper.GetBool(normalizeFlagName(Debug)),
		Address: strings.TrimSpace(viper.GetString(normalizeFlagName(Address))),

		EthereumRpcConfig: EthereumRpcConfig{
			RpcUrl:   strings.TrimSpace(viper.GetString(normalizeFlagName(EthereumRpcUrl))),
			BlockTag: viper.GetString(normalizeFlagName(EthereumRpcBlockTag)),
			Timeout:  viper.GetDuration(normalizeFlagName(EthereumRpcTimeout)),
		},

		FetcherConfig: FetcherConfig{
			Backend:  FetcherBackend(strings.ToLower(viper.GetString(normalizeFlagName(FetcherBackendKey)))),
			CastPath: viper.GetString(normalizeFlagName(CastPath)),
		},

		HashConfig: HashConfig{
			Algorithm: strings.ToLower(viper.GetString(normalizeFlagName(HashAlgorithm))),
		},

		OutputConfig: OutputConfig{
			File:     viper.GetString(normalizeFlagName(OutputFile)),
			Format:   OutputFormat(strings.ToLower(viper.GetString(normalizeFlagName(OutputFormatKey)))),
			Verify:   viper.GetBool(normalizeFlagName(OutputVerify)),
			Metadata: viper.GetBool(normalizeFlagName(OutputMetadata)),
		},

		CompareConfig: CompareConfig{
			RateLimit:      viper.GetFloat64(normalizeFlagName(CompareRateLimit)),
			FailOnMismatch: viper.GetBool(normalizeFlagName(CompareFailOnMismatch)),
			Progress:       viper.GetBool(normalizeFlagName(CompareProgress)),
		},

		LogConfig: LogConfig{
			File: viper.GetString(normalizeFlagName(LogFile)),
		},

		DataDogConfig: DataDogConfig{
			StatsdConfig: StatsdConfig{
				Enabled:    viper.GetBool(normalizeFlagName(DataDogStatsdEnabled)),
				Url:        viper.GetString(normalizeFlagName(DataDogStatsdUrl)),
				SampleRate: viper.GetFloat64(normalizeFlagName(DataDogStatsdSampleRate)),
			},
		},

		PrometheusConfig: PrometheusConfig{
			Enabled:  viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			Textfile: viper.GetString(normalizeFlagName(PrometheusTextfile)),
		},
	}
}

// Validate checks everything needed before the first external call is made.
func (c *Config) Validate() error {
	if err := c.ValidateAddress(c.Address); err != nil {
		return err
	}
	return c.ValidateSettings()
}

// ValidateSettings checks everything except the target address.
func (c *Config) ValidateSettings() error {
	if err := c.ValidateEndpoint(); err != nil {
		return err
	}
	if c.EthereumRpcConfig.Timeout <= 0 {
		return errors.Errorf("%s must be positive, got %s", EthereumRpcTimeout, c.EthereumRpcConfig.Timeout)
	}
	if !isValidBlockTag(c.EthereumRpcConfig.BlockTag) {
		return errors.Errorf("invalid %s '%s'", EthereumRpcBlockTag, c.EthereumRpcConfig.BlockTag)
	}
	if c.FetcherConfig.Backend == FetcherBackend_Cast && c.FetcherConfig.CastPath == "" {
		return errors.Errorf("%s is required for the cast backend", CastPath)
	}
	if !slices.Contains([]OutputFormat{OutputFormat_Text, OutputFormat_Json, OutputFormat_Csv}, c.OutputConfig.Format) {
		return errors.Errorf("unsupported %s '%s'", OutputFormatKey, c.OutputConfig.Format)
	}
	if c.CompareConfig.RateLimit < 0 {
		return errors.Errorf("%s must not be negative", CompareRateLimit)
	}
	if c.DataDogConfig.StatsdConfig.Enabled && c.DataDogConfig.StatsdConfig.Url == "" {
		return errors.Errorf("%s is required when statsd is enabled", DataDogStatsdUrl)
	}
	if c.PrometheusConfig.Enabled && c.PrometheusConfig.Textfile == "" {
		return errors.Errorf("%s is required when prometheus is enabled", PrometheusTextfile)
	}
	return nil
}

func (c *Config) ValidateAddress(address string) error {
	if address == "" {
		return ErrMissingAddress
	}
	if !common.IsHexAddress(address) {
		return errors.Errorf("invalid address '%s'", address)
	}
	return nil
}

func (c *Config) ValidateEndpoint() error {
	endpoint := c.EthereumRpcConfig.RpcUrl
	if endpoint == "" {
		return ErrMissingEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return errors.Wrapf(err, "invalid rpc url '%s'", endpoint)
	}
	if u.Host == "" {
		return errors.Errorf("rpc url '%s' has no host", endpoint)
	}

	var schemes []string
	switch c.FetcherConfig.Backend {
	case FetcherBackend_Rpc:
		schemes = []string{"http", "https"}
	case FetcherBackend_Ethclient, FetcherBackend_Cast:
		schemes = []string{"http", "https", "ws", "wss"}
	default:
		return errors.Errorf("unsupported %s '%s'", FetcherBackendKey, c.FetcherConfig.Backend)
	}
	if !slices.Contains(schemes, strings.ToLower(u.Scheme)) {
		return errors.Errorf("rpc url scheme '%s' is not supported by the %s backend", u.Scheme, c.FetcherConfig.Backend)
	}
	return nil
}

var blockNumberRegex = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)

func isValidBlockTag(tag string) bool {
	switch tag {
	case "latest", "earliest", "pending", "safe", "finalized":
		return true
	}
	return blockNumberRegex.MatchString(tag)
}

// EnvNames returns the environment variables bound to a config key, the
// prefixed one first.
func EnvNames(key string) []string {
	r := strings.NewReplacer("-", "_", ".", "_")
	names := []string{fmt.Sprintf("%s_%s", ENV_PREFIX, strings.ToUpper(r.Replace(key)))}
	return append(names, legacyEnvNames[key]...)
}

func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

func normalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}
