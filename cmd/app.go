package cmd

import (
	"io"
	"net/http"

	"github.com/Layr-Labs/codehash/internal/config"
	"github.com/Layr-Labs/codehash/internal/logger"
	"github.com/Layr-Labs/codehash/internal/metrics"
	"github.com/Layr-Labs/codehash/pkg/artifact"
	"github.com/Layr-Labs/codehash/pkg/cast"
	"github.com/Layr-Labs/codehash/pkg/clients/ethereum"
	"github.com/Layr-Labs/codehash/pkg/codeFetcher"
	"github.com/Layr-Labs/codehash/pkg/codeFetcher/castCodeFetcher"
	"github.com/Layr-Labs/codehash/pkg/codeFetcher/ethclientCodeFetcher"
	"github.com/Layr-Labs/codehash/pkg/codeFetcher/rpcCodeFetcher"
	"github.com/Layr-Labs/codehash/pkg/hasher"
	"github.com/Layr-Labs/codehash/pkg/hasher/castHasher"
	"github.com/Layr-Labs/codehash/pkg/reporter"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// app holds everything a command needs to run the pipeline once.
type app struct {
	logger   *zap.Logger
	sink     *metrics.MetricsSink
	reporter *reporter.Reporter
	closers  []func()
}

func newApp(cfg *config.Config, stderr io.Writer) (*app, error) {
	runId := uuid.New().String()

	l, err := logger.NewLogger(&logger.LoggerConfig{
		Debug: cfg.Debug,
		File:  cfg.LogConfig.File,
	}, zap.Fields(zap.String("runId", runId)))
	if err != nil {
		return nil, reporter.NewConfigError(errors.Wrap(err, "failed to create logger"))
	}

	a := &app{logger: l}

	clients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
	if err != nil {
		l.Sugar().Errorw("Failed to setup metrics sink", zap.Error(err))
		return nil, reporter.NewConfigError(err)
	}
	a.sink, err = metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, clients)
	if err != nil {
		return nil, reporter.NewConfigError(err)
	}

	var runner *cast.Runner
	if cfg.FetcherConfig.Backend == config.FetcherBackend_Cast || cfg.HashConfig.Algorithm == castHasher.Name {
		runner, err = cast.NewRunner(cfg.FetcherConfig.CastPath, l)
		if err != nil {
			l.Sugar().Errorw("Failed to find cast", zap.Error(err))
			return nil, reporter.NewConfigError(err)
		}
	}

	f, err := a.newCodeFetcher(cfg, runner)
	if err != nil {
		return nil, reporter.NewConfigError(err)
	}

	h, err := newHasher(cfg, runner)
	if err != nil {
		return nil, reporter.NewConfigError(err)
	}

	store := artifact.NewStore(afero.NewOsFs(), cfg.OutputConfig.File)

	rcfg := reporter.ReporterConfigFromConfig(cfg)
	if cfg.CompareConfig.Progress {
		rcfg.Progress = stderr
	}
	a.reporter = reporter.NewReporter(f, h, store, a.sink, l, rcfg)

	l.Sugar().Debugw("Created reporter",
		zap.String("backend", string(cfg.FetcherConfig.Backend)),
		zap.String("algorithm", h.Name()),
		zap.String("artifact", store.Path()),
	)
	return a, nil
}

func (a *app) newCodeFetcher(cfg *config.Config, runner *cast.Runner) (codeFetcher.CodeFetcher, error) {
	switch cfg.FetcherConfig.Backend {
	case config.FetcherBackend_Rpc:
		client := ethereum.NewClient(&ethereum.EthereumClientConfig{
			BaseUrl: cfg.EthereumRpcConfig.RpcUrl,
			Timeout: cfg.EthereumRpcConfig.Timeout,
		}, a.logger)
		return rpcCodeFetcher.NewRpcCodeFetcher(client, cfg.EthereumRpcConfig.BlockTag, a.logger), nil
	case config.FetcherBackend_Ethclient:
		f, err := ethclientCodeFetcher.NewEthclientCodeFetcher(&ethclientCodeFetcher.EthclientCodeFetcherConfig{
			Url:        cfg.EthereumRpcConfig.RpcUrl,
			BlockTag:   cfg.EthereumRpcConfig.BlockTag,
			HttpClient: &http.Client{Timeout: cfg.EthereumRpcConfig.Timeout},
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, f.Close)
		return f, nil
	case config.FetcherBackend_Cast:
		return castCodeFetcher.NewCastCodeFetcher(runner, cfg.EthereumRpcConfig.RpcUrl, cfg.EthereumRpcConfig.BlockTag, a.logger), nil
	default:
		return nil, errors.Errorf("unsupported %s '%s'", config.FetcherBackendKey, cfg.FetcherConfig.Backend)
	}
}

func newHasher(cfg *config.Config, runner *cast.Runner) (hasher.Hasher, error) {
	if cfg.HashConfig.Algorithm == castHasher.Name {
		return castHasher.NewCastHasher(runner), nil
	}
	return hasher.NewHasher(cfg.HashConfig.Algorithm)
}

// close releases connections and flushes metrics. It runs after the report
// has been written, so failures here only get logged.
func (a *app) close() {
	for _, c := range a.closers {
		c()
	}
	if err := a.sink.Flush(); err != nil {
		a.logger.Sugar().Warnw("Failed to flush metrics", zap.Error(err))
	}
	_ = a.logger.Sync()
}
