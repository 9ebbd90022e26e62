package reporter

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/Layr-Labs/codehash/internal/config"
	"github.com/Layr-Labs/codehash/internal/metrics"
	"github.com/Layr-Labs/codehash/internal/metrics/metricsTypes"
	"github.com/Layr-Labs/codehash/pkg/artifact"
	"github.com/Layr-Labs/codehash/pkg/bytecode"
	"github.com/Layr-Labs/codehash/pkg/codeFetcher"
	"github.com/Layr-Labs/codehash/pkg/hasher"
	"github.com/Layr-Labs/codehash/pkg/utils"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type ReporterConfig struct {
	Format config.OutputFormat
	// Verify reads the artifact back after writing it.
	Verify bool
	// Metadata adds the decoded solc metadata trailer to reports.
	Metadata bool
	// RateLimit paces fetches in Compare, in requests per second. 0 disables it.
	RateLimit      float64
	FailOnMismatch bool
	// Progress, when set, receives a progress bar while Compare runs.
	Progress io.Writer
}

func ReporterConfigFromConfig(cfg *config.Config) *ReporterConfig {
	return &ReporterConfig{
		Format:         cfg.OutputConfig.Format,
		Verify:         cfg.OutputConfig.Verify,
		Metadata:       cfg.OutputConfig.Metadata,
		RateLimit:      cfg.CompareConfig.RateLimit,
		FailOnMismatch: cfg.CompareConfig.FailOnMismatch,
	}
}

type Result struct {
	Command      string             `json:"command"`
	Address      string             `json:"address"`
	Endpoint     string             `json:"rpc"`
	Algorithm    string             `json:"algorithm"`
	CodeHash     string             `json:"codeHash"`
	CodeSize     int                `json:"codeSize"`
	ArtifactPath string             `json:"artifact,omitempty"`
	Metadata     *bytecode.Metadata `json:"metadata,omitempty"`
}

type ComparisonResult struct {
	Endpoint  string    `json:"rpc"`
	Algorithm string    `json:"algorithm"`
	Results   []*Result `json:"results"`
	Identical bool      `json:"identical"`

	// Groups maps each distinct code hash to its addresses, in the order the
	// hashes were first seen.
	Groups *orderedmap.OrderedMap[string, []string] `json:"groups"`
}

// Reporter runs fetch -> hash -> persist -> report, one step after the
// other, stopping at the first failure.
type Reporter struct {
	fetcher codeFetcher.CodeFetcher
	hasher  hasher.Hasher
	store   *artifact.Store
	sink    *metrics.MetricsSink
	logger  *zap.Logger
	config  *ReporterConfig
	limiter *rate.Limiter
}

func NewReporter(
	f codeFetcher.CodeFetcher,
	h hasher.Hasher,
	store *artifact.Store,
	sink *metrics.MetricsSink,
	l *zap.Logger,
	cfg *ReporterConfig,
) *Reporter {
	if sink == nil {
		sink = metrics.NewNoOpMetricsSink()
	}
	r := &Reporter{
		fetcher: f,
		hasher:  h,
		store:   store,
		sink:    sink,
		logger:  l,
		config:  cfg,
	}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return r
}

func (r *Reporter) fail(step Step, err error) error {
	r.logger.Sugar().Errorw("Step failed",
		zap.String("step", string(step)),
		zap.Error(err),
	)
	if mErr := r.sink.Incr(metricsTypes.Metric_Incr_StepFailure, []metricsTypes.MetricsLabel{
		{Name: metricsTypes.Label_Step, Value: string(step)},
	}, 1); mErr != nil {
		r.logger.Sugar().Warnw("Failed to record metric", zap.Error(mErr))
	}
	return newStepError(step, err)
}

func (r *Reporter) observe(step Step, start time.Time) {
	if err := r.sink.Timing(metricsTypes.Metric_Timing_StepDuration, time.Since(start), []metricsTypes.MetricsLabel{
		{Name: metricsTypes.Label_Step, Value: string(step)},
	}); err != nil {
		r.logger.Sugar().Warnw("Failed to record metric", zap.Error(err))
	}
}

func (r *Reporter) recordRun(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	if mErr := r.sink.Incr(metricsTypes.Metric_Incr_Run, []metricsTypes.MetricsLabel{
		{Name: metricsTypes.Label_Status, Value: status},
		{Name: metricsTypes.Label_Algorithm, Value: r.hasher.Name()},
	}, 1); mErr != nil {
		r.logger.Sugar().Warnw("Failed to record metric", zap.Error(mErr))
	}
}

func (r *Reporter) validate(address string) error {
	if strings.TrimSpace(address) == "" {
		return r.fail(Step_Config, config.ErrMissingAddress)
	}
	if strings.TrimSpace(r.fetcher.Endpoint()) == "" {
		return r.fail(Step_Config, config.ErrMissingEndpoint)
	}
	return nil
}

// compute fetches and hashes the code at address.
func (r *Reporter) compute(ctx context.Context, address string) (bytecode.Code, hasher.Digest, error) {
	start := time.Now()
	code, err := r.fetcher.GetCode(ctx, address)
	r.observe(Step_Fetch, start)
	if err != nil {
		return nil, nil, r.fail(Step_Fetch, err)
	}
	if len(code) == 0 {
		return nil, nil, r.fail(Step_Fetch, errors.Wrapf(codeFetcher.ErrNoCode, "%s", address))
	}
	if err := r.sink.Gauge(metricsTypes.Metric_Gauge_BytecodeBytes, float64(code.Len()), nil); err != nil {
		r.logger.Sugar().Warnw("Failed to record metric", zap.Error(err))
	}

	start = time.Now()
	digest, err := r.hasher.Hash(ctx, code)
	r.observe(Step_Hash, start)
	if err != nil {
		return nil, nil, r.fail(Step_Hash, err)
	}
	if len(digest) != r.hasher.Size() {
		return nil, nil, r.fail(Step_Hash, errors.Errorf("%s digest is %d bytes, expected %d", r.hasher.Name(), len(digest), r.hasher.Size()))
	}
	return code, digest, nil
}

func (r *Reporter) newResult(address string, code bytecode.Code, digest hasher.Digest) *Result {
	res := &Result{
		Command:   r.hasher.Describe(r.fetcher.Describe(address)),
		Address:   address,
		Endpoint:  r.fetcher.Endpoint(),
		Algorithm: r.hasher.Name(),
		CodeHash:  digest.Hex(),
		CodeSize:  code.Len(),
	}
	if r.config.Metadata {
		md, err := bytecode.ParseMetadata(code)
		if err != nil {
			r.logger.Sugar().Debugw("No metadata trailer found", zap.String("address", address), zap.Error(err))
		} else {
			res.Metadata = md
		}
	}
	return res
}

// Run validates the inputs, clears the previous artifact, then fetches,
// hashes and persists the code hash of address.
func (r *Reporter) Run(ctx context.Context, address string) (res *Result, err error) {
	defer func() { r.recordRun(err) }()

	if err := r.validate(address); err != nil {
		return nil, err
	}

	if err := r.store.Clear(); err != nil {
		return nil, r.fail(Step_Persist, err)
	}

	code, digest, err := r.compute(ctx, address)
	if err != nil {
		return nil, err
	}

	res = r.newResult(address, code, digest)

	if r.store.Enabled() {
		start := time.Now()
		err := r.store.Write(digest.Hex())
		r.observe(Step_Persist, start)
		if err != nil {
			return nil, r.fail(Step_Persist, err)
		}
		if r.config.Verify {
			stored, err := r.store.Read()
			if err != nil {
				return nil, r.fail(Step_Persist, err)
			}
			if stored != digest.Hex() {
				return nil, r.fail(Step_Persist, errors.Errorf("artifact holds '%s', expected '%s'", stored, digest.Hex()))
			}
		}
		res.ArtifactPath = r.store.Path()
	}

	r.logger.Sugar().Infow("Computed code hash",
		zap.String("address", address),
		zap.String("rpc", res.Endpoint),
		zap.String("algorithm", res.Algorithm),
		zap.String("codeHash", res.CodeHash),
		zap.Int("codeSize", res.CodeSize),
	)
	return res, nil
}

// Report runs the pipeline and writes the result to w in the configured format.
func (r *Reporter) Report(ctx context.Context, w io.Writer, address string) (*Result, error) {
	res, err := r.Run(ctx, address)
	if err != nil {
		return nil, err
	}
	if err := writeResult(w, r.config.Format, res); err != nil {
		return nil, r.fail(Step_Report, err)
	}
	return res, nil
}

// Compare hashes the code of every address in order and reports whether they
// are all identical. It never touches the artifact.
func (r *Reporter) Compare(ctx context.Context, w io.Writer, addresses ...string) (cmp *ComparisonResult, err error) {
	defer func() { r.recordRun(err) }()

	if len(addresses) < 2 {
		return nil, r.fail(Step_Config, errors.Errorf("compare needs at least two addresses, got %d", len(addresses)))
	}
	for _, address := range addresses {
		if err := r.validate(address); err != nil {
			return nil, err
		}
	}

	cmp = &ComparisonResult{
		Endpoint:  r.fetcher.Endpoint(),
		Algorithm: r.hasher.Name(),
		Results:   make([]*Result, 0, len(addresses)),
		Groups:    orderedmap.New[string, []string](),
		Identical: true,
	}

	var bar *progressbar.ProgressBar
	if r.config.Progress != nil {
		bar = progressbar.NewOptions(len(addresses),
			progressbar.OptionSetWriter(r.config.Progress),
			progressbar.OptionSetDescription("hashing"),
			progressbar.OptionClearOnFinish(),
		)
	}

	var first hasher.Digest
	for i, address := range addresses {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, r.fail(Step_Fetch, err)
			}
		}
		code, digest, err := r.compute(ctx, address)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = digest
		} else if !first.Equal(digest) {
			cmp.Identical = false
		}
		res := r.newResult(address, code, digest)
		cmp.Results = append(cmp.Results, res)

		group, _ := cmp.Groups.Get(res.CodeHash)
		cmp.Groups.Set(res.CodeHash, append(group, address))

		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := writeComparison(w, r.config.Format, cmp); err != nil {
		return nil, r.fail(Step_Report, err)
	}

	r.logger.Sugar().Infow("Compared code hashes",
		zap.Int("addresses", len(addresses)),
		zap.Int("distinct", cmp.Groups.Len()),
		zap.Bool("identical", cmp.Identical),
	)

	if !cmp.Identical && r.config.FailOnMismatch {
		return cmp, newStepError(Step_Compare, ErrMismatch)
	}
	return cmp, nil
}

// DuplicateAddresses returns addresses that appear more than once, compared
// case-insensitively.
func DuplicateAddresses(addresses []string) []string {
	dupes := make([]string, 0)
	for i, a := range addresses {
		for _, b := range addresses[:i] {
			if utils.AreAddressesEqual(a, b) {
				dupes = append(dupes, a)
				break
			}
		}
	}
	return dupes
}
