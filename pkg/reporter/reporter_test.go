package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Layr-Labs/codehash/internal/config"
	"github.com/Layr-Labs/codehash/internal/metrics"
	"github.com/Layr-Labs/codehash/internal/metrics/metricsTypes"
	"github.com/Layr-Labs/codehash/internal/metrics/prometheus"
	"github.com/Layr-Labs/codehash/internal/tests"
	"github.com/Layr-Labs/codehash/pkg/artifact"
	"github.com/Layr-Labs/codehash/pkg/bytecode"
	"github.com/Layr-Labs/codehash/pkg/codeFetcher"
	"github.com/Layr-Labs/codehash/pkg/hasher"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const (
	otherAddress  = "0x91e677b07f7af907ec9a428aafa9fc14a0d3a338"
	cloneAddress  = "0x858646372cc42e1a627fce94aa7a7033e7cf075a"
	emptyAddress  = "0x0000000000000000000000000000000000000001"
	artifactPath  = "/work/codehash.txt"
	staleArtifact = "0xstale"
)

var (
	runtimeCode = bytecode.Code{0x60, 0x80, 0x60, 0x40, 0x52}
	otherCode   = bytecode.Code{0x60, 0x80, 0x60, 0x40, 0x53}
)

type fakeFetcher struct {
	endpoint string
	code     map[string]bytecode.Code
	err      error
	calls    int
}

func (f *fakeFetcher) GetCode(_ context.Context, address string) (bytecode.Code, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return codeFetcher.RequireCode(f.code[address], address)
}

func (f *fakeFetcher) Describe(address string) string {
	return fmt.Sprintf("eth_getCode(%s, latest)", address)
}

func (f *fakeFetcher) Endpoint() string {
	return f.endpoint
}

type countingHasher struct {
	hasher.Hasher
	calls    int
	err      error
	truncate bool
}

func (h *countingHasher) Hash(ctx context.Context, data []byte) (hasher.Digest, error) {
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	digest, err := h.Hasher.Hash(ctx, data)
	if h.truncate && err == nil {
		digest = digest[:16]
	}
	return digest, err
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("stdout closed")
}

type fixture struct {
	fetcher  *fakeFetcher
	hasher   *countingHasher
	fs       afero.Fs
	store    *artifact.Store
	reporter *Reporter
	cfg      *ReporterConfig
	l        *zap.Logger
}

func setup(t *testing.T) *fixture {
	cfg := tests.GetConfig()
	l := tests.GetLogger(cfg)

	keccak, err := hasher.NewHasher(hasher.Algorithm_Keccak256)
	assert.Nil(t, err)

	fs := afero.NewMemMapFs()
	assert.Nil(t, fs.MkdirAll("/work", 0755))

	f := &fixture{
		fetcher: &fakeFetcher{
			endpoint: tests.TestRpcUrl,
			code: map[string]bytecode.Code{
				tests.TestAddress: runtimeCode,
				cloneAddress:      runtimeCode,
				otherAddress:      otherCode,
			},
		},
		hasher: &countingHasher{Hasher: keccak},
		fs:     fs,
		store:  artifact.NewStore(fs, artifactPath),
		cfg:    ReporterConfigFromConfig(cfg),
		l:      l,
	}
	f.rebuild()
	return f
}

func (f *fixture) rebuild() {
	f.reporter = NewReporter(f.fetcher, f.hasher, f.store, nil, f.l, f.cfg)
}

func expectedHash(code bytecode.Code) string {
	return crypto.Keccak256Hash(code).Hex()
}

func Test_Reporter(t *testing.T) {
	ctx := context.Background()

	t.Run("Reports the four line summary and writes the artifact", func(t *testing.T) {
		f := setup(t)
		out := &bytes.Buffer{}

		res, err := f.reporter.Report(ctx, out, tests.TestAddress)
		assert.Nil(t, err)

		hash := expectedHash(runtimeCode)
		expected := strings.Join([]string{
			"Command: keccak256(eth_getCode(" + tests.TestAddress + ", latest))",
			"Address: " + tests.TestAddress,
			"RPC: " + tests.TestRpcUrl,
			"Code hash: " + hash,
		}, "\n") + "\n"
		assert.Equal(t, expected, out.String())
		assert.Equal(t, hash, res.CodeHash)
		assert.Len(t, res.CodeHash, 2+2*f.hasher.Size())
		assert.Equal(t, artifactPath, res.ArtifactPath)
		assert.Equal(t, runtimeCode.Len(), res.CodeSize)

		raw, err := afero.ReadFile(f.fs, artifactPath)
		assert.Nil(t, err)
		assert.Equal(t, hash+"\n", string(raw))
	})
	t.Run("Running twice reports the same digest", func(t *testing.T) {
		f := setup(t)

		first := &bytes.Buffer{}
		_, err := f.reporter.Report(ctx, first, tests.TestAddress)
		assert.Nil(t, err)

		second := &bytes.Buffer{}
		_, err = f.reporter.Report(ctx, second, tests.TestAddress)
		assert.Nil(t, err)

		assert.Equal(t, first.String(), second.String())
		stored, err := f.store.Read()
		assert.Nil(t, err)
		assert.Equal(t, expectedHash(runtimeCode), stored)
	})
	t.Run("Missing address is rejected before fetching", func(t *testing.T) {
		f := setup(t)

		_, err := f.reporter.Report(ctx, &bytes.Buffer{}, "")
		assert.True(t, errors.Is(err, config.ErrMissingAddress))
		assert.Equal(t, ExitCode_Config, ExitCode(err))
		assert.Equal(t, 0, f.fetcher.calls)
	})
	t.Run("Missing endpoint is rejected before fetching", func(t *testing.T) {
		f := setup(t)
		f.fetcher.endpoint = ""

		_, err := f.reporter.Report(ctx, &bytes.Buffer{}, tests.TestAddress)
		assert.True(t, errors.Is(err, config.ErrMissingEndpoint))
		assert.Equal(t, ExitCode_Config, ExitCode(err))
		assert.Equal(t, 0, f.fetcher.calls)
	})
	t.Run("No code aborts before hashing and clears the stale artifact", func(t *testing.T) {
		f := setup(t)
		assert.Nil(t, afero.WriteFile(f.fs, artifactPath, []byte(staleArtifact+"\n"), 0644))
		out := &bytes.Buffer{}

		_, err := f.reporter.Report(ctx, out, emptyAddress)
		assert.True(t, errors.Is(err, codeFetcher.ErrNoCode))
		assert.Equal(t, ExitCode_Fetch, ExitCode(err))
		assert.Equal(t, 0, f.hasher.calls)
		assert.Equal(t, "", out.String())

		exists, err := afero.Exists(f.fs, artifactPath)
		assert.Nil(t, err)
		assert.False(t, exists)
	})
	t.Run("Unreachable endpoints are fetch errors", func(t *testing.T) {
		f := setup(t)
		f.fetcher.err = errors.New("dial tcp 127.0.0.1:1: connect: connection refused")

		_, err := f.reporter.Report(ctx, &bytes.Buffer{}, tests.TestAddress)
		step, ok := FailedStep(err)
		assert.True(t, ok)
		assert.Equal(t, Step_Fetch, step)
		assert.ErrorContains(t, err, "connection refused")
	})
	t.Run("Hash failures are hash errors", func(t *testing.T) {
		f := setup(t)
		f.hasher.err = hasher.ErrEmptyInput

		_, err := f.reporter.Report(ctx, &bytes.Buffer{}, tests.TestAddress)
		assert.Equal(t, ExitCode_Hash, ExitCode(err))
		exists, _ := afero.Exists(f.fs, artifactPath)
		assert.False(t, exists)
	})
	t.Run("Digests of the wrong size are hash errors", func(t *testing.T) {
		f := setup(t)
		f.hasher.truncate = true

		_, err := f.reporter.Report(ctx, &bytes.Buffer{}, tests.TestAddress)
		assert.Equal(t, ExitCode_Hash, ExitCode(err))
	})
	t.Run("Unwritable artifacts are persist errors", func(t *testing.T) {
		f := setup(t)
		f.store = artifact.NewStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), artifactPath)
		f.rebuild()
		out := &bytes.Buffer{}

		_, err := f.reporter.Report(ctx, out, tests.TestAddress)
		assert.Equal(t, ExitCode_Persist, ExitCode(err))
		assert.Equal(t, "", out.String())
	})
	t.Run("Verification reads the artifact back", func(t *testing.T) {
		f := setup(t)
		f.cfg.Verify = true
		f.rebuild()

		res, err := f.reporter.Report(ctx, &bytes.Buffer{}, tests.TestAddress)
		assert.Nil(t, err)
		assert.Equal(t, expectedHash(runtimeCode), res.CodeHash)
	})
	t.Run("Disabled artifact skips persistence", func(t *testing.T) {
		f := setup(t)
		f.store = artifact.NewStore(f.fs, "")
		f.cfg.Verify = true
		f.rebuild()

		res, err := f.reporter.Report(ctx, &bytes.Buffer{}, tests.TestAddress)
		assert.Nil(t, err)
		assert.Equal(t, "", res.ArtifactPath)
	})
	t.Run("Report write failures are report errors", func(t *testing.T) {
		f := setup(t)

		_, err := f.reporter.Report(ctx, failingWriter{}, tests.TestAddress)
		assert.Equal(t, ExitCode_Report, ExitCode(err))
	})
	t.Run("JSON output", func(t *testing.T) {
		f := setup(t)
		f.cfg.Format = config.OutputFormat_Json
		f.rebuild()
		out := &bytes.Buffer{}

		_, err := f.reporter.Report(ctx, out, tests.TestAddress)
		assert.Nil(t, err)

		decoded := &Result{}
		assert.Nil(t, json.Unmarshal(out.Bytes(), decoded))
		assert.Equal(t, tests.TestAddress, decoded.Address)
		assert.Equal(t, tests.TestRpcUrl, decoded.Endpoint)
		assert.Equal(t, "keccak256", decoded.Algorithm)
		assert.Equal(t, expectedHash(runtimeCode), decoded.CodeHash)
	})
	t.Run("CSV output", func(t *testing.T) {
		f := setup(t)
		f.cfg.Format = config.OutputFormat_Csv
		f.rebuild()
		out := &bytes.Buffer{}

		_, err := f.reporter.Report(ctx, out, tests.TestAddress)
		assert.Nil(t, err)

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		assert.Len(t, lines, 2)
		assert.Equal(t, "address,rpc,algorithm,code_hash,code_size,artifact,metadata_ipfs,metadata_solc", lines[0])
		assert.True(t, strings.HasPrefix(lines[1], tests.TestAddress+","+tests.TestRpcUrl+",keccak256,"+expectedHash(runtimeCode)))
	})
}

func Test_ReporterMetrics(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	textfile := filepath.Join(t.TempDir(), "codehash.prom")
	pm, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
		Metrics:  metricsTypes.MetricTypes,
		Textfile: textfile,
	}, f.l)
	assert.Nil(t, err)
	sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, []metricsTypes.IMetricsClient{pm})
	assert.Nil(t, err)

	r := NewReporter(f.fetcher, f.hasher, f.store, sink, f.l, f.cfg)

	_, err = r.Report(ctx, &bytes.Buffer{}, tests.TestAddress)
	assert.Nil(t, err)
	_, err = r.Report(ctx, &bytes.Buffer{}, emptyAddress)
	assert.NotNil(t, err)
	assert.Nil(t, sink.Flush())

	contents, err := os.ReadFile(textfile)
	assert.Nil(t, err)
	text := string(contents)
	assert.Contains(t, text, `codehash_runs_total{algorithm="keccak256",status="success"} 1`)
	assert.Contains(t, text, `codehash_runs_total{algorithm="keccak256",status="failure"} 1`)
	assert.Contains(t, text, `codehash_step_failures_total{step="fetch"} 1`)
	assert.Contains(t, text, fmt.Sprintf("codehash_bytecode_bytes %d", runtimeCode.Len()))
}

func Test_Compare(t *testing.T) {
	ctx := context.Background()

	t.Run("Identical code", func(t *testing.T) {
		f := setup(t)
		out := &bytes.Buffer{}

		cmp, err := f.reporter.Compare(ctx, out, tests.TestAddress, cloneAddress)
		assert.Nil(t, err)
		assert.True(t, cmp.Identical)
		assert.Len(t, cmp.Results, 2)
		assert.True(t, strings.HasSuffix(out.String(), "Identical: true\n"))

		exists, _ := afero.Exists(f.fs, artifactPath)
		assert.False(t, exists)
	})
	t.Run("Different code", func(t *testing.T) {
		f := setup(t)
		out := &bytes.Buffer{}

		cmp, err := f.reporter.Compare(ctx, out, tests.TestAddress, otherAddress)
		assert.Nil(t, err)
		assert.False(t, cmp.Identical)
		assert.Contains(t, out.String(), otherAddress+" "+expectedHash(otherCode))
		assert.Contains(t, out.String(), "Distinct hashes: 2\n")
		assert.True(t, strings.HasSuffix(out.String(), "Identical: false\n"))
	})
	t.Run("Groups addresses by code hash in first seen order", func(t *testing.T) {
		f := setup(t)
		f.cfg.Format = config.OutputFormat_Json
		f.rebuild()
		out := &bytes.Buffer{}

		cmp, err := f.reporter.Compare(ctx, out, otherAddress, tests.TestAddress, cloneAddress)
		assert.Nil(t, err)
		assert.Equal(t, 2, cmp.Groups.Len())

		oldest := cmp.Groups.Oldest()
		assert.Equal(t, expectedHash(otherCode), oldest.Key)
		assert.Equal(t, []string{otherAddress}, oldest.Value)
		assert.Equal(t, []string{tests.TestAddress, cloneAddress}, oldest.Next().Value)

		decoded := struct {
			Groups    map[string][]string `json:"groups"`
			Identical bool                `json:"identical"`
		}{}
		assert.Nil(t, json.Unmarshal(out.Bytes(), &decoded))
		assert.False(t, decoded.Identical)
		assert.Equal(t, []string{tests.TestAddress, cloneAddress}, decoded.Groups[expectedHash(runtimeCode)])
	})
	t.Run("Progress goes to its own writer", func(t *testing.T) {
		f := setup(t)
		progress := &bytes.Buffer{}
		f.cfg.Progress = progress
		f.rebuild()
		out := &bytes.Buffer{}

		_, err := f.reporter.Compare(ctx, out, tests.TestAddress, cloneAddress)
		assert.Nil(t, err)
		assert.NotEmpty(t, progress.String())
		assert.NotContains(t, out.String(), "hashing")
	})
	t.Run("Mismatch can fail the run", func(t *testing.T) {
		f := setup(t)
		f.cfg.FailOnMismatch = true
		f.cfg.RateLimit = 100
		f.rebuild()

		cmp, err := f.reporter.Compare(ctx, &bytes.Buffer{}, tests.TestAddress, cloneAddress, otherAddress)
		assert.NotNil(t, cmp)
		assert.True(t, errors.Is(err, ErrMismatch))
		assert.Equal(t, ExitCode_Mismatch, ExitCode(err))
	})
	t.Run("Needs two addresses", func(t *testing.T) {
		f := setup(t)

		_, err := f.reporter.Compare(ctx, &bytes.Buffer{}, tests.TestAddress)
		assert.Equal(t, ExitCode_Config, ExitCode(err))
		assert.Equal(t, 0, f.fetcher.calls)
	})
	t.Run("Stops at the first failing address", func(t *testing.T) {
		f := setup(t)

		_, err := f.reporter.Compare(ctx, &bytes.Buffer{}, emptyAddress, tests.TestAddress)
		assert.Equal(t, ExitCode_Fetch, ExitCode(err))
		assert.Equal(t, 1, f.fetcher.calls)
	})
}

func Test_ExitCode(t *testing.T) {
	assert.Equal(t, ExitCode_Ok, ExitCode(nil))
	assert.Equal(t, ExitCode_Unknown, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitCode_Persist, ExitCode(errors.Wrap(&StepError{Step: Step_Persist, Err: errors.New("disk full")}, "wrapped")))
	assert.Equal(t, ExitCode_Config, ExitCode(NewConfigError(errors.New("bad"))))
}

func Test_DuplicateAddresses(t *testing.T) {
	dupes := DuplicateAddresses([]string{
		tests.TestAddress,
		otherAddress,
		strings.ToUpper(tests.TestAddress[2:]),
		"0x" + strings.ToUpper(tests.TestAddress[2:]),
	})
	assert.Equal(t, []string{"0x" + strings.ToUpper(tests.TestAddress[2:])}, dupes)
}
