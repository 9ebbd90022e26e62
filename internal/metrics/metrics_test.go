package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/Layr-Labs/codehash/internal/config"
	"github.com/Layr-Labs/codehash/internal/metrics/dogstatsd"
	"github.com/Layr-Labs/codehash/internal/metrics/metricsTypes"
	"github.com/Layr-Labs/codehash/internal/metrics/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_MetricsSink(t *testing.T) {
	l, _ := zap.NewDevelopment()

	t.Run("No-op sink accepts everything", func(t *testing.T) {
		sink := NewNoOpMetricsSink()
		assert.Nil(t, sink.Incr(metricsTypes.Metric_Incr_Run, nil, 1))
		assert.Nil(t, sink.Gauge(metricsTypes.Metric_Gauge_BytecodeBytes, 10, nil))
		assert.Nil(t, sink.Timing(metricsTypes.Metric_Timing_StepDuration, time.Second, nil))
		assert.Nil(t, sink.Flush())
	})
	t.Run("Fans out to prometheus and statsd and writes the textfile", func(t *testing.T) {
		textfile := filepath.Join(t.TempDir(), "codehash.prom")

		pm, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics:  metricsTypes.MetricTypes,
			Textfile: textfile,
		}, l)
		assert.Nil(t, err)

		dd := dogstatsd.NewDogStatsdMetricsClientWithClient(&statsd.NoOpClient{}, 1, l)

		sink, err := NewMetricsSink(&MetricsSinkConfig{}, []metricsTypes.IMetricsClient{pm, dd})
		assert.Nil(t, err)

		assert.Nil(t, sink.Incr(metricsTypes.Metric_Incr_Run, []metricsTypes.MetricsLabel{
			{Name: metricsTypes.Label_Status, Value: "success"},
			{Name: metricsTypes.Label_Algorithm, Value: "keccak256"},
		}, 1))
		assert.Nil(t, sink.Gauge(metricsTypes.Metric_Gauge_BytecodeBytes, 1234, nil))
		assert.Nil(t, sink.Timing(metricsTypes.Metric_Timing_StepDuration, 15*time.Millisecond, []metricsTypes.MetricsLabel{
			{Name: metricsTypes.Label_Step, Value: "fetch"},
		}))
		assert.Nil(t, sink.Flush())

		contents, err := os.ReadFile(textfile)
		assert.Nil(t, err)
		text := string(contents)
		assert.True(t, strings.Contains(text, `codehash_runs_total{algorithm="keccak256",status="success"} 1`))
		assert.True(t, strings.Contains(text, "codehash_bytecode_bytes 1234"))
		assert.True(t, strings.Contains(text, `codehash_step_duration_ms_count{step="fetch"} 1`))
	})
	t.Run("Rejects labels the metric was not declared with", func(t *testing.T) {
		pm, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics: metricsTypes.MetricTypes,
		}, l)
		assert.Nil(t, err)

		err = pm.Incr(metricsTypes.Metric_Incr_Run, []metricsTypes.MetricsLabel{
			{Name: "unknown", Value: "x"},
		}, 1)
		assert.NotNil(t, err)
	})
	t.Run("Builds clients from config", func(t *testing.T) {
		cfg := &config.Config{}
		clients, err := InitMetricsSinksFromConfig(cfg, l)
		assert.Nil(t, err)
		assert.Len(t, clients, 0)

		cfg.PrometheusConfig.Enabled = true
		cfg.PrometheusConfig.Textfile = filepath.Join(t.TempDir(), "m.prom")
		clients, err = InitMetricsSinksFromConfig(cfg, l)
		assert.Nil(t, err)
		assert.Len(t, clients, 1)
	})
}
