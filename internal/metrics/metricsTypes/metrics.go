package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
	Flush() error
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_Run         = "runs"
	Metric_Incr_StepFailure = "step_failures"

	Metric_Gauge_BytecodeBytes = "bytecode_bytes"

	Metric_Timing_StepDuration = "step_duration"
)

const (
	Label_Status    = "status"
	Label_Step      = "step"
	Label_Algorithm = "algorithm"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name:   Metric_Incr_Run,
			Labels: []string{Label_Status, Label_Algorithm},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_StepFailure,
			Labels: []string{Label_Step},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_BytecodeBytes,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name:   Metric_Timing_StepDuration,
			Labels: []string{Label_Step},
		},
	},
}
