package domain

import (
	"time"
)

// Severity is the three-level classification of an anomaly by deviation
// magnitude.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Metric names tracked by the trend engine. One time series per metric per
// grouping.
const (
	MetricTotalProduction  = "total_production"
	MetricQCPassRate       = "qc_pass_rate"
	MetricWeightEfficiency = "weight_efficiency"
	MetricReworkRate       = "rework_rate"
)

// ExpectedRange is the rolling-baseline band an observation was compared
// against.
type ExpectedRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Anomaly is one flagged (metric, window) deviation for a period. Multiple
// window sizes may each flag the same period independently; consumers decide
// how to combine them.
type Anomaly struct {
	Metric         string        `json:"metric"`
	Period         time.Time     `json:"period"`
	Window         int           `json:"window"` // window size in periods
	Observed       float64       `json:"observed"`
	ExpectedRange  ExpectedRange `json:"expected_range"`
	DeviationScore float64       `json:"deviation_score"`
	Severity       Severity      `json:"severity"`
}

// AnomalyReport is the ordered output of one detection pass, sorted by
// period, then metric, then window.
type AnomalyReport struct {
	Grouping    Grouping  `json:"grouping"`
	GeneratedAt time.Time `json:"generated_at"`
	Anomalies   []Anomaly `json:"anomalies"`
}

// HasRisk reports whether any anomaly was flagged.
func (r AnomalyReport) HasRisk() bool {
	return len(r.Anomalies) > 0
}
