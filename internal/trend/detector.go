package trend

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"tyrepulse/pkg/contracts/domain"
)

// epsilon floors the stddev denominator of the deviation score so direction
// and magnitude survive a zero-variance window.
const epsilon = 1e-9

// Config tunes the rolling-window detection.
type Config struct {
	// WindowSizes are the trailing spans, in periods, each checked
	// independently.
	WindowSizes []int
	// Z is the flagging threshold in standard deviations.
	Z float64
	// MinSamples is the minimum prior-period count for a window to make any
	// anomaly claim at all.
	MinSamples int
	// ModerateAt and SevereAt are the |deviation score| boundaries of the
	// upper two severity levels; below ModerateAt a flagged deviation is
	// minor.
	ModerateAt float64
	SevereAt   float64
}

// DefaultConfig returns the standard 7/30/90 window setup with 2/3/4 sigma
// severity boundaries.
func DefaultConfig() Config {
	return Config{
		WindowSizes: []int{7, 30, 90},
		Z:           2,
		MinSamples:  3,
		ModerateAt:  3,
		SevereAt:    4,
	}
}

// Detector flags KPI deviations against rolling baselines.
type Detector struct {
	cfg    Config
	logger *slog.Logger
	clock  func() time.Time
}

// NewDetector creates a detector; zero-valued config fields take defaults.
func NewDetector(cfg Config, logger *slog.Logger) *Detector {
	def := DefaultConfig()
	if len(cfg.WindowSizes) == 0 {
		cfg.WindowSizes = def.WindowSizes
	}
	if cfg.Z <= 0 {
		cfg.Z = def.Z
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if cfg.ModerateAt <= 0 {
		cfg.ModerateAt = def.ModerateAt
	}
	if cfg.SevereAt <= 0 {
		cfg.SevereAt = def.SevereAt
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{cfg: cfg, logger: logger, clock: time.Now}
}

// WithClock fixes the report timestamp source.
func (d *Detector) WithClock(clock func() time.Time) *Detector {
	if clock != nil {
		d.clock = clock
	}
	return d
}

// Detect scans snapshot history and reports every (metric, window) pair
// whose latest observations deviate from their rolling baseline. Windows
// with fewer than MinSamples prior periods are skipped for that pair;
// insufficient history is never an anomaly.
func (d *Detector) Detect(ctx context.Context, history []domain.KPISnapshot) *domain.AnomalyReport {
	report := &domain.AnomalyReport{GeneratedAt: d.clock().UTC()}
	if len(history) == 0 {
		return report
	}
	report.Grouping = history[len(history)-1].Grouping

	series := seriesFromHistory(history)
	for _, metric := range trackedMetrics {
		s := series[metric]
		for i := range s.Periods {
			for _, window := range d.cfg.WindowSizes {
				if a, ok := d.evaluate(s, i, window); ok {
					report.Anomalies = append(report.Anomalies, a)
				}
			}
		}
	}

	sort.Slice(report.Anomalies, func(i, j int) bool {
		a, b := report.Anomalies[i], report.Anomalies[j]
		if !a.Period.Equal(b.Period) {
			return a.Period.Before(b.Period)
		}
		if a.Metric != b.Metric {
			return a.Metric < b.Metric
		}
		return a.Window < b.Window
	})

	d.logger.InfoContext(ctx, "anomaly detection completed",
		slog.String("grouping", string(report.Grouping)),
		slog.Int("periods", len(series[domain.MetricTotalProduction].Periods)),
		slog.Int("anomalies", len(report.Anomalies)))

	return report
}

// evaluate checks one observation against the preceding window. The current
// period is excluded from the baseline so it cannot mask itself.
func (d *Detector) evaluate(s domain.PeriodTotals, idx, window int) (domain.Anomaly, bool) {
	start := idx - window
	if start < 0 {
		start = 0
	}
	prior := s.Values[start:idx]
	if len(prior) < d.cfg.MinSamples {
		return domain.Anomaly{}, false
	}

	mean, stddev := meanStddev(prior)
	observed := s.Values[idx]

	flagged := math.Abs(observed-mean) > d.cfg.Z*stddev
	if stddev == 0 {
		// Exact-match window: any deviation at all is a flag.
		flagged = observed != mean
	}
	if !flagged {
		return domain.Anomaly{}, false
	}

	score := (observed - mean) / math.Max(stddev, epsilon)

	return domain.Anomaly{
		Metric:   s.Metric,
		Period:   s.Periods[idx],
		Window:   window,
		Observed: observed,
		ExpectedRange: domain.ExpectedRange{
			Low:  mean - d.cfg.Z*stddev,
			High: mean + d.cfg.Z*stddev,
		},
		DeviationScore: score,
		Severity:       d.severity(score),
	}, true
}

func (d *Detector) severity(score float64) domain.Severity {
	switch abs := math.Abs(score); {
	case abs >= d.cfg.SevereAt:
		return domain.SeveritySevere
	case abs >= d.cfg.ModerateAt:
		return domain.SeverityModerate
	default:
		return domain.SeverityMinor
	}
}

// meanStddev returns the mean and population standard deviation.
func meanStddev(values []float64) (float64, float64) {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	var sq float64
	for _, v := range values {
		diff := v - mean
		sq += diff * diff
	}
	return mean, math.Sqrt(sq / n)
}
