package domain

import (
	"time"
)

// Grouping determines how record dates are bucketed into KPI periods.
type Grouping string

const (
	GroupingDaily   Grouping = "daily"
	GroupingWeekly  Grouping = "weekly"
	GroupingMonthly Grouping = "monthly"
)

// IsValid reports whether the grouping is a recognized value.
func (g Grouping) IsValid() bool {
	switch g {
	case GroupingDaily, GroupingWeekly, GroupingMonthly:
		return true
	}
	return false
}

// GroupKey identifies one aggregation group inside a snapshot.
type GroupKey struct {
	Period time.Time `json:"period"` // bucket start: day, ISO-week Monday, or first of month
	Shift  Shift     `json:"shift"`
	Size   string    `json:"size"`
}

// GradeCounts holds exact per-grade tallies for a group, weighted by the
// quantity of each record.
type GradeCounts struct {
	A      int64 `json:"a"`
	B      int64 `json:"b"`
	Rework int64 `json:"rework"`
}

// KPIGroup carries the computed metrics for one (period, shift, size) group.
type KPIGroup struct {
	Key               GroupKey    `json:"key"`
	TotalProduction   int64       `json:"total_production"`
	QCPassRate        float64     `json:"qc_pass_rate"`
	GradeCounts       GradeCounts `json:"grade_counts"`
	WeightEfficiency  float64     `json:"weight_efficiency"` // percent
	TargetAchievement float64     `json:"target_achievement"`
	// ZeroSpecWeight counts records whose spec_weight was zero; they are
	// included in production totals but excluded from the efficiency mean.
	ZeroSpecWeight int `json:"zero_spec_weight,omitempty"`
}

// KPISnapshot is the aggregated result of one computation pass. It is
// recomputed whole on every run and never mutated in place. Groups are
// ordered by period, then shift, then size so two snapshots over the same
// records compare equal byte for byte.
type KPISnapshot struct {
	Grouping    Grouping   `json:"grouping"`
	GeneratedAt time.Time  `json:"generated_at"`
	RecordCount int        `json:"record_count"`
	Groups      []KPIGroup `json:"groups"`
}

// PeriodTotals collapses a snapshot's groups into one value per period for a
// single metric, in period order. The trend engine consumes this shape.
type PeriodTotals struct {
	Metric  string      `json:"metric"`
	Periods []time.Time `json:"periods"`
	Values  []float64   `json:"values"`
}
