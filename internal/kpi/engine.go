package kpi

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"tyrepulse/pkg/contracts/domain"
)

// ComputationError reports a programmer-error condition such as an unknown
// grouping. It should never occur with valid input.
type ComputationError struct {
	Op     string
	Detail string
}

// Error implements the error interface.
func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation error in %s: %s", e.Op, e.Detail)
}

// Engine computes KPI snapshots from validated canonical records.
type Engine struct {
	logger *slog.Logger
	clock  func() time.Time
}

// NewEngine creates a KPI engine. A nil logger falls back to slog.Default.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, clock: time.Now}
}

// WithClock fixes the snapshot timestamp source. Used by tests and by the
// pipeline for reproducible runs.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	if clock != nil {
		e.clock = clock
	}
	return e
}

// Compute aggregates records into a fresh snapshot. The output is never
// mutated after return; every run produces a new value.
func (e *Engine) Compute(ctx context.Context, records []domain.CanonicalRecord, grouping domain.Grouping) (*domain.KPISnapshot, error) {
	if !grouping.IsValid() {
		return nil, &ComputationError{Op: "compute", Detail: fmt.Sprintf("unknown grouping %q", grouping)}
	}

	groups := make(map[domain.GroupKey]*accumulator)
	for _, rec := range records {
		key := domain.GroupKey{
			Period: Bucket(rec.Date, grouping),
			Shift:  rec.Shift,
			Size:   rec.Size,
		}
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{}
			groups[key] = acc
		}
		acc.add(rec)
	}

	snapshot := &domain.KPISnapshot{
		Grouping:    grouping,
		GeneratedAt: e.clock().UTC(),
		RecordCount: len(records),
		Groups:      make([]domain.KPIGroup, 0, len(groups)),
	}

	keys := make([]domain.GroupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if !a.Period.Equal(b.Period) {
			return a.Period.Before(b.Period)
		}
		if a.Shift != b.Shift {
			return a.Shift < b.Shift
		}
		return a.Size < b.Size
	})

	for _, key := range keys {
		snapshot.Groups = append(snapshot.Groups, groups[key].finish(key))
	}

	e.logger.DebugContext(ctx, "kpi snapshot computed",
		slog.String("grouping", string(grouping)),
		slog.Int("records", len(records)),
		slog.Int("groups", len(snapshot.Groups)))

	return snapshot, nil
}

// Bucket maps a record date to its period start: the day itself, the ISO
// week's Monday, or the first of the month.
func Bucket(date time.Time, grouping domain.Grouping) time.Time {
	d := date.UTC().Truncate(24 * time.Hour)
	switch grouping {
	case domain.GroupingWeekly:
		offset := (int(d.Weekday()) + 6) % 7 // Monday-based week start
		return d.AddDate(0, 0, -offset)
	case domain.GroupingMonthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

// accumulator collects the raw sums for one group. Float inputs are kept as
// slices and summed in sorted order so results are independent of record
// order.
type accumulator struct {
	quantity       int64
	gradeA         int64
	gradeB         int64
	gradeRework    int64
	ratios         []float64 // actual/spec per record with spec > 0
	targets        []float64
	zeroSpecWeight int
}

func (a *accumulator) add(rec domain.CanonicalRecord) {
	a.quantity += rec.Quantity
	switch rec.QCGrade {
	case domain.GradeA:
		a.gradeA += rec.Quantity
	case domain.GradeB:
		a.gradeB += rec.Quantity
	case domain.GradeRework:
		a.gradeRework += rec.Quantity
	}
	if rec.SpecWeight > 0 {
		a.ratios = append(a.ratios, rec.ActualWeight/rec.SpecWeight)
	} else {
		a.zeroSpecWeight++
	}
	if rec.Target > 0 {
		a.targets = append(a.targets, rec.Target)
	}
}

func (a *accumulator) finish(key domain.GroupKey) domain.KPIGroup {
	group := domain.KPIGroup{
		Key:             key,
		TotalProduction: a.quantity,
		GradeCounts: domain.GradeCounts{
			A:      a.gradeA,
			B:      a.gradeB,
			Rework: a.gradeRework,
		},
		ZeroSpecWeight: a.zeroSpecWeight,
	}

	if a.quantity > 0 {
		group.QCPassRate = float64(a.gradeA) / float64(a.quantity)
	}

	if len(a.ratios) > 0 {
		group.WeightEfficiency = sortedSum(a.ratios) / float64(len(a.ratios)) * 100
	}

	if targetTotal := sortedSum(a.targets); targetTotal > 0 {
		group.TargetAchievement = float64(a.quantity) / targetTotal * 100
	}

	return group
}

// sortedSum adds floats in ascending order. Addition order is then a
// function of the value multiset alone, which keeps aggregation
// permutation-invariant down to the last bit.
func sortedSum(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return sum
}
