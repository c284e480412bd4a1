package trend

import (
	"sort"
	"time"

	"tyrepulse/pkg/contracts/domain"
)

// Metrics tracked by the detector, in report order.
var trackedMetrics = []string{
	domain.MetricTotalProduction,
	domain.MetricQCPassRate,
	domain.MetricWeightEfficiency,
	domain.MetricReworkRate,
}

// periodAgg collapses all (shift, size) groups of a period into one value
// per metric, production-weighted where the metric is a rate.
type periodAgg struct {
	production int64
	gradeA     int64
	rework     int64
	// weight efficiency is averaged over the period's groups that carried
	// any efficiency samples.
	effSum   float64
	effCount int64
}

// seriesFromHistory turns snapshot history into one ordered time series per
// metric. When the same period appears in several snapshots the latest
// snapshot wins, matching the recompute-whole semantics of the KPI engine.
func seriesFromHistory(history []domain.KPISnapshot) map[string]domain.PeriodTotals {
	byPeriod := make(map[time.Time]*periodAgg)

	for _, snap := range history {
		// Reset periods covered by this snapshot; it supersedes older runs.
		seen := make(map[time.Time]bool)
		for _, g := range snap.Groups {
			p := g.Key.Period
			if !seen[p] {
				byPeriod[p] = &periodAgg{}
				seen[p] = true
			}
			agg := byPeriod[p]
			agg.production += g.TotalProduction
			agg.gradeA += g.GradeCounts.A
			agg.rework += g.GradeCounts.Rework
			if g.WeightEfficiency > 0 {
				agg.effSum += g.WeightEfficiency
				agg.effCount++
			}
		}
	}

	periods := make([]time.Time, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	out := make(map[string]domain.PeriodTotals, len(trackedMetrics))
	for _, metric := range trackedMetrics {
		series := domain.PeriodTotals{Metric: metric, Periods: periods}
		series.Values = make([]float64, len(periods))
		for i, p := range periods {
			series.Values[i] = metricValue(metric, byPeriod[p])
		}
		out[metric] = series
	}
	return out
}

// Series exposes the per-metric period series derived from history.
// Dashboard consumers chart these directly.
func Series(history []domain.KPISnapshot) map[string]domain.PeriodTotals {
	return seriesFromHistory(history)
}

func metricValue(metric string, agg *periodAgg) float64 {
	switch metric {
	case domain.MetricTotalProduction:
		return float64(agg.production)
	case domain.MetricQCPassRate:
		if agg.production == 0 {
			return 0
		}
		return float64(agg.gradeA) / float64(agg.production)
	case domain.MetricReworkRate:
		if agg.production == 0 {
			return 0
		}
		return float64(agg.rework) / float64(agg.production)
	case domain.MetricWeightEfficiency:
		if agg.effCount == 0 {
			return 0
		}
		return agg.effSum / float64(agg.effCount)
	}
	return 0
}
