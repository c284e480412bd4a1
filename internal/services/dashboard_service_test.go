package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tyrepulse/internal/errors"
	"tyrepulse/internal/store"
	"tyrepulse/internal/trend"
	"tyrepulse/pkg/contracts/domain"
)

func dailySnapshot(day time.Time, production int64) domain.KPISnapshot {
	return domain.KPISnapshot{
		Grouping:    domain.GroupingDaily,
		GeneratedAt: day.Add(20 * time.Hour),
		RecordCount: 1,
		Groups: []domain.KPIGroup{
			{
				Key: domain.GroupKey{
					Period: day,
					Shift:  domain.ShiftA,
					Size:   "205/55R16",
				},
				TotalProduction: production,
				QCPassRate:      1.0,
				GradeCounts:     domain.GradeCounts{A: production},
			},
		},
	}
}

func newDashboardService(t *testing.T) (*DashboardService, *store.HistoryStore) {
	t.Helper()
	logger := discardLogger()
	history := store.NewHistoryStore(filepath.Join(t.TempDir(), "history.json"), logger)
	detector := trend.NewDetector(trend.DefaultConfig(), logger)
	return NewDashboardService(history, detector, logger), history
}

func TestDashboard_EmptyHistoryIsNotFound(t *testing.T) {
	svc, _ := newDashboardService(t)

	_, err := svc.Dashboard(context.Background(), domain.GroupingDaily)
	require.Error(t, err)

	apiErr, ok := apperrors.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, apiErr.Code)
}

func TestDashboard_ReturnsLatestAndTrends(t *testing.T) {
	svc, history := newDashboardService(t)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, history.Append(dailySnapshot(base, 480)))
	require.NoError(t, history.Append(dailySnapshot(base.AddDate(0, 0, 1), 520)))

	data, err := svc.Dashboard(context.Background(), domain.GroupingDaily)
	require.NoError(t, err)

	assert.Equal(t, domain.GroupingDaily, data.Grouping)
	assert.Equal(t, int64(520), data.Snapshot.Groups[0].TotalProduction)

	production := data.Trends[domain.MetricTotalProduction]
	require.Len(t, production.Periods, 2)
	assert.Equal(t, []float64{480, 520}, production.Values)
}

func TestDashboard_GroupingsAreIsolated(t *testing.T) {
	svc, history := newDashboardService(t)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, history.Append(dailySnapshot(base, 480)))

	_, err := svc.Dashboard(context.Background(), domain.GroupingWeekly)
	require.Error(t, err)

	apiErr, ok := apperrors.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, apiErr.Code)
}

func TestAnomalies(t *testing.T) {
	svc, history := newDashboardService(t)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		production := int64(480)
		if i%2 == 1 {
			production = 520
		}
		require.NoError(t, history.Append(dailySnapshot(base.AddDate(0, 0, i), production)))
	}
	require.NoError(t, history.Append(dailySnapshot(base.AddDate(0, 0, 10), 650)))

	report, err := svc.Anomalies(context.Background(), domain.GroupingDaily)
	require.NoError(t, err)
	assert.True(t, report.HasRisk())
}
