package services

import (
	"context"
	"log/slog"

	apperrors "tyrepulse/internal/errors"
	"tyrepulse/internal/store"
	"tyrepulse/internal/trend"
	"tyrepulse/pkg/contracts/domain"
)

// DashboardService assembles the dashboard payload from stored
// snapshot history.
type DashboardService struct {
	history  *store.HistoryStore
	detector *trend.Detector
	logger   *slog.Logger
}

// NewDashboardService creates a dashboard service over the history
// store.
func NewDashboardService(history *store.HistoryStore, detector *trend.Detector, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{history: history, detector: detector, logger: logger}
}

// DashboardData is the payload served to the dashboard frontend.
type DashboardData struct {
	Grouping  domain.Grouping               `json:"grouping"`
	Snapshot  domain.KPISnapshot            `json:"snapshot"`
	Trends    map[string]domain.PeriodTotals `json:"trends"`
	Anomalies domain.AnomalyReport          `json:"anomalies"`
}

// Dashboard returns the most recent snapshot for grouping along with
// trend series and the anomaly report over the full history.
func (s *DashboardService) Dashboard(ctx context.Context, grouping domain.Grouping) (*DashboardData, error) {
	history, err := s.history.ByGrouping(grouping)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if len(history) == 0 {
		return nil, apperrors.NewNotFound("dashboard data").
			WithField("grouping", string(grouping))
	}

	latest := history[len(history)-1]
	report := s.detector.Detect(ctx, history)

	s.logger.DebugContext(ctx, "dashboard assembled",
		slog.String("grouping", string(grouping)),
		slog.Int("history_size", len(history)),
		slog.Int("anomalies", len(report.Anomalies)))

	return &DashboardData{
		Grouping:  grouping,
		Snapshot:  latest,
		Trends:    trend.Series(history),
		Anomalies: *report,
	}, nil
}

// Anomalies returns only the anomaly report for grouping.
func (s *DashboardService) Anomalies(ctx context.Context, grouping domain.Grouping) (*domain.AnomalyReport, error) {
	history, err := s.history.ByGrouping(grouping)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if len(history) == 0 {
		return nil, apperrors.NewNotFound("anomaly report").
			WithField("grouping", string(grouping))
	}
	return s.detector.Detect(ctx, history), nil
}
