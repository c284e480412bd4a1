package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tyrepulse/internal/exporter"
	"tyrepulse/internal/infrastructure"
	"tyrepulse/internal/ingest"
	"tyrepulse/internal/pipeline"
	"tyrepulse/internal/store"
	"tyrepulse/pkg/contracts/domain"
)

// ProcessService runs spreadsheet files through the pipeline, persists
// the resulting snapshot and exports CSV reports.
type ProcessService struct {
	reader  *ingest.Reader
	pipe    *pipeline.Pipeline
	history *store.HistoryStore
	csv     *exporter.CSVWriter
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewProcessService wires a process service. Metrics may be nil when
// the caller runs without an exporter.
func NewProcessService(reader *ingest.Reader, pipe *pipeline.Pipeline, history *store.HistoryStore, csv *exporter.CSVWriter, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *ProcessService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessService{
		reader:  reader,
		pipe:    pipe,
		history: history,
		csv:     csv,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// ProcessResult summarizes one processing run for callers.
type ProcessResult struct {
	RunID        string                 `json:"run_id"`
	Grouping     domain.Grouping        `json:"grouping"`
	RecordCount  int                    `json:"record_count"`
	Rejected     []domain.RejectedRecord `json:"rejected,omitempty"`
	Unmapped     []string               `json:"unmapped_columns,omitempty"`
	Skipped      []string               `json:"skipped_sources,omitempty"`
	Snapshot     *domain.KPISnapshot    `json:"snapshot"`
	Report       *domain.AnomalyReport  `json:"report"`
	SnapshotFile string                 `json:"snapshot_file,omitempty"`
	AnomalyFile  string                 `json:"anomaly_file,omitempty"`
}

// ProcessFiles ingests the given spreadsheet files as one dataset,
// computes KPIs, detects anomalies against stored history, and
// persists the fresh snapshot.
func (s *ProcessService) ProcessFiles(ctx context.Context, paths []string, grouping domain.Grouping) (*ProcessResult, error) {
	start := s.now()

	tables, err := s.reader.ReadFiles(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("ingest files: %w", err)
	}

	history, err := s.history.ByGrouping(grouping)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	result, err := s.pipe.RunTables(ctx, tables, history, grouping)
	if err != nil {
		return nil, err
	}

	if err := s.history.Append(*result.Snapshot); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	out := &ProcessResult{
		RunID:       result.RunID,
		Grouping:    grouping,
		RecordCount: result.Snapshot.RecordCount,
		Rejected:    result.Rejected,
		Unmapped:    result.Unmapped,
		Skipped:     result.Skipped,
		Snapshot:    result.Snapshot,
		Report:      result.Report,
	}

	if s.csv != nil {
		out.SnapshotFile = exporter.SnapshotFilename(grouping, result.Snapshot.GeneratedAt)
		if err := s.csv.WriteSnapshot(out.SnapshotFile, *result.Snapshot); err != nil {
			return nil, fmt.Errorf("export snapshot: %w", err)
		}
		if result.Report.HasRisk() {
			out.AnomalyFile = exporter.AnomalyFilename(result.Report.GeneratedAt)
			if err := s.csv.WriteAnomalies(out.AnomalyFile, *result.Report); err != nil {
				return nil, fmt.Errorf("export anomalies: %w", err)
			}
		}
	}

	s.record(ctx, grouping, result, s.now().Sub(start))

	s.logger.InfoContext(ctx, "processing complete",
		slog.String("run_id", result.RunID),
		slog.String("grouping", string(grouping)),
		slog.Int("records", result.Snapshot.RecordCount),
		slog.Int("rejected", len(result.Rejected)),
		slog.Int("anomalies", len(result.Report.Anomalies)))
	return out, nil
}

// ProcessDir processes every spreadsheet found in dir.
func (s *ProcessService) ProcessDir(ctx context.Context, dir string, grouping domain.Grouping) (*ProcessResult, error) {
	paths, err := ingest.DiscoverFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no spreadsheet files in %s", dir)
	}
	return s.ProcessFiles(ctx, paths, grouping)
}

func (s *ProcessService) record(ctx context.Context, grouping domain.Grouping, result *pipeline.Result, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	attr := infrastructure.GroupingAttr(string(grouping))
	s.metrics.PipelineRunsTotal.Add(ctx, 1, attr)
	s.metrics.PipelineRunDuration.Record(ctx, elapsed.Seconds())
	s.metrics.RowsProcessedTotal.Add(ctx, int64(len(result.Records)), attr)
	s.metrics.RowsRejectedTotal.Add(ctx, int64(len(result.Rejected)), attr)
	s.metrics.SheetsSkippedTotal.Add(ctx, int64(len(result.Skipped)))
	for _, anomaly := range result.Report.Anomalies {
		s.metrics.AnomaliesFlagged.Add(ctx, 1, infrastructure.SeverityAttr(string(anomaly.Severity)))
	}
}
