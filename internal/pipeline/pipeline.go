// Package pipeline composes the normalization, validation, KPI and anomaly
// stages into a single pure run over in-memory values. The pipeline performs
// no I/O of its own; reading raw tables and persisting snapshots belong to
// the callers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"tyrepulse/internal/kpi"
	"tyrepulse/internal/normalize"
	"tyrepulse/internal/registry"
	"tyrepulse/internal/trend"
	"tyrepulse/pkg/contracts/domain"
)

// Result carries every stage's output for one run. Rejections and unmapped
// columns are surfaced alongside the snapshot; they never block it.
type Result struct {
	RunID    string                  `json:"run_id"`
	Records  []domain.CanonicalRecord `json:"records"`
	Rejected []domain.RejectedRecord  `json:"rejected"`
	Unmapped []string                 `json:"unmapped_columns"`
	Skipped  []string                 `json:"skipped_sources,omitempty"`
	Snapshot *domain.KPISnapshot      `json:"snapshot"`
	Report   *domain.AnomalyReport    `json:"report"`
}

// Pipeline wires the four stages together over a shared registry. Instances
// are safe for concurrent use; every stage is a pure function of its inputs.
type Pipeline struct {
	normalizer *normalize.Normalizer
	validator  *normalize.Validator
	engine     *kpi.Engine
	detector   *trend.Detector
	logger     *slog.Logger
}

// Config selects the tunables of the individual stages.
type Config struct {
	Normalize normalize.Options
	Trend     trend.Config
}

// New builds a pipeline over the given registry.
func New(reg *registry.Registry, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		normalizer: normalize.NewNormalizer(reg, cfg.Normalize, logger),
		validator:  normalize.NewValidator(),
		engine:     kpi.NewEngine(logger),
		detector:   trend.NewDetector(cfg.Trend, logger),
		logger:     logger,
	}
}

// Run processes one raw table end to end: normalize, validate, compute KPIs
// over the valid subset, then detect anomalies against history extended with
// the fresh snapshot. Table-level normalization failures abort the run with
// no partial result.
func (p *Pipeline) Run(ctx context.Context, raw domain.RawTable, history []domain.KPISnapshot, grouping domain.Grouping) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With(slog.String("run_id", runID), slog.String("source", raw.Source))

	norm, err := p.normalizer.Normalize(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalize table: %w", err)
	}

	valid, rejected := p.validator.Validate(norm.Records)
	logger.InfoContext(ctx, "records validated",
		slog.Int("valid", len(valid)),
		slog.Int("rejected", len(rejected)))

	snapshot, err := p.engine.Compute(ctx, valid, grouping)
	if err != nil {
		return nil, fmt.Errorf("compute KPIs: %w", err)
	}

	extended := make([]domain.KPISnapshot, 0, len(history)+1)
	extended = append(extended, history...)
	extended = append(extended, *snapshot)
	report := p.detector.Detect(ctx, extended)

	return &Result{
		RunID:    runID,
		Records:  valid,
		Rejected: rejected,
		Unmapped: norm.Unmapped,
		Snapshot: snapshot,
		Report:   report,
	}, nil
}

// RunTables processes several raw tables as one dataset, typically the
// sheets of a workbook. Tables whose structure cannot be normalized are
// skipped with a log line and reported in Skipped; the run fails only when
// every table is unusable.
func (p *Pipeline) RunTables(ctx context.Context, tables []domain.RawTable, history []domain.KPISnapshot, grouping domain.Grouping) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With(slog.String("run_id", runID))

	var (
		records  []domain.CanonicalRecord
		rejected []domain.RejectedRecord
		unmapped []string
		skipped  []string
	)
	for _, raw := range tables {
		norm, err := p.normalizer.Normalize(ctx, raw)
		if err != nil {
			var normErr *normalize.NormalizationError
			if errors.As(err, &normErr) {
				logger.WarnContext(ctx, "skipping table",
					slog.String("source", raw.Source),
					slog.String("reason", normErr.Reason))
				skipped = append(skipped, raw.Source)
				continue
			}
			return nil, fmt.Errorf("normalize table %s: %w", raw.Source, err)
		}

		valid, bad := p.validator.Validate(norm.Records)
		records = append(records, valid...)
		rejected = append(rejected, bad...)
		unmapped = append(unmapped, norm.Unmapped...)
	}
	if len(tables) > 0 && len(skipped) == len(tables) {
		return nil, fmt.Errorf("no usable tables: all %d skipped", len(skipped))
	}

	logger.InfoContext(ctx, "records validated",
		slog.Int("valid", len(records)),
		slog.Int("rejected", len(rejected)),
		slog.Int("skipped_tables", len(skipped)))

	snapshot, err := p.engine.Compute(ctx, records, grouping)
	if err != nil {
		return nil, fmt.Errorf("compute KPIs: %w", err)
	}

	extended := make([]domain.KPISnapshot, 0, len(history)+1)
	extended = append(extended, history...)
	extended = append(extended, *snapshot)
	report := p.detector.Detect(ctx, extended)

	return &Result{
		RunID:    runID,
		Records:  records,
		Rejected: rejected,
		Unmapped: unmapped,
		Skipped:  skipped,
		Snapshot: snapshot,
		Report:   report,
	}, nil
}
