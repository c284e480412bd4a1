// Command processor runs the spreadsheet pipeline from the command
// line: it ingests production reports, computes KPI snapshots,
// detects anomalies against stored history, and exports CSV reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"tyrepulse/internal/config"
	"tyrepulse/internal/exporter"
	"tyrepulse/internal/infrastructure"
	"tyrepulse/internal/ingest"
	"tyrepulse/internal/normalize"
	"tyrepulse/internal/pipeline"
	"tyrepulse/internal/registry"
	"tyrepulse/internal/services"
	"tyrepulse/internal/store"
	"tyrepulse/internal/trend"
	"tyrepulse/pkg/contracts/domain"
)

func main() {
	inDir := flag.String("in", "", "input directory of spreadsheet files (defaults to the configured data dir)")
	files := flag.String("files", "", "comma-separated list of spreadsheet files, overrides -in")
	outDir := flag.String("out", "", "export directory for CSV reports (defaults to the configured export dir)")
	groupingFlag := flag.String("grouping", "daily", "aggregation grouping: daily, weekly or monthly")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	grouping := domain.Grouping(*groupingFlag)
	if !grouping.IsValid() {
		logger.Error("unknown grouping", slog.String("grouping", *groupingFlag))
		os.Exit(2)
	}

	if *outDir != "" {
		cfg.Paths.ExportDir = *outDir
	}

	reg := registry.Default()
	if cfg.Paths.RegistryFile != "" {
		reg, err = registry.Load(cfg.Paths.RegistryFile)
		if err != nil {
			logger.Error("failed to load column registry", "error", err)
			os.Exit(1)
		}
	}

	pipeCfg := pipeline.Config{
		Normalize: normalize.Options{
			HeaderScanRows: cfg.Pipeline.HeaderScanRows,
			MinHeaderScore: cfg.Pipeline.MinHeaderScore,
			FuzzyThreshold: cfg.Pipeline.FuzzyThreshold,
		},
		Trend: trend.Config{
			WindowSizes: cfg.Pipeline.WindowSizes,
			Z:           cfg.Pipeline.ZThreshold,
			MinSamples:  cfg.Pipeline.MinSamples,
		},
	}

	svc := services.NewProcessService(
		ingest.NewReader(logger),
		pipeline.New(reg, pipeCfg, logger),
		store.NewHistoryStore(cfg.Paths.HistoryFile, logger),
		exporter.NewCSVWriter(cfg.Paths.ExportDir, logger),
		nil,
		logger,
	)

	ctx := context.Background()

	var result *services.ProcessResult
	if *files != "" {
		paths := strings.Split(*files, ",")
		for i := range paths {
			paths[i] = strings.TrimSpace(paths[i])
		}
		result, err = svc.ProcessFiles(ctx, paths, grouping)
	} else {
		dir := *inDir
		if dir == "" {
			dir = cfg.Paths.DataDir
		}
		result, err = svc.ProcessDir(ctx, dir, grouping)
	}
	if err != nil {
		logger.Error("processing failed", "error", err)
		os.Exit(1)
	}

	printSummary(result)
	if result.Report.HasRisk() {
		os.Exit(3)
	}
}

func printSummary(result *services.ProcessResult) {
	fmt.Printf("run %s (%s)\n", result.RunID, result.Grouping)
	fmt.Printf("  records:   %d\n", result.RecordCount)
	fmt.Printf("  rejected:  %d\n", len(result.Rejected))
	fmt.Printf("  groups:    %d\n", len(result.Snapshot.Groups))
	fmt.Printf("  anomalies: %d\n", len(result.Report.Anomalies))
	if len(result.Skipped) > 0 {
		fmt.Printf("  skipped:   %s\n", strings.Join(result.Skipped, ", "))
	}
	if result.SnapshotFile != "" {
		fmt.Printf("  snapshot:  %s\n", result.SnapshotFile)
	}
	if result.AnomalyFile != "" {
		fmt.Printf("  report:    %s\n", result.AnomalyFile)
	}
	for _, anomaly := range result.Report.Anomalies {
		fmt.Printf("  [%s] %s %s window=%d observed=%.2f expected=[%.2f, %.2f]\n",
			anomaly.Severity, anomaly.Metric, anomaly.Period.Format("2006-01-02"),
			anomaly.Window, anomaly.Observed,
			anomaly.ExpectedRange.Low, anomaly.ExpectedRange.High)
	}
}
