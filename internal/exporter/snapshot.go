package exporter

import (
	"fmt"
	"time"

	"tyrepulse/pkg/contracts/domain"
)

// snapshotHeaders is the column order for KPI snapshot exports.
var snapshotHeaders = []string{
	"Period", "Shift", "Size",
	"TotalProduction", "QCPassRate", "GradeA", "GradeB", "Rework",
	"WeightEfficiency", "TargetAchievement",
}

// anomalyHeaders is the column order for anomaly report exports.
var anomalyHeaders = []string{
	"Metric", "Period", "Window", "Observed",
	"ExpectedLow", "ExpectedHigh", "DeviationScore", "Severity",
}

// WriteSnapshot exports a KPI snapshot to name within the export
// directory. Groups keep the snapshot's deterministic ordering.
func (w *CSVWriter) WriteSnapshot(name string, snapshot domain.KPISnapshot) error {
	records := make([][]string, 0, len(snapshot.Groups))
	for _, group := range snapshot.Groups {
		records = append(records, []string{
			group.Key.Period.Format("2006-01-02"),
			string(group.Key.Shift),
			group.Key.Size,
			formatInt(group.TotalProduction),
			formatFloat(group.QCPassRate),
			formatInt(group.GradeCounts.A),
			formatInt(group.GradeCounts.B),
			formatInt(group.GradeCounts.Rework),
			formatFloat(group.WeightEfficiency),
			formatFloat(group.TargetAchievement),
		})
	}

	return w.WriteCSV(name, WriteOptions{
		Headers:   snapshotHeaders,
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteAnomalies exports an anomaly report to name within the export
// directory.
func (w *CSVWriter) WriteAnomalies(name string, report domain.AnomalyReport) error {
	records := make([][]string, 0, len(report.Anomalies))
	for _, anomaly := range report.Anomalies {
		records = append(records, []string{
			anomaly.Metric,
			anomaly.Period.Format("2006-01-02"),
			formatInt(int64(anomaly.Window)),
			formatFloat(anomaly.Observed),
			formatFloat(anomaly.ExpectedRange.Low),
			formatFloat(anomaly.ExpectedRange.High),
			formatFloat(anomaly.DeviationScore),
			string(anomaly.Severity),
		})
	}

	return w.WriteCSV(name, WriteOptions{
		Headers:   anomalyHeaders,
		Records:   records,
		BOMPrefix: true,
	})
}

// SnapshotFilename builds a timestamped export name for a grouping.
func SnapshotFilename(grouping domain.Grouping, at time.Time) string {
	return fmt.Sprintf("kpi_%s_%s.csv", grouping, at.Format("2006-01-02_150405"))
}

// AnomalyFilename builds a timestamped export name for an anomaly
// report.
func AnomalyFilename(at time.Time) string {
	return fmt.Sprintf("anomalies_%s.csv", at.Format("2006-01-02_150405"))
}
