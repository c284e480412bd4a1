package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tyrepulse/pkg/contracts/domain"
)

func readExport(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// strip the BOM before parsing
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteCSV_WithBOM(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, nil)

	err := w.WriteCSV("out.csv", WriteOptions{
		Headers:   []string{"a", "b"},
		Records:   [][]string{{"1", "2"}},
		BOMPrefix: true,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
}

func TestWriteCSV_Append(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, nil)

	require.NoError(t, w.WriteCSV("out.csv", WriteOptions{
		Headers: []string{"a"},
		Records: [][]string{{"1"}},
	}))
	require.NoError(t, w.WriteCSV("out.csv", WriteOptions{
		Records: [][]string{{"2"}},
		Append:  true,
	}))

	rows := readExport(t, filepath.Join(dir, "out.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2"}, rows[2])
}

func TestWriteSnapshot(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, nil)

	snapshot := domain.KPISnapshot{
		Grouping:    domain.GroupingDaily,
		GeneratedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		RecordCount: 30,
		Groups: []domain.KPIGroup{
			{
				Key: domain.GroupKey{
					Period: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
					Shift:  domain.ShiftA,
					Size:   "205/55R16",
				},
				TotalProduction:   300,
				QCPassRate:        0.9667,
				GradeCounts:       domain.GradeCounts{A: 290, B: 8, Rework: 2},
				WeightEfficiency:  98.5,
				TargetAchievement: 95,
			},
		},
	}

	require.NoError(t, w.WriteSnapshot("kpi.csv", snapshot))

	rows := readExport(t, filepath.Join(dir, "kpi.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, snapshotHeaders, rows[0])
	assert.Equal(t, []string{
		"2025-03-01", "A", "205/55R16",
		"300", "0.9667", "290", "8", "2", "98.5000", "95.0000",
	}, rows[1])
}

func TestWriteAnomalies(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, nil)

	report := domain.AnomalyReport{
		GeneratedAt: time.Date(2025, 3, 31, 8, 0, 0, 0, time.UTC),
		Anomalies: []domain.Anomaly{
			{
				Metric:         domain.MetricTotalProduction,
				Period:         time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
				Window:         30,
				Observed:       650,
				ExpectedRange:  domain.ExpectedRange{Low: 460, High: 540},
				DeviationScore: 7.5,
				Severity:       domain.SeveritySevere,
			},
		},
	}

	require.NoError(t, w.WriteAnomalies("anomalies.csv", report))

	rows := readExport(t, filepath.Join(dir, "anomalies.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, anomalyHeaders, rows[0])
	assert.Equal(t, []string{
		"total_production", "2025-03-31", "30",
		"650.0000", "460.0000", "540.0000", "7.5000", "severe",
	}, rows[1])
}

func TestFilenames(t *testing.T) {
	at := time.Date(2025, 3, 1, 8, 30, 15, 0, time.UTC)
	assert.Equal(t, "kpi_daily_2025-03-01_083015.csv", SnapshotFilename(domain.GroupingDaily, at))
	assert.Equal(t, "anomalies_2025-03-01_083015.csv", AnomalyFilename(at))
}
