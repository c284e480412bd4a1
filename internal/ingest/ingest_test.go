package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, dir, name string, sheets map[string][][]string) string {
	t.Helper()

	f := excelize.NewFile()
	first := true
	for sheet, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", sheet))
			first = false
		} else {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadFile_Workbook(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbook(t, dir, "line1.xlsx", map[string][][]string{
		"Shift A": {
			{"Date", "Shift", "Size", "QC Grade"},
			{"2025-03-01", "A", "205/55R16", "A"},
		},
	})

	reader := NewReader(nil)
	tables, err := reader.ReadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	assert.Equal(t, "line1.xlsx#Shift A", tables[0].Source)
	require.Len(t, tables[0].Rows, 2)
	assert.Equal(t, "Date", tables[0].Rows[0][0])
	assert.Equal(t, "205/55R16", tables[0].Rows[1][2])
}

func TestReadFile_SkipsEmptySheets(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbook(t, dir, "mixed.xlsx", map[string][][]string{
		"Data":  {{"Date", "Shift"}, {"2025-03-01", "A"}},
		"Notes": {},
	})

	reader := NewReader(nil)
	tables, err := reader.ReadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "mixed.xlsx#Data", tables[0].Source)
}

func TestReadFile_CSV(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "report.csv", "Date,Shift,Size\n2025-03-01,A,205/55R16\n2025-03-01,B\n")

	reader := NewReader(nil)
	tables, err := reader.ReadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	assert.Equal(t, "report.csv", tables[0].Source)
	require.Len(t, tables[0].Rows, 3)
	// ragged rows are preserved as-is
	assert.Len(t, tables[0].Rows[2], 2)
}

func TestReadFile_UnsupportedType(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "notes.txt", "hello")

	reader := NewReader(nil)
	_, err := reader.ReadFile(context.Background(), path)
	assert.ErrorContains(t, err, "unsupported file type")
}

func TestReadFile_MissingFile(t *testing.T) {
	reader := NewReader(nil)
	_, err := reader.ReadFile(context.Background(), filepath.Join(t.TempDir(), "absent.xlsx"))
	assert.Error(t, err)
}

func TestReadFiles_PreservesInputOrder(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "b.csv", "Date\n2025-03-02\n")
	writeCSV(t, dir, "a.csv", "Date\n2025-03-01\n")
	writeCSV(t, dir, "c.csv", "Date\n2025-03-03\n")

	reader := NewReader(nil)
	// deliberately not lexical: the caller's order must survive
	tables, err := reader.ReadFiles(context.Background(), []string{
		filepath.Join(dir, "b.csv"),
		filepath.Join(dir, "c.csv"),
		filepath.Join(dir, "a.csv"),
	})
	require.NoError(t, err)
	require.Len(t, tables, 3)

	assert.Equal(t, "b.csv", tables[0].Source)
	assert.Equal(t, "c.csv", tables[1].Source)
	assert.Equal(t, "a.csv", tables[2].Source)
}

func TestReadFiles_PropagatesFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeCSV(t, dir, "good.csv", "Date\n2025-03-01\n")

	reader := NewReader(nil)
	_, err := reader.ReadFiles(context.Background(), []string{good, filepath.Join(dir, "missing.csv")})
	assert.ErrorContains(t, err, "missing.csv")
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "z.csv", "x\n")
	writeCSV(t, dir, "a.csv", "x\n")
	writeCSV(t, dir, "notes.txt", "skip me")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	paths, err := DiscoverFiles(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "a.csv"), paths[0])
	assert.Equal(t, filepath.Join(dir, "z.csv"), paths[1])
}
