// Package ingest reads production spreadsheets into raw tables for
// normalization. Excel workbooks yield one table per sheet; CSV files
// yield a single table.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"tyrepulse/pkg/contracts/domain"
)

// defaultConcurrency bounds parallel file reads.
const defaultConcurrency = 4

// Reader loads workbook and CSV files from disk.
type Reader struct {
	logger      *slog.Logger
	concurrency int
}

// NewReader creates a Reader. A nil logger falls back to the default
// slog logger.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger, concurrency: defaultConcurrency}
}

// ReadFile loads one spreadsheet file and returns its raw tables.
// The format is chosen by extension: .xlsx and .xlsm open as Excel
// workbooks, .csv as comma-separated text.
func (r *Reader) ReadFile(ctx context.Context, path string) ([]domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return r.readWorkbook(path)
	case ".csv":
		table, err := r.readCSV(path)
		if err != nil {
			return nil, err
		}
		return []domain.RawTable{table}, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
}

// ReadFiles loads several files concurrently. Tables are returned in
// the order the paths were given, regardless of completion order.
func (r *Reader) ReadFiles(ctx context.Context, paths []string) ([]domain.RawTable, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	var mu sync.Mutex
	byPath := make(map[string][]domain.RawTable, len(paths))

	for _, path := range paths {
		path := path
		g.Go(func() error {
			tables, err := r.ReadFile(ctx, path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			mu.Lock()
			byPath[path] = tables
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tables []domain.RawTable
	for _, path := range paths {
		tables = append(tables, byPath[path]...)
	}
	return tables, nil
}

// readWorkbook opens an Excel file and extracts every sheet that has
// rows. Empty sheets are skipped with a log line.
func (r *Reader) readWorkbook(path string) ([]domain.RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var tables []domain.RawTable
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			r.logger.Warn("skipping empty sheet",
				slog.String("file", path),
				slog.String("sheet", sheet))
			continue
		}
		tables = append(tables, domain.RawTable{
			Source: fmt.Sprintf("%s#%s", filepath.Base(path), sheet),
			Rows:   rows,
		})
	}

	if len(tables) == 0 {
		return nil, fmt.Errorf("workbook has no usable sheets: %s", path)
	}
	return tables, nil
}

// readCSV loads a CSV file as a single table. Records may have
// ragged lengths; the normalizer tolerates short rows.
func (r *Reader) readCSV(path string) (domain.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("failed to parse csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return domain.RawTable{}, fmt.Errorf("csv file is empty: %s", path)
	}

	return domain.RawTable{
		Source: filepath.Base(path),
		Rows:   rows,
	}, nil
}

// DiscoverFiles lists spreadsheet files under dir, sorted by name.
func DiscoverFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".xlsx", ".xlsm", ".csv":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
