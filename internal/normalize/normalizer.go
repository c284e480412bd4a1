package normalize

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"tyrepulse/internal/registry"
	"tyrepulse/pkg/contracts/domain"
)

// Options tunes header detection and column matching.
type Options struct {
	// HeaderScanRows is how many leading rows are scanned for a header.
	HeaderScanRows int
	// MinHeaderScore is the minimum fraction of non-empty cells in a row
	// that must match a synonym for the row to qualify as a header.
	MinHeaderScore float64
	// FuzzyThreshold is the maximum normalized Levenshtein distance for a
	// fuzzy synonym match, as a fraction of the longer string's length.
	FuzzyThreshold float64
}

// DefaultOptions returns the standard matching parameters.
func DefaultOptions() Options {
	return Options{
		HeaderScanRows: 5,
		MinHeaderScore: 0.5,
		FuzzyThreshold: 0.25,
	}
}

// Result is the normalizer's output for one table.
type Result struct {
	Records []domain.PartialRecord
	// Unmapped lists the raw header cells that mapped to no ColumnSpec.
	// They are reported, never silently dropped.
	Unmapped []string
	// HeaderRow is the zero-based index of the detected header row (the
	// upper row when a two-row header was merged).
	HeaderRow int
}

// Normalizer maps raw tables onto the canonical schema using an immutable
// ColumnSpec registry.
type Normalizer struct {
	reg    *registry.Registry
	opts   Options
	logger *slog.Logger
}

// NewNormalizer creates a normalizer over the given registry. A nil logger
// falls back to slog.Default.
func NewNormalizer(reg *registry.Registry, opts Options, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HeaderScanRows <= 0 {
		opts.HeaderScanRows = DefaultOptions().HeaderScanRows
	}
	if opts.MinHeaderScore <= 0 {
		opts.MinHeaderScore = DefaultOptions().MinHeaderScore
	}
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = DefaultOptions().FuzzyThreshold
	}
	return &Normalizer{reg: reg.Clone(), opts: opts, logger: logger}
}

// Normalize maps a raw table to partial canonical records. Row order is
// preserved; downstream tie-breaks depend on it. Table-level failures
// (no header, required columns entirely unmapped) return a
// *NormalizationError and no records.
func (n *Normalizer) Normalize(ctx context.Context, raw domain.RawTable) (*Result, error) {
	if raw.IsEmpty() {
		return nil, &NormalizationError{Reason: ReasonEmptyTable, Source: raw.Source}
	}

	headerRow, header, dataStart, err := n.detectHeader(raw)
	if err != nil {
		return nil, err
	}

	n.logger.DebugContext(ctx, "header row selected",
		slog.String("source", raw.Source),
		slog.Int("header_row", headerRow),
		slog.Int("data_start", dataStart))

	columnMap, unmapped := n.mapColumns(header)

	// Required fields with no mapped column reject the whole table.
	var missing []string
	for _, name := range n.reg.Required() {
		if _, ok := columnMap[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &NormalizationError{
			Reason: ReasonMissingRequiredColumns,
			Source: raw.Source,
			Fields: missing,
		}
	}

	result := &Result{Unmapped: unmapped, HeaderRow: headerRow}

	sizeCol, hasSizeCol := columnMap["size"]
	for i := dataStart; i < len(raw.Rows); i++ {
		row := raw.Rows[i]
		if rowEmpty(row) {
			continue
		}
		// Summary rows ("Total", "Grand Total") are not production events.
		if hasSizeCol && sizeCol < len(row) && isSummaryCell(row[sizeCol]) {
			continue
		}
		result.Records = append(result.Records, n.coerceRow(i+1, row, columnMap))
	}

	n.logger.InfoContext(ctx, "table normalized",
		slog.String("source", raw.Source),
		slog.Int("records", len(result.Records)),
		slog.Int("unmapped_columns", len(result.Unmapped)))

	return result, nil
}

// detectHeader scores the leading rows and returns the chosen header cells
// and the index of the first data row. When two adjacent rows both qualify,
// they are merged column-wise to support merged-cell headers such as a
// "Weight" parent row over a "Spec"/"Actual" sub-row.
func (n *Normalizer) detectHeader(raw domain.RawTable) (int, []string, int, error) {
	limit := n.opts.HeaderScanRows + 1 // one extra so a sub-row below the window edge still merges
	if limit > len(raw.Rows) {
		limit = len(raw.Rows)
	}

	scores := make([]float64, limit)
	for i := 0; i < limit; i++ {
		scores[i] = n.headerScore(raw.Rows[i])
	}

	best := -1
	scan := n.opts.HeaderScanRows
	if scan > limit {
		scan = limit
	}
	for i := 0; i < scan; i++ {
		if best == -1 || scores[i] > scores[best] { // strict: earliest row wins ties
			best = i
		}
	}
	if best == -1 || scores[best] < n.opts.MinHeaderScore {
		return 0, nil, 0, &NormalizationError{Reason: ReasonNoHeaderFound, Source: raw.Source}
	}

	header := raw.Rows[best]
	dataStart := best + 1

	if best+1 < limit && scores[best+1] >= n.opts.MinHeaderScore {
		header = mergeHeaderRows(raw.Rows[best], raw.Rows[best+1])
		dataStart = best + 2
	}

	return best, header, dataStart, nil
}

// headerScore is the fraction of a row's non-empty cells that match some
// registry synonym, exactly or fuzzily.
func (n *Normalizer) headerScore(row []string) float64 {
	nonEmpty, matched := 0, 0
	for _, cell := range row {
		if registry.Fold(cell) == "" {
			continue
		}
		nonEmpty++
		if _, ok := n.matchCell(cell); ok {
			matched++
		}
	}
	if nonEmpty == 0 {
		return 0
	}
	return float64(matched) / float64(nonEmpty)
}

// mergeHeaderRows concatenates a parent header row with its sub-row. The
// sub-row cell leads because it carries the distinguishing token ("Spec"
// under a merged "Weight" yields "Spec Weight").
func mergeHeaderRows(parent, sub []string) []string {
	width := len(parent)
	if len(sub) > width {
		width = len(sub)
	}
	merged := make([]string, width)
	for j := 0; j < width; j++ {
		var p, s string
		if j < len(parent) {
			p = strings.TrimSpace(parent[j])
		}
		if j < len(sub) {
			s = strings.TrimSpace(sub[j])
		}
		merged[j] = strings.TrimSpace(s + " " + p)
	}
	return merged
}

// mapColumns assigns each raw column to at most one ColumnSpec. A spec
// claimed by an earlier column stays claimed; later contenders are reported
// as unmapped.
func (n *Normalizer) mapColumns(header []string) (map[string]int, []string) {
	columnMap := make(map[string]int)
	var unmapped []string

	for j, cell := range header {
		if registry.Fold(cell) == "" {
			continue
		}
		name, ok := n.matchCell(cell)
		if !ok {
			unmapped = append(unmapped, strings.TrimSpace(cell))
			continue
		}
		if _, claimed := columnMap[name]; claimed {
			unmapped = append(unmapped, strings.TrimSpace(cell))
			continue
		}
		columnMap[name] = j
	}

	return columnMap, unmapped
}

// matchCell resolves a header cell to a canonical column name. Exact folded
// synonym matches win; otherwise the closest synonym within the fuzzy
// threshold does.
func (n *Normalizer) matchCell(cell string) (string, bool) {
	folded := registry.Fold(cell)
	if folded == "" {
		return "", false
	}

	for _, col := range n.reg.Columns {
		for _, syn := range col.Synonyms {
			if registry.Fold(syn) == folded {
				return col.Name, true
			}
		}
	}

	bestName := ""
	bestDist := n.opts.FuzzyThreshold
	for _, col := range n.reg.Columns {
		for _, syn := range col.Synonyms {
			fs := registry.Fold(syn)
			if fs == "" {
				continue
			}
			d := normalizedDistance(folded, fs)
			if d < bestDist {
				bestDist = d
				bestName = col.Name
			}
		}
	}
	return bestName, bestName != ""
}

// normalizedDistance is the Levenshtein distance divided by the longer
// string's length.
func normalizedDistance(a, b string) float64 {
	longer := len([]rune(a))
	if l := len([]rune(b)); l > longer {
		longer = l
	}
	if longer == 0 {
		return 0
	}
	return float64(levenshtein.Distance(a, b, nil)) / float64(longer)
}

// coerceRow builds a partial record from one data row. Coercion failures
// leave the field nil; validation decides later whether that sinks the
// record.
func (n *Normalizer) coerceRow(rowNum int, row []string, columnMap map[string]int) domain.PartialRecord {
	rec := domain.PartialRecord{Row: rowNum}

	cell := func(name string) (string, bool) {
		idx, ok := columnMap[name]
		if !ok || idx >= len(row) {
			return "", false
		}
		s := strings.TrimSpace(row[idx])
		return s, s != ""
	}

	for _, col := range n.reg.Columns {
		raw, ok := cell(col.Name)
		if !ok {
			continue
		}
		switch col.Name {
		case "date":
			if d, err := coerceDate(raw); err == nil {
				rec.Date = &d
			}
		case "shift":
			if v, err := coerceCategory(raw, col.Allowed); err == nil {
				rec.Shift = &v
			} else {
				// Keep the raw value so the rejection names what was seen.
				s := raw
				rec.Shift = &s
			}
		case "size":
			s := raw
			rec.Size = &s
		case "qc_grade":
			if v, err := coerceCategory(raw, col.Allowed); err == nil {
				rec.QCGrade = &v
			} else {
				s := raw
				rec.QCGrade = &s
			}
		case "spec_weight":
			if f, err := coerceFloat(raw); err == nil {
				rec.SpecWeight = &f
			}
		case "actual_weight":
			if f, err := coerceFloat(raw); err == nil {
				rec.ActualWeight = &f
			}
		case "quantity":
			if q, err := coerceInt(raw); err == nil {
				rec.Quantity = &q
			}
		case "target":
			if f, err := coerceFloat(raw); err == nil {
				rec.Target = &f
			}
		}
	}

	return rec
}

// rowEmpty reports whether every cell in the row is blank.
func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// isSummaryCell matches aggregate rows the source files append below the
// data ("Total", "Grand Total", "Sum").
func isSummaryCell(cell string) bool {
	folded := registry.Fold(cell)
	for _, marker := range []string{"total", "grand", "sum"} {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	return false
}