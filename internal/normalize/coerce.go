package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tyrepulse/internal/registry"
)

// dateLayouts are tried in order. Day-first layouts come before month-first
// because the source files are day-first; an unambiguous value parses the
// same either way.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"02-01-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"02.01.2006",
	time.RFC3339,
}

// excelEpoch is day zero of the 1900 date system. Serial 1 is 1900-01-01;
// the off-by-two accounts for Excel's phantom 1900 leap day.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// coerceDate parses a cell as a calendar date. Numeric cells are treated as
// Excel serial dates, which is how excelize surfaces unformatted date cells.
func coerceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(24 * time.Hour), nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 200000 {
		days := int(math.Floor(serial))
		return excelEpoch.AddDate(0, 0, days), nil
	}

	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// coerceFloat parses a numeric cell, tolerating thousands separators and
// stray whitespace.
func coerceFloat(s string) (float64, error) {
	s = cleanNumeric(s)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable number %q: %w", s, err)
	}
	return f, nil
}

// coerceInt parses an integer cell. Values written as floats ("120.0")
// coerce when they are whole numbers.
func coerceInt(s string) (int64, error) {
	s = cleanNumeric(s)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable integer %q: %w", s, err)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("non-integral value %q", s)
	}
	return int64(f), nil
}

// coerceCategory maps a cell to the canonical spelling of an allowed value.
// Comparison is folded, so "rework", "REWORK" and "Rework" all canonicalize
// to the registry spelling.
func coerceCategory(s string, allowed []string) (string, error) {
	folded := registry.Fold(s)
	if folded == "" {
		return "", fmt.Errorf("empty category value")
	}
	for _, a := range allowed {
		if registry.Fold(a) == folded {
			return a, nil
		}
	}
	return "", fmt.Errorf("value %q not in allowed set", strings.TrimSpace(s))
}

// cleanNumeric strips grouping separators and interior whitespace from a
// numeric cell.
func cleanNumeric(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}
