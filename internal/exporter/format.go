package exporter

import "strconv"

// formatFloat renders floats with four decimal places so rates like
// 0.9667 survive the round trip through Excel.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}
