package normalize

import (
	"fmt"
	"strings"
)

// Normalization failure reason codes.
const (
	ReasonNoHeaderFound          = "no_header_found"
	ReasonMissingRequiredColumns = "missing_required_columns"
	ReasonEmptyTable             = "empty_table"
)

// NormalizationError is a table-level failure: the whole table is rejected
// and no partial records are produced. Fields carries every canonical column
// that could not be mapped, so the source file can be fixed in one pass.
type NormalizationError struct {
	Reason string
	Source string
	Fields []string
}

// Error implements the error interface.
func (e *NormalizationError) Error() string {
	msg := fmt.Sprintf("normalization failed: %s", e.Reason)
	if e.Source != "" {
		msg = fmt.Sprintf("%s (source %s)", msg, e.Source)
	}
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Fields, ", "))
	}
	return msg
}

// Record rejection reason codes. Each is combined with the offending field
// name, e.g. "out_of_range: actual_weight".
const (
	ReasonMissingRequired = "missing_required"
	ReasonOutOfRange      = "out_of_range"
	ReasonInvalidEnum     = "invalid_enum"
	ReasonFutureDate      = "future_date"
)
