package domain

import (
	"time"
)

// Shift identifies the production shift a record belongs to.
type Shift string

const (
	ShiftA Shift = "A"
	ShiftB Shift = "B"
	ShiftC Shift = "C"
)

// ValidShifts lists the shifts recognized by the registry.
var ValidShifts = []Shift{ShiftA, ShiftB, ShiftC}

// IsValid reports whether the shift is one of the recognized values.
func (s Shift) IsValid() bool {
	switch s {
	case ShiftA, ShiftB, ShiftC:
		return true
	}
	return false
}

// QCGrade is the quality-control classification of a production batch.
type QCGrade string

const (
	GradeA      QCGrade = "A"
	GradeB      QCGrade = "B"
	GradeRework QCGrade = "Rework"
)

// ValidGrades lists the QC grades recognized by the registry.
var ValidGrades = []QCGrade{GradeA, GradeB, GradeRework}

// IsValid reports whether the grade is one of the recognized values.
func (g QCGrade) IsValid() bool {
	switch g {
	case GradeA, GradeB, GradeRework:
		return true
	}
	return false
}

// CanonicalRecord is a single production event normalized to the fixed
// schema. Instances are immutable once validated; downstream stages never
// mutate them.
type CanonicalRecord struct {
	Date         time.Time `json:"date" validate:"required"`
	Shift        Shift     `json:"shift" validate:"required,oneof=A B C"`
	Size         string    `json:"size" validate:"required"`
	QCGrade      QCGrade   `json:"qc_grade" validate:"required,oneof=A B Rework"`
	SpecWeight   float64   `json:"spec_weight" validate:"min=0"`
	ActualWeight float64   `json:"actual_weight" validate:"min=0"`
	Quantity     int64     `json:"quantity" validate:"min=0"`
	Target       float64   `json:"target,omitempty"`
}

// PartialRecord is the normalizer's output before validation. A nil pointer
// field means the source cell was absent or failed type coercion; the
// validator decides what that means for the record.
type PartialRecord struct {
	Row          int        `json:"row"` // original data row index, header-relative
	Date         *time.Time `json:"date,omitempty"`
	Shift        *string    `json:"shift,omitempty"`
	Size         *string    `json:"size,omitempty"`
	QCGrade      *string    `json:"qc_grade,omitempty"`
	SpecWeight   *float64   `json:"spec_weight,omitempty"`
	ActualWeight *float64   `json:"actual_weight,omitempty"`
	Quantity     *int64     `json:"quantity,omitempty"`
	Target       *float64   `json:"target,omitempty"`
}

// RejectedRecord pairs a partial record with every validation rule it
// violated. All violations are reported at once so a source file can be
// fixed in a single pass.
type RejectedRecord struct {
	Record  PartialRecord `json:"record"`
	Reasons []string      `json:"reasons"`
}

// RawTable is an ordered sequence of rows of raw cell values, as produced by
// an external spreadsheet reader. There is no guaranteed header row position;
// the normalizer discovers it.
type RawTable struct {
	Source string     `json:"source,omitempty"` // file or sheet the table came from
	Rows   [][]string `json:"rows"`
}

// IsEmpty reports whether the table holds no rows at all.
func (t RawTable) IsEmpty() bool {
	return len(t.Rows) == 0
}
