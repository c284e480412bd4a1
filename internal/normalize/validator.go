package normalize

import (
	"fmt"
	"time"

	"tyrepulse/pkg/contracts/domain"
)

// maxWeightRatio bounds actual_weight at a multiple of spec_weight. A cured
// tyre ten times its specified weight is a data error, not a heavy tyre.
const maxWeightRatio = 10.0

// Validator enforces the canonical-record invariants. The clock is
// injectable so future-date checks are deterministic in tests.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a validator using the wall clock.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// NewValidatorAt creates a validator with a fixed clock.
func NewValidatorAt(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// Validate splits partial records into valid canonical records and
// rejections. A record with one or more violations is rejected whole, and
// every violated rule is listed. Validate never fails; callers decide what a
// non-empty rejection list means.
func (v *Validator) Validate(partials []domain.PartialRecord) ([]domain.CanonicalRecord, []domain.RejectedRecord) {
	valid := make([]domain.CanonicalRecord, 0, len(partials))
	var rejected []domain.RejectedRecord
	today := v.now().UTC().Truncate(24 * time.Hour)

	for _, p := range partials {
		reasons := v.check(p, today)
		if len(reasons) > 0 {
			rejected = append(rejected, domain.RejectedRecord{Record: p, Reasons: reasons})
			continue
		}
		valid = append(valid, build(p))
	}

	return valid, rejected
}

// check returns every rule the record violates, in field order.
func (v *Validator) check(p domain.PartialRecord, today time.Time) []string {
	var reasons []string

	missing := func(field string) {
		reasons = append(reasons, fmt.Sprintf("%s: %s", ReasonMissingRequired, field))
	}

	if p.Date == nil {
		missing("date")
	} else if p.Date.After(today) {
		reasons = append(reasons, fmt.Sprintf("%s: date", ReasonFutureDate))
	}

	if p.Shift == nil {
		missing("shift")
	} else if !domain.Shift(*p.Shift).IsValid() {
		reasons = append(reasons, fmt.Sprintf("%s: shift", ReasonInvalidEnum))
	}

	if p.Size == nil || *p.Size == "" {
		missing("size")
	}

	if p.QCGrade == nil {
		missing("qc_grade")
	} else if !domain.QCGrade(*p.QCGrade).IsValid() {
		reasons = append(reasons, fmt.Sprintf("%s: qc_grade", ReasonInvalidEnum))
	}

	if p.SpecWeight == nil {
		missing("spec_weight")
	} else if *p.SpecWeight < 0 {
		reasons = append(reasons, fmt.Sprintf("%s: spec_weight", ReasonOutOfRange))
	}

	if p.ActualWeight == nil {
		missing("actual_weight")
	} else {
		w := *p.ActualWeight
		if w < 0 {
			reasons = append(reasons, fmt.Sprintf("%s: actual_weight", ReasonOutOfRange))
		} else if p.SpecWeight != nil && *p.SpecWeight > 0 && w > maxWeightRatio*(*p.SpecWeight) {
			reasons = append(reasons, fmt.Sprintf("%s: actual_weight", ReasonOutOfRange))
		}
	}

	if p.Quantity == nil {
		missing("quantity")
	} else if *p.Quantity < 0 {
		reasons = append(reasons, fmt.Sprintf("%s: quantity", ReasonOutOfRange))
	}

	return reasons
}

// build assembles a canonical record from a partial that passed every check.
func build(p domain.PartialRecord) domain.CanonicalRecord {
	rec := domain.CanonicalRecord{
		Date:         *p.Date,
		Shift:        domain.Shift(*p.Shift),
		Size:         *p.Size,
		QCGrade:      domain.QCGrade(*p.QCGrade),
		SpecWeight:   *p.SpecWeight,
		ActualWeight: *p.ActualWeight,
		Quantity:     *p.Quantity,
	}
	if p.Target != nil {
		rec.Target = *p.Target
	}
	return rec
}
