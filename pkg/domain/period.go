package domain

import (
	"fmt"
	"time"

	dErrors "fisco/pkg/domain-errors"
)

// Period is a competence month in "YYYY-MM" form. Reconciliation runs are
// scoped to a single period; the engine never validates that its inputs
// actually fall inside it (caller responsibility).
type Period string

// ParsePeriod validates external input into a Period.
// Errors: CodeInvalidInput when empty or not parseable as YYYY-MM.
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "period cannot be empty")
	}
	if _, err := time.Parse("2006-01", s); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "period must be YYYY-MM")
	}
	return Period(s), nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// Contains reports whether t falls inside the period month.
func (p Period) Contains(t time.Time) bool {
	return PeriodOf(t) == p
}

func (p Period) String() string { return string(p) }

// IsNil returns true when the period is unset.
func (p Period) IsNil() bool { return p == "" }
