// Package report aggregates reconciliation results into immutable reports.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"fisco/internal/reconcile/models"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// Build assembles a report from a run's results and verifies its summary
// before returning it. A summary that disagrees with its own results is a
// CodeAggregationMismatch, which is fatal: a report whose totals cannot be
// trusted must never be persisted.
func Build(id domain.ReportID, period domain.Period, createdAt time.Time, results []models.Result) (models.Report, error) {
	if id.IsNil() {
		return models.Report{}, dErrors.New(dErrors.CodeInvalidInput, "report id is required")
	}
	if period.IsNil() {
		return models.Report{}, dErrors.New(dErrors.CodeInvalidInput, "competence period is required")
	}

	rep := models.Report{
		ID:        id,
		Period:    period,
		CreatedAt: createdAt,
		Results:   results,
		Summary:   aggregate(results),
	}
	if err := Verify(rep); err != nil {
		return models.Report{}, err
	}
	return rep, nil
}

// Verify checks that a report's summary equals a re-aggregation of its
// results. Errors: CodeAggregationMismatch.
func Verify(rep models.Report) error {
	want := aggregate(rep.Results)
	got := rep.Summary
	switch {
	case got.TotalDocuments != want.TotalDocuments,
		got.TotalObligations != want.TotalObligations,
		got.Matched != want.Matched,
		got.Partial != want.Partial,
		got.UnmatchedDocuments != want.UnmatchedDocuments,
		got.UnmatchedObligations != want.UnmatchedObligations,
		got.ExtractionFailed != want.ExtractionFailed,
		!got.MatchedAmount.Equal(want.MatchedAmount),
		!got.TotalDiscrepancy.Equal(want.TotalDiscrepancy):
		return dErrors.Newf(dErrors.CodeAggregationMismatch,
			"report %s summary disagrees with its results", rep.ID.String())
	}
	return nil
}

func aggregate(results []models.Result) models.Summary {
	s := models.Summary{
		MatchedAmount:    decimal.Zero,
		TotalDiscrepancy: decimal.Zero,
	}
	for _, r := range results {
		switch r.Status {
		case models.StatusMatched:
			s.Matched++
			if r.Amount != nil {
				s.MatchedAmount = s.MatchedAmount.Add(*r.Amount)
			}
		case models.StatusPartial:
			s.Partial++
			if r.Delta != nil {
				s.TotalDiscrepancy = s.TotalDiscrepancy.Add(r.Delta.AmountDiff)
			}
		case models.StatusUnmatchedDocument:
			s.UnmatchedDocuments++
		case models.StatusUnmatchedObligation:
			s.UnmatchedObligations++
		case models.StatusExtractionFailed:
			s.ExtractionFailed++
		}
		if r.DocumentID != nil {
			s.TotalDocuments++
		}
		if r.ObligationID != nil {
			s.TotalObligations++
		}
	}
	return s
}
