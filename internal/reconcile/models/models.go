// Package models defines reconciliation results and reports.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"fisco/pkg/domain"
)

// Status classifies one reconciliation result.
type Status string

const (
	// StatusMatched: document and obligation agree within tolerance.
	StatusMatched Status = "MATCHED"
	// StatusPartial: accepted pair with an amount or date discrepancy.
	StatusPartial Status = "PARTIAL"
	// StatusUnmatchedDocument: parsed document with no accepted obligation.
	StatusUnmatchedDocument Status = "UNMATCHED_DOCUMENT"
	// StatusUnmatchedObligation: obligation no document was accepted for.
	StatusUnmatchedObligation Status = "UNMATCHED_OBLIGATION"
	// StatusExtractionFailed: document that never produced parsed fields.
	StatusExtractionFailed Status = "EXTRACTION_FAILED"
)

// Delta quantifies the discrepancy of a PARTIAL result. Both values are
// absolute.
type Delta struct {
	AmountDiff   decimal.Decimal `json:"amount_diff"`
	DateDiffDays int             `json:"date_diff_days"`
}

// Result is one line of a reconciliation report. DocumentID and ObligationID
// are set according to the status; both are set only for accepted pairs.
type Result struct {
	Status       Status               `json:"status"`
	DocumentID   *domain.DocumentID   `json:"document_id,omitempty"`
	ObligationID *domain.ObligationID `json:"obligation_id,omitempty"`
	Score        float64              `json:"score,omitempty"`
	// Amount is the document amount of an accepted pair.
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Delta  *Delta           `json:"delta,omitempty"`
	Detail string           `json:"detail,omitempty"`
}

// Summary aggregates a report's results.
type Summary struct {
	TotalDocuments       int             `json:"total_documents"`
	TotalObligations     int             `json:"total_obligations"`
	Matched              int             `json:"matched"`
	Partial              int             `json:"partial"`
	UnmatchedDocuments   int             `json:"unmatched_documents"`
	UnmatchedObligations int             `json:"unmatched_obligations"`
	ExtractionFailed     int             `json:"extraction_failed"`
	MatchedAmount        decimal.Decimal `json:"matched_amount"`
	TotalDiscrepancy     decimal.Decimal `json:"total_discrepancy"`
}

// Report is one immutable reconciliation run. Corrections create a new
// report rather than mutating an existing one.
type Report struct {
	ID        domain.ReportID `json:"id"`
	Period    domain.Period   `json:"period"`
	CreatedAt time.Time       `json:"created_at"`
	Results   []Result        `json:"results"`
	Summary   Summary         `json:"summary"`
}
