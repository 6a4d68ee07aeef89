// Package models defines expected financial obligations: the ledger entries
// that reconciliation matches parsed documents against.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"fisco/pkg/domain"
)

// Obligation is one expected entry for a competence period, imported from an
// accounting system's ledger export.
type Obligation struct {
	ID domain.ObligationID `json:"id"`
	// ExternalID is the identifier carried by the source ledger. Unique per
	// period; imports skip rows whose ExternalID was already imported.
	ExternalID  string          `json:"external_id"`
	Description string          `json:"description"`
	AmountDue   decimal.Decimal `json:"amount_due"`
	DueDate     time.Time       `json:"due_date"`
	// Counterparty is the normalized CNPJ/CPF (digits only).
	Counterparty string        `json:"counterparty"`
	Category     string        `json:"category,omitempty"`
	Period       domain.Period `json:"period"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ImportResult summarizes one ledger import.
type ImportResult struct {
	Imported int          `json:"imported"`
	Skipped  []SkippedRow `json:"skipped,omitempty"`
}

// SkippedRow records why a source row was not imported. Row numbers are
// 1-based and count the header.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
