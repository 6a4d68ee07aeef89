// Package parser interprets OCR token streams into typed financial fields.
// Field candidates are extracted independently per field; when several
// candidates compete, the highest combined OCR-times-pattern confidence wins
// and ties break on earliest reading-order position.
package parser

import (
	"fmt"
	"strings"

	"fisco/internal/document/models"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// IncompleteError names the required fields that could not be resolved.
type IncompleteError struct {
	Fields []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("required fields missing: %s", strings.Join(e.Fields, ", "))
}

// MissingFields implements the transport envelope's missing-field contract.
func (e *IncompleteError) MissingFields() []string { return e.Fields }

// Parser turns a document's full token stream into a FinancialDocument.
type Parser struct{}

// New returns a Parser.
func New() *Parser { return &Parser{} }

// Parse resolves the required fields (amount, issue date, counterparty) and
// the optional tax code from the reading-ordered token stream of one
// document. Tokens from all pages are expected concatenated in page order.
// Errors: CodeParseIncomplete wrapping an IncompleteError naming the fields
// that could not be resolved.
func (p *Parser) Parse(id domain.DocumentID, filename string, tokens []models.Token) (models.FinancialDocument, error) {
	doc := models.FinancialDocument{
		ID:             id,
		SourceFilename: filename,
		Currency:       "BRL",
		Type:           Classify(tokens),
	}

	var missing []string

	if c, ok := selectCandidate(amountCandidates(tokens)); ok {
		amount, err := parseAmount(c.value)
		if err == nil {
			doc.Amount = amount
			doc.Confidence.Amount = c.score()
		} else {
			missing = append(missing, "amount")
		}
	} else {
		missing = append(missing, "amount")
	}

	if c, ok := selectCandidate(dateCandidates(tokens)); ok {
		date, err := parseDate(c.value)
		if err == nil {
			doc.IssueDate = date
			doc.Confidence.IssueDate = c.score()
		} else {
			missing = append(missing, "date")
		}
	} else {
		missing = append(missing, "date")
	}

	if c, ok := selectCandidate(counterpartyCandidates(tokens)); ok {
		doc.Counterparty = normalizeCounterparty(c.value)
		doc.Confidence.Counterparty = c.score()
	} else {
		missing = append(missing, "counterparty")
	}

	// Tax code is optional: only guias carry one.
	if c, ok := selectCandidate(taxCodeCandidates(tokens)); ok {
		doc.TaxCode = c.value
		doc.Confidence.TaxCode = c.score()
	}

	if len(missing) > 0 {
		return models.FinancialDocument{}, dErrors.Wrap(
			&IncompleteError{Fields: missing},
			dErrors.CodeParseIncomplete,
			"document could not be fully parsed",
		)
	}
	return doc, nil
}

// selectCandidate picks the best-scoring candidate; ties break on earliest
// reading-order position, which keeps parsing deterministic.
func selectCandidate(cands []candidate) (candidate, bool) {
	if len(cands) == 0 {
		return candidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.score() > best.score() || (c.score() == best.score() && c.position < best.position) {
			best = c
		}
	}
	return best, true
}
