// Package models defines the document-side data model: raw uploads, the
// pages produced by preprocessing, OCR tokens and the parsed financial
// document consumed by the reconciliation engine.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"fisco/pkg/domain"
)

// DocumentType categorizes a parsed fiscal document. The category drives
// obligation matching (guias match tax obligations, notas match receivables).
type DocumentType string

const (
	TypeNotaFiscal DocumentType = "nota_fiscal"
	TypeRecibo     DocumentType = "recibo"
	TypeGuia       DocumentType = "guia"
	TypeBoleto     DocumentType = "boleto"
	TypeExtrato    DocumentType = "extrato"
	TypeUnknown    DocumentType = "desconhecido"
)

// IsValid checks if the document type is one of the supported enum values.
func (t DocumentType) IsValid() bool {
	switch t {
	case TypeNotaFiscal, TypeRecibo, TypeGuia, TypeBoleto, TypeExtrato, TypeUnknown:
		return true
	}
	return false
}

// RawDocument is an uploaded payload before any processing. Immutable once
// stored.
type RawDocument struct {
	ID         domain.DocumentID
	Filename   string
	Payload    []byte
	UploadedAt time.Time
	// Period is the competence period declared by the uploader. The
	// pipeline never derives it from document content.
	Period domain.Period
}

// PreprocessParams records the normalization applied to a page so the audit
// trail can explain OCR results.
type PreprocessParams struct {
	Grayscale    bool    `json:"grayscale"`
	TargetHeight int     `json:"target_height"`
	ContrastPct  float64 `json:"contrast_pct"`
	SourceFormat string  `json:"source_format"`
}

// Page is one normalized page image, PNG-encoded, ready for OCR.
// Pages are transient: they are discarded after token extraction.
type Page struct {
	DocumentID domain.DocumentID
	// Number is 1-based and preserves the physical page order.
	Number int
	PNG    []byte
	Params PreprocessParams
}

// Rect is a token bounding box in pixel coordinates, origin upper-left.
type Rect struct {
	X, Y, W, H int
}

// Token is a recognized text fragment. Tokens below the configured minimum
// confidence are flagged, never dropped; downstream components decide.
type Token struct {
	Page          int
	Text          string
	Bounds        Rect
	Confidence    float64
	LowConfidence bool
}

// FieldConfidence carries per-field combined confidence (OCR confidence
// times pattern-match confidence) into the reconciliation engine.
type FieldConfidence struct {
	Amount       float64 `json:"amount"`
	IssueDate    float64 `json:"issue_date"`
	Counterparty float64 `json:"counterparty"`
	TaxCode      float64 `json:"tax_code"`
}

// FinancialDocument is the parsed result of one RawDocument. Every
// FinancialDocument traces to exactly one RawDocument via ID.
type FinancialDocument struct {
	ID             domain.DocumentID `json:"id"`
	SourceFilename string            `json:"source_filename"`
	Type           DocumentType      `json:"type"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	IssueDate      time.Time         `json:"issue_date"`
	// Counterparty is the normalized CNPJ/CPF (digits only).
	Counterparty string          `json:"counterparty"`
	TaxCode      string          `json:"tax_code,omitempty"`
	Confidence   FieldConfidence `json:"confidence"`
}

// ProcessingStatus tracks the pipeline outcome for a stored document.
type ProcessingStatus string

const (
	StatusParsed           ProcessingStatus = "parsed"
	StatusExtractionFailed ProcessingStatus = "extraction_failed"
	StatusParseIncomplete  ProcessingStatus = "parse_incomplete"
)

// DocumentRecord is the persisted view of a document: the upload metadata,
// the pipeline outcome and, when parsing succeeded, the parsed fields.
// Failed documents are kept so reports can list them as EXTRACTION_FAILED
// rather than silently omitting them.
type DocumentRecord struct {
	ID            domain.DocumentID  `json:"id"`
	Filename      string             `json:"filename"`
	UploadedAt    time.Time          `json:"uploaded_at"`
	Period        domain.Period      `json:"period"`
	PageCount     int                `json:"page_count"`
	Status        ProcessingStatus   `json:"status"`
	FailureReason string             `json:"failure_reason,omitempty"`
	Parsed        *FinancialDocument `json:"parsed,omitempty"`
}
