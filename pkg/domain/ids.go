// Package domain defines typed identifiers and small value objects shared by
// every module. IDs are distinct types over uuid.UUID so a DocumentID can
// never be passed where an ObligationID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "fisco/pkg/domain-errors"
)

// DocumentID identifies a raw or parsed financial document.
type DocumentID uuid.UUID

// ObligationID identifies an expected ledger/obligation entry.
type ObligationID uuid.UUID

// ReportID identifies a persisted reconciliation report.
type ReportID uuid.UUID

// NewDocumentID returns a fresh random document ID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// NewObligationID returns a fresh random obligation ID.
func NewObligationID() ObligationID { return ObligationID(uuid.New()) }

// NewReportID returns a fresh random report ID.
func NewReportID() ReportID { return ReportID(uuid.New()) }

// ParseDocumentID validates external input into a DocumentID.
// Errors: CodeInvalidInput when empty, malformed, or the nil UUID.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s)
	return DocumentID(u), err
}

// ParseObligationID validates external input into an ObligationID.
func ParseObligationID(s string) (ObligationID, error) {
	u, err := parseUUID(s)
	return ObligationID(u), err
}

// ParseReportID validates external input into a ReportID.
func ParseReportID(s string) (ReportID, error) {
	u, err := parseUUID(s)
	return ReportID(u), err
}

func (id DocumentID) String() string   { return uuid.UUID(id).String() }
func (id ObligationID) String() string { return uuid.UUID(id).String() }
func (id ReportID) String() string     { return uuid.UUID(id).String() }

func (id DocumentID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ObligationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReportID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// IDs travel through JSON and storage as their canonical string form.

func (id DocumentID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ObligationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ReportID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

func (id *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ObligationID) UnmarshalText(b []byte) error {
	parsed, err := ParseObligationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ReportID) UnmarshalText(b []byte) error {
	parsed, err := ParseReportID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "nil id")
	}
	return u, nil
}
