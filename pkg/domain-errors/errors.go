// Package domainerrors provides coded errors that travel from services up to
// the transport layer without leaking implementation detail. Handlers map
// codes to HTTP statuses; services decide codes at the point of failure.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for propagation and retry decisions.
type Code string

const (
	// Generic codes shared by every module.
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal"
	CodeInvariantViolation Code = "invariant_violation"

	// Document pipeline taxonomy.
	// CodeUnsupportedFormat: user input, not retriable.
	CodeUnsupportedFormat Code = "unsupported_format"
	// CodeExtractionFailed: transient recognizer failure, retriable.
	CodeExtractionFailed Code = "extraction_failed"
	// CodeParseIncomplete: required fields missing, needs manual review.
	CodeParseIncomplete Code = "parse_incomplete"
	// CodeTimeout: unit exceeded its processing budget, retriable with backoff.
	CodeTimeout Code = "timeout"
	// CodeAggregationMismatch: report totals disagree with their own results.
	// Fatal; aborts the reconciliation run.
	CodeAggregationMismatch Code = "aggregation_mismatch"
)

// Error is the coded error carried across module boundaries.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
// A nil err returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		if err == nil {
			return false
		}
	}
	return false
}

// HasCode is an alias of Is for call sites that read better with it.
func HasCode(err error, code Code) bool { return Is(err, code) }

// CodeOf extracts the outermost code, or CodeInternal when err is not coded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Retriable reports whether the code represents a transient condition that
// is worth retrying with backoff.
func Retriable(code Code) bool {
	return code == CodeExtractionFailed || code == CodeTimeout
}

// ToHTTPStatus maps a code to the HTTP status handlers should return.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeValidation, CodeUnsupportedFormat:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeParseIncomplete:
		return http.StatusUnprocessableEntity
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeExtractionFailed, CodeInternal, CodeInvariantViolation, CodeAggregationMismatch:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
