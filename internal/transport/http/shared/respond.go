// Package shared centralizes the JSON response envelope so every handler
// returns errors the same way.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "fisco/pkg/domain-errors"
)

// WriteJSON writes v as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody is the error envelope returned to clients.
type ErrorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Missing []string `json:"missing_fields,omitempty"`
}

// MissingFieldser is implemented by errors that carry a missing-field list
// (parse failures name which required fields could not be resolved).
type MissingFieldser interface {
	MissingFields() []string
}

// WriteError translates a domain error into the JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := ErrorBody{Error: string(code)}

	var de *dErrors.Error
	if errors.As(err, &de) {
		body.Message = de.Message
	}
	var mf MissingFieldser
	if errors.As(err, &mf) {
		body.Missing = mf.MissingFields()
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
