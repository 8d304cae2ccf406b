// Package httputil writes JSON responses and maps domain error codes onto
// HTTP statuses.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "nebula/pkg/domain-errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

type httpMapping struct {
	status int
	code   string
}

var mappings = map[dErrors.Code]httpMapping{
	dErrors.CodeNotFound:     {http.StatusNotFound, "not_found"},
	dErrors.CodeBadRequest:   {http.StatusBadRequest, "bad_request"},
	dErrors.CodeInvalidInput: {http.StatusBadRequest, "bad_request"},
	dErrors.CodeValidation:   {http.StatusBadRequest, "validation_error"},
	dErrors.CodeConflict:     {http.StatusConflict, "conflict"},
	dErrors.CodeUnauthorized: {http.StatusUnauthorized, "unauthorized"},
	dErrors.CodeForbidden:    {http.StatusForbidden, "forbidden"},
	dErrors.CodeTimeout:      {http.StatusGatewayTimeout, "timeout"},
	dErrors.CodeUnavailable:  {http.StatusServiceUnavailable, "unavailable"},
	dErrors.CodeTooLarge:     {http.StatusRequestEntityTooLarge, "request_too_large"},
}

var internalMapping = httpMapping{http.StatusInternalServerError, "internal_error"}

func mappingFor(code dErrors.Code) httpMapping {
	if m, ok := mappings[code]; ok {
		return m
	}
	return internalMapping
}

// WriteJSON writes response with status.
func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status is already sent; an encoding error cannot be reported
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError renders err as an ErrorResponse. Messages of errors without a
// domain code are never exposed.
func WriteError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		WriteJSON(w, internalMapping.status, ErrorResponse{Error: internalMapping.code})
		return
	}
	m := mappingFor(de.Code)
	WriteJSON(w, m.status, ErrorResponse{Error: m.code, Description: de.Message})
}

// DomainCodeToHTTPStatus returns the HTTP status for code.
func DomainCodeToHTTPStatus(code dErrors.Code) int { return mappingFor(code).status }

// DomainCodeToHTTPCode is the "error" value written for code.
func DomainCodeToHTTPCode(code dErrors.Code) string { return mappingFor(code).code }
