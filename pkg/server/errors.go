package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/library"
)

// Error codes returned in the "code" field of an error body.
const (
	CodeInvalidRequest  = "invalid_request"
	CodeRequestTooLarge = "request_too_large"
	CodeNotFound        = "not_found"
	CodeCancelled       = "cancelled"
	CodeInternal        = "internal"
)

// RequestError is a client error in a request body or query string.
type RequestError struct {
	Param   string
	Message string
}

func (e *RequestError) Error() string {
	if e.Param == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Param, e.Message)
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// classify maps an error to a status code and error detail. Lookups that
// resolve nothing are 404 so callers can tell them apart from a completed
// audit with zero failures.
func classify(err error) (int, ErrorDetail) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, ErrorDetail{Code: CodeInvalidRequest, Message: reqErr.Message, Param: reqErr.Param}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, ErrorDetail{
			Code:    CodeRequestTooLarge,
			Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		}
	}

	switch {
	case errors.Is(err, library.ErrDocumentNotFound),
		errors.Is(err, library.ErrCollectionNotFound),
		errors.Is(err, audit.ErrSessionNotFound),
		errors.Is(err, checklist.ErrRuleNotFound):
		return http.StatusNotFound, ErrorDetail{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrorDetail{Code: CodeCancelled, Message: "audit cancelled before completion"}
	}

	return http.StatusInternalServerError, ErrorDetail{Code: CodeInternal, Message: "an internal error occurred"}
}

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "component", "server", "error", err)
	}
}

// writeError writes err as a JSON error body. Internal errors are logged
// with the request context; their text is never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classify(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"component", "server",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, ErrorBody{Error: detail})
}
