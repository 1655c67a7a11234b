package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/trek-booking/internal/domain"
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorResponse wraps ErrorDetail as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// notFoundBody returns an ErrorResponse for a missing resource.
// The caller supplies the human-readable message (e.g. "trip not found")
// because the handler is the layer that knows what was being looked up.
func notFoundBody(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "not_found", Message: message}}
}

// validationBody returns an ErrorResponse for a domain validation failure.
// The message is extracted from the wrapped domain.ErrValidation error.
func validationBody(err error) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: unwrapMessage(err, domain.ErrValidation)}}
}

// requestBody returns an ErrorResponse for a bad request rejected before
// reaching the service layer (e.g. missing or malformed body).
func requestBody(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: message}}
}

func unauthorizedBody(err error) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "unauthorized", Message: unwrapMessage(err, domain.ErrUnauthorized)}}
}

func conflictBody(message string, err error) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "conflict", Message: message, Detail: unwrapMessage(err, domain.ErrConflict)}}
}

func serverErrorBody(detail string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "server_error", Message: "internal server error", Detail: detail}}
}

// rootCause returns the message of the innermost error in err's chain,
// which is the backend's own text without the layer prefixes.
func rootCause(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// unwrapMessage extracts the human-readable part that follows sentinel in a
// wrapped error.
// e.g. "service.TripService.Create: validation error: title is required" → "title is required"
func unwrapMessage(err error, sentinel error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return sentinel.Error()
}

// writeServiceError maps a service error onto a status code. resource names
// the thing being acted on ("trip", "image") for not-found and conflict
// messages. Unmapped errors are logged and answered with a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, notFoundBody(resource+" not found"))
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, unauthorizedBody(err))
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, conflictBody(resource+" already exists", err))
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, serverErrorBody(""))
	}
}

// writeMutationError is writeServiceError for the admin write routes: an
// unmapped failure also carries the backend's message in error.detail.
func writeMutationError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrConflict) {
		writeServiceError(w, r, err, resource)
		return
	}
	slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, serverErrorBody(rootCause(err)))
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
