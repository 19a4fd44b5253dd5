package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from the bridge has the same shape:
//
//	{"error": {"code": "NOT_FOUND", "message": "Article abc not found", "timestamp": "..."}}
//
// The object is apperror.Payload, the same typed error the session state
// carries, so the UI renders both with one component.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/newsdesk/internal/apperror"
	"github.com/sakif/newsdesk/internal/repository"
)

// maxBodyBytes caps request bodies. Article HTML is the largest payload.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error apperror.Payload `json:"error"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status code must be set BEFORE writing the body. Once
// Encode writes, any header change is silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a service error to its HTTP status and sends the payload.
//
// ERROR MAPPING:
// The service layer returns errors that match apperror sentinels (and,
// for wrapped storage failures, repository kinds). Only this function
// knows about HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), ErrorResponse{Error: apperror.PayloadOf(err)})
}

// StatusFor returns the HTTP status for err.
//
// The order matters: a duplicate key arrives wrapped in a storage error
// and must still be a 409.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrInvalidParameter),
		errors.Is(err, apperror.ErrInvalidEmailFormat),
		errors.Is(err, apperror.ErrPasswordTooWeak):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrInvalidCredentials),
		errors.Is(err, apperror.ErrUnauthorized),
		errors.Is(err, apperror.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden),
		errors.Is(err, apperror.ErrCannotModifySelf),
		errors.Is(err, apperror.ErrCannotDeleteLastAdmin):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound),
		errors.Is(err, apperror.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrEmailAlreadyExists),
		errors.Is(err, repository.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrStorage),
		repository.KindOf(err) != "":
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decodeJSON reads the request body into dst. Unknown fields are refused
// so that a typo in a patch does not silently do nothing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.InvalidParameter(name, name+" must be a number")
	}
	return n, nil
}
