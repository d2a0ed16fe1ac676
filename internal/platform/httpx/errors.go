// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors understood by RespondError.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation failed")
	ErrRateLimited = errors.New("too many requests")
)

// RespondError maps errors to RFC7807 responses. Unknown errors become a
// 500 without detail so internals never leak.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrRateLimited):
		Problem(w, http.StatusTooManyRequests, "Too Many Requests", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
