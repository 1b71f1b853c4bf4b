// Package httpapi exposes the HTTP API layer of the service.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/pos-register-simulator/internal/register"
	"github.com/fairyhunter13/pos-register-simulator/internal/replenish"
)

// jsonError represents a JSON error payload.
type jsonError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Line    int    `json:"line,omitempty"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONError writes a JSON error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, jsonError{Error: message, Details: details})
}

// writeDomainError maps register and replenish errors onto status codes.
// Anything unrecognised is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		pe  *replenish.ParseError
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &mbe):
		WriteJSONError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
	case errors.As(err, &pe):
		writeJSON(w, http.StatusBadRequest, jsonError{
			Error:   "parse_error",
			Details: pe.Error(),
			Line:    pe.Line,
			Field:   pe.Field,
		})
	case errors.Is(err, register.ErrInvalidState):
		WriteJSONError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, register.ErrInvalidArgument):
		WriteJSONError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, register.ErrInsufficientFunds):
		WriteJSONError(w, http.StatusPaymentRequired, "insufficient_funds", err.Error())
	default:
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
