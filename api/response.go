package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errCode identifies a failure class in the API's error taxonomy. Codes
// are stable wire values; the HTTP status is derived from the code so a
// handler cannot send a mismatched pair.
type errCode string

const (
	codeInvalidRequest  errCode = "invalid_request"
	codeSessionNotFound errCode = "session_not_found"
	codeInternal        errCode = "internal"
)

func (c errCode) httpStatus() int {
	switch c {
	case codeInvalidRequest:
		return http.StatusBadRequest
	case codeSessionNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
// Note: if encoding fails after WriteHeader is called, there's no way to
// notify the client since the status code is already sent. The error is
// logged for debugging but doesn't affect the response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeError writes the error body and status for the given code.
func writeError(w http.ResponseWriter, code errCode, message string) {
	writeJSON(w, code.httpStatus(), ErrorResponse{Error: string(code), Message: message})
}
