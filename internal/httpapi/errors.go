package httpapi

import (
	"encoding/json"
	"net/http"

	"llmctl/internal/manager"
	"llmctl/pkg/types"
)

// statusFor maps manager error kinds to an HTTP status and client message.
func statusFor(err error) (int, string) {
	switch {
	case manager.IsModelNotLoaded(err):
		return http.StatusServiceUnavailable, "Model not loaded"
	case manager.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable, err.Error()
	case manager.IsTooBusy(err):
		return http.StatusTooManyRequests, err.Error()
	case manager.IsInvalidRequest(err):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "An error occurred during generation: " + err.Error()
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
