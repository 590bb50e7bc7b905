package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON sends v as the response body. Headers are already out when the
// encoder fails, so the failure is only logged.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api: encode response", slog.Int("status", status), slog.String("error", err.Error()))
	}
}

// errResponse is the body of every non-2xx status API reply.
type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResponse{Error: msg})
}
