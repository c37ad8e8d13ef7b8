package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Ref   string `json:"ref,omitempty"`
}

// writeError writes an error body, echoing the requested ref when known.
func writeError(w http.ResponseWriter, status int, msg, ref string) {
	writeJSON(w, status, errResponse{Error: msg, Ref: ref})
}
