package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"meshledger/p2p"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("Failed to write response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, p2p.MessageResponse{Msg: msg})
}

// decodeJSON reads the request body into v, answering 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Debug("Failed to decode JSON", "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusBadRequest, "Invalid JSON format")
		return false
	}
	return true
}

// HandleNotFound answers every unknown route
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "Route not found")
}
