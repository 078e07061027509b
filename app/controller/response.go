package controller

import (
	"encoding/json"
	"net/http"
	"strings"

	"luch-agregator/logger"
)

// respondJSON writes v with the given status
func respondJSON(w http.ResponseWriter, log *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("❌ Failed to encode response", "error", err)
	}
}

// respondError writes {"error": message}
func respondError(w http.ResponseWriter, log *logger.Logger, status int, message string) {
	respondJSON(w, log, status, map[string]string{"error": message})
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
