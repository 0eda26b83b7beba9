package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"meetrecord/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError переводит ошибку сервиса в HTTP-ответ. Наружу уходят только
// ошибки с кодом, все остальное схлопывается в 500 без деталей.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.Code, map[string]string{"error": apiErr.Message})
		return
	}

	log.Printf("[Handler] Internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}
