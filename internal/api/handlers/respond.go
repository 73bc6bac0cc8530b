package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/salescast/internal/contracts"
)

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// StatusFor maps a service error to its HTTP status
// ⭐ SSOT: 에러 → 상태코드 매핑은 여기서만
func StatusFor(err error) int {
	switch {
	case contracts.IsValidation(err):
		return http.StatusBadRequest
	case contracts.IsDataUnavailable(err):
		return http.StatusNotFound
	case contracts.IsUnknownCategory(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
