package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ps-vitor/crous-notifier/internal/api/models"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.Error{Error: msg})
}
