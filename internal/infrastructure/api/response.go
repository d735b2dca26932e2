package api

import (
	"encoding/json"
	"net/http"
)

// actionResponse is the envelope the admin UI's server actions expect
type actionResponse struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeActionSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, actionResponse{Status: "success", Data: data})
}

func writeActionError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, actionResponse{Status: "error", Message: message})
}
