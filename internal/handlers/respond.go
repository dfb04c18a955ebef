package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/tobyn/chatline/internal/apperr"
	"github.com/tobyn/chatline/internal/logging"
)

type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(successResponse{Success: true, Data: data})
}

// writeFailure maps err onto a status and a client-safe message. Anything
// that is a server fault gets logged in full and surfaced as a generic 500.
func writeFailure(log logging.Logger, w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status >= 500 {
		log.Error("request failed", "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Message: apperr.ClientMessage(err)})
}
