package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ignite/newsletter/internal/pkg/logger"
)

// apiError is the capability a workflow error implements to pick its own
// status code and public message. Anything else is treated as an opaque
// internal failure.
type apiError interface {
	error
	StatusCode() int
	PublicMessage() string
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondMessage sends a `{"message": ...}` error body.
func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondError maps err onto an HTTP response. The full cause chain is
// logged; the client only ever sees the error's public message, never
// database or transport detail.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "an internal error occurred"

	var ae apiError
	if errors.As(err, &ae) {
		status = ae.StatusCode()
		message = ae.PublicMessage()
	}

	if status >= 500 {
		logger.Error("request failed", "status", status, "err", err.Error())
	} else {
		logger.Warn("request rejected", "status", status, "err", err.Error())
	}
	respondMessage(w, status, message)
}
