package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/tasktracker-be/internal/auth"
	"github.com/isdelr/tasktracker-be/internal/services"
	"github.com/rs/zerolog/log"
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Message: message})
}

// respondError maps domain errors to status codes. Anything unrecognised is
// logged and returned as a 500 with the raw error text.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNoRunningTimer):
		respondMessage(w, http.StatusNotFound, "No running timer found for this task")
	case errors.Is(err, services.ErrNotFound):
		respondMessage(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, services.ErrTimerRunning):
		respondMessage(w, http.StatusBadRequest, "Timer already running for this task")
	case errors.Is(err, services.ErrValidation):
		respondMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConflict):
		respondMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		respondMessage(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		respondMessage(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// requireUserID reads the authenticated user id put in the context by the
// auth middleware.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		log.Error().Str("path", r.URL.Path).Msg("Could not retrieve user claims from context")
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return "", false
	}
	return userID, true
}
