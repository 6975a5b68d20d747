package handlers

import (
	"net/http"

	"github.com/isdelr/tasktracker-be/internal/services"
)

// TimeLogHandler handles the timer endpoints.
type TimeLogHandler struct {
	service services.TimeLogServiceProvider
}

// NewTimeLogHandler creates a new TimeLogHandler.
func NewTimeLogHandler(service services.TimeLogServiceProvider) *TimeLogHandler {
	return &TimeLogHandler{service: service}
}

// TimerPayload is the body of start and stop requests.
type TimerPayload struct {
	TaskID string `json:"taskId"`
}

// Start handles starting the timer for a task.
func (h *TimeLogHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var payload TimerPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	entry, err := h.service.StartTimer(r.Context(), userID, payload.TaskID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// Stop handles stopping the running timer for a task.
func (h *TimeLogHandler) Stop(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var payload TimerPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	entry, err := h.service.StopTimer(r.Context(), userID, payload.TaskID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// GetAll lists the user's time logs, optionally filtered by ?taskId=.
func (h *TimeLogHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	entries, err := h.service.GetTimeLogs(r.Context(), userID, r.URL.Query().Get("taskId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// GetRunning returns the running timer for ?taskId=.
func (h *TimeLogHandler) GetRunning(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	entry, err := h.service.GetRunningTimer(r.Context(), userID, r.URL.Query().Get("taskId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}
