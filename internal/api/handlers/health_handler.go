package handlers

import (
	"net/http"

	"github.com/isdelr/tasktracker-be/internal/services"
)

// HealthHandler reports service health.
type HealthHandler struct {
	service services.SystemServiceProvider
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(service services.SystemServiceProvider) *HealthHandler {
	return &HealthHandler{service: service}
}

// Get returns 200 when healthy and 503 when the database is unreachable.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	status := h.service.Health(r.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, status)
}
