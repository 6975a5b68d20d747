package handlers

import (
	"net/http"
	"time"

	"github.com/isdelr/tasktracker-be/internal/services"
)

const dateLayout = "2006-01-02"

// SummaryHandler serves the daily summary report.
type SummaryHandler struct {
	service services.SummaryServiceProvider
	now     func() time.Time
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(service services.SummaryServiceProvider) *SummaryHandler {
	return &SummaryHandler{service: service, now: time.Now}
}

// Daily handles GET /summary/daily?date=YYYY-MM-DD&tz=Area/City. The date
// defaults to today in tz and tz defaults to UTC.
func (h *SummaryHandler) Daily(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "Invalid time zone: "+tz)
			return
		}
		loc = l
	}

	day := h.now().In(loc)
	if date := r.URL.Query().Get("date"); date != "" {
		d, err := time.ParseInLocation(dateLayout, date, loc)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		day = d
	}

	summary, err := h.service.Daily(r.Context(), userID, day, loc)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
