package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/timesheet"
)

type WorkHoursHandler struct {
	service timesheet.Service
	logger  zerolog.Logger
}

func NewWorkHoursHandler(service timesheet.Service, logger zerolog.Logger) *WorkHoursHandler {
	return &WorkHoursHandler{
		service: service,
		logger:  logger.With().Str("handler", "work_hours").Logger(),
	}
}

func (h *WorkHoursHandler) Submit(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload struct {
		ProjectID    string  `json:"project_id"`
		Date         string  `json:"date"`
		RegularHours float64 `json:"regular_hours"`
		Overtime15x  float64 `json:"overtime_15x"`
		Overtime20x  float64 `json:"overtime_20x"`
		Remarks      string  `json:"remarks"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	date, err := parseDate(payload.Date)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD or RFC 3339", http.StatusBadRequest)
		return
	}

	entry, err := h.service.SubmitWorkHours(r.Context(), uid, timesheet.SubmitRequest{
		ProjectID:    payload.ProjectID,
		Date:         date,
		RegularHours: payload.RegularHours,
		Overtime15x:  payload.Overtime15x,
		Overtime20x:  payload.Overtime20x,
		Remarks:      payload.Remarks,
	})
	if err != nil {
		writeError(w, h.logger, err, "submit work hours")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *WorkHoursHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	entries, err := h.service.ListMyWorkHours(r.Context(), uid, queryLimit(r, timesheet.DefaultRecentLimit))
	if err != nil {
		writeError(w, h.logger, err, "list work hours")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"work_hours": entries})
}

func (h *WorkHoursHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDate(q.Get("from"))
	if err != nil {
		http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	entries, err := h.service.ListWorkHours(r.Context(), models.WorkHoursFilter{
		UserID:    strings.TrimSpace(q.Get("user_id")),
		ProjectID: strings.TrimSpace(q.Get("project_id")),
		Status:    models.WorkHoursStatus(strings.TrimSpace(q.Get("status"))),
		From:      from,
		To:        to,
		Limit:     queryLimit(r, 0),
	})
	if err != nil {
		writeError(w, h.logger, err, "list work hours")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"work_hours": entries})
}

func (h *WorkHoursHandler) Get(w http.ResponseWriter, r *http.Request) {
	entryID, ok := pathID(w, r, "entryID", "work hours")
	if !ok {
		return
	}
	entry, err := h.service.GetWorkHours(r.Context(), entryID)
	if err != nil {
		writeError(w, h.logger, err, "load work hours")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *WorkHoursHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, models.WorkHoursApproved)
}

func (h *WorkHoursHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, models.WorkHoursRejected)
}

func (h *WorkHoursHandler) review(w http.ResponseWriter, r *http.Request, status models.WorkHoursStatus) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	entryID, ok := pathID(w, r, "entryID", "work hours")
	if !ok {
		return
	}
	var payload struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	entry, err := h.service.Review(r.Context(), entryID, adminID, timesheet.Decision{Status: status, Reason: payload.Reason})
	if err != nil {
		writeError(w, h.logger, err, "review work hours")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ReviewBatch applies one decision to many entries and reports the ones it skipped.
func (h *WorkHoursHandler) ReviewBatch(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload struct {
		IDs    []string               `json:"ids"`
		Status models.WorkHoursStatus `json:"status"`
		Reason string                 `json:"reason"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	result, err := h.service.ReviewBatch(r.Context(), payload.IDs, adminID, timesheet.Decision{Status: payload.Status, Reason: payload.Reason})
	if err != nil {
		writeError(w, h.logger, err, "review work hours")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *WorkHoursHandler) UnpaidSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.UnpaidSummary(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "summarize work hours")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"summary": summary})
}
