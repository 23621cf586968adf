package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/invitation"
	"github.com/stanstork/workforce-api/internal/models"
)

type InvitationHandler struct {
	service invitation.Service
	logger  zerolog.Logger
}

func NewInvitationHandler(service invitation.Service, logger zerolog.Logger) *InvitationHandler {
	return &InvitationHandler{
		service: service,
		logger:  logger.With().Str("handler", "invitation").Logger(),
	}
}

func (h *InvitationHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	var payload struct {
		UserID  string `json:"user_id"`
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.UserID) == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	inv, err := h.service.CreateInvitation(r.Context(), invitation.CreateRequest{
		ProjectID: projectID,
		UserID:    strings.TrimSpace(payload.UserID),
		Message:   payload.Message,
		By:        adminID,
	})
	if err != nil {
		writeError(w, h.logger, err, "create invitation")
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *InvitationHandler) ListProjectInvitations(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	invitations, err := h.service.ListProjectInvitations(r.Context(), projectID)
	if err != nil {
		writeError(w, h.logger, err, "list invitations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invitations": invitations})
}

// AvailableWorkers lists workers who hold no invitation to the project yet.
func (h *InvitationHandler) AvailableWorkers(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	workers, err := h.service.ListAvailableWorkers(r.Context(), projectID)
	if err != nil {
		writeError(w, h.logger, err, "list available workers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"workers": workers})
}

func (h *InvitationHandler) GetInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, ok := pathID(w, r, "invitationID", "invitation")
	if !ok {
		return
	}
	inv, err := h.service.GetInvitation(r.Context(), invitationID)
	if err != nil {
		writeError(w, h.logger, err, "load invitation")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvitationHandler) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	invitationID, ok := pathID(w, r, "invitationID", "invitation")
	if !ok {
		return
	}
	inv, err := h.service.ResendInvitation(r.Context(), invitationID, adminID)
	if err != nil {
		writeError(w, h.logger, err, "resend invitation")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvitationHandler) SendNudge(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	invitationID, ok := pathID(w, r, "invitationID", "invitation")
	if !ok {
		return
	}
	inv, err := h.service.SendNudge(r.Context(), invitationID, adminID)
	if err != nil {
		writeError(w, h.logger, err, "nudge invitation")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvitationHandler) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	invitationID, ok := pathID(w, r, "invitationID", "invitation")
	if !ok {
		return
	}
	var payload struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	inv, err := h.service.CancelInvitation(r.Context(), invitationID, payload.Reason, adminID)
	if err != nil {
		writeError(w, h.logger, err, "cancel invitation")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvitationHandler) DeleteInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, ok := pathID(w, r, "invitationID", "invitation")
	if !ok {
		return
	}
	if err := h.service.DeleteInvitation(r.Context(), invitationID); err != nil {
		writeError(w, h.logger, err, "delete invitation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMyInvitations lists the caller's invitations, optionally narrowed by ?status=.
func (h *InvitationHandler) ListMyInvitations(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	status := models.InvitationStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if status != "" && !status.IsValid() {
		http.Error(w, "Unknown invitation status", http.StatusBadRequest)
		return
	}

	invitations, err := h.service.ListUserInvitations(r.Context(), uid, status)
	if err != nil {
		writeError(w, h.logger, err, "list invitations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invitations": invitations})
}

func (h *InvitationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	invitationID, ok := pathID(w, r, "invitationID", "invitation")
	if !ok {
		return
	}
	var payload struct {
		Decision string `json:"decision"`
		Reason   string `json:"reason"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	decision := invitation.Decision(strings.ToLower(strings.TrimSpace(payload.Decision)))
	if decision != invitation.DecisionAccepted && decision != invitation.DecisionDeclined {
		http.Error(w, "decision must be accepted or declined", http.StatusBadRequest)
		return
	}

	inv, err := h.service.RespondToInvitation(r.Context(), invitationID, uid, decision, payload.Reason)
	if err != nil {
		writeError(w, h.logger, err, "respond to invitation")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
