package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/project"
)

type ProjectHandler struct {
	service project.Service
	logger  zerolog.Logger
}

func NewProjectHandler(service project.Service, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		logger:  logger.With().Str("handler", "project").Logger(),
	}
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var payload project.CreateRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	p, err := h.service.CreateProject(r.Context(), payload)
	if err != nil {
		writeError(w, h.logger, err, "create project")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	status := models.ProjectStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if status != "" && !status.IsValid() {
		http.Error(w, "Unknown project status", http.StatusBadRequest)
		return
	}
	projects, err := h.service.ListProjects(r.Context(), status)
	if err != nil {
		writeError(w, h.logger, err, "list projects")
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	p, err := h.service.GetProject(r.Context(), projectID)
	if err != nil {
		writeError(w, h.logger, err, "load project")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	var payload struct {
		Status models.ProjectStatus `json:"status"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if !payload.Status.IsValid() {
		http.Error(w, "Unknown project status", http.StatusBadRequest)
		return
	}
	p, err := h.service.UpdateStatus(r.Context(), projectID, payload.Status)
	if err != nil {
		writeError(w, h.logger, err, "update project status")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) EndProject(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, "end project", h.service.EndProject)
}

func (h *ProjectHandler) ArchiveProject(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, "archive project", h.service.ArchiveProject)
}

func (h *ProjectHandler) UnarchiveProject(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, "unarchive project", h.service.UnarchiveProject)
}

func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	if err := h.service.DeleteProject(r.Context(), projectID); err != nil {
		writeError(w, h.logger, err, "delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) statusAction(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	fn func(ctx context.Context, projectID string) (models.Project, error),
) {
	projectID, ok := pathID(w, r, "projectID", "project")
	if !ok {
		return
	}
	p, err := fn(r.Context(), projectID)
	if err != nil {
		writeError(w, h.logger, err, action)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
