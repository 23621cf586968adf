// Package project manages project records and their status lifecycle.
package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/notification"
	"github.com/stanstork/workforce-api/internal/repository"
)

type CreateRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// UpdateResult summarizes one scheduled status pass.
type UpdateResult struct {
	Started int `json:"started"`
	Ended   int `json:"ended"`
	Failed  int `json:"failed"`
}

type Service interface {
	CreateProject(ctx context.Context, req CreateRequest) (models.Project, error)
	GetProject(ctx context.Context, projectID string) (models.Project, error)
	ListProjects(ctx context.Context, status models.ProjectStatus) ([]models.Project, error)
	UpdateStatus(ctx context.Context, projectID string, status models.ProjectStatus) (models.Project, error)
	EndProject(ctx context.Context, projectID string) (models.Project, error)
	ArchiveProject(ctx context.Context, projectID string) (models.Project, error)
	UnarchiveProject(ctx context.Context, projectID string) (models.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
	// AutoUpdateProjects starts drafts whose start date has passed and ends active projects past their end date.
	AutoUpdateProjects(ctx context.Context) (UpdateResult, error)
}

type service struct {
	projects repository.ProjectRepository
	notifier notification.Service
	now      func() time.Time
	logger   zerolog.Logger
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(projects repository.ProjectRepository, notifier notification.Service, logger zerolog.Logger, opts ...Option) Service {
	s := &service{
		projects: projects,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("component", "project_service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateProject(ctx context.Context, req CreateRequest) (models.Project, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return models.Project{}, fmt.Errorf("%w: name is required", models.ErrInvalidInput)
	case req.StartDate.IsZero() || req.EndDate.IsZero():
		return models.Project{}, fmt.Errorf("%w: start_date and end_date are required", models.ErrInvalidInput)
	case req.EndDate.Before(req.StartDate):
		return models.Project{}, fmt.Errorf("%w: end_date precedes start_date", models.ErrInvalidInput)
	}

	p, err := s.projects.CreateProject(ctx, models.Project{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		Status:      models.ProjectDraft,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return models.Project{}, fmt.Errorf("create project: %w", err)
	}

	s.logger.Info().Str("project_id", p.ID).Str("name", p.Name).Msg("project created")
	s.notifyAdmins(ctx, p, models.NotificationProjectCreated, "New Project Created",
		fmt.Sprintf("Project %q was created and is scheduled to start on %s.", p.Name, p.StartDate.Format("2006-01-02")))
	return p, nil
}

func (s *service) GetProject(ctx context.Context, projectID string) (models.Project, error) {
	p, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return models.Project{}, notFound(err, projectID)
	}
	return p, nil
}

func (s *service) ListProjects(ctx context.Context, status models.ProjectStatus) ([]models.Project, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown project status %q", models.ErrInvalidInput, status)
	}
	projects, err := s.projects.ListProjects(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

// UpdateStatus sets a project's status directly. Archiving goes through ArchiveProject.
func (s *service) UpdateStatus(ctx context.Context, projectID string, status models.ProjectStatus) (models.Project, error) {
	if !status.IsValid() {
		return models.Project{}, fmt.Errorf("%w: unknown project status %q", models.ErrInvalidInput, status)
	}
	if status == models.ProjectArchived {
		return s.ArchiveProject(ctx, projectID)
	}
	current, err := s.GetProject(ctx, projectID)
	if err != nil {
		return models.Project{}, err
	}
	if current.Status == models.ProjectArchived {
		return models.Project{}, fmt.Errorf("%w: project %s is archived", models.ErrInvalidState, projectID)
	}
	return s.setStatus(ctx, current, status, nil)
}

func (s *service) EndProject(ctx context.Context, projectID string) (models.Project, error) {
	current, err := s.GetProject(ctx, projectID)
	if err != nil {
		return models.Project{}, err
	}
	if current.Status == models.ProjectEnded || current.Status == models.ProjectArchived {
		return models.Project{}, fmt.Errorf("%w: project %s is already %s", models.ErrInvalidState, projectID, current.Status)
	}
	return s.setStatus(ctx, current, models.ProjectEnded, nil)
}

func (s *service) ArchiveProject(ctx context.Context, projectID string) (models.Project, error) {
	current, err := s.GetProject(ctx, projectID)
	if err != nil {
		return models.Project{}, err
	}
	if current.Status == models.ProjectArchived {
		return models.Project{}, fmt.Errorf("%w: project %s is already archived", models.ErrInvalidState, projectID)
	}
	previous := current.Status
	return s.setStatus(ctx, current, models.ProjectArchived, &previous)
}

// UnarchiveProject restores the status held before archiving, defaulting to ended.
func (s *service) UnarchiveProject(ctx context.Context, projectID string) (models.Project, error) {
	current, err := s.GetProject(ctx, projectID)
	if err != nil {
		return models.Project{}, err
	}
	if current.Status != models.ProjectArchived {
		return models.Project{}, fmt.Errorf("%w: project %s is not archived", models.ErrInvalidState, projectID)
	}
	restore := models.ProjectEnded
	if current.PreviousStatus != nil && current.PreviousStatus.IsValid() && *current.PreviousStatus != models.ProjectArchived {
		restore = *current.PreviousStatus
	}
	return s.setStatus(ctx, current, restore, nil)
}

func (s *service) DeleteProject(ctx context.Context, projectID string) error {
	if err := s.projects.DeleteProject(ctx, projectID); err != nil {
		return notFound(err, projectID)
	}
	s.logger.Info().Str("project_id", projectID).Msg("project deleted")
	return nil
}

func (s *service) AutoUpdateProjects(ctx context.Context) (UpdateResult, error) {
	now := s.now()
	var (
		result UpdateResult
		errs   []error
	)
	for _, status := range []models.ProjectStatus{models.ProjectDraft, models.ProjectActive} {
		projects, err := s.projects.ListProjects(ctx, status)
		if err != nil {
			return result, fmt.Errorf("list %s projects: %w", status, err)
		}
		for _, p := range projects {
			next, due := p.ScheduledStatus(now)
			if !due {
				continue
			}
			if _, err := s.setStatus(ctx, p, next, nil); err != nil {
				result.Failed++
				errs = append(errs, fmt.Errorf("project %s: %w", p.ID, err))
				s.logger.Error().Err(err).Str("project_id", p.ID).Str("to", string(next)).Msg("scheduled status update failed")
				continue
			}
			if next == models.ProjectActive {
				result.Started++
			} else {
				result.Ended++
			}
		}
	}

	s.logger.Info().Int("started", result.Started).Int("ended", result.Ended).Int("failed", result.Failed).Msg("project statuses updated")
	return result, errors.Join(errs...)
}

func (s *service) setStatus(ctx context.Context, current models.Project, status models.ProjectStatus, previous *models.ProjectStatus) (models.Project, error) {
	updated, err := s.projects.SetStatus(ctx, current.ID, repository.StatusChange{
		Status:         status,
		PreviousStatus: previous,
		At:             s.now(),
	})
	if err != nil {
		return models.Project{}, notFound(err, current.ID)
	}
	if current.Workers != nil && updated.Workers == nil {
		updated.Workers = current.Workers
	}

	s.logger.Info().Str("project_id", updated.ID).Str("from", string(current.Status)).Str("to", string(status)).Msg("project status changed")
	if typ, title, ok := statusNotification(current.Status, status); ok {
		s.notifyAdmins(ctx, updated, typ, title, fmt.Sprintf("Project %q is now %s.", updated.Name, status))
	}
	return updated, nil
}

func statusNotification(from, to models.ProjectStatus) (models.NotificationType, string, bool) {
	switch {
	case to == models.ProjectActive && from != models.ProjectArchived && from != models.ProjectActive:
		return models.NotificationProjectStarted, "Project Started", true
	case to == models.ProjectEnded && from != models.ProjectArchived && from != models.ProjectEnded:
		return models.NotificationProjectEnded, "Project Ended", true
	case to == models.ProjectArchived:
		return models.NotificationProjectArchived, "Project Archived", true
	case from == models.ProjectArchived:
		return models.NotificationProjectUnarchived, "Project Unarchived", true
	}
	return "", "", false
}

func (s *service) notifyAdmins(ctx context.Context, p models.Project, typ models.NotificationType, title, message string) {
	err := s.notifier.NotifyAdmins(ctx, notification.Event{
		Type:       typ,
		Title:      title,
		Message:    message,
		EntityType: models.EntityProject,
		EntityID:   p.ID,
		Link:       "/admin/projects",
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("project_id", p.ID).Str("type", string(typ)).Msg("failed to notify admins")
	}
}

func notFound(err error, projectID string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: project %s", models.ErrNotFound, projectID)
	}
	return err
}
