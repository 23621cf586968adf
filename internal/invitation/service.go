// Package invitation manages the project invitation lifecycle and keeps project rosters in step with it.
package invitation

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

const (
	workerLink = "/worker/project-invitations"
	adminLink  = "/admin/project-invitations"
)

type CreateRequest struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	By        string `json:"-"`
}

type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionDeclined Decision = "declined"
)

type Service interface {
	CreateInvitation(ctx context.Context, req CreateRequest) (models.ProjectInvitation, error)
	ResendInvitation(ctx context.Context, invitationID, by string) (models.ProjectInvitation, error)
	SendNudge(ctx context.Context, invitationID, by string) (models.ProjectInvitation, error)
	CancelInvitation(ctx context.Context, invitationID, reason, by string) (models.ProjectInvitation, error)
	RespondToInvitation(ctx context.Context, invitationID, userID string, decision Decision, reason string) (models.ProjectInvitation, error)
	GetInvitation(ctx context.Context, invitationID string) (models.ProjectInvitation, error)
	ListProjectInvitations(ctx context.Context, projectID string) ([]models.ProjectInvitation, error)
	ListUserInvitations(ctx context.Context, userID string, status models.InvitationStatus) ([]models.ProjectInvitation, error)
	DeleteInvitation(ctx context.Context, invitationID string) error
	// ListAvailableWorkers lists workers who hold no invitation of any status on the project.
	ListAvailableWorkers(ctx context.Context, projectID string) ([]models.User, error)

	AutoExpireOverdueInvitations(ctx context.Context) (SweepResult, error)
	AutoCancelEndedProjectInvitations(ctx context.Context) (SweepResult, error)
	SyncInvitationsWithProjectWorkers(ctx context.Context) (SyncResult, error)
}

type service struct {
	invitations repository.InvitationRepository
	projects    repository.ProjectRepository
	users       repository.UserRepository
	notifier    notification.Service
	now         func() time.Time
	logger      zerolog.Logger
}

type Option func(*service)

// WithClock overrides the time source used for deadlines and sweeps.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(
	invitations repository.InvitationRepository,
	projects repository.ProjectRepository,
	users repository.UserRepository,
	notifier notification.Service,
	logger zerolog.Logger,
	opts ...Option,
) Service {
	s := &service{
		invitations: invitations,
		projects:    projects,
		users:       users,
		notifier:    notifier,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With().Str("component", "invitation_service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateInvitation(ctx context.Context, req CreateRequest) (models.ProjectInvitation, error) {
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.ProjectID == "" || req.UserID == "" {
		return models.ProjectInvitation{}, fmt.Errorf("%w: project_id and user_id are required", models.ErrInvalidInput)
	}
	if _, err := s.users.GetUserByID(ctx, req.UserID); err != nil {
		return models.ProjectInvitation{}, notFound(err, "user", req.UserID)
	}
	if _, err := s.projects.GetProject(ctx, req.ProjectID); err != nil {
		return models.ProjectInvitation{}, notFound(err, "project", req.ProjectID)
	}
	// Roster removals key on (project, user), so a second open invitation could evict a worker who already accepted.
	existing, err := s.invitations.FindOpen(ctx, req.ProjectID, req.UserID)
	switch {
	case err == nil:
		return models.ProjectInvitation{}, fmt.Errorf("%w: user %s already has a %s invitation (%s) to project %s",
			models.ErrInvalidState, req.UserID, existing.Status, existing.ID, req.ProjectID)
	case !errors.Is(err, sql.ErrNoRows):
		return models.ProjectInvitation{}, fmt.Errorf("check open invitations: %w", err)
	}

	now := s.now()
	inv, err := s.invitations.CreateInvitation(ctx, models.ProjectInvitation{
		ProjectID:            req.ProjectID,
		UserID:               req.UserID,
		Status:               models.InvitationPending,
		Message:              strings.TrimSpace(req.Message),
		CreatedAt:            now,
		RequiredResponseDate: models.ResponseDeadline(now),
		Attempts:             []models.InvitationAttempt{{Date: now, By: req.By, Type: models.AttemptInitial}},
	})
	if err != nil {
		return models.ProjectInvitation{}, fmt.Errorf("create invitation: %w", err)
	}

	s.logger.Info().Str("invitation_id", inv.ID).Str("project_id", inv.ProjectID).Str("user_id", inv.UserID).Msg("invitation created")
	s.notifyWorker(ctx, inv, models.NotificationInvitation, "New Project Invitation", "You have been invited to join a new project")
	return inv, nil
}

func (s *service) ResendInvitation(ctx context.Context, invitationID, by string) (models.ProjectInvitation, error) {
	inv, err := s.loadPending(ctx, invitationID, "resend")
	if err != nil {
		return models.ProjectInvitation{}, err
	}

	now := s.now()
	deadline := models.ResponseDeadline(now)
	inv, err = s.invitations.RecordAttempt(ctx, inv.ID, repository.AttemptUpdate{
		Attempt:              models.InvitationAttempt{Date: now, By: by, Type: models.AttemptResend},
		RequiredResponseDate: &deadline,
	})
	if err != nil {
		return models.ProjectInvitation{}, notFound(err, "invitation", invitationID)
	}

	s.notifyWorker(ctx, inv, models.NotificationInvitationReminder, "Project Invitation Reminder", "You have a pending project invitation")
	return inv, nil
}

func (s *service) SendNudge(ctx context.Context, invitationID, by string) (models.ProjectInvitation, error) {
	inv, err := s.loadPending(ctx, invitationID, "nudge")
	if err != nil {
		return models.ProjectInvitation{}, err
	}

	now := s.now()
	inv, err = s.invitations.RecordAttempt(ctx, inv.ID, repository.AttemptUpdate{
		Attempt:     models.InvitationAttempt{Date: now, By: by, Type: models.AttemptNudge},
		LastNudgeAt: &now,
	})
	if err != nil {
		return models.ProjectInvitation{}, notFound(err, "invitation", invitationID)
	}

	s.notifyWorker(ctx, inv, models.NotificationInvitationNudge, "Action Required: Project Invitation", "Please respond to your pending project invitation")
	return inv, nil
}

func (s *service) CancelInvitation(ctx context.Context, invitationID, reason, by string) (models.ProjectInvitation, error) {
	inv, err := s.loadPending(ctx, invitationID, "cancel")
	if err != nil {
		return models.ProjectInvitation{}, err
	}

	now := s.now()
	reason = strings.TrimSpace(reason)
	inv, err = s.invitations.Transition(ctx, inv.ID, repository.Transition{
		To:           models.InvitationCancelled,
		At:           now,
		CancelReason: &reason,
		CancelledBy:  &by,
		Attempt:      &models.InvitationAttempt{Date: now, By: by, Type: models.AttemptCancel},
		Roster:       repository.RosterRemove,
	})
	if err != nil {
		return models.ProjectInvitation{}, notFound(err, "invitation", invitationID)
	}

	s.logger.Info().Str("invitation_id", inv.ID).Str("cancelled_by", by).Msg("invitation cancelled")
	s.notifyWorker(ctx, inv, models.NotificationInvitationCancelled, "Project Invitation Cancelled", "Your project invitation has been cancelled")
	return inv, nil
}

func (s *service) RespondToInvitation(ctx context.Context, invitationID, userID string, decision Decision, reason string) (models.ProjectInvitation, error) {
	if decision != DecisionAccepted && decision != DecisionDeclined {
		return models.ProjectInvitation{}, fmt.Errorf("%w: decision must be accepted or declined", models.ErrInvalidInput)
	}
	inv, err := s.get(ctx, invitationID)
	if err != nil {
		return models.ProjectInvitation{}, err
	}
	if inv.UserID != userID {
		return models.ProjectInvitation{}, fmt.Errorf("%w: invitation %s belongs to another user", models.ErrForbidden, invitationID)
	}
	if err := inv.RequirePending("respond to"); err != nil {
		return models.ProjectInvitation{}, err
	}

	now := s.now()
	t := repository.Transition{
		To:           models.InvitationAccepted,
		At:           now,
		ResponseDate: &now,
		Attempt:      &models.InvitationAttempt{Date: now, By: userID, Type: models.AttemptAccepted},
		Roster:       repository.RosterAdd,
	}
	if decision == DecisionDeclined {
		reason = strings.TrimSpace(reason)
		t.To = models.InvitationDeclined
		t.DeclineReason = &reason
		t.Attempt.Type = models.AttemptDeclined
		t.Roster = repository.RosterRemove
	}

	inv, err = s.invitations.Transition(ctx, inv.ID, t)
	if err != nil {
		return models.ProjectInvitation{}, notFound(err, "invitation", invitationID)
	}

	s.logger.Info().Str("invitation_id", inv.ID).Str("user_id", userID).Str("decision", string(decision)).Msg("invitation answered")

	projectName, userName := s.describe(ctx, inv)
	title := "Invitation Accepted"
	message := fmt.Sprintf("%s accepted the invitation to project %q.", userName, projectName)
	if decision == DecisionDeclined {
		title = "Invitation Declined"
		message = fmt.Sprintf("%s declined the invitation to project %q.", userName, projectName)
		if reason != "" {
			message += fmt.Sprintf(" Reason: %s", reason)
		}
	}
	s.notifyAdmins(ctx, inv, models.NotificationInvitationResponse, title, message)
	return inv, nil
}

func (s *service) GetInvitation(ctx context.Context, invitationID string) (models.ProjectInvitation, error) {
	return s.get(ctx, invitationID)
}

func (s *service) ListProjectInvitations(ctx context.Context, projectID string) ([]models.ProjectInvitation, error) {
	invitations, err := s.invitations.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list invitations for project %s: %w", projectID, err)
	}
	return nonNil(invitations), nil
}

func (s *service) ListUserInvitations(ctx context.Context, userID string, status models.InvitationStatus) ([]models.ProjectInvitation, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown invitation status %q", models.ErrInvalidInput, status)
	}
	invitations, err := s.invitations.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list invitations for user %s: %w", userID, err)
	}
	return nonNil(invitations), nil
}

func (s *service) DeleteInvitation(ctx context.Context, invitationID string) error {
	if err := s.invitations.DeleteInvitation(ctx, invitationID); err != nil {
		return notFound(err, "invitation", invitationID)
	}
	s.logger.Info().Str("invitation_id", invitationID).Msg("invitation deleted")
	return nil
}

func (s *service) ListAvailableWorkers(ctx context.Context, projectID string) ([]models.User, error) {
	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		return nil, notFound(err, "project", projectID)
	}
	workers, err := s.users.ListUsers(ctx, models.RoleWorker)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	invitations, err := s.invitations.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list invitations for project %s: %w", projectID, err)
	}

	invited := make(map[string]bool, len(invitations))
	for _, inv := range invitations {
		invited[inv.UserID] = true
	}
	available := []models.User{}
	for _, u := range workers {
		if !invited[u.ID] {
			available = append(available, u)
		}
	}
	return available, nil
}

func (s *service) get(ctx context.Context, invitationID string) (models.ProjectInvitation, error) {
	inv, err := s.invitations.GetInvitation(ctx, invitationID)
	if err != nil {
		return models.ProjectInvitation{}, notFound(err, "invitation", invitationID)
	}
	return inv, nil
}

func (s *service) loadPending(ctx context.Context, invitationID, op string) (models.ProjectInvitation, error) {
	inv, err := s.get(ctx, invitationID)
	if err != nil {
		return models.ProjectInvitation{}, err
	}
	if err := inv.RequirePending(op); err != nil {
		return models.ProjectInvitation{}, err
	}
	return inv, nil
}

// describe resolves display names for notifications, falling back to ids.
func (s *service) describe(ctx context.Context, inv models.ProjectInvitation) (string, string) {
	projectName, userName := inv.ProjectID, inv.UserID
	if p, err := s.projects.GetProject(ctx, inv.ProjectID); err == nil && p.Name != "" {
		projectName = p.Name
	}
	if u, err := s.users.GetUserByID(ctx, inv.UserID); err == nil && u.Name != "" {
		userName = u.Name
	}
	return projectName, userName
}

func (s *service) notifyWorker(ctx context.Context, inv models.ProjectInvitation, typ models.NotificationType, title, message string) {
	_, err := s.notifier.Publish(ctx, notification.Event{
		UserID:     inv.UserID,
		Type:       typ,
		Title:      title,
		Message:    message,
		EntityType: models.EntityInvitation,
		EntityID:   inv.ID,
		Link:       workerLink,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("invitation_id", inv.ID).Str("type", string(typ)).Msg("failed to notify worker")
	}
}

func (s *service) notifyAdmins(ctx context.Context, inv models.ProjectInvitation, typ models.NotificationType, title, message string) {
	err := s.notifier.NotifyAdmins(ctx, notification.Event{
		Type:       typ,
		Title:      title,
		Message:    message,
		EntityType: models.EntityInvitation,
		EntityID:   inv.ID,
		Link:       adminLink,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("invitation_id", inv.ID).Str("type", string(typ)).Msg("failed to notify admins")
	}
}

// notFound maps a missing row onto models.ErrNotFound and passes other errors through.
func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", models.ErrNotFound, kind, id)
	}
	return err
}

func nonNil(invitations []models.ProjectInvitation) []models.ProjectInvitation {
	if invitations == nil {
		return []models.ProjectInvitation{}
	}
	return invitations
}
