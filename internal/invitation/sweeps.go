package invitation

import (
	"context"
	"errors"
	"fmt"

	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/repository"
)

const adminTimeLayout = "2006-01-02 15:04:05"

// SweepResult summarizes a scheduled pass over pending invitations.
type SweepResult struct {
	Examined int `json:"examined"`
	Updated  int `json:"updated"`
	// Skipped counts invitations that left pending between the query and the update.
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// SyncResult summarizes one reconciliation of rosters against accepted invitations.
type SyncResult struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

// Writes is the number of roster rows changed by the run.
func (r SyncResult) Writes() int {
	return r.Added + r.Removed
}

func (s *service) AutoExpireOverdueInvitations(ctx context.Context) (SweepResult, error) {
	now := s.now()
	overdue, err := s.invitations.ListOverdue(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list overdue invitations: %w", err)
	}

	reason := models.DeclineReasonExpired
	result, err := s.sweep(ctx, overdue, repository.Transition{
		To:            models.InvitationRejected,
		At:            now,
		DeclineReason: &reason,
		Roster:        repository.RosterRemove,
	}, func(inv models.ProjectInvitation) {
		s.notifyWorker(ctx, inv, models.NotificationInvitationExpired, "Invitation Expired",
			"Your invitation was closed because it exceeded the response deadline.")
		projectName, userName := s.describe(ctx, inv)
		s.notifyAdmins(ctx, inv, models.NotificationInvitationExpired, "Project Invitation Expired",
			adminSummary(inv, userName, projectName, "expired without a response", fmt.Sprintf("rejected (%q)", reason)))
	})

	s.logger.Info().
		Int("examined", result.Examined).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("overdue invitations expired")
	return result, err
}

func (s *service) AutoCancelEndedProjectInvitations(ctx context.Context) (SweepResult, error) {
	pending, err := s.invitations.ListPendingForEndedProjects(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list invitations of ended projects: %w", err)
	}

	reason := models.CancelReasonProjectExpired
	result, err := s.sweep(ctx, pending, repository.Transition{
		To:           models.InvitationCancelled,
		At:           s.now(),
		CancelReason: &reason,
		Roster:       repository.RosterRemove,
	}, func(inv models.ProjectInvitation) {
		s.notifyWorker(ctx, inv, models.NotificationInvitationCancelled, "Project Invitation Cancelled",
			"Your invitation was cancelled because the project ended.")
		projectName, userName := s.describe(ctx, inv)
		s.notifyAdmins(ctx, inv, models.NotificationInvitationAutoCancel, "Project Invitation Cancelled (Project Ended)",
			adminSummary(inv, userName, projectName, "was auto-cancelled because the project ended", fmt.Sprintf("cancelled (%q)", reason)))
	})

	s.logger.Info().
		Int("examined", result.Examined).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("invitations of ended projects cancelled")
	return result, err
}

// sweep applies t to each invitation in order. A failure is logged and the sweep moves on.
func (s *service) sweep(ctx context.Context, invitations []models.ProjectInvitation, t repository.Transition, after func(models.ProjectInvitation)) (SweepResult, error) {
	result := SweepResult{Examined: len(invitations)}
	var errs []error

	for _, inv := range invitations {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		updated, err := s.invitations.Transition(ctx, inv.ID, t)
		switch {
		case errors.Is(err, models.ErrInvalidState):
			result.Skipped++
			continue
		case err != nil:
			result.Failed++
			errs = append(errs, fmt.Errorf("invitation %s: %w", inv.ID, err))
			s.logger.Error().Err(err).Str("invitation_id", inv.ID).Str("to", string(t.To)).Msg("sweep failed to update invitation")
			continue
		}

		result.Updated++
		after(updated)
	}
	return result, errors.Join(errs...)
}

type rosterKey struct {
	projectID string
	userID    string
}

// SyncInvitationsWithProjectWorkers makes every roster equal the set of users holding an accepted invitation for it.
func (s *service) SyncInvitationsWithProjectWorkers(ctx context.Context) (SyncResult, error) {
	accepted, err := s.invitations.ListByStatus(ctx, models.InvitationAccepted)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list accepted invitations: %w", err)
	}
	roster, err := s.projects.ListRoster(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list rosters: %w", err)
	}

	desired := make(map[rosterKey]bool, len(accepted))
	var order []rosterKey
	for _, inv := range accepted {
		key := rosterKey{projectID: inv.ProjectID, userID: inv.UserID}
		if !desired[key] {
			desired[key] = true
			order = append(order, key)
		}
	}
	actual := make(map[rosterKey]bool, len(roster))
	for _, entry := range roster {
		actual[rosterKey{projectID: entry.ProjectID, userID: entry.UserID}] = true
	}

	var (
		result SyncResult
		errs   []error
	)
	now := s.now()
	for _, key := range order {
		if actual[key] {
			continue
		}
		added, err := s.projects.AddWorker(ctx, key.projectID, key.userID, now)
		if err != nil {
			result.Failed++
			errs = append(errs, err)
			s.logger.Error().Err(err).Str("project_id", key.projectID).Str("user_id", key.userID).Msg("sync failed to add worker")
			continue
		}
		if added {
			result.Added++
		}
	}
	for _, entry := range roster {
		key := rosterKey{projectID: entry.ProjectID, userID: entry.UserID}
		if desired[key] {
			continue
		}
		removed, err := s.projects.RemoveWorker(ctx, key.projectID, key.userID)
		if err != nil {
			result.Failed++
			errs = append(errs, err)
			s.logger.Error().Err(err).Str("project_id", key.projectID).Str("user_id", key.userID).Msg("sync failed to remove worker")
			continue
		}
		if removed {
			result.Removed++
		}
	}

	s.logger.Info().
		Int("accepted", len(accepted)).
		Int("added", result.Added).
		Int("removed", result.Removed).
		Int("failed", result.Failed).
		Msg("rosters synced with invitations")
	return result, errors.Join(errs...)
}

func adminSummary(inv models.ProjectInvitation, userName, projectName, what, final string) string {
	return fmt.Sprintf("Invitation #%s for user %q on project %q %s.\n"+
		"• Created At: %s\n"+
		"• Required Response By: %s\n"+
		"• Final Status: %s",
		inv.ID, userName, projectName, what,
		inv.CreatedAt.UTC().Format(adminTimeLayout),
		inv.RequiredResponseDate.UTC().Format(adminTimeLayout),
		final)
}
