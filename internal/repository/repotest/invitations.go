package repotest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/repository"
)

type invitationRepo struct{ s *Store }

func (r invitationRepo) CreateInvitation(_ context.Context, inv models.ProjectInvitation) (models.ProjectInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreateInvitation", inv.UserID); err != nil {
		return models.ProjectInvitation{}, err
	}
	if _, ok := r.s.openInvitation(inv.ProjectID, inv.UserID); ok {
		return models.ProjectInvitation{}, fmt.Errorf("%w: user %s already has an open invitation to project %s",
			models.ErrInvalidState, inv.UserID, inv.ProjectID)
	}
	if inv.ID == "" {
		inv.ID = newID()
	}
	inv.UpdatedAt = inv.CreatedAt
	r.s.invitations[inv.ID] = cloneInvitation(inv)
	r.s.writes++
	return cloneInvitation(inv), nil
}

func (r invitationRepo) GetInvitation(_ context.Context, invitationID string) (models.ProjectInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invitations[invitationID]
	if !ok {
		return models.ProjectInvitation{}, notFound("invitation", invitationID)
	}
	return cloneInvitation(inv), nil
}

func (r invitationRepo) FindOpen(_ context.Context, projectID, userID string) (models.ProjectInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.openInvitation(projectID, userID)
	if !ok {
		return models.ProjectInvitation{}, notFound("open invitation", projectID+"/"+userID)
	}
	return cloneInvitation(inv), nil
}

// openInvitation finds a pending or accepted invitation for the pair. Caller holds mu.
func (s *Store) openInvitation(projectID, userID string) (models.ProjectInvitation, bool) {
	for _, inv := range s.invitations {
		if inv.ProjectID != projectID || inv.UserID != userID {
			continue
		}
		if inv.Status == models.InvitationPending || inv.Status == models.InvitationAccepted {
			return inv, true
		}
	}
	return models.ProjectInvitation{}, false
}

func (r invitationRepo) ListByProject(_ context.Context, projectID string) ([]models.ProjectInvitation, error) {
	return r.filter(func(inv models.ProjectInvitation) bool { return inv.ProjectID == projectID }, true), nil
}

func (r invitationRepo) ListByUser(_ context.Context, userID string, status models.InvitationStatus) ([]models.ProjectInvitation, error) {
	return r.filter(func(inv models.ProjectInvitation) bool {
		return inv.UserID == userID && (status == "" || inv.Status == status)
	}, true), nil
}

func (r invitationRepo) ListByStatus(_ context.Context, status models.InvitationStatus) ([]models.ProjectInvitation, error) {
	return r.filter(func(inv models.ProjectInvitation) bool { return inv.Status == status }, false), nil
}

func (r invitationRepo) ListOverdue(_ context.Context, now time.Time) ([]models.ProjectInvitation, error) {
	return r.filter(func(inv models.ProjectInvitation) bool { return inv.IsOverdue(now) }, false), nil
}

func (r invitationRepo) ListPendingForEndedProjects(_ context.Context) ([]models.ProjectInvitation, error) {
	r.s.mu.Lock()
	ended := map[string]bool{}
	for id, p := range r.s.projects {
		ended[id] = p.Status == models.ProjectEnded
	}
	r.s.mu.Unlock()
	return r.filter(func(inv models.ProjectInvitation) bool {
		return inv.Status == models.InvitationPending && ended[inv.ProjectID]
	}, false), nil
}

func (r invitationRepo) RecordAttempt(_ context.Context, invitationID string, update repository.AttemptUpdate) (models.ProjectInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, err := r.s.pendingInvitation(invitationID)
	if err != nil {
		return models.ProjectInvitation{}, err
	}
	if err := r.s.fail("RecordAttempt", invitationID); err != nil {
		return models.ProjectInvitation{}, err
	}
	inv.Attempts = append(inv.Attempts, update.Attempt)
	if update.RequiredResponseDate != nil {
		inv.RequiredResponseDate = *update.RequiredResponseDate
	}
	if update.LastNudgeAt != nil {
		inv.LastNudgeAt = update.LastNudgeAt
	}
	inv.UpdatedAt = update.Attempt.Date
	r.s.invitations[invitationID] = inv
	r.s.writes++
	return cloneInvitation(inv), nil
}

func (r invitationRepo) Transition(_ context.Context, invitationID string, t repository.Transition) (models.ProjectInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, err := r.s.pendingInvitation(invitationID)
	if err != nil {
		return models.ProjectInvitation{}, err
	}
	// Failing here leaves both the invitation and the roster untouched, like a rolled back transaction.
	if err := r.s.fail("Transition", invitationID); err != nil {
		return models.ProjectInvitation{}, err
	}

	inv.Status = t.To
	inv.UpdatedAt = t.At
	if t.ResponseDate != nil {
		inv.ResponseDate = t.ResponseDate
	}
	if t.DeclineReason != nil {
		inv.DeclineReason = t.DeclineReason
	}
	if t.CancelReason != nil {
		inv.CancelReason = t.CancelReason
	}
	if t.CancelledBy != nil {
		inv.CancelledBy = t.CancelledBy
	}
	if t.Attempt != nil {
		inv.Attempts = append(inv.Attempts, *t.Attempt)
	}

	switch t.Roster {
	case repository.RosterAdd:
		if _, err := r.s.addWorker(inv.ProjectID, inv.UserID, t.At, true); err != nil {
			return models.ProjectInvitation{}, err
		}
	case repository.RosterRemove:
		r.s.removeWorker(inv.ProjectID, inv.UserID)
	}

	r.s.invitations[invitationID] = inv
	r.s.writes++
	return cloneInvitation(inv), nil
}

func (r invitationRepo) DeleteInvitation(_ context.Context, invitationID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.invitations[invitationID]; !ok {
		return notFound("invitation", invitationID)
	}
	delete(r.s.invitations, invitationID)
	r.s.writes++
	return nil
}

// pendingInvitation returns a copy of the invitation if it is still pending. Caller holds mu.
func (s *Store) pendingInvitation(invitationID string) (models.ProjectInvitation, error) {
	inv, ok := s.invitations[invitationID]
	if !ok {
		return models.ProjectInvitation{}, notFound("invitation", invitationID)
	}
	if inv.Status != models.InvitationPending {
		return models.ProjectInvitation{}, fmt.Errorf("%w: invitation %s is %s", models.ErrInvalidState, invitationID, inv.Status)
	}
	return cloneInvitation(inv), nil
}

func (r invitationRepo) filter(keep func(models.ProjectInvitation) bool, newestFirst bool) []models.ProjectInvitation {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ProjectInvitation
	for _, inv := range r.s.invitations {
		if keep(inv) {
			out = append(out, cloneInvitation(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func cloneInvitation(inv models.ProjectInvitation) models.ProjectInvitation {
	inv.Attempts = append([]models.InvitationAttempt(nil), inv.Attempts...)
	return inv
}
