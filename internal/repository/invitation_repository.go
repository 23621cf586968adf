package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stanstork/workforce-api/internal/models"
)

type InvitationRepository interface {
	CreateInvitation(ctx context.Context, invitation models.ProjectInvitation) (models.ProjectInvitation, error)
	GetInvitation(ctx context.Context, invitationID string) (models.ProjectInvitation, error)
	// FindOpen returns the pending or accepted invitation for the pair, or sql.ErrNoRows.
	FindOpen(ctx context.Context, projectID, userID string) (models.ProjectInvitation, error)
	ListByProject(ctx context.Context, projectID string) ([]models.ProjectInvitation, error)
	// ListByUser lists a worker's invitations, newest first. An empty status lists all.
	ListByUser(ctx context.Context, userID string, status models.InvitationStatus) ([]models.ProjectInvitation, error)
	ListByStatus(ctx context.Context, status models.InvitationStatus) ([]models.ProjectInvitation, error)
	// ListOverdue returns pending invitations whose response deadline is before now.
	ListOverdue(ctx context.Context, now time.Time) ([]models.ProjectInvitation, error)
	// ListPendingForEndedProjects returns pending invitations whose project has ended.
	ListPendingForEndedProjects(ctx context.Context) ([]models.ProjectInvitation, error)
	RecordAttempt(ctx context.Context, invitationID string, update AttemptUpdate) (models.ProjectInvitation, error)
	Transition(ctx context.Context, invitationID string, t Transition) (models.ProjectInvitation, error)
	DeleteInvitation(ctx context.Context, invitationID string) error
}

// AttemptUpdate appends an attempt to a pending invitation. Nil fields are left unchanged.
type AttemptUpdate struct {
	Attempt              models.InvitationAttempt
	RequiredResponseDate *time.Time
	LastNudgeAt          *time.Time
}

type RosterAction int

const (
	RosterKeep RosterAction = iota
	// RosterAdd upserts the invited worker onto the project roster.
	RosterAdd
	// RosterRemove deletes the invited worker from the project roster.
	RosterRemove
)

// Transition moves a pending invitation to a terminal status. The roster action runs in the same transaction.
type Transition struct {
	To            models.InvitationStatus
	At            time.Time
	ResponseDate  *time.Time
	DeclineReason *string
	CancelReason  *string
	CancelledBy   *string
	Attempt       *models.InvitationAttempt
	Roster        RosterAction
}

type invitationRepository struct {
	db *sql.DB
}

func NewInvitationRepository(db *sql.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

const invitationColumns = `id, project_id, user_id, status, message, created_at, updated_at, required_response_date,
		response_date, decline_reason, cancel_reason, cancelled_by, last_nudge_at, attempts`

func (r *invitationRepository) CreateInvitation(ctx context.Context, inv models.ProjectInvitation) (models.ProjectInvitation, error) {
	query := `
		INSERT INTO tenant.project_invitations
			(project_id, user_id, status, message, created_at, updated_at, required_response_date, attempts)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $7::jsonb)
		RETURNING ` + invitationColumns

	attempts := inv.Attempts
	if attempts == nil {
		attempts = []models.InvitationAttempt{}
	}
	attemptsJSON, err := jsonParam(attempts)
	if err != nil {
		return models.ProjectInvitation{}, fmt.Errorf("marshal attempts: %w", err)
	}

	row := r.db.QueryRowContext(ctx, query,
		inv.ProjectID,
		inv.UserID,
		inv.Status,
		inv.Message,
		inv.CreatedAt,
		inv.RequiredResponseDate,
		attemptsJSON,
	)
	created, err := scanInvitation(row)
	if isUniqueViolation(err) {
		return models.ProjectInvitation{}, fmt.Errorf("%w: user %s already has an open invitation to project %s",
			models.ErrInvalidState, inv.UserID, inv.ProjectID)
	}
	return created, err
}

func (r *invitationRepository) GetInvitation(ctx context.Context, invitationID string) (models.ProjectInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM tenant.project_invitations WHERE id = $1`
	return scanInvitation(r.db.QueryRowContext(ctx, query, invitationID))
}

func (r *invitationRepository) FindOpen(ctx context.Context, projectID, userID string) (models.ProjectInvitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM tenant.project_invitations
		WHERE project_id = $1 AND user_id = $2 AND status IN ('pending', 'accepted')
		ORDER BY created_at DESC
		LIMIT 1`
	return scanInvitation(r.db.QueryRowContext(ctx, query, projectID, userID))
}

func (r *invitationRepository) ListByProject(ctx context.Context, projectID string) ([]models.ProjectInvitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM tenant.project_invitations
		WHERE project_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, projectID)
}

func (r *invitationRepository) ListByUser(ctx context.Context, userID string, status models.InvitationStatus) ([]models.ProjectInvitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM tenant.project_invitations
		WHERE user_id = $1 AND ($2::text = '' OR status = $2::text)
		ORDER BY created_at DESC`
	return r.list(ctx, query, userID, string(status))
}

func (r *invitationRepository) ListByStatus(ctx context.Context, status models.InvitationStatus) ([]models.ProjectInvitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM tenant.project_invitations
		WHERE status = $1
		ORDER BY created_at ASC`
	return r.list(ctx, query, string(status))
}

func (r *invitationRepository) ListOverdue(ctx context.Context, now time.Time) ([]models.ProjectInvitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM tenant.project_invitations
		WHERE status = 'pending' AND required_response_date < $1
		ORDER BY required_response_date ASC`
	return r.list(ctx, query, now)
}

func (r *invitationRepository) ListPendingForEndedProjects(ctx context.Context) ([]models.ProjectInvitation, error) {
	query := `
		SELECT ` + prefixed("i", invitationColumns) + `
		FROM tenant.project_invitations i
		JOIN tenant.projects p ON p.id = i.project_id
		WHERE i.status = 'pending' AND p.status = 'ended'
		ORDER BY i.created_at ASC`
	return r.list(ctx, query)
}

func (r *invitationRepository) RecordAttempt(ctx context.Context, invitationID string, update AttemptUpdate) (models.ProjectInvitation, error) {
	query := `
		UPDATE tenant.project_invitations
		SET attempts = attempts || $2::jsonb,
		    required_response_date = COALESCE($3, required_response_date),
		    last_nudge_at = COALESCE($4, last_nudge_at),
		    updated_at = $5
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + invitationColumns

	attempt, err := jsonParam([]models.InvitationAttempt{update.Attempt})
	if err != nil {
		return models.ProjectInvitation{}, fmt.Errorf("marshal attempt: %w", err)
	}

	row := r.db.QueryRowContext(ctx, query,
		invitationID,
		attempt,
		nullTime(update.RequiredResponseDate),
		nullTime(update.LastNudgeAt),
		update.Attempt.Date,
	)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProjectInvitation{}, r.guardFailure(ctx, r.db, invitationID)
	}
	return inv, err
}

func (r *invitationRepository) Transition(ctx context.Context, invitationID string, t Transition) (models.ProjectInvitation, error) {
	query := `
		UPDATE tenant.project_invitations
		SET status = $2,
		    updated_at = $3,
		    response_date = COALESCE($4, response_date),
		    decline_reason = COALESCE($5, decline_reason),
		    cancel_reason = COALESCE($6, cancel_reason),
		    cancelled_by = COALESCE($7, cancelled_by),
		    attempts = CASE WHEN $8::jsonb IS NULL THEN attempts ELSE attempts || $8::jsonb END
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + invitationColumns

	var attempt interface{}
	if t.Attempt != nil {
		var err error
		if attempt, err = jsonParam([]models.InvitationAttempt{*t.Attempt}); err != nil {
			return models.ProjectInvitation{}, fmt.Errorf("marshal attempt: %w", err)
		}
	}

	var updated models.ProjectInvitation
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, query,
			invitationID,
			string(t.To),
			t.At,
			nullTime(t.ResponseDate),
			nullString(t.DeclineReason),
			nullString(t.CancelReason),
			nullString(t.CancelledBy),
			attempt,
		)
		inv, err := scanInvitation(row)
		if errors.Is(err, sql.ErrNoRows) {
			return r.guardFailure(ctx, tx, invitationID)
		}
		if err != nil {
			return err
		}

		switch t.Roster {
		case RosterAdd:
			if err := upsertWorker(ctx, tx, inv.ProjectID, inv.UserID, t.At); err != nil {
				return err
			}
		case RosterRemove:
			if _, err := removeWorker(ctx, tx, inv.ProjectID, inv.UserID); err != nil {
				return err
			}
		}
		updated = inv
		return nil
	})
	if err != nil {
		return models.ProjectInvitation{}, err
	}
	return updated, nil
}

func (r *invitationRepository) DeleteInvitation(ctx context.Context, invitationID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tenant.project_invitations WHERE id = $1`, invitationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// guardFailure tells a missing invitation apart from one that is no longer pending.
func (r *invitationRepository) guardFailure(ctx context.Context, q rowQuerier, invitationID string) error {
	var status string
	err := q.QueryRowContext(ctx, `SELECT status FROM tenant.project_invitations WHERE id = $1`, invitationID).Scan(&status)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: invitation %s is %s", models.ErrInvalidState, invitationID, status)
}

func (r *invitationRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.ProjectInvitation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []models.ProjectInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invitations, nil
}

func scanInvitation(s scanner) (models.ProjectInvitation, error) {
	var (
		inv           models.ProjectInvitation
		status        string
		responseDate  sql.NullTime
		declineReason sql.NullString
		cancelReason  sql.NullString
		cancelledBy   sql.NullString
		lastNudgeAt   sql.NullTime
		attempts      []byte
	)
	err := s.Scan(
		&inv.ID,
		&inv.ProjectID,
		&inv.UserID,
		&status,
		&inv.Message,
		&inv.CreatedAt,
		&inv.UpdatedAt,
		&inv.RequiredResponseDate,
		&responseDate,
		&declineReason,
		&cancelReason,
		&cancelledBy,
		&lastNudgeAt,
		&attempts,
	)
	if err != nil {
		return models.ProjectInvitation{}, err
	}

	inv.Status = models.InvitationStatus(status)
	inv.ResponseDate = timePtr(responseDate)
	inv.DeclineReason = stringPtr(declineReason)
	inv.CancelReason = stringPtr(cancelReason)
	inv.CancelledBy = stringPtr(cancelledBy)
	inv.LastNudgeAt = timePtr(lastNudgeAt)

	inv.Attempts = []models.InvitationAttempt{}
	if len(attempts) > 0 {
		if err := json.Unmarshal(attempts, &inv.Attempts); err != nil {
			return models.ProjectInvitation{}, fmt.Errorf("decode attempts: %w", err)
		}
	}
	return inv, nil
}
