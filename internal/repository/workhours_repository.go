package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stanstork/workforce-api/internal/models"
)

const dateLayout = "2006-01-02"

type WorkHoursRepository interface {
	CreateWorkHours(ctx context.Context, entry models.WorkHours) (models.WorkHours, error)
	GetWorkHours(ctx context.Context, entryID string) (models.WorkHours, error)
	// ListWorkHours returns entries newest day first. A zero Limit returns every match.
	ListWorkHours(ctx context.Context, filter models.WorkHoursFilter) ([]models.WorkHours, error)
	// Review decides a pending entry; anything else fails with models.ErrInvalidState.
	Review(ctx context.Context, entryID string, review WorkHoursReview) (models.WorkHours, error)
	// SummarizeUnpaid totals approved, unpaid hours per worker and project.
	SummarizeUnpaid(ctx context.Context) ([]models.WorkHoursSummary, error)
}

type WorkHoursReview struct {
	Status          models.WorkHoursStatus
	ReviewedBy      string
	At              time.Time
	RejectionReason *string
}

type workHoursRepository struct {
	db *sql.DB
}

func NewWorkHoursRepository(db *sql.DB) WorkHoursRepository {
	return &workHoursRepository{db: db}
}

const workHoursColumns = `id, user_id, project_id, date, regular_hours, overtime_15x, overtime_20x, remarks, status,
		reviewed_by, reviewed_at, rejection_reason, paid, created_at, updated_at`

func (r *workHoursRepository) CreateWorkHours(ctx context.Context, w models.WorkHours) (models.WorkHours, error) {
	query := `
		INSERT INTO tenant.work_hours
			(user_id, project_id, date, regular_hours, overtime_15x, overtime_20x, remarks, status, created_at, updated_at)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $9)
		RETURNING ` + workHoursColumns

	row := r.db.QueryRowContext(ctx, query,
		w.UserID,
		w.ProjectID,
		w.Date.Format(dateLayout),
		w.RegularHours,
		w.Overtime15x,
		w.Overtime20x,
		w.Remarks,
		string(w.Status),
		w.CreatedAt,
	)
	return scanWorkHours(row)
}

func (r *workHoursRepository) GetWorkHours(ctx context.Context, entryID string) (models.WorkHours, error) {
	query := `SELECT ` + workHoursColumns + ` FROM tenant.work_hours WHERE id = $1`
	return scanWorkHours(r.db.QueryRowContext(ctx, query, entryID))
}

func (r *workHoursRepository) ListWorkHours(ctx context.Context, filter models.WorkHoursFilter) ([]models.WorkHours, error) {
	query := `
		SELECT ` + workHoursColumns + `
		FROM tenant.work_hours
		WHERE ($1::text = '' OR user_id = $1::text)
		  AND ($2::text = '' OR project_id::text = $2::text)
		  AND ($3::text = '' OR status = $3::text)
		  AND ($4::date IS NULL OR date >= $4::date)
		  AND ($5::date IS NULL OR date <= $5::date)
		ORDER BY date DESC, created_at DESC
		LIMIT NULLIF($6::int, 0)`

	rows, err := r.db.QueryContext(ctx, query,
		filter.UserID,
		filter.ProjectID,
		string(filter.Status),
		dateParam(filter.From),
		dateParam(filter.To),
		filter.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.WorkHours
	for rows.Next() {
		w, err := scanWorkHours(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *workHoursRepository) Review(ctx context.Context, entryID string, review WorkHoursReview) (models.WorkHours, error) {
	query := `
		UPDATE tenant.work_hours
		SET status = $2,
		    reviewed_by = $3,
		    reviewed_at = $4,
		    rejection_reason = $5,
		    updated_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + workHoursColumns

	row := r.db.QueryRowContext(ctx, query,
		entryID,
		string(review.Status),
		review.ReviewedBy,
		review.At,
		nullString(review.RejectionReason),
	)
	w, err := scanWorkHours(row)
	if errors.Is(err, sql.ErrNoRows) {
		var status string
		lookup := `SELECT status FROM tenant.work_hours WHERE id = $1`
		if lookupErr := r.db.QueryRowContext(ctx, lookup, entryID).Scan(&status); lookupErr != nil {
			return models.WorkHours{}, lookupErr
		}
		return models.WorkHours{}, fmt.Errorf("%w: work hours %s are already %s", models.ErrInvalidState, entryID, status)
	}
	return w, err
}

func (r *workHoursRepository) SummarizeUnpaid(ctx context.Context) ([]models.WorkHoursSummary, error) {
	const query = `
		SELECT user_id, project_id, COUNT(*), SUM(regular_hours), SUM(overtime_15x), SUM(overtime_20x)
		FROM tenant.work_hours
		WHERE status = 'approved' AND NOT paid
		GROUP BY user_id, project_id
		ORDER BY user_id, project_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.WorkHoursSummary
	for rows.Next() {
		var s models.WorkHoursSummary
		if err := rows.Scan(&s.UserID, &s.ProjectID, &s.Entries, &s.RegularHours, &s.Overtime15x, &s.Overtime20x); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func dateParam(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}

func scanWorkHours(s scanner) (models.WorkHours, error) {
	var (
		w               models.WorkHours
		status          string
		reviewedBy      sql.NullString
		reviewedAt      sql.NullTime
		rejectionReason sql.NullString
	)
	err := s.Scan(
		&w.ID,
		&w.UserID,
		&w.ProjectID,
		&w.Date,
		&w.RegularHours,
		&w.Overtime15x,
		&w.Overtime20x,
		&w.Remarks,
		&status,
		&reviewedBy,
		&reviewedAt,
		&rejectionReason,
		&w.Paid,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return models.WorkHours{}, err
	}

	w.Status = models.WorkHoursStatus(status)
	w.ReviewedBy = stringPtr(reviewedBy)
	w.ReviewedAt = timePtr(reviewedAt)
	w.RejectionReason = stringPtr(rejectionReason)
	return w, nil
}
