// Package timesheet records the hours workers log against projects and their admin review.
package timesheet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/notification"
	"github.com/stanstork/workforce-api/internal/repository"
)

// DefaultRecentLimit is how many entries a worker's own listing returns by default.
const DefaultRecentLimit = 7

type SubmitRequest struct {
	ProjectID    string    `json:"project_id"`
	Date         time.Time `json:"date"`
	RegularHours float64   `json:"regular_hours"`
	Overtime15x  float64   `json:"overtime_15x"`
	Overtime20x  float64   `json:"overtime_20x"`
	Remarks      string    `json:"remarks"`
}

// Decision is an admin verdict on one or more pending entries.
type Decision struct {
	Status models.WorkHoursStatus `json:"status"`
	Reason string                 `json:"reason"`
}

// BatchResult reports a bulk review. Failed maps entry ids to the reason they were skipped.
type BatchResult struct {
	Reviewed []models.WorkHours `json:"reviewed"`
	Failed   map[string]string  `json:"failed"`
}

type Service interface {
	SubmitWorkHours(ctx context.Context, userID string, req SubmitRequest) (models.WorkHours, error)
	GetWorkHours(ctx context.Context, entryID string) (models.WorkHours, error)
	ListMyWorkHours(ctx context.Context, userID string, limit int) ([]models.WorkHours, error)
	ListWorkHours(ctx context.Context, filter models.WorkHoursFilter) ([]models.WorkHours, error)
	Review(ctx context.Context, entryID, adminID string, decision Decision) (models.WorkHours, error)
	// ReviewBatch applies one decision to every id, continuing past entries that cannot be reviewed.
	ReviewBatch(ctx context.Context, entryIDs []string, adminID string, decision Decision) (BatchResult, error)
	UnpaidSummary(ctx context.Context) ([]models.WorkHoursSummary, error)
}

type service struct {
	entries  repository.WorkHoursRepository
	projects repository.ProjectRepository
	notifier notification.Service
	now      func() time.Time
	logger   zerolog.Logger
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(entries repository.WorkHoursRepository, projects repository.ProjectRepository, notifier notification.Service, logger zerolog.Logger, opts ...Option) Service {
	s := &service{
		entries:  entries,
		projects: projects,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("component", "timesheet_service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) SubmitWorkHours(ctx context.Context, userID string, req SubmitRequest) (models.WorkHours, error) {
	now := s.now()
	if err := validateSubmit(req, now); err != nil {
		return models.WorkHours{}, err
	}
	projectID := strings.TrimSpace(req.ProjectID)
	p, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return models.WorkHours{}, notFound(err, "project", projectID)
	}
	if _, ok := p.Workers[userID]; !ok {
		return models.WorkHours{}, fmt.Errorf("%w: user %s is not on the roster of project %s", models.ErrForbidden, userID, projectID)
	}

	w, err := s.entries.CreateWorkHours(ctx, models.WorkHours{
		UserID:       userID,
		ProjectID:    projectID,
		Date:         day(req.Date),
		RegularHours: req.RegularHours,
		Overtime15x:  req.Overtime15x,
		Overtime20x:  req.Overtime20x,
		Remarks:      strings.TrimSpace(req.Remarks),
		Status:       models.WorkHoursPending,
		CreatedAt:    now,
	})
	if err != nil {
		return models.WorkHours{}, fmt.Errorf("create work hours: %w", err)
	}

	s.logger.Info().
		Str("entry_id", w.ID).
		Str("user_id", userID).
		Str("project_id", projectID).
		Float64("hours", w.TotalHours()).
		Msg("work hours submitted")
	return w, nil
}

func (s *service) GetWorkHours(ctx context.Context, entryID string) (models.WorkHours, error) {
	w, err := s.entries.GetWorkHours(ctx, entryID)
	if err != nil {
		return models.WorkHours{}, notFound(err, "work hours", entryID)
	}
	return w, nil
}

func (s *service) ListMyWorkHours(ctx context.Context, userID string, limit int) ([]models.WorkHours, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.ListWorkHours(ctx, models.WorkHoursFilter{UserID: userID, Limit: limit})
}

func (s *service) ListWorkHours(ctx context.Context, filter models.WorkHoursFilter) ([]models.WorkHours, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown work hours status %q", models.ErrInvalidInput, filter.Status)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, fmt.Errorf("%w: to is before from", models.ErrInvalidInput)
	}
	entries, err := s.entries.ListWorkHours(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list work hours: %w", err)
	}
	if entries == nil {
		entries = []models.WorkHours{}
	}
	return entries, nil
}

func (s *service) Review(ctx context.Context, entryID, adminID string, decision Decision) (models.WorkHours, error) {
	reason, err := validateDecision(decision)
	if err != nil {
		return models.WorkHours{}, err
	}
	return s.review(ctx, entryID, adminID, decision.Status, reason)
}

func (s *service) ReviewBatch(ctx context.Context, entryIDs []string, adminID string, decision Decision) (BatchResult, error) {
	reason, err := validateDecision(decision)
	if err != nil {
		return BatchResult{}, err
	}
	if len(entryIDs) == 0 {
		return BatchResult{}, fmt.Errorf("%w: at least one entry id is required", models.ErrInvalidInput)
	}

	result := BatchResult{Reviewed: []models.WorkHours{}, Failed: map[string]string{}}
	seen := make(map[string]bool, len(entryIDs))
	for _, id := range entryIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, err := uuid.Parse(id); err != nil {
			result.Failed[id] = fmt.Sprintf("%s: %s", models.ErrNotFound, id)
			continue
		}
		w, err := s.review(ctx, id, adminID, decision.Status, reason)
		if err != nil {
			result.Failed[id] = err.Error()
			continue
		}
		result.Reviewed = append(result.Reviewed, w)
	}

	s.logger.Info().
		Str("status", string(decision.Status)).
		Int("reviewed", len(result.Reviewed)).
		Int("failed", len(result.Failed)).
		Str("admin_id", adminID).
		Msg("work hours batch reviewed")
	return result, nil
}

func (s *service) UnpaidSummary(ctx context.Context) ([]models.WorkHoursSummary, error) {
	summaries, err := s.entries.SummarizeUnpaid(ctx)
	if err != nil {
		return nil, fmt.Errorf("summarize unpaid work hours: %w", err)
	}
	if summaries == nil {
		summaries = []models.WorkHoursSummary{}
	}
	return summaries, nil
}

func (s *service) review(ctx context.Context, entryID, adminID string, to models.WorkHoursStatus, reason *string) (models.WorkHours, error) {
	w, err := s.entries.Review(ctx, entryID, repository.WorkHoursReview{
		Status:          to,
		ReviewedBy:      adminID,
		At:              s.now(),
		RejectionReason: reason,
	})
	if err != nil {
		return models.WorkHours{}, notFound(err, "work hours", entryID)
	}

	s.logger.Debug().
		Str("entry_id", w.ID).
		Str("status", string(w.Status)).
		Str("admin_id", adminID).
		Msg("work hours reviewed")

	message := fmt.Sprintf("Your %.2f hours on %s were %s.", w.TotalHours(), w.Date.Format("2006-01-02"), w.Status)
	if reason != nil {
		message = fmt.Sprintf("%s Reason: %s", message, *reason)
	}
	_, err = s.notifier.Publish(ctx, notification.Event{
		UserID:     w.UserID,
		Type:       models.NotificationWorkHoursStatus,
		Title:      fmt.Sprintf("Work hours %s", w.Status),
		Message:    message,
		EntityType: models.EntityWorkHours,
		EntityID:   w.ID,
		Link:       "/worker/work-hours",
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("entry_id", w.ID).Msg("failed to notify worker")
	}
	return w, nil
}

func validateSubmit(req SubmitRequest, now time.Time) error {
	total := req.RegularHours + req.Overtime15x + req.Overtime20x
	switch {
	case strings.TrimSpace(req.ProjectID) == "":
		return fmt.Errorf("%w: project_id is required", models.ErrInvalidInput)
	case req.Date.IsZero():
		return fmt.Errorf("%w: date is required", models.ErrInvalidInput)
	case day(req.Date).After(day(now)):
		return fmt.Errorf("%w: date %s is in the future", models.ErrInvalidInput, req.Date.Format("2006-01-02"))
	case req.RegularHours < 0 || req.Overtime15x < 0 || req.Overtime20x < 0:
		return fmt.Errorf("%w: hours cannot be negative", models.ErrInvalidInput)
	case total <= 0:
		return fmt.Errorf("%w: at least some hours must be logged", models.ErrInvalidInput)
	case total > models.MaxDailyHours:
		return fmt.Errorf("%w: %.2f hours exceeds the daily maximum of %d", models.ErrInvalidInput, total, models.MaxDailyHours)
	}
	if _, err := uuid.Parse(strings.TrimSpace(req.ProjectID)); err != nil {
		return fmt.Errorf("%w: project_id %q is not a valid id", models.ErrInvalidInput, req.ProjectID)
	}
	return nil
}

// validateDecision returns the trimmed rejection reason, nil when approving.
func validateDecision(d Decision) (*string, error) {
	switch d.Status {
	case models.WorkHoursApproved:
		return nil, nil
	case models.WorkHoursRejected:
		reason := strings.TrimSpace(d.Reason)
		if reason == "" {
			return nil, fmt.Errorf("%w: rejection reason is required", models.ErrInvalidInput)
		}
		return &reason, nil
	}
	return nil, fmt.Errorf("%w: decision must be approved or rejected, got %q", models.ErrInvalidInput, d.Status)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", models.ErrNotFound, kind, id)
	}
	return err
}
