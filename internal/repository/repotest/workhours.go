package repotest

import (
	"context"
	"fmt"
	"sort"

	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/repository"
)

type workHoursRepo struct{ s *Store }

func (r workHoursRepo) CreateWorkHours(_ context.Context, w models.WorkHours) (models.WorkHours, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreateWorkHours", w.UserID); err != nil {
		return models.WorkHours{}, err
	}
	if w.ID == "" {
		w.ID = newID()
	}
	w.UpdatedAt = w.CreatedAt
	r.s.workHours[w.ID] = w
	r.s.writes++
	return w, nil
}

func (r workHoursRepo) GetWorkHours(_ context.Context, entryID string) (models.WorkHours, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.workHours[entryID]
	if !ok {
		return models.WorkHours{}, notFound("work hours", entryID)
	}
	return w, nil
}

func (r workHoursRepo) ListWorkHours(_ context.Context, filter models.WorkHoursFilter) ([]models.WorkHours, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.WorkHours
	for _, w := range r.s.workHours {
		if filter.UserID != "" && w.UserID != filter.UserID {
			continue
		}
		if filter.ProjectID != "" && w.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Status != "" && w.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && w.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && w.Date.After(filter.To) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.After(out[j].Date)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r workHoursRepo) Review(_ context.Context, entryID string, review repository.WorkHoursReview) (models.WorkHours, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.workHours[entryID]
	if !ok {
		return models.WorkHours{}, notFound("work hours", entryID)
	}
	if w.Status != models.WorkHoursPending {
		return models.WorkHours{}, fmt.Errorf("%w: work hours %s are already %s", models.ErrInvalidState, entryID, w.Status)
	}
	if err := r.s.fail("ReviewWorkHours", entryID); err != nil {
		return models.WorkHours{}, err
	}
	reviewer, at := review.ReviewedBy, review.At
	w.Status = review.Status
	w.ReviewedBy = &reviewer
	w.ReviewedAt = &at
	w.RejectionReason = review.RejectionReason
	w.UpdatedAt = at
	r.s.workHours[entryID] = w
	r.s.writes++
	return w, nil
}

func (r workHoursRepo) SummarizeUnpaid(_ context.Context) ([]models.WorkHoursSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	totals := map[[2]string]*models.WorkHoursSummary{}
	for _, w := range r.s.workHours {
		if w.Status != models.WorkHoursApproved || w.Paid {
			continue
		}
		key := [2]string{w.UserID, w.ProjectID}
		s, ok := totals[key]
		if !ok {
			s = &models.WorkHoursSummary{UserID: w.UserID, ProjectID: w.ProjectID}
			totals[key] = s
		}
		s.Entries++
		s.RegularHours += w.RegularHours
		s.Overtime15x += w.Overtime15x
		s.Overtime20x += w.Overtime20x
	}
	out := make([]models.WorkHoursSummary, 0, len(totals))
	for _, s := range totals {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID == out[j].UserID {
			return out[i].ProjectID < out[j].ProjectID
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}
