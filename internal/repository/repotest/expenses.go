package repotest

import (
	"context"
	"fmt"
	"sort"

	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/repository"
)

type expenseRepo struct{ s *Store }

func (r expenseRepo) CreateExpense(_ context.Context, e models.Expense) (models.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreateExpense", e.UserID); err != nil {
		return models.Expense{}, err
	}
	if e.ID == "" {
		e.ID = newID()
	}
	if e.Receipts == nil {
		e.Receipts = []string{}
	}
	e.UpdatedAt = e.CreatedAt
	r.s.expenses[e.ID] = cloneExpense(e)
	r.s.writes++
	return cloneExpense(e), nil
}

func (r expenseRepo) GetExpense(_ context.Context, expenseID string) (models.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.expenses[expenseID]
	if !ok {
		return models.Expense{}, notFound("expense", expenseID)
	}
	return cloneExpense(e), nil
}

func (r expenseRepo) ListExpenses(_ context.Context, filter models.ExpenseFilter) ([]models.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Expense
	for _, e := range r.s.expenses {
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.ProjectID != "" && (e.ProjectID == nil || *e.ProjectID != filter.ProjectID) {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.UnpaidOnly && e.Paid {
			continue
		}
		out = append(out, cloneExpense(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func (r expenseRepo) Review(_ context.Context, expenseID string, from models.ExpenseStatus, review repository.ExpenseReview) (models.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.expenses[expenseID]
	if !ok {
		return models.Expense{}, notFound("expense", expenseID)
	}
	if e.Paid {
		return models.Expense{}, fmt.Errorf("%w: expense %s is already paid", models.ErrInvalidState, expenseID)
	}
	if e.Status != from {
		return models.Expense{}, fmt.Errorf("%w: expense %s moved to %s", models.ErrInvalidState, expenseID, e.Status)
	}
	if err := r.s.fail("ReviewExpense", expenseID); err != nil {
		return models.Expense{}, err
	}
	e = cloneExpense(e)
	reviewer, at := review.ReviewedBy, review.At
	e.Status = review.Status
	e.ReviewedBy = &reviewer
	e.ReviewedAt = &at
	e.RejectionReason = review.RejectionReason
	e.UpdatedAt = at
	r.s.expenses[expenseID] = e
	r.s.writes++
	return cloneExpense(e), nil
}

func cloneExpense(e models.Expense) models.Expense {
	e.Receipts = append([]string{}, e.Receipts...)
	return e
}
