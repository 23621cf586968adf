// Package expense handles worker reimbursement claims and their review.
package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/notification"
	"github.com/stanstork/workforce-api/internal/repository"
)

type SubmitRequest struct {
	ProjectID   string          `json:"project_id"`
	ExpenseType string          `json:"expense_type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Receipts    []string        `json:"receipts"`
}

type Service interface {
	SubmitExpense(ctx context.Context, userID string, req SubmitRequest) (models.Expense, error)
	GetExpense(ctx context.Context, expenseID string) (models.Expense, error)
	ListMyExpenses(ctx context.Context, userID string, status models.ExpenseStatus) ([]models.Expense, error)
	ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error)
	// ApproveExpense approves a pending claim or restores a rejected one.
	ApproveExpense(ctx context.Context, expenseID, adminID string) (models.Expense, error)
	RejectExpense(ctx context.Context, expenseID, adminID, reason string) (models.Expense, error)
	// ListUnpaidApproved returns a worker's claims that a payment may still settle.
	ListUnpaidApproved(ctx context.Context, userID string) ([]models.Expense, error)
}

type service struct {
	expenses repository.ExpenseRepository
	projects repository.ProjectRepository
	notifier notification.Service
	now      func() time.Time
	logger   zerolog.Logger
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(expenses repository.ExpenseRepository, projects repository.ProjectRepository, notifier notification.Service, logger zerolog.Logger, opts ...Option) Service {
	s := &service{
		expenses: expenses,
		projects: projects,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("component", "expense_service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) SubmitExpense(ctx context.Context, userID string, req SubmitRequest) (models.Expense, error) {
	if err := validateSubmit(req); err != nil {
		return models.Expense{}, err
	}
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID != "" {
		if _, err := s.projects.GetProject(ctx, projectID); err != nil {
			return models.Expense{}, notFound(err, "project", projectID)
		}
	}

	now := s.now()
	date := req.Date
	if date.IsZero() {
		date = now
	}
	receipts := make([]string, 0, len(req.Receipts))
	for _, r := range req.Receipts {
		if r = strings.TrimSpace(r); r != "" {
			receipts = append(receipts, r)
		}
	}

	e, err := s.expenses.CreateExpense(ctx, models.Expense{
		UserID:      userID,
		ProjectID:   optional(projectID),
		ExpenseType: strings.TrimSpace(req.ExpenseType),
		Amount:      req.Amount,
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		Description: strings.TrimSpace(req.Description),
		Date:        date,
		Receipts:    receipts,
		Status:      models.ExpensePending,
		CreatedAt:   now,
	})
	if err != nil {
		return models.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	s.logger.Info().
		Str("expense_id", e.ID).
		Str("user_id", userID).
		Str("amount", e.Amount.StringFixed(2)).
		Str("currency", e.Currency).
		Msg("expense submitted")

	err = s.notifier.NotifyAdmins(ctx, notification.Event{
		Type:       models.NotificationExpenseSubmitted,
		Title:      "New expense claim",
		Message:    fmt.Sprintf("A %s claim of %s %s is waiting for review.", e.ExpenseType, e.Amount.StringFixed(2), e.Currency),
		EntityType: models.EntityExpense,
		EntityID:   e.ID,
		Link:       "/admin/expenses",
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("expense_id", e.ID).Msg("failed to notify admins")
	}
	return e, nil
}

func (s *service) GetExpense(ctx context.Context, expenseID string) (models.Expense, error) {
	e, err := s.expenses.GetExpense(ctx, expenseID)
	if err != nil {
		return models.Expense{}, notFound(err, "expense", expenseID)
	}
	return e, nil
}

func (s *service) ListMyExpenses(ctx context.Context, userID string, status models.ExpenseStatus) ([]models.Expense, error) {
	return s.ListExpenses(ctx, models.ExpenseFilter{UserID: userID, Status: status})
}

func (s *service) ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown expense status %q", models.ErrInvalidInput, filter.Status)
	}
	expenses, err := s.expenses.ListExpenses(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	return expenses, nil
}

func (s *service) ApproveExpense(ctx context.Context, expenseID, adminID string) (models.Expense, error) {
	return s.review(ctx, expenseID, adminID, models.ExpenseApproved, nil)
}

func (s *service) RejectExpense(ctx context.Context, expenseID, adminID, reason string) (models.Expense, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.Expense{}, fmt.Errorf("%w: rejection reason is required", models.ErrInvalidInput)
	}
	return s.review(ctx, expenseID, adminID, models.ExpenseRejected, &reason)
}

func (s *service) ListUnpaidApproved(ctx context.Context, userID string) ([]models.Expense, error) {
	return s.ListExpenses(ctx, models.ExpenseFilter{UserID: userID, Status: models.ExpenseApproved, UnpaidOnly: true})
}

// review checks the transition against the status read here; the write repeats the check so a
// concurrent review or settlement surfaces as ErrInvalidState.
func (s *service) review(ctx context.Context, expenseID, adminID string, to models.ExpenseStatus, reason *string) (models.Expense, error) {
	current, err := s.GetExpense(ctx, expenseID)
	if err != nil {
		return models.Expense{}, err
	}
	if err := models.ValidateExpenseReview(current, to); err != nil {
		return models.Expense{}, err
	}

	e, err := s.expenses.Review(ctx, expenseID, current.Status, repository.ExpenseReview{
		Status:          to,
		ReviewedBy:      adminID,
		At:              s.now(),
		RejectionReason: reason,
	})
	if err != nil {
		return models.Expense{}, notFound(err, "expense", expenseID)
	}

	s.logger.Info().
		Str("expense_id", e.ID).
		Str("from", string(current.Status)).
		Str("to", string(e.Status)).
		Str("admin_id", adminID).
		Msg("expense reviewed")

	message := fmt.Sprintf("Your %s claim of %s %s was %s.", e.ExpenseType, e.Amount.StringFixed(2), e.Currency, e.Status)
	if reason != nil {
		message = fmt.Sprintf("%s Reason: %s", message, *reason)
	}
	_, err = s.notifier.Publish(ctx, notification.Event{
		UserID:     e.UserID,
		Type:       models.NotificationExpenseStatus,
		Title:      fmt.Sprintf("Expense %s", e.Status),
		Message:    message,
		EntityType: models.EntityExpense,
		EntityID:   e.ID,
		Link:       "/worker/expenses",
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("expense_id", e.ID).Msg("failed to notify claimant")
	}
	return e, nil
}

func validateSubmit(req SubmitRequest) error {
	switch {
	case strings.TrimSpace(req.ExpenseType) == "":
		return fmt.Errorf("%w: expense_type is required", models.ErrInvalidInput)
	case strings.TrimSpace(req.Currency) == "":
		return fmt.Errorf("%w: currency is required", models.ErrInvalidInput)
	case !req.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", models.ErrInvalidInput)
	case !req.Amount.Equal(req.Amount.Round(2)):
		return fmt.Errorf("%w: amount has more than two decimal places", models.ErrInvalidInput)
	}
	if id := strings.TrimSpace(req.ProjectID); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("%w: project_id %q is not a valid id", models.ErrInvalidInput, id)
		}
	}
	return nil
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", models.ErrNotFound, kind, id)
	}
	return err
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
