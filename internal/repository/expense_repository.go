package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/stanstork/workforce-api/internal/models"
)

type ExpenseRepository interface {
	CreateExpense(ctx context.Context, expense models.Expense) (models.Expense, error)
	GetExpense(ctx context.Context, expenseID string) (models.Expense, error)
	ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error)
	// Review applies review only while the expense is unpaid and still in status from.
	Review(ctx context.Context, expenseID string, from models.ExpenseStatus, review ExpenseReview) (models.Expense, error)
}

// ExpenseReview records an admin decision. A nil RejectionReason clears any earlier one.
type ExpenseReview struct {
	Status          models.ExpenseStatus
	ReviewedBy      string
	At              time.Time
	RejectionReason *string
}

type expenseRepository struct {
	db *sql.DB
}

func NewExpenseRepository(db *sql.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

const expenseColumns = `id, user_id, project_id, expense_type, amount, currency, description, date, receipts, status,
		reviewed_by, reviewed_at, rejection_reason, paid, payment_id, paid_at, created_at, updated_at`

func (r *expenseRepository) CreateExpense(ctx context.Context, e models.Expense) (models.Expense, error) {
	query := `
		INSERT INTO tenant.expenses
			(user_id, project_id, expense_type, amount, currency, description, date, receipts, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING ` + expenseColumns

	receipts := e.Receipts
	if receipts == nil {
		receipts = []string{}
	}
	row := r.db.QueryRowContext(ctx, query,
		e.UserID,
		nullString(e.ProjectID),
		e.ExpenseType,
		e.Amount,
		e.Currency,
		e.Description,
		e.Date,
		pq.Array(receipts),
		string(e.Status),
		e.CreatedAt,
	)
	return scanExpense(row)
}

func (r *expenseRepository) GetExpense(ctx context.Context, expenseID string) (models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM tenant.expenses WHERE id = $1`
	return scanExpense(r.db.QueryRowContext(ctx, query, expenseID))
}

func (r *expenseRepository) ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM tenant.expenses
		WHERE ($1::text = '' OR user_id = $1::text)
		  AND ($2::text = '' OR project_id::text = $2::text)
		  AND ($3::text = '' OR status = $3::text)
		  AND (NOT $4::boolean OR NOT paid)
		ORDER BY date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, filter.UserID, filter.ProjectID, string(filter.Status), filter.UnpaidOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *expenseRepository) Review(ctx context.Context, expenseID string, from models.ExpenseStatus, review ExpenseReview) (models.Expense, error) {
	query := `
		UPDATE tenant.expenses
		SET status = $3,
		    reviewed_by = $4,
		    reviewed_at = $5,
		    rejection_reason = $6,
		    updated_at = $5
		WHERE id = $1 AND status = $2 AND NOT paid
		RETURNING ` + expenseColumns

	row := r.db.QueryRowContext(ctx, query,
		expenseID,
		string(from),
		string(review.Status),
		review.ReviewedBy,
		review.At,
		nullString(review.RejectionReason),
	)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		var (
			status string
			paid   bool
		)
		lookup := `SELECT status, paid FROM tenant.expenses WHERE id = $1`
		if lookupErr := r.db.QueryRowContext(ctx, lookup, expenseID).Scan(&status, &paid); lookupErr != nil {
			return models.Expense{}, lookupErr
		}
		if paid {
			return models.Expense{}, fmt.Errorf("%w: expense %s is already paid", models.ErrInvalidState, expenseID)
		}
		return models.Expense{}, fmt.Errorf("%w: expense %s moved to %s", models.ErrInvalidState, expenseID, status)
	}
	return e, err
}

func scanExpense(s scanner) (models.Expense, error) {
	var (
		e               models.Expense
		projectID       sql.NullString
		receipts        pq.StringArray
		status          string
		reviewedBy      sql.NullString
		reviewedAt      sql.NullTime
		rejectionReason sql.NullString
		paymentID       sql.NullString
		paidAt          sql.NullTime
	)
	err := s.Scan(
		&e.ID,
		&e.UserID,
		&projectID,
		&e.ExpenseType,
		&e.Amount,
		&e.Currency,
		&e.Description,
		&e.Date,
		&receipts,
		&status,
		&reviewedBy,
		&reviewedAt,
		&rejectionReason,
		&e.Paid,
		&paymentID,
		&paidAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return models.Expense{}, err
	}

	e.ProjectID = stringPtr(projectID)
	e.Receipts = []string(receipts)
	if e.Receipts == nil {
		e.Receipts = []string{}
	}
	e.Status = models.ExpenseStatus(status)
	e.ReviewedBy = stringPtr(reviewedBy)
	e.ReviewedAt = timePtr(reviewedAt)
	e.RejectionReason = stringPtr(rejectionReason)
	e.PaymentID = stringPtr(paymentID)
	e.PaidAt = timePtr(paidAt)
	return e, nil
}
