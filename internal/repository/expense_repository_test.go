package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expenseCols = []string{
	"id", "user_id", "project_id", "expense_type", "amount", "currency", "description", "date", "receipts", "status",
	"reviewed_by", "reviewed_at", "rejection_reason", "paid", "payment_id", "paid_at", "created_at", "updated_at",
}

var workHoursCols = []string{
	"id", "user_id", "project_id", "date", "regular_hours", "overtime_15x", "overtime_20x", "remarks", "status",
	"reviewed_by", "reviewed_at", "rejection_reason", "paid", "created_at", "updated_at",
}

func TestExpenseGetDecodesReceiptsAndSettlement(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExpenseRepository(db)
	now := time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("FROM tenant.expenses WHERE id = $1")).
		WithArgs("exp-1").
		WillReturnRows(sqlmock.NewRows(expenseCols).AddRow(
			"exp-1", "user-1", "proj-1", "transport", []byte("42.80"), "SGD", "Taxi", now, []byte(`{a.jpg,b.jpg}`), "approved",
			"admin-1", now, nil, true, "pay-1", now, now, now,
		))

	e, err := repo.GetExpense(context.Background(), "exp-1")
	require.NoError(t, err)
	assert.Equal(t, "42.80", e.Amount.StringFixed(2))
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, e.Receipts)
	assert.Equal(t, models.ExpenseApproved, e.Status)
	assert.True(t, e.Paid)
	require.NotNil(t, e.PaymentID)
	assert.Equal(t, "pay-1", *e.PaymentID)
	assert.Nil(t, e.RejectionReason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseReviewRefusesPaidClaim(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExpenseRepository(db)
	at := time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC)
	reason := "duplicate"

	mock.ExpectQuery(q("WHERE id = $1 AND status = $2 AND NOT paid")).
		WithArgs("exp-1", "approved", "rejected", "admin-1", at, reason).
		WillReturnRows(sqlmock.NewRows(expenseCols))
	mock.ExpectQuery(q("SELECT status, paid FROM tenant.expenses WHERE id = $1")).
		WithArgs("exp-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "paid"}).AddRow("approved", true))

	_, err := repo.Review(context.Background(), "exp-1", models.ExpenseApproved, ExpenseReview{
		Status:          models.ExpenseRejected,
		ReviewedBy:      "admin-1",
		At:              at,
		RejectionReason: &reason,
	})
	require.ErrorIs(t, err, models.ErrInvalidState)
	assert.Contains(t, err.Error(), "already paid")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkHoursCreateSendsCalendarDate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWorkHoursRepository(db)
	created := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("INSERT INTO tenant.work_hours")).
		WithArgs("user-1", "proj-1", "2025-06-10", 8.0, 1.5, 0.0, "slab", "pending", created).
		WillReturnRows(sqlmock.NewRows(workHoursCols).AddRow(
			"wh-1", "user-1", "proj-1", date, 8.0, 1.5, 0.0, "slab", "pending", nil, nil, nil, false, created, created,
		))

	w, err := repo.CreateWorkHours(context.Background(), models.WorkHours{
		UserID:       "user-1",
		ProjectID:    "proj-1",
		Date:         date,
		RegularHours: 8,
		Overtime15x:  1.5,
		Remarks:      "slab",
		Status:       models.WorkHoursPending,
		CreatedAt:    created,
	})
	require.NoError(t, err)
	assert.Equal(t, 9.5, w.TotalHours())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkHoursListPassesOptionalBounds(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWorkHoursRepository(db)

	mock.ExpectQuery(q("LIMIT NULLIF($6::int, 0)")).
		WithArgs("user-1", "", "", "2025-06-01", nil, 7).
		WillReturnRows(sqlmock.NewRows(workHoursCols))

	entries, err := repo.ListWorkHours(context.Background(), models.WorkHoursFilter{
		UserID: "user-1",
		From:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Limit:  7,
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkHoursReviewOnlyDecidesPendingEntries(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWorkHoursRepository(db)
	at := time.Now().UTC()

	mock.ExpectQuery(q("WHERE id = $1 AND status = 'pending'")).
		WithArgs("wh-1", "approved", "admin-1", at, nil).
		WillReturnRows(sqlmock.NewRows(workHoursCols))
	mock.ExpectQuery(q("SELECT status FROM tenant.work_hours WHERE id = $1")).
		WithArgs("wh-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("rejected"))

	_, err := repo.Review(context.Background(), "wh-1", WorkHoursReview{Status: models.WorkHoursApproved, ReviewedBy: "admin-1", At: at})
	require.ErrorIs(t, err, models.ErrInvalidState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkHoursSummarizeUnpaid(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWorkHoursRepository(db)

	mock.ExpectQuery(q("GROUP BY user_id, project_id")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "project_id", "count", "regular", "ot15", "ot20"}).
			AddRow("user-1", "proj-1", int64(3), 24.0, 2.5, 0.0).
			AddRow("user-2", "proj-1", int64(1), 8.0, 0.0, 1.0))

	summaries, err := repo.SummarizeUnpaid(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, models.WorkHoursSummary{UserID: "user-1", ProjectID: "proj-1", Entries: 3, RegularHours: 24, Overtime15x: 2.5}, summaries[0])
	require.NoError(t, mock.ExpectationsWereMet())
}
