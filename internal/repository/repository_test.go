package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var invitationCols = []string{
	"id", "project_id", "user_id", "status", "message", "created_at", "updated_at", "required_response_date",
	"response_date", "decline_reason", "cancel_reason", "cancelled_by", "last_nudge_at", "attempts",
}

var paymentCols = []string{
	"id", "user_id", "project_id", "payment_type", "amount", "currency", "description", "date", "status",
	"reference_number", "payment_method", "comments", "processing_history", "related_expense_ids", "created_at", "updated_at",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestInvitationTransitionAcceptAddsWorkerInSameTransaction(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInvitationRepository(db)

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	at := created.Add(48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(q("UPDATE tenant.project_invitations")).
		WithArgs("inv-1", "accepted", at, at, nil, nil, nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(invitationCols).AddRow(
			"inv-1", "proj-1", "user-1", "accepted", "join us", created, at, created.Add(models.InvitationResponseWindow),
			at, nil, nil, nil, nil, []byte(`[{"date":"2025-03-01T09:00:00Z","by":"admin-1","type":"initial"},{"date":"2025-03-03T09:00:00Z","by":"user-1","type":"accepted"}]`),
		))
	mock.ExpectExec(q("INSERT INTO tenant.project_workers")).
		WithArgs("proj-1", "user-1", models.WorkerStatusActive, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	attempt := models.InvitationAttempt{Date: at, By: "user-1", Type: models.AttemptAccepted}
	inv, err := repo.Transition(context.Background(), "inv-1", Transition{
		To:           models.InvitationAccepted,
		At:           at,
		ResponseDate: &at,
		Attempt:      &attempt,
		Roster:       RosterAdd,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, inv.Status)
	require.Len(t, inv.Attempts, 2)
	assert.Equal(t, models.AttemptAccepted, inv.Attempts[1].Type)
	require.NotNil(t, inv.ResponseDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationTransitionRejectsNonPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInvitationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("UPDATE tenant.project_invitations")).
		WillReturnRows(sqlmock.NewRows(invitationCols))
	mock.ExpectQuery(q("SELECT status FROM tenant.project_invitations")).
		WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("declined"))
	mock.ExpectRollback()

	_, err := repo.Transition(context.Background(), "inv-1", Transition{
		To:     models.InvitationCancelled,
		At:     time.Now(),
		Roster: RosterRemove,
	})
	require.ErrorIs(t, err, models.ErrInvalidState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationTransitionMissingInvitation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInvitationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("UPDATE tenant.project_invitations")).
		WillReturnRows(sqlmock.NewRows(invitationCols))
	mock.ExpectQuery(q("SELECT status FROM tenant.project_invitations")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Transition(context.Background(), "missing", Transition{To: models.InvitationCancelled, At: time.Now()})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationRecordAttemptExtendsDeadline(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInvitationRepository(db)

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	at := created.Add(72 * time.Hour)
	deadline := models.ResponseDeadline(at)

	mock.ExpectQuery(q("SET attempts = attempts || $2::jsonb")).
		WithArgs("inv-1", sqlmock.AnyArg(), deadline, nil, at).
		WillReturnRows(sqlmock.NewRows(invitationCols).AddRow(
			"inv-1", "proj-1", "user-1", "pending", "", created, at, deadline,
			nil, nil, nil, nil, nil, []byte(`[{"type":"initial"},{"type":"resend"}]`),
		))

	inv, err := repo.RecordAttempt(context.Background(), "inv-1", AttemptUpdate{
		Attempt:              models.InvitationAttempt{Date: at, By: "admin-1", Type: models.AttemptResend},
		RequiredResponseDate: &deadline,
	})
	require.NoError(t, err)
	assert.Equal(t, deadline, inv.RequiredResponseDate)
	assert.Len(t, inv.Attempts, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentUpdateStatusGuardsCurrentStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)

	now := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("UPDATE tenant.payments")).
		WithArgs("pay-1", "pending", "processing", "bank", "", sqlmock.AnyArg(), sqlmock.AnyArg(), now).
		WillReturnRows(sqlmock.NewRows(paymentCols))
	mock.ExpectQuery(q("SELECT status FROM tenant.payments")).
		WithArgs("pay-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

	_, err := repo.UpdateStatus(context.Background(), "pay-1", models.PaymentPending, PaymentStatusUpdate{
		Status:        models.PaymentProcessing,
		PaymentMethod: "bank",
		Entry:         models.ProcessingEntry{Status: "processing", Comment: "queued", AdminID: "admin-1", Timestamp: now},
	})
	require.ErrorIs(t, err, models.ErrInvalidState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentGetDecodesHistory(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)

	now := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("FROM tenant.payments WHERE id = $1")).
		WithArgs("pay-1").
		WillReturnRows(sqlmock.NewRows(paymentCols).AddRow(
			"pay-1", "user-1", nil, "salary", []byte("1250.50"), "SGD", "March", now, "processing",
			nil, "bank", []byte(`{"text":"queued","userId":"admin-1","createdAt":"2025-04-02T10:00:00Z"}`),
			[]byte(`[{"status":"created","comment":"Payment created","adminId":"admin-1","timestamp":"2025-04-01T10:00:00Z"},{"status":"processing","comment":"queued","adminId":"admin-1","timestamp":"2025-04-02T10:00:00Z"}]`),
			[]byte("{exp-1,exp-2}"), now, now,
		))

	p, err := repo.GetPayment(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1250.50").Equal(p.Amount), "amount %s", p.Amount)
	assert.Nil(t, p.ProjectID)
	require.NotNil(t, p.PaymentMethod)
	assert.Equal(t, "bank", *p.PaymentMethod)
	require.NotNil(t, p.Comments)
	assert.Equal(t, "admin-1", p.Comments.UserID)
	require.Len(t, p.ProcessingHistory, 2)
	assert.Equal(t, models.HistoryCreated, p.ProcessingHistory[0].Status)
	assert.Equal(t, []string{"exp-1", "exp-2"}, p.RelatedExpenseIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRewardAddPointsRecordsBalance(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRewardRepository(db)

	at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO tenant.rewards")).
		WithArgs("user-1", int64(15), at).
		WillReturnRows(sqlmock.NewRows([]string{"total_points"}).AddRow(int64(40)))
	mock.ExpectQuery(q("INSERT INTO tenant.reward_history")).
		WithArgs("user-1", int64(15), int64(40), "shift completed", nil, nil, at).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "change", "balance", "reason", "related_entity_id", "related_entity_type", "created_at",
		}).AddRow("h-1", "user-1", int64(15), int64(40), "shift completed", nil, nil, at))
	mock.ExpectCommit()

	h, err := repo.AddPoints(context.Background(), models.RewardHistory{
		UserID:    "user-1",
		Change:    15,
		Reason:    "shift completed",
		CreatedAt: at,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(40), h.Balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectAddWorkerReportsInsert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProjectRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(q("ON CONFLICT (project_id, user_id) DO NOTHING")).
		WithArgs("proj-1", "user-1", models.WorkerStatusActive, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := repo.AddWorker(context.Background(), "proj-1", "user-1", at)
	require.NoError(t, err)
	assert.False(t, added)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserListFiltersByRole(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(q("FROM tenant.users")).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "role", "created_at"}).
			AddRow("a-1", "ops@example.com", "Ops", "admin", now).
			AddRow("a-2", "lead@example.com", "Lead", "ADMIN", now))

	users, err := repo.ListUsers(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, models.RoleAdmin, users[1].Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrefixedColumns(t *testing.T) {
	assert.Equal(t, "i.id, i.status", prefixed("i", "id,\n\t\tstatus"))
}

func paymentRow(now time.Time, expenseIDs string) *sqlmock.Rows {
	return sqlmock.NewRows(paymentCols).AddRow(
		"pay-1", "user-1", nil, "reimbursement", []byte("30.00"), "SGD", "", now, "pending",
		nil, nil, nil, []byte(`[]`), []byte(expenseIDs), now, now,
	)
}

func TestPaymentCreateSettlesRelatedExpenses(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)
	now := time.Date(2025, 4, 3, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO tenant.payments")).
		WillReturnRows(paymentRow(now, "{exp-1,exp-2}"))
	mock.ExpectExec(q("UPDATE tenant.expenses")).
		WithArgs("pay-1", now, sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	p, err := repo.CreatePayment(context.Background(), models.Payment{
		UserID:            "user-1",
		PaymentType:       "reimbursement",
		Amount:            decimal.RequireFromString("30.00"),
		Currency:          "SGD",
		Date:              now,
		Status:            models.PaymentPending,
		RelatedExpenseIDs: []string{"exp-1", "exp-2"},
		CreatedAt:         now,
	})
	require.NoError(t, err)
	assert.Equal(t, "pay-1", p.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentCreateRollsBackWhenAnExpenseDoesNotQualify(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)
	now := time.Date(2025, 4, 3, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO tenant.payments")).
		WillReturnRows(paymentRow(now, "{exp-1,exp-2}"))
	mock.ExpectExec(q("AND status = 'approved' AND NOT paid")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	_, err := repo.CreatePayment(context.Background(), models.Payment{
		UserID:            "user-1",
		PaymentType:       "reimbursement",
		Amount:            decimal.RequireFromString("30.00"),
		Currency:          "SGD",
		Status:            models.PaymentPending,
		RelatedExpenseIDs: []string{"exp-1", "exp-2"},
		CreatedAt:         now,
	})
	require.ErrorIs(t, err, models.ErrInvalidState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationCreateMapsOpenPairConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInvitationRepository(db)

	mock.ExpectQuery(q("INSERT INTO tenant.project_invitations")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "project_invitations_open_pair_idx"})

	_, err := repo.CreateInvitation(context.Background(), models.ProjectInvitation{
		ProjectID: "proj-1",
		UserID:    "user-1",
		Status:    models.InvitationPending,
		CreatedAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, models.ErrInvalidState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationFindOpenIgnoresClosedInvitations(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInvitationRepository(db)

	mock.ExpectQuery(q("status IN ('pending', 'accepted')")).
		WithArgs("proj-1", "user-1").
		WillReturnRows(sqlmock.NewRows(invitationCols))

	_, err := repo.FindOpen(context.Background(), "proj-1", "user-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
