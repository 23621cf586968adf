package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	"github.com/stanstork/workforce-api/internal/backup"
	"github.com/stanstork/workforce-api/internal/expense"
	"github.com/stanstork/workforce-api/internal/handlers"
	"github.com/stanstork/workforce-api/internal/invitation"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/notification"
	"github.com/stanstork/workforce-api/internal/payment"
	"github.com/stanstork/workforce-api/internal/project"
	"github.com/stanstork/workforce-api/internal/repository/repotest"
	"github.com/stanstork/workforce-api/internal/reward"
	"github.com/stanstork/workforce-api/internal/temporal"
	"github.com/stanstork/workforce-api/internal/timesheet"
)

const (
	testSecret = "test-secret"
	projectA   = "6a0e3f52-4b1d-4c8e-9a27-5f3d2c1b0e98"
)

type emptyBucket struct{}

func (emptyBucket) List(context.Context, string) ([]backup.Object, error) { return nil, nil }

func (emptyBucket) Write(_ context.Context, _, _ string, fill func(io.Writer) error) error {
	return fill(io.Discard)
}

func (emptyBucket) DeletePrefix(context.Context, string) (int, error) { return 0, nil }

func (emptyBucket) URI(key string) string { return "mem://" + key }

type noRows struct{}

func (noRows) Export(context.Context, string, io.Writer) (int64, error) { return 0, nil }

type starter struct {
	run     tc.WorkflowRun
	options []tc.StartWorkflowOptions
	args    []interface{}
}

func (s *starter) ExecuteWorkflow(_ context.Context, options tc.StartWorkflowOptions, _ interface{}, args ...interface{}) (tc.WorkflowRun, error) {
	s.options = append(s.options, options)
	s.args = append(s.args, args...)
	return s.run, nil
}

type testServer struct {
	store   *repotest.Store
	router  http.Handler
	starter *starter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithBucket(t, emptyBucket{})
}

func newTestServerWithBucket(t *testing.T, bucket backup.ObjectStore) *testServer {
	t.Helper()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	logger := zerolog.Nop()

	store := repotest.NewStore()
	store.Now = clock
	store.PutUser(models.User{ID: "admin-1", Email: "ada@example.com", Name: "Ada", Role: models.RoleAdmin})
	store.PutUser(models.User{ID: "user-x", Email: "xavier@example.com", Name: "Xavier", Role: models.RoleWorker})
	store.PutUser(models.User{ID: "user-y", Email: "yara@example.com", Name: "Yara", Role: models.RoleWorker})
	store.PutProject(models.Project{
		ID:        projectA,
		Name:      "Harbour Works",
		Status:    models.ProjectActive,
		StartDate: now.Add(-24 * time.Hour),
		EndDate:   now.Add(30 * 24 * time.Hour),
		Workers:   map[string]models.ProjectWorker{},
	})

	notifications := notification.NewService(store.Notifications(), store.Users(), notification.Options{Now: clock}, logger)
	invitations := invitation.NewService(store.Invitations(), store.Projects(), store.Users(), notifications, logger, invitation.WithClock(clock))
	payments := payment.NewService(store.Payments(), store.Users(), notifications, logger, payment.WithClock(clock))
	projects := project.NewService(store.Projects(), notifications, logger, project.WithClock(clock))
	rewards := reward.NewService(store.Rewards(), store.Users(), notifications, logger)
	expenses := expense.NewService(store.Expenses(), store.Projects(), notifications, logger, expense.WithClock(clock))
	workHours := timesheet.NewService(store.WorkHours(), store.Projects(), notifications, logger, timesheet.WithClock(clock))
	backups := backup.NewService(bucket, noRows{}, backup.Config{Tables: []string{"users"}}, logger, backup.WithClock(clock))

	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("workforce-maintenance-sync-invitations-1")
	run.On("GetRunID").Return("run-1")
	st := &starter{run: run}

	router := NewRouter(Handlers{
		Auth:          handlers.NewAuthHandler(store.Users(), testSecret, logger),
		Users:         handlers.NewUserHandler(store.Users(), logger),
		Projects:      handlers.NewProjectHandler(projects, logger),
		Invitations:   handlers.NewInvitationHandler(invitations, logger),
		Payments:      handlers.NewPaymentHandler(payments, logger),
		Expenses:      handlers.NewExpenseHandler(expenses, logger),
		WorkHours:     handlers.NewWorkHoursHandler(workHours, logger),
		Notifications: handlers.NewNotificationHandler(notifications, logger),
		Rewards:       handlers.NewRewardHandler(rewards, logger),
		Backups:       handlers.NewBackupHandler(backups, logger),
		Jobs:          handlers.NewJobHandler(st, "QUEUE", logger),
	})
	return &testServer{store: store, router: router, starter: st}
}

func token(t *testing.T, sub string, role models.UserRole) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPIRequiresValidToken(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/me", "not-a-jwt", nil).Code)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-x",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/me", forged, nil).Code)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-x",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/me", expired, nil).Code)

	rec := s.do(t, http.MethodGet, "/api/me", token(t, "user-x", models.RoleWorker), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		User      models.User     `json:"user"`
		TokenRole models.UserRole `json:"token_role"`
	}
	decode(t, rec, &me)
	assert.Equal(t, "Xavier", me.User.Name)
	assert.Equal(t, models.RoleWorker, me.TokenRole)
}

func TestAdminRoutesRejectWorkers(t *testing.T) {
	s := newTestServer(t)
	worker := token(t, "user-x", models.RoleWorker)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/admin/users", worker, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/admin/projects/"+projectA+"/invitations", worker,
		map[string]string{"user_id": "user-x"}).Code)
}

func TestInvitationFlow(t *testing.T) {
	s := newTestServer(t)
	admin := token(t, "admin-1", models.RoleAdmin)
	worker := token(t, "user-x", models.RoleWorker)

	rec := s.do(t, http.MethodPost, "/api/admin/projects/"+projectA+"/invitations", admin,
		map[string]string{"user_id": "user-x", "message": "Join us"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv models.ProjectInvitation
	decode(t, rec, &inv)
	assert.Equal(t, models.InvitationPending, inv.Status)

	rec = s.do(t, http.MethodGet, "/api/me/invitations?status=pending", worker, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine struct {
		Invitations []models.ProjectInvitation `json:"invitations"`
	}
	decode(t, rec, &mine)
	require.Len(t, mine.Invitations, 1)

	other := token(t, "user-y", models.RoleWorker)
	rec = s.do(t, http.MethodPost, "/api/invitations/"+inv.ID+"/respond", other, map[string]string{"decision": "accepted"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/invitations/"+inv.ID+"/respond", worker, map[string]string{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/invitations/"+inv.ID+"/respond", worker, map[string]string{"decision": "accepted"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/invitations/"+inv.ID+"/respond", worker, map[string]string{"decision": "declined"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/invitations/"+inv.ID+"/resend", admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/projects/"+projectA, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Project
	decode(t, rec, &p)
	assert.Contains(t, p.Workers, "user-x")

	rec = s.do(t, http.MethodGet, "/api/notifications", s.adminToken(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(models.NotificationInvitationResponse))
}

func (s *testServer) adminToken(t *testing.T) string {
	return token(t, "admin-1", models.RoleAdmin)
}

func TestUnknownInvitationIsNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/admin/invitations/missing/nudge", s.adminToken(t), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/admin/invitations/0d4c2b1a-9e8f-4a7b-8c6d-5e4f3a2b1c0d/nudge", s.adminToken(t), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMalformedPathIDsAreNotFound(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	worker := token(t, "user-x", models.RoleWorker)

	for _, tc := range []struct {
		method, path, bearer string
	}{
		{http.MethodGet, "/api/admin/invitations/abc", admin},
		{http.MethodDelete, "/api/admin/invitations/abc", admin},
		{http.MethodPost, "/api/admin/invitations/abc/cancel", admin},
		{http.MethodPost, "/api/invitations/abc/respond", worker},
		{http.MethodGet, "/api/admin/payments/abc", admin},
		{http.MethodPut, "/api/admin/payments/abc/status", admin},
		{http.MethodPost, "/api/admin/payments/abc/comments", admin},
		{http.MethodGet, "/api/admin/projects/abc", admin},
		{http.MethodPost, "/api/admin/projects/abc/end", admin},
		{http.MethodPost, "/api/admin/projects/abc/invitations", admin},
		{http.MethodGet, "/api/admin/projects/abc/available-workers", admin},
		{http.MethodPost, "/api/notifications/abc/read", worker},
		{http.MethodGet, "/api/admin/expenses/abc", admin},
		{http.MethodPost, "/api/admin/expenses/abc/approve", admin},
		{http.MethodPost, "/api/admin/work-hours/abc/reject", admin},
	} {
		rec := s.do(t, tc.method, tc.path, tc.bearer, map[string]string{"user_id": "user-x", "decision": "accepted"})
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s: %s", tc.method, tc.path, rec.Body.String())
	}
}

func TestDuplicateInvitationConflicts(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	path := "/api/admin/projects/" + projectA + "/invitations"

	rec := s.do(t, http.MethodPost, path, admin, map[string]string{"user_id": "user-x"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, path, admin, map[string]string{"user_id": "user-x"})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/admin/projects/"+projectA+"/available-workers", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var available struct {
		Workers []models.User `json:"workers"`
	}
	decode(t, rec, &available)
	require.Len(t, available.Workers, 1)
	assert.Equal(t, "user-y", available.Workers[0].ID)
}

func TestPaymentStatusRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	rec := s.do(t, http.MethodPost, "/api/admin/payments", admin, map[string]interface{}{
		"user_id":      "user-x",
		"payment_type": "salary",
		"amount":       1250.5,
		"currency":     "sgd",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		models.Payment
		AvailableStatuses []models.PaymentStatus `json:"available_statuses"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "SGD", created.Currency)
	assert.Equal(t, []models.PaymentStatus{models.PaymentProcessing}, created.AvailableStatuses)

	path := "/api/admin/payments/" + created.ID + "/status"
	rec = s.do(t, http.MethodPut, path, admin, map[string]string{"status": "completed", "comment": "skip ahead"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPut, path, admin, map[string]string{"status": "processing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, path, admin, map[string]string{"status": "processing", "comment": "Bank transfer queued"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.Payment
	decode(t, rec, &updated)
	assert.Equal(t, models.PaymentProcessing, updated.Status)
	assert.Len(t, updated.ProcessingHistory, 2)

	rec = s.do(t, http.MethodGet, "/api/me/payments", token(t, "user-x", models.RoleWorker), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.ID)

	rec = s.do(t, http.MethodGet, "/api/me/payments", token(t, "user-y", models.RoleWorker), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"payments":[]}`, rec.Body.String())
}

func TestNotificationsReadAll(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/admin/projects/"+projectA+"/invitations", s.adminToken(t), map[string]string{"user_id": "user-x"})
	require.Equal(t, http.StatusCreated, rec.Code)

	worker := token(t, "user-x", models.RoleWorker)
	rec = s.do(t, http.MethodGet, "/api/notifications?unread=true", worker, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(models.NotificationInvitation))

	rec = s.do(t, http.MethodPost, "/api/notifications/read-all", worker, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":1}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/notifications?unread=true", worker, nil)
	assert.JSONEq(t, `{"notifications":[]}`, rec.Body.String())
}

func TestRewardRoutes(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/admin/rewards", s.adminToken(t), map[string]interface{}{
		"user_id": "user-x",
		"points":  15,
		"reason":  "Perfect attendance",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/rewards/me", token(t, "user-x", models.RoleWorker), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var points models.Reward
	decode(t, rec, &points)
	assert.Equal(t, int64(15), points.TotalPoints)
}

func TestBackupQuotaRoute(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/admin/backups/quota", s.adminToken(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var quota models.BackupQuota
	decode(t, rec, &quota)
	assert.True(t, quota.CanCreate)

	rec = s.do(t, http.MethodPost, "/api/admin/backups", s.adminToken(t), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, strings.Contains(rec.Body.String(), "manual_backup_2025-03-01"))
}

func TestManualBackupWithoutStorageIsUnavailable(t *testing.T) {
	s := newTestServerWithBucket(t, backup.UnconfiguredStore{})

	rec := s.do(t, http.MethodPost, "/api/admin/backups", s.adminToken(t), nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	var res models.BackupResult
	decode(t, rec, &res)
	assert.True(t, res.StorageUnavailable)
	assert.Contains(t, res.Message, "not configured")

	rec = s.do(t, http.MethodGet, "/api/admin/backups/quota", s.adminToken(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"storage_unavailable":true`)
}

func TestExpenseSettlementFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	worker := token(t, "user-x", models.RoleWorker)

	rec := s.do(t, http.MethodPost, "/api/me/expenses", worker, map[string]interface{}{
		"project_id":   projectA,
		"expense_type": "transport",
		"amount":       "42.80",
		"currency":     "sgd",
		"date":         "2025-02-27",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var claim models.Expense
	decode(t, rec, &claim)
	assert.Equal(t, models.ExpensePending, claim.Status)
	assert.Equal(t, time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC), claim.Date)

	rec = s.do(t, http.MethodPost, "/api/me/expenses", worker, map[string]interface{}{
		"expense_type": "meals", "amount": 3.333, "currency": "SGD",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/expenses/"+claim.ID+"/reject", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "a rejection needs a reason")

	rec = s.do(t, http.MethodPost, "/api/admin/expenses/"+claim.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/admin/users/user-x/unpaid-expenses", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), claim.ID)

	rec = s.do(t, http.MethodPost, "/api/admin/payments", admin, map[string]interface{}{
		"user_id":             "user-x",
		"payment_type":        "reimbursement",
		"amount":              "42.80",
		"currency":            "SGD",
		"related_expense_ids": []string{claim.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/admin/payments", admin, map[string]interface{}{
		"user_id":             "user-x",
		"payment_type":        "reimbursement",
		"amount":              "42.80",
		"currency":            "SGD",
		"related_expense_ids": []string{claim.ID},
	})
	assert.Equal(t, http.StatusConflict, rec.Code, "a claim is settled once")

	rec = s.do(t, http.MethodGet, "/api/admin/expenses/"+claim.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var paid models.Expense
	decode(t, rec, &paid)
	assert.True(t, paid.Paid)
	assert.Equal(t, "42.8", paid.Amount.String())

	rec = s.do(t, http.MethodGet, "/api/me/expenses?status=approved", worker, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), claim.ID)
}

func TestWorkHoursRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	worker := token(t, "user-x", models.RoleWorker)
	entry := map[string]interface{}{"project_id": projectA, "date": "2025-03-01", "regular_hours": 8, "overtime_15x": 2}

	rec := s.do(t, http.MethodPost, "/api/me/work-hours", worker, entry)
	assert.Equal(t, http.StatusForbidden, rec.Code, "only rostered workers may log hours")

	rec = s.do(t, http.MethodPost, "/api/admin/projects/"+projectA+"/invitations", admin, map[string]string{"user_id": "user-x"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var inv models.ProjectInvitation
	decode(t, rec, &inv)
	rec = s.do(t, http.MethodPost, "/api/invitations/"+inv.ID+"/respond", worker, map[string]string{"decision": "accepted"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/me/work-hours", worker, entry)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var logged models.WorkHours
	decode(t, rec, &logged)

	rec = s.do(t, http.MethodGet, "/api/me/work-hours", worker, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), logged.ID)

	rec = s.do(t, http.MethodPost, "/api/admin/work-hours/review", admin, map[string]interface{}{
		"ids":    []string{logged.ID, "0f9e8d7c-6b5a-4493-8281-706f5e4d3c2b"},
		"status": "approved",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var batch timesheet.BatchResult
	decode(t, rec, &batch)
	assert.Len(t, batch.Reviewed, 1)
	assert.Len(t, batch.Failed, 1)

	rec = s.do(t, http.MethodPost, "/api/admin/work-hours/"+logged.ID+"/reject", admin, map[string]string{"reason": "late"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/work-hours/summary", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		Summary []models.WorkHoursSummary `json:"summary"`
	}
	decode(t, rec, &summary)
	require.Len(t, summary.Summary, 1)
	assert.Equal(t, 8.0, summary.Summary[0].RegularHours)
	assert.Equal(t, 2.0, summary.Summary[0].Overtime15x)

	rec = s.do(t, http.MethodGet, "/api/admin/work-hours?from=2025-03-02", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"work_hours":[]}`, rec.Body.String())
}

func TestRunJob(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/admin/jobs/reindex", s.adminToken(t), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/jobs/sync-invitations", s.adminToken(t), nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":"run-1"`)
	require.Len(t, s.starter.options, 1)
	assert.Equal(t, "QUEUE", s.starter.options[0].TaskQueue)
	assert.True(t, strings.HasPrefix(s.starter.options[0].ID, "workforce-maintenance-sync-invitations-"))
	assert.Equal(t, []interface{}{temporal.MaintenanceParams{Job: temporal.JobSyncInvitations, TriggeredBy: "admin-1"}}, s.starter.args)
}
