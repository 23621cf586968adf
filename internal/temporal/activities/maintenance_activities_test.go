package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/stanstork/workforce-api/internal/backup"
	"github.com/stanstork/workforce-api/internal/invitation"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/notification"
	"github.com/stanstork/workforce-api/internal/temporal"
)

type fakeInvitations struct {
	invitation.Service
	expire    invitation.SweepResult
	sync      invitation.SyncResult
	expireErr error
}

func (f *fakeInvitations) AutoExpireOverdueInvitations(context.Context) (invitation.SweepResult, error) {
	return f.expire, f.expireErr
}

func (f *fakeInvitations) SyncInvitationsWithProjectWorkers(context.Context) (invitation.SyncResult, error) {
	return f.sync, nil
}

type fakeNotifications struct {
	notification.Service
	deleted int64
}

func (f *fakeNotifications) CleanupOld(context.Context) (int64, error) {
	return f.deleted, nil
}

type fakeBackups struct {
	backup.Service
	err error
}

func (f *fakeBackups) CreateAutoBackup(context.Context) (models.BackupResult, error) {
	if f.err != nil {
		return models.BackupResult{Message: f.err.Error()}, f.err
	}
	return models.BackupResult{Success: true, BackupPath: "gs://bucket/backups/auto_backup_2025-03-09/"}, nil
}

func runActivity(t *testing.T, acts *Activities, fn interface{}) (*temporal.JobResult, error) {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(acts)

	val, err := env.ExecuteActivity(fn)
	if err != nil {
		return nil, err
	}
	var result temporal.JobResult
	require.NoError(t, val.Get(&result))
	return &result, nil
}

func TestExpireInvitationsActivityReportsPartialFailure(t *testing.T) {
	acts := &Activities{Invitations: &fakeInvitations{
		expire:    invitation.SweepResult{Examined: 3, Updated: 2, Failed: 1},
		expireErr: errors.New("invitation inv-3: connection reset"),
	}}

	result, err := runActivity(t, acts, acts.ExpireInvitationsActivity)
	require.NoError(t, err)
	assert.Equal(t, temporal.JobExpireInvitations, result.Job)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Detail, "connection reset")
}

func TestExpireInvitationsActivityFailsWhenListingFails(t *testing.T) {
	acts := &Activities{Invitations: &fakeInvitations{
		expireErr: errors.New("list overdue invitations: database is down"),
	}}

	_, err := runActivity(t, acts, acts.ExpireInvitationsActivity)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to expire invitations")
}

func TestSyncInvitationsActivity(t *testing.T) {
	acts := &Activities{Invitations: &fakeInvitations{sync: invitation.SyncResult{Added: 2, Removed: 1}}}

	result, err := runActivity(t, acts, acts.SyncInvitationsActivity)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Updated)
	assert.Equal(t, "added 2, removed 1", result.Detail)
}

func TestCleanupNotificationsActivity(t *testing.T) {
	acts := &Activities{Notifications: &fakeNotifications{deleted: 42}}

	result, err := runActivity(t, acts, acts.CleanupNotificationsActivity)
	require.NoError(t, err)
	assert.Equal(t, 42, result.Updated)
}

func TestAutoBackupActivity(t *testing.T) {
	acts := &Activities{Backups: &fakeBackups{}}
	result, err := runActivity(t, acts, acts.AutoBackupActivity)
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/backups/auto_backup_2025-03-09/", result.Detail)

	acts = &Activities{Backups: &fakeBackups{err: errors.New("bucket unavailable")}}
	_, err = runActivity(t, acts, acts.AutoBackupActivity)
	require.Error(t, err)
}
