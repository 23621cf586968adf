package activities

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/log"

	"github.com/stanstork/workforce-api/internal/backup"
	"github.com/stanstork/workforce-api/internal/invitation"
	"github.com/stanstork/workforce-api/internal/notification"
	"github.com/stanstork/workforce-api/internal/project"
	"github.com/stanstork/workforce-api/internal/temporal"
)

type Activities struct {
	Projects      project.Service
	Invitations   invitation.Service
	Notifications notification.Service
	Backups       backup.Service
}

func (a *Activities) AutoUpdateProjectsActivity(ctx context.Context) (*temporal.JobResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Updating project statuses")

	res, err := a.Projects.AutoUpdateProjects(ctx)
	result := &temporal.JobResult{
		Job:      temporal.JobAutoUpdateProjects,
		Examined: res.Started + res.Ended + res.Failed,
		Updated:  res.Started + res.Ended,
		Failed:   res.Failed,
		Detail:   fmt.Sprintf("started %d, ended %d", res.Started, res.Ended),
	}
	return partial(logger, result, err, "failed to update project statuses")
}

func (a *Activities) ExpireInvitationsActivity(ctx context.Context) (*temporal.JobResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Expiring overdue invitations")

	res, err := a.Invitations.AutoExpireOverdueInvitations(ctx)
	return partial(logger, sweepResult(temporal.JobExpireInvitations, res), err, "failed to expire invitations")
}

func (a *Activities) CancelEndedInvitationsActivity(ctx context.Context) (*temporal.JobResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Cancelling invitations of ended projects")

	res, err := a.Invitations.AutoCancelEndedProjectInvitations(ctx)
	return partial(logger, sweepResult(temporal.JobCancelEndedInvitations, res), err, "failed to cancel invitations")
}

func (a *Activities) SyncInvitationsActivity(ctx context.Context) (*temporal.JobResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Syncing rosters with accepted invitations")

	res, err := a.Invitations.SyncInvitationsWithProjectWorkers(ctx)
	result := &temporal.JobResult{
		Job:     temporal.JobSyncInvitations,
		Updated: res.Writes(),
		Failed:  res.Failed,
		Detail:  fmt.Sprintf("added %d, removed %d", res.Added, res.Removed),
	}
	return partial(logger, result, err, "failed to sync invitations")
}

func (a *Activities) CleanupNotificationsActivity(ctx context.Context) (*temporal.JobResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Deleting old notifications")

	deleted, err := a.Notifications.CleanupOld(ctx)
	if err != nil {
		logger.Error("Failed to delete old notifications", "error", err)
		return nil, errors.Wrap(err, "failed to delete old notifications")
	}
	return &temporal.JobResult{
		Job:     temporal.JobCleanupNotifications,
		Updated: int(deleted),
		Detail:  fmt.Sprintf("deleted %d", deleted),
	}, nil
}

func (a *Activities) AutoBackupActivity(ctx context.Context) (*temporal.JobResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Creating automatic backup")

	res, err := a.Backups.CreateAutoBackup(ctx)
	if err != nil {
		logger.Error("Automatic backup failed", "error", err)
		return nil, errors.Wrap(err, "failed to create automatic backup")
	}
	return &temporal.JobResult{
		Job:     temporal.JobAutoBackup,
		Updated: 1,
		Detail:  res.BackupPath,
	}, nil
}

func sweepResult(job temporal.Job, res invitation.SweepResult) *temporal.JobResult {
	return &temporal.JobResult{
		Job:      job,
		Examined: res.Examined,
		Updated:  res.Updated,
		Skipped:  res.Skipped,
		Failed:   res.Failed,
	}
}

// partial reports per-item failures in the result and fails the activity only when the job could not run at all.
func partial(logger log.Logger, result *temporal.JobResult, err error, msg string) (*temporal.JobResult, error) {
	if err == nil {
		return result, nil
	}
	if result.Failed == 0 {
		logger.Error(msg, "error", err)
		return nil, errors.Wrap(err, msg)
	}
	logger.Error(msg, "failed", result.Failed, "error", err)
	if result.Detail != "" {
		result.Detail += "; "
	}
	result.Detail += err.Error()
	return result, nil
}
