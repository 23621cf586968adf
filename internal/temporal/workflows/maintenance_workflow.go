package workflows

import (
	"fmt"
	"time"

	"github.com/stanstork/workforce-api/internal/temporal"
	"github.com/stanstork/workforce-api/internal/temporal/activities"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// MaintenanceWorkflow runs one maintenance job. Schedules and the admin trigger both start it.
func MaintenanceWorkflow(ctx workflow.Context, params temporal.MaintenanceParams) (*temporal.JobResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting maintenance workflow", "Job", params.Job, "TriggeredBy", params.TriggeredBy)

	// The actual implementation is on the worker; this is just a proxy.
	var a *activities.Activities

	var activity interface{}
	switch params.Job {
	case temporal.JobAutoUpdateProjects:
		activity = a.AutoUpdateProjectsActivity
	case temporal.JobExpireInvitations:
		activity = a.ExpireInvitationsActivity
	case temporal.JobSyncInvitations:
		activity = a.SyncInvitationsActivity
	case temporal.JobCancelEndedInvitations:
		activity = a.CancelEndedInvitationsActivity
	case temporal.JobCleanupNotifications:
		activity = a.CleanupNotificationsActivity
	case temporal.JobAutoBackup:
		activity = a.AutoBackupActivity
	default:
		return nil, sdktemporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown maintenance job %q", params.Job), "UnknownJob", nil)
	}

	var result temporal.JobResult
	if err := workflow.ExecuteActivity(ctx, activity).Get(ctx, &result); err != nil {
		logger.Error("Maintenance job failed.", "Job", params.Job, "error", err)
		return nil, err
	}

	logger.Info("Maintenance workflow completed.", "Job", params.Job, "Updated", result.Updated, "Failed", result.Failed)
	return &result, nil
}
