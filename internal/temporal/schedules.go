package temporal

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	sdktemporal "go.temporal.io/sdk/temporal"
)

// ScheduleDefinition binds a maintenance job to its cron expression.
type ScheduleDefinition struct {
	Job  Job    `json:"job"`
	Cron string `json:"cron"`
}

// DefaultSchedules run the nightly sweeps in order and the automatic backup on Sunday morning.
var DefaultSchedules = []ScheduleDefinition{
	{Job: JobAutoUpdateProjects, Cron: "0 2 * * *"},
	{Job: JobExpireInvitations, Cron: "0 4 * * *"},
	{Job: JobSyncInvitations, Cron: "0 5 * * *"},
	{Job: JobCancelEndedInvitations, Cron: "0 6 * * *"},
	{Job: JobCleanupNotifications, Cron: "0 7 * * *"},
	{Job: JobAutoBackup, Cron: "0 1 * * 0"},
}

func ScheduleID(job Job) string {
	return "workforce-" + string(job)
}

// ScheduleOptions builds the Temporal schedule for def.
func ScheduleOptions(def ScheduleDefinition, taskQueue, timeZone string) client.ScheduleOptions {
	return client.ScheduleOptions{
		ID: ScheduleID(def.Job),
		Spec: client.ScheduleSpec{
			CronExpressions: []string{def.Cron},
			TimeZoneName:    timeZone,
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        WorkflowIDPrefix + string(def.Job),
			Workflow:  MaintenanceWorkflowName,
			Args:      []interface{}{MaintenanceParams{Job: def.Job, TriggeredBy: "schedule"}},
			TaskQueue: taskQueue,
		},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	}
}

// EnsureSchedules registers every default schedule. Schedules that already exist are left as they are.
func EnsureSchedules(ctx context.Context, schedules client.ScheduleClient, taskQueue, timeZone string, logger zerolog.Logger) error {
	logger = logger.With().Str("component", "temporal_schedules").Logger()

	var errs []error
	for _, def := range DefaultSchedules {
		opts := ScheduleOptions(def, taskQueue, timeZone)
		_, err := schedules.Create(ctx, opts)
		switch {
		case err == nil:
			logger.Info().Str("schedule_id", opts.ID).Str("cron", def.Cron).Str("time_zone", timeZone).Msg("schedule created")
		case errors.Is(err, sdktemporal.ErrScheduleAlreadyRunning):
			logger.Debug().Str("schedule_id", opts.ID).Msg("schedule already registered")
		default:
			logger.Error().Err(err).Str("schedule_id", opts.ID).Msg("failed to create schedule")
			errs = append(errs, fmt.Errorf("create schedule %s: %w", opts.ID, err))
		}
	}
	return errors.Join(errs...)
}
