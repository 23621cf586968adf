package temporal

import "time"

// DefaultTaskQueue is the task queue maintenance workflows run on unless configured otherwise.
const DefaultTaskQueue = "WORKFORCE_MAINTENANCE"

// WorkflowIDPrefix is the prefix of manually triggered maintenance workflow IDs.
const WorkflowIDPrefix = "workforce-maintenance-"

// MaintenanceWorkflowName is the registered name of the maintenance workflow.
const MaintenanceWorkflowName = "MaintenanceWorkflow"

// DefaultActivityTimeout bounds a single maintenance job.
const DefaultActivityTimeout = 10 * time.Minute

// Job names one scheduled maintenance task.
type Job string

const (
	JobAutoUpdateProjects     Job = "auto-update-projects"
	JobExpireInvitations      Job = "expire-invitations"
	JobSyncInvitations        Job = "sync-invitations"
	JobCancelEndedInvitations Job = "cancel-ended-invitations"
	JobCleanupNotifications   Job = "cleanup-notifications"
	JobAutoBackup             Job = "auto-backup"
)

// Jobs lists every maintenance job in schedule order.
var Jobs = []Job{
	JobAutoUpdateProjects,
	JobExpireInvitations,
	JobSyncInvitations,
	JobCancelEndedInvitations,
	JobCleanupNotifications,
	JobAutoBackup,
}

func (j Job) IsValid() bool {
	for _, known := range Jobs {
		if j == known {
			return true
		}
	}
	return false
}

// MaintenanceParams defines the input of the maintenance workflow.
type MaintenanceParams struct {
	Job         Job
	TriggeredBy string
}

// JobResult summarizes one maintenance run. Counts that do not apply to a job stay zero.
type JobResult struct {
	Job      Job    `json:"job"`
	Examined int    `json:"examined"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Detail   string `json:"detail,omitempty"`
}
