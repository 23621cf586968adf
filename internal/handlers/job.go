package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	tc "go.temporal.io/sdk/client"

	"github.com/stanstork/workforce-api/internal/temporal"
)

// WorkflowStarter is the part of the Temporal client the job handler needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options tc.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tc.WorkflowRun, error)
}

type JobHandler struct {
	temporal  WorkflowStarter
	taskQueue string
	logger    zerolog.Logger
}

func NewJobHandler(starter WorkflowStarter, taskQueue string, logger zerolog.Logger) *JobHandler {
	return &JobHandler{
		temporal:  starter,
		taskQueue: taskQueue,
		logger:    logger.With().Str("handler", "job").Logger(),
	}
}

func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": temporal.DefaultSchedules})
}

// RunJob starts a maintenance workflow outside its schedule.
func (h *JobHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	job := temporal.Job(mux.Vars(r)["job"])
	if !job.IsValid() {
		http.Error(w, "Unknown job", http.StatusNotFound)
		return
	}
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}

	options := tc.StartWorkflowOptions{
		ID:        temporal.WorkflowIDPrefix + string(job) + "-" + uuid.NewString(),
		TaskQueue: h.taskQueue,
	}
	run, err := h.temporal.ExecuteWorkflow(r.Context(), options, temporal.MaintenanceWorkflowName,
		temporal.MaintenanceParams{Job: job, TriggeredBy: adminID})
	if err != nil {
		h.logger.Error().Err(err).Str("job", string(job)).Msg("failed to start maintenance workflow")
		http.Error(w, "Failed to start job", http.StatusInternalServerError)
		return
	}

	h.logger.Info().Str("job", string(job)).Str("workflow_id", run.GetID()).Str("admin_id", adminID).Msg("maintenance job started")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"job":         string(job),
		"workflow_id": run.GetID(),
		"run_id":      run.GetRunID(),
	})
}
