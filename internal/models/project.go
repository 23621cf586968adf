package models

import "time"

type ProjectStatus string

const (
	ProjectDraft    ProjectStatus = "draft"
	ProjectActive   ProjectStatus = "active"
	ProjectEnded    ProjectStatus = "ended"
	ProjectArchived ProjectStatus = "archived"
)

const WorkerStatusActive = "active"

// ProjectWorker is one entry of a project's roster.
type ProjectWorker struct {
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

type Project struct {
	ID             string                   `json:"id"`
	Name           string                   `json:"name"`
	Description    string                   `json:"description"`
	Location       string                   `json:"location"`
	Status         ProjectStatus            `json:"status"`
	PreviousStatus *ProjectStatus           `json:"previous_status,omitempty"`
	StartDate      time.Time                `json:"start_date"`
	EndDate        time.Time                `json:"end_date"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	EndedAt        *time.Time               `json:"ended_at,omitempty"`
	ArchivedAt     *time.Time               `json:"archived_at,omitempty"`
	Workers        map[string]ProjectWorker `json:"workers"`
}

// RosterEntry identifies a roster row outside of its project.
type RosterEntry struct {
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	JoinedAt  time.Time `json:"joined_at"`
}

func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectDraft, ProjectActive, ProjectEnded, ProjectArchived:
		return true
	}
	return false
}

// ScheduledStatus returns the status a project should move to at now, if any.
func (p Project) ScheduledStatus(now time.Time) (ProjectStatus, bool) {
	switch {
	case p.Status == ProjectDraft && !p.StartDate.IsZero() && !p.StartDate.After(now):
		return ProjectActive, true
	case p.Status == ProjectActive && !p.EndDate.IsZero() && !p.EndDate.After(now):
		return ProjectEnded, true
	}
	return "", false
}
