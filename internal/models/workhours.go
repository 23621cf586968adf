package models

import "time"

type WorkHoursStatus string

const (
	WorkHoursPending  WorkHoursStatus = "pending"
	WorkHoursApproved WorkHoursStatus = "approved"
	WorkHoursRejected WorkHoursStatus = "rejected"
)

// MaxDailyHours caps the hours a single entry may record.
const MaxDailyHours = 24

// WorkHours is one day of time a worker logged against a project.
type WorkHours struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	ProjectID       string          `json:"project_id"`
	Date            time.Time       `json:"date"`
	RegularHours    float64         `json:"regular_hours"`
	Overtime15x     float64         `json:"overtime_15x"`
	Overtime20x     float64         `json:"overtime_20x"`
	Remarks         string          `json:"remarks"`
	Status          WorkHoursStatus `json:"status"`
	ReviewedBy      *string         `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	Paid            bool            `json:"paid"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (w WorkHours) TotalHours() float64 {
	return w.RegularHours + w.Overtime15x + w.Overtime20x
}

// WorkHoursFilter narrows listings; zero values match everything.
type WorkHoursFilter struct {
	UserID    string
	ProjectID string
	Status    WorkHoursStatus
	From      time.Time
	To        time.Time
	Limit     int
}

// WorkHoursSummary totals a worker's approved, unpaid hours on one project.
type WorkHoursSummary struct {
	UserID       string  `json:"user_id"`
	ProjectID    string  `json:"project_id"`
	Entries      int     `json:"entries"`
	RegularHours float64 `json:"regular_hours"`
	Overtime15x  float64 `json:"overtime_15x"`
	Overtime20x  float64 `json:"overtime_20x"`
}

func (s WorkHoursStatus) IsValid() bool {
	switch s {
	case WorkHoursPending, WorkHoursApproved, WorkHoursRejected:
		return true
	}
	return false
}
