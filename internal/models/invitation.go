package models

import (
	"fmt"
	"time"
)

// InvitationResponseWindow is how long a worker has to answer an invitation.
const InvitationResponseWindow = 7 * 24 * time.Hour

type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationDeclined  InvitationStatus = "declined"
	InvitationCancelled InvitationStatus = "cancelled"
	InvitationRejected  InvitationStatus = "rejected"
)

type AttemptType string

const (
	AttemptInitial  AttemptType = "initial"
	AttemptResend   AttemptType = "resend"
	AttemptNudge    AttemptType = "nudge"
	AttemptCancel   AttemptType = "cancel"
	AttemptAccepted AttemptType = "accepted"
	AttemptDeclined AttemptType = "declined"
)

const (
	DeclineReasonExpired       = "expired"
	CancelReasonProjectExpired = "project expired"
)

// InvitationAttempt records one contact with the invited worker.
type InvitationAttempt struct {
	Date time.Time   `json:"date"`
	By   string      `json:"by"`
	Type AttemptType `json:"type"`
}

// ProjectInvitation is an offer for a worker to join a project.
type ProjectInvitation struct {
	ID                   string              `json:"id"`
	ProjectID            string              `json:"project_id"`
	UserID               string              `json:"user_id"`
	Status               InvitationStatus    `json:"status"`
	Message              string              `json:"message"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	RequiredResponseDate time.Time           `json:"required_response_date"`
	ResponseDate         *time.Time          `json:"response_date,omitempty"`
	DeclineReason        *string             `json:"decline_reason,omitempty"`
	CancelReason         *string             `json:"cancel_reason,omitempty"`
	CancelledBy          *string             `json:"cancelled_by,omitempty"`
	LastNudgeAt          *time.Time          `json:"last_nudge_at,omitempty"`
	Attempts             []InvitationAttempt `json:"attempts"`
}

func (s InvitationStatus) IsValid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationDeclined, InvitationCancelled, InvitationRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no lifecycle operation may move the invitation further.
func (s InvitationStatus) IsTerminal() bool {
	return s.IsValid() && s != InvitationPending
}

// IsOverdue reports whether a pending invitation has passed its response deadline.
func (i ProjectInvitation) IsOverdue(now time.Time) bool {
	return i.Status == InvitationPending && i.RequiredResponseDate.Before(now)
}

// RequirePending returns ErrInvalidState unless the invitation is still pending.
func (i ProjectInvitation) RequirePending(op string) error {
	if i.Status != InvitationPending {
		return fmt.Errorf("%w: cannot %s invitation %s in status %q", ErrInvalidState, op, i.ID, i.Status)
	}
	return nil
}

// ResponseDeadline returns the deadline for an invitation issued at t.
func ResponseDeadline(t time.Time) time.Time {
	return t.Add(InvitationResponseWindow)
}
