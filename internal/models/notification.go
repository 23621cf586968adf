package models

import "time"

type NotificationType string

const (
	NotificationInvitation           NotificationType = "project_invitation"
	NotificationInvitationReminder   NotificationType = "project_invitation_reminder"
	NotificationInvitationNudge      NotificationType = "project_invitation_nudge"
	NotificationInvitationCancelled  NotificationType = "project_invitation_cancelled"
	NotificationInvitationResponse   NotificationType = "invitation_response"
	NotificationInvitationExpired    NotificationType = "invitation_auto_expired"
	NotificationInvitationAutoCancel NotificationType = "invitation_auto_cancelled"
	NotificationProjectCreated       NotificationType = "project_created"
	NotificationProjectStarted       NotificationType = "project_started"
	NotificationProjectEnded         NotificationType = "project_ended"
	NotificationProjectArchived      NotificationType = "project_archived"
	NotificationProjectUnarchived    NotificationType = "project_unarchived"
	NotificationPaymentStatus        NotificationType = "payment_status"
	NotificationRewardPoints         NotificationType = "reward_points"
	NotificationExpenseSubmitted     NotificationType = "expense_submitted"
	NotificationExpenseStatus        NotificationType = "expense_status"
	NotificationWorkHoursStatus      NotificationType = "work_hours_status"
)

const (
	EntityInvitation = "project_invitation"
	EntityProject    = "project"
	EntityPayment    = "payment"
	EntityExpense    = "expense"
	EntityWorkHours  = "work_hours"
)

type Notification struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Type       NotificationType `json:"type"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	EntityType *string          `json:"entity_type,omitempty"`
	EntityID   *string          `json:"entity_id,omitempty"`
	Link       *string          `json:"link,omitempty"`
	Read       bool             `json:"read"`
	CreatedAt  time.Time        `json:"created_at"`
}
