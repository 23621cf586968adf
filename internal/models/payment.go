package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

// History entry kinds that are not payment statuses.
const (
	HistoryCreated = "created"
	HistoryComment = "comment"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentProcessing},
	PaymentProcessing: {PaymentCompleted, PaymentFailed},
}

// PaymentComment is the latest comment left on a payment.
type PaymentComment struct {
	Text      string    `json:"text"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProcessingEntry is one audit-trail record of a payment.
type ProcessingEntry struct {
	Status          string    `json:"status"`
	PaymentMethod   string    `json:"paymentMethod,omitempty"`
	ReferenceNumber string    `json:"referenceNumber,omitempty"`
	Comment         string    `json:"comment"`
	AdminID         string    `json:"adminId"`
	Timestamp       time.Time `json:"timestamp"`
}

type Payment struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	ProjectID         *string           `json:"project_id,omitempty"`
	PaymentType       string            `json:"payment_type"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency"`
	Description       string            `json:"description"`
	Date              time.Time         `json:"date"`
	Status            PaymentStatus     `json:"status"`
	ReferenceNumber   *string           `json:"reference_number,omitempty"`
	PaymentMethod     *string           `json:"payment_method,omitempty"`
	Comments          *PaymentComment   `json:"comments,omitempty"`
	ProcessingHistory []ProcessingEntry `json:"processing_history"`
	RelatedExpenseIDs []string          `json:"related_expense_ids,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// PaymentFilter narrows payment listings; empty fields match everything.
type PaymentFilter struct {
	UserID      string
	Status      PaymentStatus
	PaymentType string
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentProcessing, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// NextStatuses lists the statuses a payment in s may move to.
func (s PaymentStatus) NextStatuses() []PaymentStatus {
	next := paymentTransitions[s]
	out := make([]PaymentStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from → to is an allowed payment transition.
func CanTransition(from, to PaymentStatus) bool {
	for _, s := range paymentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidState for a forbidden transition.
func ValidateTransition(from, to PaymentStatus) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: payment cannot move from %q to %q", ErrInvalidState, from, to)
	}
	return nil
}
