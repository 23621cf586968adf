package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "pending"
	ExpenseApproved ExpenseStatus = "approved"
	ExpenseRejected ExpenseStatus = "rejected"
)

// A rejected claim can be restored to approved; an approved claim is final.
var expenseTransitions = map[ExpenseStatus][]ExpenseStatus{
	ExpensePending:  {ExpenseApproved, ExpenseRejected},
	ExpenseRejected: {ExpenseApproved},
}

// Expense is a worker's reimbursement claim. Approved unpaid claims are settled by linking them to a payment.
type Expense struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	ProjectID       *string         `json:"project_id,omitempty"`
	ExpenseType     string          `json:"expense_type"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	Date            time.Time       `json:"date"`
	Receipts        []string        `json:"receipts"`
	Status          ExpenseStatus   `json:"status"`
	ReviewedBy      *string         `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	Paid            bool            `json:"paid"`
	PaymentID       *string         `json:"payment_id,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ExpenseFilter narrows expense listings; empty fields match everything.
type ExpenseFilter struct {
	UserID    string
	ProjectID string
	Status    ExpenseStatus
	// UnpaidOnly keeps claims not yet linked to a payment.
	UnpaidOnly bool
}

func (s ExpenseStatus) IsValid() bool {
	switch s {
	case ExpensePending, ExpenseApproved, ExpenseRejected:
		return true
	}
	return false
}

// ValidateExpenseReview returns ErrInvalidState unless e may move to status to.
func ValidateExpenseReview(e Expense, to ExpenseStatus) error {
	if e.Paid {
		return fmt.Errorf("%w: expense %s is already paid", ErrInvalidState, e.ID)
	}
	for _, next := range expenseTransitions[e.Status] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: expense cannot move from %q to %q", ErrInvalidState, e.Status, to)
}
