package repotest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/repository"
)

type paymentRepo struct{ s *Store }

func (r paymentRepo) CreatePayment(_ context.Context, p models.Payment) (models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreatePayment", p.UserID); err != nil {
		return models.Payment{}, err
	}
	if p.ID == "" {
		p.ID = newID()
	}
	if err := r.s.settleExpenses(p); err != nil {
		return models.Payment{}, err
	}
	p.UpdatedAt = p.CreatedAt
	r.s.payments[p.ID] = clonePayment(p)
	r.s.writes++
	return clonePayment(p), nil
}

// settleExpenses marks the payment's related claims paid, or changes nothing if any is ineligible. Caller holds mu.
func (s *Store) settleExpenses(p models.Payment) error {
	for _, id := range p.RelatedExpenseIDs {
		e, ok := s.expenses[id]
		if !ok || e.UserID != p.UserID || e.Status != models.ExpenseApproved || e.Paid {
			return fmt.Errorf("%w: expense %s cannot be settled by this payment", models.ErrInvalidState, id)
		}
	}
	for _, id := range p.RelatedExpenseIDs {
		e := cloneExpense(s.expenses[id])
		paymentID, paidAt := p.ID, p.CreatedAt
		e.Paid = true
		e.PaymentID = &paymentID
		e.PaidAt = &paidAt
		e.UpdatedAt = paidAt
		s.expenses[id] = e
	}
	return nil
}

// releaseExpenses returns a failed payment's claims to the unpaid pool. Caller holds mu.
func (s *Store) releaseExpenses(paymentID string, at time.Time) {
	for id, e := range s.expenses {
		if e.PaymentID == nil || *e.PaymentID != paymentID {
			continue
		}
		e = cloneExpense(e)
		e.Paid = false
		e.PaymentID = nil
		e.PaidAt = nil
		e.UpdatedAt = at
		s.expenses[id] = e
	}
}

func (r paymentRepo) GetPayment(_ context.Context, paymentID string) (models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[paymentID]
	if !ok {
		return models.Payment{}, notFound("payment", paymentID)
	}
	return clonePayment(p), nil
}

func (r paymentRepo) ListPayments(_ context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Payment
	for _, p := range r.s.payments {
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.PaymentType != "" && p.PaymentType != filter.PaymentType {
			continue
		}
		out = append(out, clonePayment(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r paymentRepo) UpdateStatus(_ context.Context, paymentID string, from models.PaymentStatus, update repository.PaymentStatusUpdate) (models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[paymentID]
	if !ok {
		return models.Payment{}, notFound("payment", paymentID)
	}
	if p.Status != from {
		return models.Payment{}, fmt.Errorf("%w: payment %s moved to %s", models.ErrInvalidState, paymentID, p.Status)
	}
	if err := r.s.fail("UpdateStatus", paymentID); err != nil {
		return models.Payment{}, err
	}
	p = clonePayment(p)
	p.Status = update.Status
	if update.PaymentMethod != "" {
		method := update.PaymentMethod
		p.PaymentMethod = &method
	}
	if update.ReferenceNumber != "" {
		ref := update.ReferenceNumber
		p.ReferenceNumber = &ref
	}
	applyEntry(&p, update.Entry)
	if p.Status == models.PaymentFailed {
		r.s.releaseExpenses(paymentID, update.Entry.Timestamp)
	}
	r.s.payments[paymentID] = p
	r.s.writes++
	return clonePayment(p), nil
}

func (r paymentRepo) AppendComment(_ context.Context, paymentID string, entry models.ProcessingEntry) (models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[paymentID]
	if !ok {
		return models.Payment{}, notFound("payment", paymentID)
	}
	p = clonePayment(p)
	applyEntry(&p, entry)
	r.s.payments[paymentID] = p
	r.s.writes++
	return clonePayment(p), nil
}

func applyEntry(p *models.Payment, entry models.ProcessingEntry) {
	p.ProcessingHistory = append(p.ProcessingHistory, entry)
	p.Comments = &models.PaymentComment{Text: entry.Comment, UserID: entry.AdminID, CreatedAt: entry.Timestamp}
	p.UpdatedAt = entry.Timestamp
}

func clonePayment(p models.Payment) models.Payment {
	p.ProcessingHistory = append([]models.ProcessingEntry(nil), p.ProcessingHistory...)
	p.RelatedExpenseIDs = append([]string(nil), p.RelatedExpenseIDs...)
	if p.Comments != nil {
		c := *p.Comments
		p.Comments = &c
	}
	return p
}
