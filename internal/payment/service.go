// Package payment runs the payment status machine and its audit trail.
package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/notification"
	"github.com/stanstork/workforce-api/internal/repository"
)

const defaultCreateComment = "Payment created"

type CreateRequest struct {
	UserID      string          `json:"user_id"`
	ProjectID   string          `json:"project_id"`
	PaymentType string          `json:"payment_type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	// RelatedExpenseIDs settles approved, unpaid claims of the payee. The payment fails if any does not qualify.
	RelatedExpenseIDs []string `json:"related_expense_ids"`
	ReferenceNumber   string   `json:"reference_number"`
	PaymentMethod     string   `json:"payment_method"`
	Comment           string   `json:"comment"`
}

type StatusUpdate struct {
	NewStatus       models.PaymentStatus `json:"status"`
	PaymentMethod   string               `json:"payment_method"`
	ReferenceNumber string               `json:"reference_number"`
	Comment         string               `json:"comment"`
	AdminID         string               `json:"-"`
}

type Service interface {
	CreatePayment(ctx context.Context, req CreateRequest, adminID string) (models.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (models.Payment, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID string, update StatusUpdate) (models.Payment, error)
	AddComment(ctx context.Context, paymentID, text, adminID string) (models.Payment, error)
	AvailableStatuses(p models.Payment) []models.PaymentStatus
}

type service struct {
	payments repository.PaymentRepository
	users    repository.UserRepository
	notifier notification.Service
	now      func() time.Time
	logger   zerolog.Logger
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(payments repository.PaymentRepository, users repository.UserRepository, notifier notification.Service, logger zerolog.Logger, opts ...Option) Service {
	s := &service{
		payments: payments,
		users:    users,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("component", "payment_service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreatePayment(ctx context.Context, req CreateRequest, adminID string) (models.Payment, error) {
	if err := validateCreate(req); err != nil {
		return models.Payment{}, err
	}
	expenseIDs, err := normalizeExpenseIDs(req.RelatedExpenseIDs)
	if err != nil {
		return models.Payment{}, err
	}
	if _, err := s.users.GetUserByID(ctx, req.UserID); err != nil {
		return models.Payment{}, notFound(err, "user", req.UserID)
	}

	now := s.now()
	date := req.Date
	if date.IsZero() {
		date = now
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		comment = defaultCreateComment
	}
	entry := models.ProcessingEntry{
		Status:          models.HistoryCreated,
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
		Comment:         comment,
		AdminID:         adminID,
		Timestamp:       now,
	}

	p, err := s.payments.CreatePayment(ctx, models.Payment{
		UserID:            req.UserID,
		ProjectID:         optional(req.ProjectID),
		PaymentType:       strings.TrimSpace(req.PaymentType),
		Amount:            req.Amount,
		Currency:          strings.ToUpper(strings.TrimSpace(req.Currency)),
		Description:       strings.TrimSpace(req.Description),
		Date:              date,
		Status:            models.PaymentPending,
		ReferenceNumber:   optional(req.ReferenceNumber),
		PaymentMethod:     optional(req.PaymentMethod),
		Comments:          &models.PaymentComment{Text: comment, UserID: adminID, CreatedAt: now},
		ProcessingHistory: []models.ProcessingEntry{entry},
		RelatedExpenseIDs: expenseIDs,
		CreatedAt:         now,
	})
	if err != nil {
		return models.Payment{}, fmt.Errorf("create payment: %w", err)
	}

	s.logger.Info().
		Str("payment_id", p.ID).
		Str("user_id", p.UserID).
		Str("amount", p.Amount.StringFixed(2)).
		Str("currency", p.Currency).
		Int("expenses", len(expenseIDs)).
		Msg("payment created")
	return p, nil
}

func (s *service) GetPayment(ctx context.Context, paymentID string) (models.Payment, error) {
	p, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return models.Payment{}, notFound(err, "payment", paymentID)
	}
	return p, nil
}

func (s *service) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", models.ErrInvalidInput, filter.Status)
	}
	payments, err := s.payments.ListPayments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

// UpdatePaymentStatus moves a payment along the allowed transitions. The write is conditional on the
// status read here, so a concurrent update surfaces as ErrInvalidState.
func (s *service) UpdatePaymentStatus(ctx context.Context, paymentID string, update StatusUpdate) (models.Payment, error) {
	comment := strings.TrimSpace(update.Comment)
	if comment == "" {
		return models.Payment{}, fmt.Errorf("%w: comment is required", models.ErrInvalidInput)
	}
	current, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return models.Payment{}, err
	}
	if err := models.ValidateTransition(current.Status, update.NewStatus); err != nil {
		return models.Payment{}, err
	}

	now := s.now()
	method := strings.TrimSpace(update.PaymentMethod)
	reference := strings.TrimSpace(update.ReferenceNumber)
	p, err := s.payments.UpdateStatus(ctx, paymentID, current.Status, repository.PaymentStatusUpdate{
		Status:          update.NewStatus,
		PaymentMethod:   method,
		ReferenceNumber: reference,
		Entry: models.ProcessingEntry{
			Status:          string(update.NewStatus),
			PaymentMethod:   method,
			ReferenceNumber: reference,
			Comment:         comment,
			AdminID:         update.AdminID,
			Timestamp:       now,
		},
	})
	if err != nil {
		return models.Payment{}, notFound(err, "payment", paymentID)
	}

	s.logger.Info().
		Str("payment_id", p.ID).
		Str("from", string(current.Status)).
		Str("to", string(p.Status)).
		Str("admin_id", update.AdminID).
		Msg("payment status updated")

	_, err = s.notifier.Publish(ctx, notification.Event{
		UserID:     p.UserID,
		Type:       models.NotificationPaymentStatus,
		Title:      fmt.Sprintf("Payment %s", p.Status),
		Message:    fmt.Sprintf("Your %s payment of %s %s is now %s.", p.PaymentType, p.Amount.StringFixed(2), p.Currency, p.Status),
		EntityType: models.EntityPayment,
		EntityID:   p.ID,
		Link:       "/worker/payments",
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("payment_id", p.ID).Msg("failed to notify payee")
	}
	return p, nil
}

func (s *service) AddComment(ctx context.Context, paymentID, text, adminID string) (models.Payment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Payment{}, fmt.Errorf("%w: comment text is required", models.ErrInvalidInput)
	}
	p, err := s.payments.AppendComment(ctx, paymentID, models.ProcessingEntry{
		Status:    models.HistoryComment,
		Comment:   text,
		AdminID:   adminID,
		Timestamp: s.now(),
	})
	if err != nil {
		return models.Payment{}, notFound(err, "payment", paymentID)
	}
	return p, nil
}

func (s *service) AvailableStatuses(p models.Payment) []models.PaymentStatus {
	return p.Status.NextStatuses()
}

func validateCreate(req CreateRequest) error {
	switch {
	case strings.TrimSpace(req.UserID) == "":
		return fmt.Errorf("%w: user_id is required", models.ErrInvalidInput)
	case strings.TrimSpace(req.PaymentType) == "":
		return fmt.Errorf("%w: payment_type is required", models.ErrInvalidInput)
	case strings.TrimSpace(req.Currency) == "":
		return fmt.Errorf("%w: currency is required", models.ErrInvalidInput)
	case !req.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", models.ErrInvalidInput)
	case !req.Amount.Equal(req.Amount.Round(2)):
		return fmt.Errorf("%w: amount has more than two decimal places", models.ErrInvalidInput)
	}
	if id := strings.TrimSpace(req.ProjectID); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("%w: project_id %q is not a valid id", models.ErrInvalidInput, id)
		}
	}
	return nil
}

// normalizeExpenseIDs trims and de-duplicates the related expense ids, rejecting malformed ones.
func normalizeExpenseIDs(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	ids := []string{}
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: related expense id %q is not a valid id", models.ErrInvalidInput, id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", models.ErrNotFound, kind, id)
	}
	return err
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
