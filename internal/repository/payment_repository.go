package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/stanstork/workforce-api/internal/models"
)

type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment models.Payment) (models.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (models.Payment, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
	// UpdateStatus applies update only while the payment is still in status from.
	UpdateStatus(ctx context.Context, paymentID string, from models.PaymentStatus, update PaymentStatusUpdate) (models.Payment, error)
	AppendComment(ctx context.Context, paymentID string, entry models.ProcessingEntry) (models.Payment, error)
}

// PaymentStatusUpdate carries the new status and its audit entry.
type PaymentStatusUpdate struct {
	Status          models.PaymentStatus
	PaymentMethod   string
	ReferenceNumber string
	Entry           models.ProcessingEntry
}

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, user_id, project_id, payment_type, amount, currency, description, date, status,
		reference_number, payment_method, comments, processing_history, related_expense_ids, created_at, updated_at`

func (r *paymentRepository) CreatePayment(ctx context.Context, p models.Payment) (models.Payment, error) {
	query := `
		INSERT INTO tenant.payments
			(user_id, project_id, payment_type, amount, currency, description, date, status,
			 reference_number, payment_method, comments, processing_history, related_expense_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12::jsonb, $13, $14, $14)
		RETURNING ` + paymentColumns

	var comments interface{}
	if p.Comments != nil {
		var err error
		if comments, err = jsonParam(p.Comments); err != nil {
			return models.Payment{}, fmt.Errorf("marshal comments: %w", err)
		}
	}
	history := p.ProcessingHistory
	if history == nil {
		history = []models.ProcessingEntry{}
	}
	historyJSON, err := jsonParam(history)
	if err != nil {
		return models.Payment{}, fmt.Errorf("marshal processing history: %w", err)
	}
	expenseIDs := p.RelatedExpenseIDs
	if expenseIDs == nil {
		expenseIDs = []string{}
	}

	var created models.Payment
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, query,
			p.UserID,
			nullString(p.ProjectID),
			p.PaymentType,
			p.Amount,
			p.Currency,
			p.Description,
			p.Date,
			string(p.Status),
			nullString(p.ReferenceNumber),
			nullString(p.PaymentMethod),
			comments,
			historyJSON,
			pq.Array(expenseIDs),
			p.CreatedAt,
		)
		var err error
		if created, err = scanPayment(row); err != nil {
			return err
		}
		if len(expenseIDs) == 0 {
			return nil
		}
		return settleExpenses(ctx, tx, created, expenseIDs)
	})
	if err != nil {
		return models.Payment{}, err
	}
	return created, nil
}

// settleExpenses marks the payee's approved, unpaid expenses as paid by p. Any id that does not qualify aborts the payment.
func settleExpenses(ctx context.Context, tx *sql.Tx, p models.Payment, expenseIDs []string) error {
	const query = `
		UPDATE tenant.expenses
		SET paid = TRUE, payment_id = $1, paid_at = $2, updated_at = $2
		WHERE id::text = ANY($3::text[]) AND user_id = $4 AND status = 'approved' AND NOT paid`

	res, err := tx.ExecContext(ctx, query, p.ID, p.CreatedAt, pq.Array(expenseIDs), p.UserID)
	if err != nil {
		return fmt.Errorf("settle expenses: %w", err)
	}
	settled, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if int(settled) != len(expenseIDs) {
		return fmt.Errorf("%w: %d of %d related expenses are not approved, unpaid claims of user %s",
			models.ErrInvalidState, len(expenseIDs)-int(settled), len(expenseIDs), p.UserID)
	}
	return nil
}

func (r *paymentRepository) GetPayment(ctx context.Context, paymentID string) (models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM tenant.payments WHERE id = $1`
	return scanPayment(r.db.QueryRowContext(ctx, query, paymentID))
}

func (r *paymentRepository) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM tenant.payments
		WHERE ($1::text = '' OR user_id = $1::text)
		  AND ($2::text = '' OR status = $2::text)
		  AND ($3::text = '' OR payment_type = $3::text)
		ORDER BY date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, filter.UserID, string(filter.Status), filter.PaymentType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, paymentID string, from models.PaymentStatus, update PaymentStatusUpdate) (models.Payment, error) {
	// A failed payment releases its expenses so they can be settled by another payment.
	query := `
		WITH updated AS (
			UPDATE tenant.payments
			SET status = $3,
			    payment_method = COALESCE(NULLIF($4, ''), payment_method),
			    reference_number = COALESCE(NULLIF($5, ''), reference_number),
			    comments = $6::jsonb,
			    processing_history = processing_history || $7::jsonb,
			    updated_at = $8
			WHERE id = $1 AND status = $2
			RETURNING ` + paymentColumns + `
		), released AS (
			UPDATE tenant.expenses e
			SET paid = FALSE, payment_id = NULL, paid_at = NULL, updated_at = $8
			FROM updated u
			WHERE e.payment_id = u.id AND u.status = 'failed'
		)
		SELECT ` + paymentColumns + ` FROM updated`

	comment, history, err := entryParams(update.Entry)
	if err != nil {
		return models.Payment{}, err
	}

	row := r.db.QueryRowContext(ctx, query,
		paymentID,
		string(from),
		string(update.Status),
		update.PaymentMethod,
		update.ReferenceNumber,
		comment,
		history,
		update.Entry.Timestamp,
	)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		var current string
		if lookupErr := r.db.QueryRowContext(ctx, `SELECT status FROM tenant.payments WHERE id = $1`, paymentID).Scan(&current); lookupErr != nil {
			return models.Payment{}, lookupErr
		}
		return models.Payment{}, fmt.Errorf("%w: payment %s moved to %s", models.ErrInvalidState, paymentID, current)
	}
	return p, err
}

func (r *paymentRepository) AppendComment(ctx context.Context, paymentID string, entry models.ProcessingEntry) (models.Payment, error) {
	query := `
		UPDATE tenant.payments
		SET comments = $2::jsonb,
		    processing_history = processing_history || $3::jsonb,
		    updated_at = $4
		WHERE id = $1
		RETURNING ` + paymentColumns

	comment, history, err := entryParams(entry)
	if err != nil {
		return models.Payment{}, err
	}
	return scanPayment(r.db.QueryRowContext(ctx, query, paymentID, comment, history, entry.Timestamp))
}

// entryParams encodes the latest-comment mirror and the one-element history append for entry.
func entryParams(entry models.ProcessingEntry) (interface{}, interface{}, error) {
	comment, err := jsonParam(models.PaymentComment{
		Text:      entry.Comment,
		UserID:    entry.AdminID,
		CreatedAt: entry.Timestamp,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal comment: %w", err)
	}
	history, err := jsonParam([]models.ProcessingEntry{entry})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal history entry: %w", err)
	}
	return comment, history, nil
}

func scanPayment(s scanner) (models.Payment, error) {
	var (
		p          models.Payment
		projectID  sql.NullString
		status     string
		reference  sql.NullString
		method     sql.NullString
		comments   []byte
		history    []byte
		expenseIDs pq.StringArray
	)
	err := s.Scan(
		&p.ID,
		&p.UserID,
		&projectID,
		&p.PaymentType,
		&p.Amount,
		&p.Currency,
		&p.Description,
		&p.Date,
		&status,
		&reference,
		&method,
		&comments,
		&history,
		&expenseIDs,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return models.Payment{}, err
	}

	p.ProjectID = stringPtr(projectID)
	p.Status = models.PaymentStatus(status)
	p.ReferenceNumber = stringPtr(reference)
	p.PaymentMethod = stringPtr(method)
	p.RelatedExpenseIDs = []string(expenseIDs)

	if len(comments) > 0 {
		var c models.PaymentComment
		if err := json.Unmarshal(comments, &c); err != nil {
			return models.Payment{}, fmt.Errorf("decode comments: %w", err)
		}
		p.Comments = &c
	}
	p.ProcessingHistory = []models.ProcessingEntry{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.ProcessingHistory); err != nil {
			return models.Payment{}, fmt.Errorf("decode processing history: %w", err)
		}
	}
	return p, nil
}
