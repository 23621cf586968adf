package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/stanstork/workforce-api/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error)
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepository struct {
	db *sql.DB
}

type CreateNotificationParams struct {
	UserID     string
	Type       models.NotificationType
	Title      string
	Message    string
	EntityType string
	EntityID   string
	Link       string
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error) {
	const query = `
		INSERT INTO tenant.notifications (user_id, type, title, message, entity_type, entity_id, link)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, type, title, message, entity_type, entity_id, link, read, created_at
	`

	row := r.db.QueryRowContext(ctx, query,
		strings.TrimSpace(params.UserID),
		string(params.Type),
		params.Title,
		params.Message,
		optional(params.EntityType),
		optional(params.EntityID),
		optional(params.Link),
	)
	return scanNotification(row)
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	const query = `
		SELECT id, user_id, type, title, message, entity_type, entity_id, link, read, created_at
		FROM tenant.notifications
		WHERE user_id = $1 AND (NOT $2 OR read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, strings.TrimSpace(userID), unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	const query = `
		UPDATE tenant.notifications
		SET read = TRUE
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, type, title, message, entity_type, entity_id, link, read, created_at
	`

	row := r.db.QueryRowContext(ctx, query, notificationID, strings.TrimSpace(userID))
	return scanNotification(row)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tenant.notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`,
		strings.TrimSpace(userID))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tenant.notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanNotification(s scanner) (models.Notification, error) {
	var (
		n          models.Notification
		nType      string
		entityType sql.NullString
		entityID   sql.NullString
		link       sql.NullString
	)

	if err := s.Scan(
		&n.ID,
		&n.UserID,
		&nType,
		&n.Title,
		&n.Message,
		&entityType,
		&entityID,
		&link,
		&n.Read,
		&n.CreatedAt,
	); err != nil {
		return models.Notification{}, err
	}

	n.Type = models.NotificationType(nType)
	n.EntityType = stringPtr(entityType)
	n.EntityID = stringPtr(entityID)
	n.Link = stringPtr(link)
	return n, nil
}

func optional(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.TrimSpace(s)
}
