package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/repository"
)

// DefaultRetention is how long notifications are kept before cleanup.
const DefaultRetention = 14 * 24 * time.Hour

type Event struct {
	UserID     string
	Type       models.NotificationType
	Title      string
	Message    string
	EntityType string
	EntityID   string
	Link       string
}

type Service interface {
	Publish(ctx context.Context, evt Event) (models.Notification, error)
	// NotifyAdmins publishes evt once per admin user; evt.UserID is ignored.
	NotifyAdmins(ctx context.Context, evt Event) error
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	ListUnread(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	// CleanupOld deletes notifications older than the retention window.
	CleanupOld(ctx context.Context) (int64, error)
}

type Options struct {
	Retention time.Duration
	Now       func() time.Time
}

type service struct {
	repo      repository.NotificationRepository
	users     repository.UserRepository
	retention time.Duration
	now       func() time.Time
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.NotificationRepository, users repository.UserRepository, opts Options, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		repo:      repo,
		users:     users,
		retention: opts.Retention,
		now:       opts.Now,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

func (s *service) Publish(ctx context.Context, evt Event) (models.Notification, error) {
	if evt.Type == "" {
		return models.Notification{}, fmt.Errorf("%w: notification type is required", models.ErrInvalidInput)
	}
	userID := strings.TrimSpace(evt.UserID)
	if userID == "" {
		return models.Notification{}, fmt.Errorf("%w: notification recipient is required", models.ErrInvalidInput)
	}
	title := strings.TrimSpace(evt.Title)
	if title == "" {
		title = string(evt.Type)
	}

	notif, err := s.repo.Create(ctx, repository.CreateNotificationParams{
		UserID:     userID,
		Type:       evt.Type,
		Title:      title,
		Message:    strings.TrimSpace(evt.Message),
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
		Link:       evt.Link,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("type", string(evt.Type)).Str("user_id", userID).Msg("failed to persist notification")
		return models.Notification{}, err
	}
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, notif); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(notifier), notif)
		}
	}
	return notif, nil
}

func (s *service) NotifyAdmins(ctx context.Context, evt Event) error {
	admins, err := s.users.ListUsers(ctx, models.RoleAdmin)
	if err != nil {
		s.logger.Error().Err(err).Str("type", string(evt.Type)).Msg("failed to list admins")
		return fmt.Errorf("list admins: %w", err)
	}

	var errs []error
	for _, admin := range admins {
		evt.UserID = admin.ID
		if _, err := s.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("notify admin %s: %w", admin.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *service) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return s.repo.ListForUser(ctx, userID, false, limit)
}

func (s *service) ListUnread(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return s.repo.ListForUser(ctx, userID, true, limit)
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func (s *service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *service) CleanupOld(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete notifications before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	s.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("old notifications cleaned up")
	return deleted, nil
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
