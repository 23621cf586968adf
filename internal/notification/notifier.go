package notification

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/models"
)

// Notifier is an outbound channel that receives every persisted notification.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}

func sanitizeRecipients(recipients []string) []string {
	var cleaned []string
	for _, recipient := range recipients {
		if r := strings.TrimSpace(recipient); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	return cleaned
}

func logNotifyError(logger zerolog.Logger, err error, channel string, notif models.Notification) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Str("notification_id", notif.ID).
		Str("type", string(notif.Type)).
		Str("user_id", notif.UserID).
		Str("channel", channel).
		Msg("failed to deliver notification")
}
