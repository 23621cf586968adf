package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/config"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/repository"
)

// EmailNotifier mails each notification to its recipient's profile address.
type EmailNotifier struct {
	mailer Mailer
	users  repository.UserRepository
	appURL string
	logger zerolog.Logger
}

func NewEmailNotifier(cfg config.EmailConfig, mailer Mailer, users repository.UserRepository, logger zerolog.Logger) (*EmailNotifier, error) {
	if mailer == nil {
		return nil, fmt.Errorf("mailer is required for email notifier")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository is required for email notifier")
	}
	return &EmailNotifier{
		mailer: mailer,
		users:  users,
		appURL: strings.TrimRight(strings.TrimSpace(cfg.AppURL), "/"),
		logger: logger.With().Str("notifier", "email").Logger(),
	}, nil
}

func (n *EmailNotifier) Notify(ctx context.Context, notif models.Notification) error {
	user, err := n.users.GetUserByID(ctx, notif.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", notif.UserID, err)
	}
	if strings.TrimSpace(user.Email) == "" {
		return nil
	}

	subject := fmt.Sprintf("[Workforce] %s", strings.TrimSpace(notif.Title))
	if subject == "[Workforce] " {
		subject = "[Workforce] Notification"
	}

	body := strings.Builder{}
	if user.Name != "" {
		body.WriteString(fmt.Sprintf("Hello %s,\n\n", user.Name))
	}
	body.WriteString(strings.TrimSpace(notif.Message))
	body.WriteString("\n\n")
	if notif.Link != nil && n.appURL != "" {
		body.WriteString(fmt.Sprintf("Open: %s%s\n", n.appURL, *notif.Link))
	}
	body.WriteString(fmt.Sprintf("Sent: %s\n", notif.CreatedAt.Format("2006-01-02 15:04:05 MST")))

	if err := n.mailer.Send([]string{user.Email}, subject, body.String()); err != nil {
		return err
	}

	n.logger.Info().
		Str("notification_id", notif.ID).
		Str("type", string(notif.Type)).
		Str("user_id", notif.UserID).
		Msg("email notification sent")
	return nil
}

func (n *EmailNotifier) String() string {
	return "EmailNotifier"
}
