package notification

import "github.com/stanstork/workforce-api/internal/config"

func configForTest() config.EmailConfig {
	return config.EmailConfig{
		Enabled:  true,
		From:     "noreply@example.com",
		SMTPHost: "smtp.example.com",
		AppURL:   "https://app.example.com/",
	}
}
