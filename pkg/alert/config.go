package alert

import "time"

// Config selects alert channels. Channels with missing settings are skipped.
type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`

	WebhookURL    string `env:"ALERT_WEBHOOK_URL"`
	WebhookSecret string `env:"ALERT_WEBHOOK_SECRET"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	EmailFrom            string `env:"ALERT_EMAIL_FROM"`
	EmailTo              string `env:"ALERT_EMAIL_TO"`

	// RatePerMinute caps alerts per channel; bursts of equal failures
	// otherwise flood chats.
	RatePerMinute int           `env:"ALERT_RATE_PER_MINUTE" envDefault:"20"`
	SendTimeout   time.Duration `env:"ALERT_SEND_TIMEOUT" envDefault:"15s"`
}

func (c Config) telegramEnabled() bool { return c.TelegramBotToken != "" && c.TelegramChatID != 0 }
func (c Config) webhookEnabled() bool  { return c.WebhookURL != "" }
func (c Config) emailEnabled() bool {
	return c.PostmarkServerToken != "" && c.EmailFrom != "" && c.EmailTo != ""
}
