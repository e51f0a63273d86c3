package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/swarmdock/backend/pkg/logger"
)

type limitedChannel struct {
	Channel
	limiter *rate.Limiter
}

// Notifier fans alerts out to every configured channel. Every alert is
// logged at error level whether or not a channel is configured.
type Notifier struct {
	channels []limitedChannel
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

type Option func(*Notifier)

func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		if now != nil {
			n.now = now
		}
	}
}

// WithChannel adds a channel limited to perMinute deliveries.
func WithChannel(c Channel, perMinute int) Option {
	return func(n *Notifier) {
		if c == nil {
			return
		}
		if perMinute <= 0 {
			perMinute = 20
		}
		n.channels = append(n.channels, limitedChannel{
			Channel: c,
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		})
	}
}

func NewNotifier(timeout time.Duration, opts ...Option) *Notifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	n := &Notifier{timeout: timeout, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With(logger.Component("alert"))
	return n
}

// FromConfig builds a Notifier with every channel cfg enables.
func FromConfig(cfg Config, log *slog.Logger) (*Notifier, error) {
	opts := []Option{WithLogger(log)}

	if cfg.telegramEnabled() {
		tg, err := NewTelegramChannel(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithChannel(tg, cfg.RatePerMinute))
	}
	if cfg.webhookEnabled() {
		wh, err := NewWebhookChannel(cfg.WebhookURL, cfg.WebhookSecret)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithChannel(wh, cfg.RatePerMinute))
	}
	if cfg.emailEnabled() {
		em, err := NewEmailChannel(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.EmailFrom, cfg.EmailTo)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithChannel(em, cfg.RatePerMinute))
	}

	return NewNotifier(cfg.SendTimeout, opts...), nil
}

// SendAlert logs the alert and delivers it to all channels in the
// background.
func (n *Notifier) SendAlert(ctx context.Context, msg string, err error) {
	n.logger.ErrorContext(ctx, msg, logger.Error(err))

	m := newMessage(msg, err, n.now())
	base := context.WithoutCancel(ctx)
	for _, ch := range n.channels {
		if !ch.limiter.Allow() {
			n.logger.WarnContext(ctx, "alert dropped by rate limit", slog.String("channel", ch.Name()))
			continue
		}
		n.wg.Add(1)
		go func(ch limitedChannel) {
			defer n.wg.Done()
			dctx, cancel := context.WithTimeout(base, n.timeout)
			defer cancel()
			if derr := ch.Deliver(dctx, m); derr != nil {
				n.logger.WarnContext(dctx, "alert delivery failed",
					slog.String("channel", ch.Name()), logger.Error(derr))
			}
		}(ch)
	}
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Channels returns the names of configured channels.
func (n *Notifier) Channels() []string {
	names := make([]string, len(n.channels))
	for i, ch := range n.channels {
		names[i] = ch.Name()
	}
	return names
}
