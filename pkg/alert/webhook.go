package alert

import (
	"context"
	"errors"

	"github.com/swarmdock/backend/pkg/webhook"
)

type webhookSender interface {
	Send(ctx context.Context, data any) error
}

// WebhookChannel posts alerts as signed JSON.
type WebhookChannel struct {
	sender webhookSender
}

func NewWebhookChannel(url, secret string, opts ...webhook.Option) (*WebhookChannel, error) {
	if secret != "" {
		opts = append(opts, webhook.WithSecret(secret))
	}
	s, err := webhook.NewSender(url, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidChannel, err)
	}
	return &WebhookChannel{sender: s}, nil
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) Deliver(ctx context.Context, m Message) error {
	if err := c.sender.Send(ctx, m); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}
