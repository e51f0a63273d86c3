package alert

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/mrz1836/postmark"
)

type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// EmailChannel mails alerts through Postmark.
type EmailChannel struct {
	client   postmarkAPI
	from, to string
}

func NewEmailChannel(serverToken, accountToken, from, to string) (*EmailChannel, error) {
	if serverToken == "" || from == "" || to == "" {
		return nil, fmt.Errorf("%w: postmark token, sender and recipient are required", ErrInvalidChannel)
	}
	return &EmailChannel{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
		to:     to,
	}, nil
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(ctx context.Context, m Message) error {
	subject := m.Text
	if i := strings.IndexByte(subject, '\n'); i > 0 {
		subject = subject[:i]
	}
	resp, err := c.client.SendEmail(ctx, postmark.Email{
		From:     c.from,
		To:       c.to,
		Subject:  "[swarmdock] " + subject,
		Tag:      "alert",
		TextBody: m.String(),
		HTMLBody: "<pre>" + html.EscapeString(m.String()) + "</pre>",
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
