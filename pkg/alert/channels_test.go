package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTelegram struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

type fakePostmark struct {
	email postmark.Email
	resp  postmark.EmailResponse
}

func (f *fakePostmark) SendEmail(_ context.Context, e postmark.Email) (postmark.EmailResponse, error) {
	f.email = e
	return f.resp, nil
}

type fakeWebhook struct{ data any }

func (f *fakeWebhook) Send(_ context.Context, data any) error {
	f.data = data
	return nil
}

var testMessage = newMessage("Batch abc expires in 2 days", errors.New("ttl low"), time.Unix(0, 0))

func TestTelegramChannel(t *testing.T) {
	t.Parallel()

	api := &fakeTelegram{}
	ch := &TelegramChannel{api: api, chatID: 42}
	require.NoError(t, ch.Deliver(context.Background(), testMessage))
	require.Len(t, api.sent, 1)

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "Batch abc expires in 2 days\nerror: ttl low", msg.Text)

	api.err = errors.New("forbidden")
	assert.ErrorIs(t, ch.Deliver(context.Background(), testMessage), ErrSendFailed)
}

func TestEmailChannel(t *testing.T) {
	t.Parallel()

	pm := &fakePostmark{}
	ch := &EmailChannel{client: pm, from: "alerts@example.com", to: "ops@example.com"}
	require.NoError(t, ch.Deliver(context.Background(), testMessage))
	assert.Equal(t, "[swarmdock] Batch abc expires in 2 days", pm.email.Subject)
	assert.Equal(t, "ops@example.com", pm.email.To)
	assert.Contains(t, pm.email.TextBody, "ttl low")

	pm.resp = postmark.EmailResponse{ErrorCode: 300, Message: "Invalid email request"}
	assert.ErrorIs(t, ch.Deliver(context.Background(), testMessage), ErrSendFailed)
}

func TestWebhookChannel(t *testing.T) {
	t.Parallel()

	wh := &fakeWebhook{}
	ch := &WebhookChannel{sender: wh}
	require.NoError(t, ch.Deliver(context.Background(), testMessage))
	assert.Equal(t, testMessage, wh.data)
}
