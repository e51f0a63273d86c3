package alert

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramChannel posts alerts into a chat.
type TelegramChannel struct {
	api    telegramAPI
	chatID int64
}

func NewTelegramChannel(token string, chatID int64) (*TelegramChannel, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("%w: telegram token and chat id are required", ErrInvalidChannel)
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramChannel{api: api, chatID: chatID}, nil
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Deliver(_ context.Context, m Message) error {
	msg := tgbotapi.NewMessage(c.chatID, m.String())
	msg.DisableWebPagePreview = true
	if _, err := c.api.Send(msg); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}
