package alert

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Sender delivers an operator alert. Implementations never block the
// caller on delivery failures; they only report them.
type Sender interface {
	SendAlert(ctx context.Context, msg string, err error)
}

// Message is a rendered alert.
type Message struct {
	Text  string    `json:"text"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

func newMessage(msg string, err error, now time.Time) Message {
	m := Message{Text: msg, Time: now.UTC()}
	if err != nil {
		m.Error = err.Error()
	}
	return m
}

func (m Message) String() string {
	var b strings.Builder
	b.WriteString(m.Text)
	if m.Error != "" {
		fmt.Fprintf(&b, "\nerror: %s", m.Error)
	}
	return b.String()
}

// Channel is a single delivery target.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, m Message) error
}
