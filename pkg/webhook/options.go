package webhook

import (
	"log/slog"
	"net/http"
	"time"
)

type Option func(*Sender)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) {
		if c != nil {
			s.client = c
		}
	}
}

// WithSecret signs every payload with HeaderSignature/HeaderTimestamp.
func WithSecret(secret string) Option {
	return func(s *Sender) { s.secret = secret }
}

func WithRetries(n int, b Backoff) Option {
	return func(s *Sender) {
		if n >= 0 {
			s.retries = n
		}
		if b != nil {
			s.backoff = b
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(s *Sender) { s.breaker = cb }
}

func WithHeader(key, value string) Option {
	return func(s *Sender) {
		if key != "" {
			s.headers.Set(key, value)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sender) {
		if l != nil {
			s.logger = l
		}
	}
}
