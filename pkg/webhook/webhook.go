package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/swarmdock/backend/pkg/logger"
)

// Sender posts JSON payloads to a single endpoint with retries.
type Sender struct {
	endpoint string
	client   *http.Client
	secret   string
	retries  int
	backoff  Backoff
	timeout  time.Duration
	breaker  *CircuitBreaker
	headers  http.Header
	logger   *slog.Logger
}

func NewSender(endpoint string, opts ...Option) (*Sender, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, endpoint)
	}

	s := &Sender{
		endpoint: endpoint,
		client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		retries:  3,
		backoff:  ExponentialBackoff{Initial: time.Second, Max: 30 * time.Second, Jitter: 0.1},
		timeout:  10 * time.Second,
		headers:  http.Header{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("webhook"))
	return s, nil
}

// Send marshals data and delivers it. 4xx answers other than 408 and 429
// are not retried.
func (s *Sender) Send(ctx context.Context, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if s.breaker != nil && !s.breaker.Allow() {
		return ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff.Next(attempt)):
			}
		}

		status, err := s.deliver(ctx, payload)
		if s.breaker != nil {
			s.breaker.Record(err)
		}
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.WarnContext(ctx, "webhook delivery attempt failed",
			slog.Int("attempt", attempt+1), slog.Int("status", status), logger.Error(err))

		if permanent(status) {
			return fmt.Errorf("%w: %w", ErrPermanentFailure, err)
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, s.retries+1, lastErr)
}

func (s *Sender) deliver(ctx context.Context, payload []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header = s.headers.Clone()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "swarmdock-webhook/1.0")

	if s.secret != "" {
		ts := time.Now().Unix()
		sig, err := Sign(s.secret, ts, payload)
		if err != nil {
			return 0, err
		}
		req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(HeaderSignature, sig)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.ReplaceAll(strings.TrimSpace(string(body)), "\n", " ")
	return resp.StatusCode, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, msg)
}

func permanent(status int) bool {
	if status < 400 || status >= 500 {
		return false
	}
	return status != http.StatusRequestTimeout && status != http.StatusTooManyRequests
}
