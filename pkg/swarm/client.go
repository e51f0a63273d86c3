package swarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/swarmdock/backend/pkg/bzz"
	"github.com/swarmdock/backend/pkg/logger"
)

// devBalance is what the wallet reports when the node runs in dev mode,
// where there is no chequebook to query.
const devBalance = 99999999

// Client talks to a Bee node's HTTP API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	cfg     Config
	logger  *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default otelhttp instrumented client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

func New(cfg Config, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Join(ErrInvalidParameters, fmt.Errorf("bee url %q", cfg.URL), err)
	}

	c := &Client{
		baseURL: u,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("bee"))
	return c, nil
}

// CreateBatch buys a postage batch and blocks until Bee reports it usable
// or cfg.UsableTimeout passes. The batch id is returned in both cases so
// the caller can still record it.
func (c *Client) CreateBatch(ctx context.Context, amount *big.Int, depth int) (string, error) {
	if amount == nil || amount.Sign() <= 0 || depth <= 0 {
		return "", ErrInvalidParameters
	}

	headers := map[string]string{"Immutable": strconv.FormatBool(c.cfg.Immutable)}
	var res batchIDResponse
	path := fmt.Sprintf("/stamps/%s/%d", amount.String(), depth)
	// Bee answers only after the purchase transaction is mined.
	if err := c.request(ctx, c.cfg.UsableTimeout, http.MethodPost, path, headers, &res); err != nil {
		return "", err
	}
	if res.BatchID == "" {
		return "", ErrInvalidResponse
	}

	c.logger.InfoContext(ctx, "postage batch created, waiting until usable",
		logger.BatchID(res.BatchID), logger.Depth(depth), logger.Amount(amount.String()))

	return res.BatchID, c.waitUsable(ctx, res.BatchID)
}

func (c *Client) waitUsable(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.UsableTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		b, err := c.GetBatch(ctx, id)
		switch {
		case err == nil && b.Usable:
			return nil
		case err != nil && !errors.Is(err, ErrBatchNotFound):
			c.logger.WarnContext(ctx, "polling postage batch failed", logger.BatchID(id), logger.Error(err))
		}

		select {
		case <-ctx.Done():
			return errors.Join(ErrBatchNotUsable, ctx.Err())
		case <-ticker.C:
		}
	}
}

// TopUpBatch adds amount PLUR per chunk to the batch. No-op in dev mode.
func (c *Client) TopUpBatch(ctx context.Context, id string, amount *big.Int) error {
	if id == "" {
		return ErrInvalidBatchID
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidParameters
	}
	if c.skipInDev(ctx, "top up", id) {
		return nil
	}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/stamps/topup/%s/%s", id, amount.String()), nil, nil)
}

// DiluteBatch raises the batch depth. No-op in dev mode.
func (c *Client) DiluteBatch(ctx context.Context, id string, depth int) error {
	if id == "" {
		return ErrInvalidBatchID
	}
	if depth <= 0 {
		return ErrInvalidParameters
	}
	if c.skipInDev(ctx, "dilute", id) {
		return nil
	}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/stamps/dilute/%s/%d", id, depth), nil, nil)
}

// GetBatch returns ErrBatchNotFound when the node does not know id.
func (c *Client) GetBatch(ctx context.Context, id string) (*Batch, error) {
	if id == "" {
		return nil, ErrInvalidBatchID
	}
	var b Batch
	if err := c.do(ctx, http.MethodGet, "/stamps/"+url.PathEscape(id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBatches returns every batch owned by the node.
func (c *Client) ListBatches(ctx context.Context) ([]Batch, error) {
	var res stampsResponse
	if err := c.do(ctx, http.MethodGet, "/stamps", nil, &res); err != nil {
		return nil, err
	}
	return res.Stamps, nil
}

// WalletBalance returns the node's BZZ balance.
func (c *Client) WalletBalance(ctx context.Context) (bzz.Amount, error) {
	dev, err := c.IsDev(ctx)
	if err != nil {
		return bzz.Amount{}, err
	}
	if dev {
		return bzz.FromBZZ(devBalance), nil
	}

	var res walletResponse
	if err := c.do(ctx, http.MethodGet, "/wallet", nil, &res); err != nil {
		return bzz.Amount{}, err
	}
	amount, err := bzz.ParsePLUR(res.BZZBalance)
	if err != nil {
		return bzz.Amount{}, errors.Join(ErrInvalidResponse, err)
	}
	return amount, nil
}

// IsDev reports whether the node runs in dev mode.
func (c *Client) IsDev(ctx context.Context) (bool, error) {
	var res nodeResponse
	if err := c.do(ctx, http.MethodGet, "/node", nil, &res); err != nil {
		return false, err
	}
	return res.BeeMode == "dev", nil
}

func (c *Client) skipInDev(ctx context.Context, op, id string) bool {
	dev, err := c.IsDev(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "could not read bee mode", logger.Error(err))
		return false
	}
	if dev {
		c.logger.InfoContext(ctx, "skipping "+op+" because bee is running in dev mode", logger.BatchID(id))
	}
	return dev
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, out any) error {
	return c.request(ctx, c.cfg.RequestTimeout, method, path, headers, out)
}

func (c *Client) request(ctx context.Context, timeout time.Duration, method, path string, headers map[string]string, out any) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	u := c.baseURL.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}

	if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/stamps/") && method == http.MethodGet {
		return ErrBatchNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Message != "" {
			apiErr.Message = e.Message
		}
		return errors.Join(ErrRequestFailed, apiErr)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Join(ErrInvalidResponse, err)
	}
	return nil
}
