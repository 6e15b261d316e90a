// Package arbor is a client for the Arbor wallet HTTP API.
package arbor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/Proton-105/arbor-bot/internal/errors"
	"github.com/Proton-105/arbor-bot/pkg/config"
	"github.com/Proton-105/arbor-bot/pkg/logger"
	"github.com/Proton-105/arbor-bot/pkg/metrics"
)

const (
	apiName = "arbor"
	// UnitExponent converts whole coins typed by users into the smallest unit.
	UnitExponent = 12
	maxBodyBytes = 1 << 20
)

// Client talks to the Arbor wallet service. Every call goes through a circuit breaker.
type Client struct {
	baseURL string
	fork    string
	http    *http.Client
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCircuitBreaker replaces the default circuit breaker.
func WithCircuitBreaker(cb *apperrors.CircuitBreaker) Option {
	return func(c *Client) {
		if cb != nil {
			c.breaker = cb
		}
	}
}

// NewClient creates a Client for cfg.API.
func NewClient(cfg config.ArborConfig, log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	fork := cfg.Fork
	if fork == "" {
		fork = "xch"
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.API, "/"),
		fork:    fork,
		http:    &http.Client{Timeout: timeout},
		log:     log.With(slog.String("component", "arbor_client")),
	}
	c.breaker = apperrors.NewCircuitBreaker(BreakerSettings(), c.log)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BreakerSettings guards the wallet service. Calls abandoned by the caller, such as a
// conversation cancelled mid-request, do not count against the service.
func BreakerSettings() apperrors.BreakerSettings {
	settings := apperrors.DefaultBreakerSettings(apiName)
	settings.IsFailure = func(err error) bool {
		return !errors.Is(err, context.Canceled)
	}
	return settings
}

// Keygen asks the service for a fresh mnemonic and keypair.
func (c *Client) Keygen(ctx context.Context) (*KeygenResponse, error) {
	var resp KeygenResponse
	if err := c.do(ctx, "keygen", http.MethodGet, "/keygen", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateWallet derives the address of publicKey on the configured fork.
func (c *Client) CreateWallet(ctx context.Context, publicKey string) (*WalletResponse, error) {
	var resp WalletResponse
	req := walletRequest{PublicKey: publicKey, Fork: c.fork}
	if err := c.do(ctx, "wallet", http.MethodPost, "/wallet", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Recover rebuilds the keypair of a mnemonic phrase.
func (c *Client) Recover(ctx context.Context, phrase string) (*RecoverResponse, error) {
	var resp RecoverResponse
	if err := c.do(ctx, "recover", http.MethodPost, "/recover", recoverRequest{Phrase: phrase}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Balance returns the balance of address in the smallest unit.
func (c *Client) Balance(ctx context.Context, address string) (*BalanceResponse, error) {
	var resp BalanceResponse
	if err := c.do(ctx, "balance", http.MethodPost, "/balance", addressRequest{Address: address}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Transactions returns the history of address.
func (c *Client) Transactions(ctx context.Context, address string) (*TransactionsResponse, error) {
	var resp TransactionsResponse
	if err := c.do(ctx, "transactions", http.MethodPost, "/transactions", addressRequest{Address: address}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Send transfers amount whole coins to destination. The amount is scaled to the smallest unit
// and truncated toward zero.
func (c *Client) Send(ctx context.Context, privateKey string, amount decimal.Decimal, destination string) (*SendResponse, error) {
	var resp SendResponse
	req := sendRequest{
		PrivateKey:  privateKey,
		Amount:      json.Number(ScaleAmount(amount).String()),
		Destination: destination,
	}
	if err := c.do(ctx, "send", http.MethodPost, "/send", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScaleAmount converts whole coins into the integer amount expected by /send.
// Digits below the smallest unit are dropped.
func ScaleAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Shift(UnitExponent).Truncate(0)
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body, out any) error {
	start := time.Now()

	err := c.breaker.Call(func() error {
		return c.roundTrip(ctx, method, path, body, out)
	})

	status := "ok"
	switch {
	case errors.Is(err, apperrors.ErrCircuitOpen):
		status = "circuit_open"
	case err != nil:
		status = "error"
	}
	metrics.RecordArborRequest(endpoint, status, time.Since(start))

	if err != nil {
		c.log.Warn("arbor request failed",
			slog.String("endpoint", endpoint),
			slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
			slog.Any("error", err),
		)
		return apperrors.NewExternalAPIError(apiName, err)
	}

	c.log.Debug("arbor request completed",
		slog.String("endpoint", endpoint),
		slog.Duration("duration", time.Since(start)),
	)

	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}

	return nil
}
