// Package saferate calls the remote get_exchange_rate_safe database function
// over a PostgREST RPC endpoint.
package saferate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amirasaad/fxrates/infra/provider"
	"github.com/amirasaad/fxrates/pkg/provider/exchange"
	"github.com/tidwall/gjson"
)

const (
	Name    = "safe-rate"
	rpcPath = "/rest/v1/rpc/get_exchange_rate_safe"
)

// Config describes the RPC endpoint.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client implements exchange.SafeRateProvider.
type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// New creates a safe-rate client.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		client: provider.NewHTTPClient(cfg.Timeout),
		logger: logger.With("provider", Name),
	}
}

func (c *Client) Name() string { return Name }

type rpcRequest struct {
	From string `json:"p_from_currency"`
	To   string `json:"p_to_currency"`
}

// SafeRate returns the remote rate for from to to, or nil when the function
// returns no row.
func (c *Client) SafeRate(ctx context.Context, from, to string) (*exchange.SafeRate, error) {
	payload, err := json.Marshal(rpcRequest{From: from, To: to})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost,
		strings.TrimRight(c.cfg.URL, "/")+rpcPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("apikey", c.cfg.APIKey)
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	body, err := provider.Do(ctx, c.client, req)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response")
	}

	row := gjson.ParseBytes(body)
	if row.IsArray() {
		row = row.Get("0")
	}
	rate := row.Get("rate")
	if !row.IsObject() || !rate.Exists() || rate.Type == gjson.Null {
		c.logger.Debug("no remote rate", "from", from, "to", to)
		return nil, nil
	}

	out := &exchange.SafeRate{
		Rate:         rate.Float(),
		IsInverted:   row.Get("is_inverted").Bool(),
		QualityScore: 1,
	}
	if q := row.Get("quality_score"); q.Type == gjson.Number {
		out.QualityScore = q.Float()
	}
	return out, nil
}

var _ exchange.SafeRateProvider = (*Client)(nil)
