// Package openexchange fetches fiat rates from exchangerate-api style
// endpoints that return a base currency and a map of quotes.
package openexchange

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/amirasaad/fxrates/infra/provider"
	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/provider/exchange"
	"github.com/tidwall/gjson"
)

const Name = "openexchange"

// Config describes the upstream endpoint. URL may contain {base} and
// {api_key} placeholders.
type Config struct {
	URL       string
	APIKey    string
	Base      string
	RatesPath string
	Timeout   time.Duration
}

// Feed implements exchange.Feed.
type Feed struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// New creates a fiat feed.
func New(cfg Config, logger *slog.Logger) *Feed {
	if cfg.Base == "" {
		cfg.Base = "USD"
	}
	if cfg.RatesPath == "" {
		cfg.RatesPath = "rates"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		cfg:    cfg,
		client: provider.NewHTTPClient(cfg.Timeout),
		logger: logger.With("provider", Name),
	}
}

func (f *Feed) Name() string            { return Name }
func (f *Feed) Kind() exchange.FeedKind { return exchange.FeedFiat }

// Fetch returns one row per quoted currency, base to quote. Quotes that are
// not numbers are returned as NaN so ingestion can count them.
func (f *Feed) Fetch(ctx context.Context) ([]core.RatePair, error) {
	base := core.NormalizeCode(f.cfg.Base)
	url := strings.NewReplacer("{base}", base, "{api_key}", f.cfg.APIKey).Replace(f.cfg.URL)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.cfg.APIKey != "" && !strings.Contains(f.cfg.URL, "{api_key}") {
		req.Header.Set("Authorization", "Bearer "+f.cfg.APIKey)
	}

	body, err := provider.Do(ctx, f.client, req)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response")
	}
	if result := gjson.GetBytes(body, "result"); result.Exists() && result.String() != "success" {
		return nil, fmt.Errorf("API returned result=%s: %s",
			result.String(), gjson.GetBytes(body, "error-type").String())
	}

	rates := gjson.GetBytes(body, f.cfg.RatesPath)
	if !rates.IsObject() {
		return nil, fmt.Errorf("response has no %q object", f.cfg.RatesPath)
	}

	var rows []core.RatePair
	rates.ForEach(func(key, value gjson.Result) bool {
		rate := math.NaN()
		if value.Type == gjson.Number {
			rate = value.Float()
		}
		rows = append(rows, core.RatePair{From: base, To: key.String(), Rate: rate})
		return true
	})
	f.logger.Debug("fetched fiat rates", "base", base, "count", len(rows))
	return rows, nil
}

var _ exchange.Feed = (*Feed)(nil)
