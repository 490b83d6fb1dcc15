package testutils

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/amirasaad/fxrates/infra/cache"
	infraeventbus "github.com/amirasaad/fxrates/infra/eventbus"
	"github.com/amirasaad/fxrates/infra/repository/memory"
	"github.com/amirasaad/fxrates/pkg/app"
	"github.com/amirasaad/fxrates/pkg/config"
	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/provider/exchange"
	pkgtestutils "github.com/amirasaad/fxrates/pkg/testutils"
)

// StaticFeed serves fixed rows, or Err when set.
type StaticFeed struct {
	FeedName string
	Rows     []core.RatePair
	Err      error
}

func (f *StaticFeed) Name() string {
	if f.FeedName == "" {
		return "static"
	}
	return f.FeedName
}

func (f *StaticFeed) Kind() exchange.FeedKind { return exchange.FeedFiat }

func (f *StaticFeed) Fetch(context.Context) ([]core.RatePair, error) {
	return f.Rows, f.Err
}

// AppOptions seeds the in-memory app used by handler tests.
type AppOptions struct {
	Pairs      []core.RatePair
	Currencies []core.CurrencyMeta
	Feeds      []exchange.Feed
	RateLimit  *config.RateLimit
}

// DefaultPairs is a small canonical table: USD→PHP, USD→EUR, BTC→USD.
func DefaultPairs() []core.RatePair {
	now := time.Now()
	return []core.RatePair{
		{From: "USD", To: "PHP", Rate: 56, Source: "static", UpdatedAt: now},
		{From: "USD", To: "EUR", Rate: 0.9, Source: "static", UpdatedAt: now},
		{From: "BTC", To: "USD", Rate: 60000, Source: "static", UpdatedAt: now},
	}
}

// DefaultCurrencies has metadata for the codes in DefaultPairs.
func DefaultCurrencies() []core.CurrencyMeta {
	return []core.CurrencyMeta{
		{Code: "USD", Name: "US Dollar", Type: core.CurrencyFiat, Symbol: "$", Decimals: 2, Active: true},
		{Code: "PHP", Name: "Philippine Peso", Type: core.CurrencyFiat, Symbol: "₱", Decimals: 2, Active: true},
		{Code: "EUR", Name: "Euro", Type: core.CurrencyFiat, Symbol: "€", Decimals: 2, Active: true},
		{Code: "BTC", Name: "Bitcoin", Type: core.CurrencyCrypto, Symbol: "₿", Decimals: 8, Active: true},
	}
}

// NewApp builds an app on in-memory infrastructure.
func NewApp(tb testing.TB, opts AppOptions) *app.App {
	tb.Helper()
	logger := pkgtestutils.DiscardLogger()
	deps := &app.Deps{
		RateStore:  memory.NewRateStore(opts.Pairs...),
		Currencies: memory.NewCurrencyStore(opts.Currencies...),
		Snapshots:  cache.NewMemorySnapshotCache(),
		Feeds:      opts.Feeds,
		EventBus:   infraeventbus.NewWithMemory(logger),
		Logger:     logger,
	}
	cfg := &config.App{
		Env:       "test",
		RateLimit: opts.RateLimit,
		Exchange: &config.Exchange{
			TTL:             time.Hour,
			StaleAfter:      24 * time.Hour,
			FetchTimeout:    time.Second,
			RefreshInterval: time.Hour,
			Bases:           []string{"USD", "PHP"},
			InvertedQuality: 0.95,
		},
	}
	return app.New(deps, cfg)
}

// Envelope mirrors common.Response with a typed payload.
type Envelope[T any] struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Decode reads a JSON envelope from resp and closes the body.
func Decode[T any](tb testing.TB, resp *http.Response) Envelope[T] {
	tb.Helper()
	defer resp.Body.Close() //nolint: errcheck
	var env Envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		tb.Fatalf("decode response: %v", err)
	}
	return env
}
