// Package coingecko fetches crypto prices from the CoinGecko simple price API.
package coingecko

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/amirasaad/fxrates/infra/provider"
	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/provider/exchange"
	"github.com/tidwall/gjson"
)

const Name = "coingecko"

// Tickers maps CoinGecko coin ids to currency codes.
var Tickers = map[string]string{
	"bitcoin":           "BTC",
	"ethereum":          "ETH",
	"tether":            "USDT",
	"usd-coin":          "USDC",
	"binancecoin":       "BNB",
	"ripple":            "XRP",
	"cardano":           "ADA",
	"solana":            "SOL",
	"dogecoin":          "DOGE",
	"polkadot":          "DOT",
	"litecoin":          "LTC",
	"bitcoin-cash":      "BCH",
	"chainlink":         "LINK",
	"stellar":           "XLM",
	"uniswap":           "UNI",
	"aave":              "AAVE",
	"avalanche-2":       "AVAX",
	"matic-network":     "MATIC",
	"tron":              "TRX",
	"shiba-inu":         "SHIB",
	"wrapped-bitcoin":   "WBTC",
	"dai":               "DAI",
	"cosmos":            "ATOM",
	"monero":            "XMR",
	"ethereum-classic":  "ETC",
	"the-open-network":  "TON",
	"near":              "NEAR",
	"algorand":          "ALGO",
	"hedera-hashgraph":  "HBAR",
	"sui":               "SUI",
	"pax-gold":          "PAXG",
	"binance-usd":       "BUSD",
}

// Config describes the upstream endpoint.
type Config struct {
	URL          string
	APIKey       string
	VsCurrencies []string
	Timeout      time.Duration
}

// Feed implements exchange.Feed.
type Feed struct {
	cfg    Config
	ids    []string
	client *http.Client
	logger *slog.Logger
}

// New creates a crypto feed quoting every coin in Tickers.
func New(cfg Config, logger *slog.Logger) *Feed {
	if len(cfg.VsCurrencies) == 0 {
		cfg.VsCurrencies = []string{"usd"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	ids := make([]string, 0, len(Tickers))
	for id := range Tickers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &Feed{
		cfg:    cfg,
		ids:    ids,
		client: provider.NewHTTPClient(cfg.Timeout),
		logger: logger.With("provider", Name),
	}
}

func (f *Feed) Name() string            { return Name }
func (f *Feed) Kind() exchange.FeedKind { return exchange.FeedCrypto }

// Fetch returns coin to vs-currency rows, e.g. BTC to USD.
func (f *Feed) Fetch(ctx context.Context) ([]core.RatePair, error) {
	vs := make([]string, 0, len(f.cfg.VsCurrencies))
	for _, v := range f.cfg.VsCurrencies {
		vs = append(vs, strings.ToLower(strings.TrimSpace(v)))
	}

	q := url.Values{}
	q.Set("ids", strings.Join(f.ids, ","))
	q.Set("vs_currencies", strings.Join(vs, ","))
	endpoint := strings.TrimRight(f.cfg.URL, "/") + "/simple/price?" + q.Encode()

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.cfg.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", f.cfg.APIKey)
	}

	body, err := provider.Do(ctx, f.client, req)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, fmt.Errorf("invalid JSON response")
	}

	var rows []core.RatePair
	gjson.ParseBytes(body).ForEach(func(id, prices gjson.Result) bool {
		ticker, ok := Tickers[id.String()]
		if !ok {
			return true
		}
		for _, v := range vs {
			price := prices.Get(v)
			if !price.Exists() {
				continue
			}
			rate := math.NaN()
			if price.Type == gjson.Number {
				rate = price.Float()
			}
			rows = append(rows, core.RatePair{From: ticker, To: strings.ToUpper(v), Rate: rate})
		}
		return true
	})
	f.logger.Debug("fetched crypto prices", "coins", len(f.ids), "count", len(rows))
	return rows, nil
}

var _ exchange.Feed = (*Feed)(nil)
