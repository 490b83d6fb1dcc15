package coingecko_test

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirasaad/fxrates/infra/provider/coingecko"
	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/provider/exchange"
	"github.com/amirasaad/fxrates/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
		assert.Equal(t, "usd,php", r.URL.Query().Get("vs_currencies"))
		assert.Contains(t, strings.Split(r.URL.Query().Get("ids"), ","), "bitcoin")
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		_, _ = w.Write([]byte(`{
			"bitcoin":{"usd":60000,"php":5800000},
			"ethereum":{"usd":3000},
			"cardano":{"usd":null,"php":25},
			"unknown-coin":{"usd":1}
		}`))
	}))
	defer srv.Close()

	feed := coingecko.New(coingecko.Config{
		URL:          srv.URL + "/api/v3/",
		APIKey:       "demo-key",
		VsCurrencies: []string{"USD", "php"},
	}, testutils.DiscardLogger())
	assert.Equal(t, exchange.FeedCrypto, feed.Kind())

	rows, err := feed.Fetch(context.Background())
	require.NoError(t, err)

	got := map[string]float64{}
	for _, r := range rows {
		got[r.Key()] = r.Rate
	}
	assert.Len(t, got, 5)
	assert.Equal(t, 60000.0, got["BTC:USD"])
	assert.Equal(t, 5800000.0, got["BTC:PHP"])
	assert.Equal(t, 3000.0, got["ETH:USD"])
	assert.True(t, math.IsNaN(got["ADA:USD"]))
	assert.Equal(t, 25.0, got["ADA:PHP"])
}

func TestFeed_FetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := coingecko.New(coingecko.Config{URL: srv.URL}, nil).Fetch(context.Background())
	require.Error(t, err)

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv2.Close()
	_, err = coingecko.New(coingecko.Config{URL: srv2.URL}, nil).Fetch(context.Background())
	require.Error(t, err)
}

func TestTickersAreValidCodes(t *testing.T) {
	for id, ticker := range coingecko.Tickers {
		code, err := core.ParseCode(ticker)
		require.NoError(t, err, id)
		assert.Equal(t, ticker, code)
	}
}
