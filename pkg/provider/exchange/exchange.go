package exchange

import (
	"context"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
)

// FeedKind tells the ingester which tables a feed's rows belong to.
type FeedKind string

const (
	FeedFiat   FeedKind = "fiat"
	FeedCrypto FeedKind = "crypto"
)

// Feed is an upstream rate provider polled during ingestion.
//
// Fetch returns raw quotes as reported upstream. Rows may carry corrupt
// rates; the ingester filters them, so implementations must not drop them.
type Feed interface {
	Name() string
	Kind() FeedKind
	Fetch(ctx context.Context) ([]core.RatePair, error)
}

// SafeRate is the reply of the remote safe-rate function.
type SafeRate struct {
	Rate         float64
	IsInverted   bool
	QualityScore float64
}

// SafeRateProvider is the last-resort remote resolution tier.
// It returns nil, nil when the remote side knows no rate for the pair.
type SafeRateProvider interface {
	Name() string
	SafeRate(ctx context.Context, from, to string) (*SafeRate, error)
}
