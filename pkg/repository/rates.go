package repository

import (
	"context"
	"time"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
)

// RateStore persists directed rate pairs keyed by (from, to).
// GetPair returns nil, nil when no row exists.
type RateStore interface {
	GetPair(ctx context.Context, from, to string) (*core.RatePair, error)
	ListFrom(ctx context.Context, from string) ([]core.RatePair, error)
	ListAll(ctx context.Context) ([]core.RatePair, error)
	UpsertPairs(ctx context.Context, pairs []core.RatePair) error
	// UpsertCryptoRates writes the secondary crypto table read by older clients.
	UpsertCryptoRates(ctx context.Context, pairs []core.RatePair) error
	ListCryptoRates(ctx context.Context) ([]core.RatePair, error)
	// LatestUpdate returns the zero time when the store is empty.
	LatestUpdate(ctx context.Context) (time.Time, error)
	Count(ctx context.Context) (int64, error)
}

// CurrencyStore persists currency metadata keyed by code.
// GetCurrency returns nil, nil for unknown codes.
type CurrencyStore interface {
	GetCurrency(ctx context.Context, code string) (*core.CurrencyMeta, error)
	ListCurrencies(ctx context.Context) ([]core.CurrencyMeta, error)
	UpsertCurrencies(ctx context.Context, metas []core.CurrencyMeta) error
	CountCurrencies(ctx context.Context) (int64, error)
}

// SnapshotCache keeps the last good ingestion result, including past its TTL.
// Load returns core.ErrNoSnapshot when nothing was saved.
type SnapshotCache interface {
	Save(ctx context.Context, snap core.Snapshot) error
	Load(ctx context.Context) (*core.Snapshot, error)
	LastUpdated(ctx context.Context) (time.Time, error)
}
