package core

import (
	"time"

	"github.com/google/uuid"
)

// Path identifies the strategy that produced a resolved rate.
type Path string

const (
	PathIdentity     Path = "identity"
	PathDirect       Path = "direct"
	PathInverted     Path = "inverted"
	PathTriangulated Path = "triangulated"
	PathProvider     Path = "provider"
)

// Well-known sources attached to stored pairs.
const (
	SourcePrimaryTable  = "primary_table"
	SourceFallbackTable = "fallback_table"
	SourceCache         = "cache"
)

// CurrencyType classifies a currency code.
type CurrencyType string

const (
	CurrencyFiat    CurrencyType = "fiat"
	CurrencyCrypto  CurrencyType = "crypto"
	CurrencyUnknown CurrencyType = "unknown"
)

// DefaultDecimals is used for conversion output when a currency has no metadata.
const DefaultDecimals = 2

// RatePair is a directed exchange rate: Rate units of To per 1 unit of From.
type RatePair struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Rate      float64   `json:"rate"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Key returns the directed lookup key of the pair.
func (p RatePair) Key() string {
	return p.From + ":" + p.To
}

// IsExpired reports whether the pair is past its expiry at t.
func (p RatePair) IsExpired(t time.Time) bool {
	return !p.ExpiresAt.IsZero() && t.After(p.ExpiresAt)
}

// CurrencyMeta describes a currency code.
type CurrencyMeta struct {
	Code     string       `json:"code"`
	Name     string       `json:"name"`
	Type     CurrencyType `json:"type"`
	Symbol   string       `json:"symbol"`
	Decimals int          `json:"decimals"`
	Country  string       `json:"country,omitempty"`
	Region   string       `json:"region,omitempty"`
	Active   bool         `json:"active"`
}

// ResolvedRate is the outcome of a successful resolution.
type ResolvedRate struct {
	Rate         float64   `json:"rate"`
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	IsInverted   bool      `json:"is_inverted"`
	PathUsed     Path      `json:"path_used"`
	QualityScore float64   `json:"quality_score"`
	Via          string    `json:"via,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// ConversionResult is the rounded output of a conversion.
type ConversionResult struct {
	FromAmount   float64 `json:"from_amount"`
	FromCurrency string  `json:"from_currency"`
	ToAmount     float64 `json:"to_amount"`
	ToCurrency   string  `json:"to_currency"`
	Rate         float64 `json:"rate"`
	RateRounded  float64 `json:"rate_rounded"`
	PathUsed     Path    `json:"path_used"`
	QualityScore float64 `json:"quality_score"`
}

// IngestResult summarises one ingestion run.
type IngestResult struct {
	RunID       uuid.UUID `json:"run_id"`
	StoredCount int       `json:"stored_count"`
	Source      string    `json:"source"`
	Discarded   int       `json:"discarded"`
	Stale       bool      `json:"stale"`
	Degraded    bool      `json:"degraded"`
	// FromCache is set when no provider was fetched in this run.
	FromCache   bool      `json:"from_cache"`
	Warning     string    `json:"warning,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Snapshot is the last successfully ingested rate set.
type Snapshot struct {
	FetchedAt time.Time  `json:"fetched_at"`
	Source    string     `json:"source"`
	Pairs     []RatePair `json:"pairs"`
}

// Age returns how old the snapshot is at t.
func (s Snapshot) Age(t time.Time) time.Duration {
	return t.Sub(s.FetchedAt)
}

// FetchStatus reports data freshness for callers that display rates.
type FetchStatus struct {
	Available         bool      `json:"available"`
	FetchedAt         time.Time `json:"fetched_at,omitempty"`
	Source            string    `json:"source,omitempty"`
	PairCount         int64     `json:"pair_count"`
	IsFresh           bool      `json:"is_fresh"`
	Stale             bool      `json:"stale"`
	Estimated         bool      `json:"estimated"`
	MinutesSinceFetch int       `json:"minutes_since_fetch"`
}
