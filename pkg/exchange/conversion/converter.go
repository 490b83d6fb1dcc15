package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/shopspring/decimal"
)

// RateDecimals is the precision of ConversionResult.RateRounded.
const RateDecimals = 6

// RateResolver resolves a pair.
type RateResolver interface {
	Resolve(ctx context.Context, from, to string) (core.ResolvedRate, error)
}

// CurrencyLookup returns metadata for a code, or nil when unknown.
type CurrencyLookup interface {
	GetCurrency(ctx context.Context, code string) (*core.CurrencyMeta, error)
}

// Converter multiplies amounts by resolved rates and rounds the output to
// the target currency's decimals.
type Converter struct {
	resolver   RateResolver
	currencies CurrencyLookup
	logger     *slog.Logger
}

// New creates a Converter. currencies may be nil, in which case every
// currency rounds to core.DefaultDecimals.
func New(resolver RateResolver, currencies CurrencyLookup, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		resolver:   resolver,
		currencies: currencies,
		logger:     logger.With("component", "converter"),
	}
}

// Convert converts amount from one currency to another.
func (c *Converter) Convert(ctx context.Context, amount float64, from, to string) (core.ConversionResult, error) {
	if !core.ValidAmount(amount) {
		return core.ConversionResult{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, amount)
	}

	resolved, err := c.resolver.Resolve(ctx, from, to)
	if err != nil {
		if errors.Is(err, core.ErrRateUnavailable) {
			c.logger.Info("conversion rate unavailable", "from", from, "to", to)
		}
		return core.ConversionResult{}, err
	}
	if !core.ValidRate(resolved.Rate) {
		return core.ConversionResult{}, fmt.Errorf("%w: %s to %s resolved to %v",
			core.ErrRateUnavailable, resolved.FromCurrency, resolved.ToCurrency, resolved.Rate)
	}

	// full precision until the output step
	raw := amount * resolved.Rate
	if !core.ValidRate(raw) {
		return core.ConversionResult{}, fmt.Errorf("%w: %v %s overflows in %s",
			core.ErrInvalidAmount, amount, resolved.FromCurrency, resolved.ToCurrency)
	}

	decimals := c.decimalsFor(ctx, resolved.ToCurrency)
	return core.ConversionResult{
		FromAmount:   amount,
		FromCurrency: resolved.FromCurrency,
		ToAmount:     Round(raw, decimals),
		ToCurrency:   resolved.ToCurrency,
		Rate:         resolved.Rate,
		RateRounded:  Round(resolved.Rate, RateDecimals),
		PathUsed:     resolved.PathUsed,
		QualityScore: resolved.QualityScore,
	}, nil
}

func (c *Converter) decimalsFor(ctx context.Context, code string) int {
	if c.currencies == nil {
		return core.DefaultDecimals
	}
	meta, err := c.currencies.GetCurrency(ctx, code)
	if err != nil {
		c.logger.Warn("currency metadata lookup failed", "code", code, "error", err)
		return core.DefaultDecimals
	}
	if meta == nil || meta.Decimals < 0 {
		return core.DefaultDecimals
	}
	return meta.Decimals
}

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int) float64 {
	return decimal.NewFromFloat(v).Round(int32(places)).InexactFloat64()
}
