package resolver

import (
	"context"
	"errors"
	"math"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/provider/exchange"
	"golang.org/x/sync/errgroup"
)

// Strategy is one resolution tier.
//
// TryResolve reports ok=false when the tier has no usable rate for the pair.
// A non-nil error means the tier could not be consulted at all; the Resolver
// logs it and moves on to the next tier.
type Strategy interface {
	Name() core.Path
	TryResolve(ctx context.Context, from, to string) (core.ResolvedRate, bool, error)
}

// PairReader is the point lookup the store-backed strategies need.
type PairReader interface {
	GetPair(ctx context.Context, from, to string) (*core.RatePair, error)
}

// Identity resolves a currency to itself.
type Identity struct{}

func (Identity) Name() core.Path { return core.PathIdentity }

func (Identity) TryResolve(_ context.Context, from, to string) (core.ResolvedRate, bool, error) {
	if from != to {
		return core.ResolvedRate{}, false, nil
	}
	return core.ResolvedRate{
		Rate:         1,
		FromCurrency: from,
		ToCurrency:   to,
		PathUsed:     core.PathIdentity,
		QualityScore: 1,
	}, true, nil
}

// Direct reads the stored (from, to) row.
type Direct struct {
	Store PairReader
}

func (Direct) Name() core.Path { return core.PathDirect }

func (d Direct) TryResolve(ctx context.Context, from, to string) (core.ResolvedRate, bool, error) {
	p, err := d.Store.GetPair(ctx, from, to)
	if err != nil {
		return core.ResolvedRate{}, false, err
	}
	if p == nil || !core.ValidRate(p.Rate) {
		return core.ResolvedRate{}, false, nil
	}
	return core.ResolvedRate{
		Rate:         p.Rate,
		FromCurrency: from,
		ToCurrency:   to,
		PathUsed:     core.PathDirect,
		QualityScore: 1,
		UpdatedAt:    p.UpdatedAt,
	}, true, nil
}

// Inverted reads the stored (to, from) row and returns its reciprocal.
type Inverted struct {
	Store   PairReader
	Quality float64
}

func (Inverted) Name() core.Path { return core.PathInverted }

func (i Inverted) TryResolve(ctx context.Context, from, to string) (core.ResolvedRate, bool, error) {
	p, err := i.Store.GetPair(ctx, to, from)
	if err != nil {
		return core.ResolvedRate{}, false, err
	}
	if p == nil || !core.ValidRate(p.Rate) {
		return core.ResolvedRate{}, false, nil
	}
	// a subnormal reverse rate overflows to +Inf here
	inverted := 1 / p.Rate
	if !core.ValidRate(inverted) {
		return core.ResolvedRate{}, false, nil
	}
	return core.ResolvedRate{
		Rate:         inverted,
		FromCurrency: from,
		ToCurrency:   to,
		IsInverted:   true,
		PathUsed:     core.PathInverted,
		QualityScore: i.Quality,
		UpdatedAt:    p.UpdatedAt,
	}, true, nil
}

// Triangulated multiplies from→Base and Base→to. Each leg is resolved with
// Legs only, so a leg never triangulates again.
type Triangulated struct {
	Base string
	Legs []Strategy
}

func (Triangulated) Name() core.Path { return core.PathTriangulated }

func (t Triangulated) TryResolve(ctx context.Context, from, to string) (core.ResolvedRate, bool, error) {
	if from == t.Base || to == t.Base || from == to {
		return core.ResolvedRate{}, false, nil
	}

	var (
		g             errgroup.Group
		first, second core.ResolvedRate
		ok1, ok2      bool
	)
	g.Go(func() error {
		var err error
		first, ok1, err = firstOf(ctx, t.Legs, from, t.Base)
		return err
	})
	g.Go(func() error {
		var err error
		second, ok2, err = firstOf(ctx, t.Legs, t.Base, to)
		return err
	})
	err := g.Wait()
	if !ok1 || !ok2 {
		return core.ResolvedRate{}, false, err
	}

	rate := first.Rate * second.Rate
	if !core.ValidRate(rate) {
		return core.ResolvedRate{}, false, nil
	}
	updatedAt := first.UpdatedAt
	if second.UpdatedAt.Before(updatedAt) {
		updatedAt = second.UpdatedAt
	}
	return core.ResolvedRate{
		Rate:         rate,
		FromCurrency: from,
		ToCurrency:   to,
		IsInverted:   first.IsInverted || second.IsInverted,
		PathUsed:     core.PathTriangulated,
		QualityScore: first.QualityScore * second.QualityScore,
		Via:          t.Base,
		UpdatedAt:    updatedAt,
	}, true, nil
}

// firstOf returns the first successful leg. Errors are only reported when
// nothing succeeded.
func firstOf(ctx context.Context, legs []Strategy, from, to string) (core.ResolvedRate, bool, error) {
	var errs []error
	for _, s := range legs {
		r, ok, err := s.TryResolve(ctx, from, to)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return r, true, nil
		}
	}
	return core.ResolvedRate{}, false, errors.Join(errs...)
}

// Remote asks the safe-rate function when nothing local resolved.
type Remote struct {
	Provider exchange.SafeRateProvider
}

func (Remote) Name() core.Path { return core.PathProvider }

func (r Remote) TryResolve(ctx context.Context, from, to string) (core.ResolvedRate, bool, error) {
	sr, err := r.Provider.SafeRate(ctx, from, to)
	if err != nil {
		return core.ResolvedRate{}, false, &core.ProviderError{Provider: r.Provider.Name(), Err: err}
	}
	if sr == nil || !core.ValidRate(sr.Rate) {
		return core.ResolvedRate{}, false, nil
	}
	return core.ResolvedRate{
		Rate:         sr.Rate,
		FromCurrency: from,
		ToCurrency:   to,
		IsInverted:   sr.IsInverted,
		PathUsed:     core.PathProvider,
		QualityScore: clampQuality(sr.QualityScore),
	}, true, nil
}

func clampQuality(q float64) float64 {
	switch {
	case math.IsNaN(q) || q < 0:
		return 0
	case q > 1:
		return 1
	default:
		return q
	}
}
