// Package resolver turns a sparse set of stored pairs into a rate for any
// two currencies.
//
// Tiers are tried in a fixed order and the first success wins:
// identity, direct row, inverted reverse row, triangulation through each
// base currency (USD, then PHP), and finally the remote safe-rate function.
// Rows holding zero, negative or non-finite rates are treated as missing.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/provider/exchange"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultInvertedQuality is the quality score of a reciprocal rate.
	DefaultInvertedQuality = 0.95
	// DefaultPrimaryBase is tried first for triangulation.
	DefaultPrimaryBase = "USD"
	// DefaultSecondaryBase is tried when the primary base fails.
	DefaultSecondaryBase = "PHP"
	// DefaultTimeout bounds a shared resolution once its first caller has gone.
	DefaultTimeout = 10 * time.Second
)

// Resolver resolves currency pairs through an ordered list of strategies.
type Resolver struct {
	strategies []Strategy
	cache      *expirable.LRU[string, core.ResolvedRate]
	group      singleflight.Group
	// generation is bumped by Purge; results computed under an older
	// generation are returned but never cached.
	generation atomic.Uint64
	timeout    time.Duration
	logger     *slog.Logger
}

type options struct {
	bases           []string
	invertedQuality float64
	remote          exchange.SafeRateProvider
	cacheSize       int
	cacheTTL        time.Duration
	timeout         time.Duration
	logger          *slog.Logger
}

// Option configures a Resolver.
type Option func(*options)

// WithBases sets the triangulation bases in the order they are tried.
func WithBases(bases ...string) Option {
	return func(o *options) { o.bases = bases }
}

// WithInvertedQuality overrides the quality score of inverted rates.
func WithInvertedQuality(q float64) Option {
	return func(o *options) { o.invertedQuality = q }
}

// WithRemote enables the remote safe-rate tier.
func WithRemote(p exchange.SafeRateProvider) Option {
	return func(o *options) { o.remote = p }
}

// WithCache keeps up to size store-backed resolutions for ttl.
func WithCache(size int, ttl time.Duration) Option {
	return func(o *options) {
		o.cacheSize = size
		o.cacheTTL = ttl
	}
}

// WithTimeout bounds each shared resolution.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds the standard tier list over store.
func New(store PairReader, opts ...Option) *Resolver {
	o := options{
		bases:           []string{DefaultPrimaryBase, DefaultSecondaryBase},
		invertedQuality: DefaultInvertedQuality,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	direct := Direct{Store: store}
	inverted := Inverted{Store: store, Quality: o.invertedQuality}
	strategies := []Strategy{Identity{}, direct, inverted}
	for _, base := range o.bases {
		strategies = append(strategies, Triangulated{
			Base: core.NormalizeCode(base),
			Legs: []Strategy{direct, inverted},
		})
	}
	if o.remote != nil {
		strategies = append(strategies, Remote{Provider: o.remote})
	}

	r := NewWithStrategies(o.logger, strategies...)
	if o.timeout > 0 {
		r.timeout = o.timeout
	}
	if o.cacheSize > 0 {
		r.cache = expirable.NewLRU[string, core.ResolvedRate](o.cacheSize, nil, o.cacheTTL)
	}
	return r
}

// NewWithStrategies builds a resolver over an explicit tier list.
func NewWithStrategies(logger *slog.Logger, strategies ...Strategy) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		strategies: strategies,
		timeout:    DefaultTimeout,
		logger:     logger.With("component", "resolver"),
	}
}

// Resolve returns the best available rate for from→to, or an error wrapping
// core.ErrRateUnavailable when every tier failed. Codes are matched
// case-insensitively.
func (r *Resolver) Resolve(ctx context.Context, from, to string) (core.ResolvedRate, error) {
	f, err := core.ParseCode(from)
	if err != nil {
		return core.ResolvedRate{}, err
	}
	t, err := core.ParseCode(to)
	if err != nil {
		return core.ResolvedRate{}, err
	}

	key := f + ":" + t
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			return cached, nil
		}
	}

	// Callers share one lookup per generation. It is detached from the
	// first caller's context.
	gen := r.generation.Load()
	ch := r.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.resolve(sctx, f, t)
	})

	var out singleflight.Result
	select {
	case <-ctx.Done():
		return core.ResolvedRate{}, ctx.Err()
	case out = <-ch:
	}
	if out.Err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.ResolvedRate{}, ctxErr
		}
		return core.ResolvedRate{}, out.Err
	}
	res := out.Val.(core.ResolvedRate)
	if r.cache != nil && cacheable(res.PathUsed) && r.generation.Load() == gen {
		r.cache.Add(key, res)
	}
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, from, to string) (core.ResolvedRate, error) {
	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return core.ResolvedRate{}, err
		}
		res, ok, err := s.TryResolve(ctx, from, to)
		if err != nil {
			r.logger.Warn("resolution tier failed",
				"strategy", s.Name(), "from", from, "to", to, "error", err)
			continue
		}
		if ok {
			r.logger.Debug("rate resolved",
				"strategy", s.Name(), "from", from, "to", to,
				"rate", res.Rate, "quality", res.QualityScore)
			return res, nil
		}
	}
	return core.ResolvedRate{}, fmt.Errorf("%w: %s to %s", core.ErrRateUnavailable, from, to)
}

// IsPairAvailable reports whether Resolve would succeed for the pair.
func (r *Resolver) IsPairAvailable(ctx context.Context, from, to string) bool {
	_, err := r.Resolve(ctx, from, to)
	return err == nil
}

// Purge drops cached resolutions. It is called after every ingestion.
// Lookups already in flight still answer their callers but are not cached.
func (r *Resolver) Purge() {
	r.generation.Add(1)
	if r.cache != nil {
		r.cache.Purge()
	}
}

func cacheable(p core.Path) bool {
	switch p {
	case core.PathDirect, core.PathInverted, core.PathTriangulated:
		return true
	default:
		return false
	}
}
