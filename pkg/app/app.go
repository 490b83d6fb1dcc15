package app

import (
	"log/slog"

	"github.com/amirasaad/fxrates/pkg/config"
	"github.com/amirasaad/fxrates/pkg/eventbus"
	"github.com/amirasaad/fxrates/pkg/exchange/conversion"
	"github.com/amirasaad/fxrates/pkg/exchange/ingest"
	"github.com/amirasaad/fxrates/pkg/exchange/resolver"
	"github.com/amirasaad/fxrates/pkg/exchange/verify"
	"github.com/amirasaad/fxrates/pkg/provider/exchange"
	"github.com/amirasaad/fxrates/pkg/repository"
)

// Deps contains the infrastructure the rate engine is built on.
type Deps struct {
	RateStore  repository.RateStore
	Currencies repository.CurrencyStore
	Snapshots  repository.SnapshotCache
	// Feeds are polled in priority order.
	Feeds []exchange.Feed
	// SafeRate is optional.
	SafeRate exchange.SafeRateProvider
	EventBus eventbus.Bus
	Logger   *slog.Logger
	// Close releases infrastructure resources, may be nil.
	Close func() error
}

type App struct {
	Deps      *Deps
	Config    *config.App
	Resolver  *resolver.Resolver
	Converter *conversion.Converter
	Ingester  *ingest.Ingester
	Scheduler *ingest.Scheduler
	Verifier  *verify.Verifier
}

func New(deps *Deps, cfg *config.App) *App {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ex := cfg.Exchange
	if ex == nil {
		ex = &config.Exchange{}
	}

	opts := []resolver.Option{resolver.WithLogger(logger)}
	if len(ex.Bases) > 0 {
		opts = append(opts, resolver.WithBases(ex.Bases...))
	}
	if ex.InvertedQuality > 0 {
		opts = append(opts, resolver.WithInvertedQuality(ex.InvertedQuality))
	}
	if ex.CacheSize > 0 {
		opts = append(opts, resolver.WithCache(ex.CacheSize, ex.CacheTTL))
	}
	if deps.SafeRate != nil {
		opts = append(opts, resolver.WithRemote(deps.SafeRate))
	}

	ingestOpts := []ingest.Option{ingest.WithLogger(logger)}
	if deps.EventBus != nil {
		ingestOpts = append(ingestOpts, ingest.WithEventBus(deps.EventBus))
	}
	if ex.TTL > 0 {
		ingestOpts = append(ingestOpts, ingest.WithTTL(ex.TTL))
	}
	if ex.FetchTimeout > 0 {
		ingestOpts = append(ingestOpts, ingest.WithFetchTimeout(ex.FetchTimeout))
	}
	if ex.StaleAfter > 0 {
		ingestOpts = append(ingestOpts, ingest.WithStaleAfter(ex.StaleAfter))
	}

	a := &App{Deps: deps, Config: cfg}
	a.Resolver = resolver.New(deps.RateStore, opts...)
	var currencies conversion.CurrencyLookup
	if deps.Currencies != nil {
		currencies = deps.Currencies
	}
	a.Converter = conversion.New(a.Resolver, currencies, logger)
	a.Ingester = ingest.New(deps.RateStore, deps.Snapshots, deps.Feeds, ingestOpts...)
	a.Scheduler = ingest.NewScheduler(a.Ingester, ex.RefreshInterval, logger)
	a.Verifier = verify.New(deps.RateStore, a.Resolver, a.Converter, logger)
	a.setupEventBus()
	return a
}

// Close releases infrastructure held by Deps.
func (a *App) Close() error {
	if a.Deps.Close == nil {
		return nil
	}
	return a.Deps.Close()
}
