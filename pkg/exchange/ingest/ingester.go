// Package ingest pulls rates from upstream feeds into the rate store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/fxrates/pkg/domain/events"
	"github.com/amirasaad/fxrates/pkg/eventbus"
	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/provider/exchange"
	"github.com/amirasaad/fxrates/pkg/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTTL          = time.Hour
	DefaultFetchTimeout = 10 * time.Second
	DefaultStaleAfter   = 24 * time.Hour
)

// Ingester runs ingestion cycles. Runs are idempotent upserts and may overlap.
type Ingester struct {
	store     repository.RateStore
	snapshots repository.SnapshotCache
	feeds     []exchange.Feed
	bus       eventbus.Bus

	ttl          time.Duration
	fetchTimeout time.Duration
	staleAfter   time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithEventBus publishes ingestion events on bus.
func WithEventBus(bus eventbus.Bus) Option {
	return func(i *Ingester) { i.bus = bus }
}

// WithTTL sets how long ingested rows stay fresh.
func WithTTL(ttl time.Duration) Option {
	return func(i *Ingester) { i.ttl = ttl }
}

// WithFetchTimeout bounds every feed call.
func WithFetchTimeout(d time.Duration) Option {
	return func(i *Ingester) { i.fetchTimeout = d }
}

// WithStaleAfter sets the snapshot age after which Status falls back to the
// newest stored row.
func WithStaleAfter(d time.Duration) Option {
	return func(i *Ingester) { i.staleAfter = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *Ingester) { i.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Ingester) { i.logger = l }
}

// New creates an Ingester. feeds are given in priority order: on
// conflicting rows the earlier feed wins.
func New(
	store repository.RateStore,
	snapshots repository.SnapshotCache,
	feeds []exchange.Feed,
	opts ...Option,
) *Ingester {
	i := &Ingester{
		store:        store,
		snapshots:    snapshots,
		feeds:        feeds,
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		staleAfter:   DefaultStaleAfter,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With("component", "ingester")
	return i
}

// Ingest is cache-first: when the store already holds rates nothing is
// fetched.
func (i *Ingester) Ingest(ctx context.Context) (core.IngestResult, error) {
	return i.run(ctx, false)
}

// Refresh fetches from every feed regardless of store contents.
func (i *Ingester) Refresh(ctx context.Context) (core.IngestResult, error) {
	return i.run(ctx, true)
}

type batch struct {
	feed exchange.Feed
	rows []core.RatePair
	err  error
}

func (i *Ingester) run(ctx context.Context, force bool) (core.IngestResult, error) {
	runID := uuid.New()
	log := i.logger.With("run_id", runID)

	if !force {
		n, err := i.store.Count(ctx)
		switch {
		case err != nil:
			log.Warn("rate store count failed, fetching", "error", err)
		case n > 0:
			latest, _ := i.store.LatestUpdate(ctx)
			log.Debug("rate store populated, skipping fetch", "pairs", n)
			return core.IngestResult{
				RunID:       runID,
				StoredCount: int(n),
				Source:      core.SourceCache,
				FromCache:   true,
				Stale:       !latest.IsZero() && i.now().Sub(latest) > i.ttl,
				FetchedAt:   latest,
			}, nil
		}
	}

	var (
		warnings  []string
		succeeded []batch
	)
	for _, b := range i.fetchAll(ctx, log) {
		if b.err != nil {
			warnings = append(warnings, b.err.Error())
			continue
		}
		succeeded = append(succeeded, b)
	}
	if len(succeeded) == 0 {
		return i.fallback(ctx, runID, log, warnings)
	}

	now := i.now()
	discarded := 0
	prioritized := make([][]core.RatePair, 0, len(succeeded))
	cryptoSources := make(map[string]struct{})
	names := make([]string, 0, len(succeeded))
	for _, b := range succeeded {
		valid, bad := ValidateRates(b.rows)
		for _, r := range bad {
			log.Warn("discarding corrupt rate",
				"from", r.From, "to", r.To, "rate", r.Rate, "source", b.feed.Name(),
				"error", core.ErrCorruptRate)
		}
		discarded += len(bad)
		prioritized = append(prioritized, Normalize(valid, b.feed.Name(), now, i.ttl))
		if b.feed.Kind() == exchange.FeedCrypto {
			cryptoSources[b.feed.Name()] = struct{}{}
		}
		names = append(names, b.feed.Name())
	}

	rows := Canonicalize(MergeSources(prioritized...))
	if len(rows) == 0 {
		warnings = append(warnings, "no valid rates received")
		res, err := i.fallback(ctx, runID, log, warnings)
		res.Discarded = discarded
		return res, err
	}

	rows, err := i.alignWithStore(ctx, rows)
	if err != nil {
		return core.IngestResult{RunID: runID}, err
	}

	var crypto []core.RatePair
	for _, r := range rows {
		if _, ok := cryptoSources[r.Source]; ok {
			crypto = append(crypto, r)
		}
	}

	if err := i.store.UpsertPairs(ctx, rows); err != nil {
		return core.IngestResult{RunID: runID}, fmt.Errorf("upsert pairs: %w", err)
	}
	if len(crypto) > 0 {
		if err := i.store.UpsertCryptoRates(ctx, crypto); err != nil {
			return core.IngestResult{RunID: runID}, fmt.Errorf("upsert crypto rates: %w", err)
		}
	}

	source := strings.Join(names, "+")
	snapshot := rows
	if all, err := i.CurrentRates(ctx); err != nil {
		log.Warn("failed to read stored rates for snapshot", "error", err)
	} else {
		snapshot = all
	}
	if err := i.snapshots.Save(ctx, core.Snapshot{FetchedAt: now, Source: source, Pairs: snapshot}); err != nil {
		log.Warn("failed to save rate snapshot", "error", err)
	}

	res := core.IngestResult{
		RunID:       runID,
		StoredCount: len(rows),
		Source:      source,
		Discarded:   discarded,
		Warning:     strings.Join(warnings, "; "),
		FetchedAt:   now,
	}
	log.Info("rates ingested",
		"stored", res.StoredCount, "crypto", len(crypto),
		"discarded", discarded, "source", source, "warning", res.Warning)
	i.emit(ctx, log, events.NewRatesIngested(runID, source, res.StoredCount, discarded, false))
	return res, nil
}

// alignWithStore rewrites rows whose currency pair is already stored in the
// opposite direction, so the store never holds both directions of a pair.
func (i *Ingester) alignWithStore(ctx context.Context, rows []core.RatePair) ([]core.RatePair, error) {
	out := make([]core.RatePair, 0, len(rows))
	for _, r := range rows {
		reverse, err := i.store.GetPair(ctx, r.To, r.From)
		if err != nil {
			return nil, fmt.Errorf("lookup %s to %s: %w", r.To, r.From, err)
		}
		if reverse == nil {
			out = append(out, r)
			continue
		}
		forward, err := i.store.GetPair(ctx, r.From, r.To)
		if err != nil {
			return nil, fmt.Errorf("lookup %s to %s: %w", r.From, r.To, err)
		}
		inv := 1 / r.Rate
		if forward != nil || !core.ValidRate(inv) {
			out = append(out, r)
			continue
		}
		r.From, r.To, r.Rate = r.To, r.From, inv
		out = append(out, r)
	}
	return out, nil
}

// fetchAll calls every feed concurrently. A failing feed never cancels the others.
func (i *Ingester) fetchAll(ctx context.Context, log *slog.Logger) []batch {
	out := make([]batch, len(i.feeds))
	var g errgroup.Group
	for idx, feed := range i.feeds {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, i.fetchTimeout)
			defer cancel()
			rows, err := feed.Fetch(fctx)
			if err != nil {
				err = &core.ProviderError{Provider: feed.Name(), Err: err}
				log.Warn("rate feed failed", "provider", feed.Name(), "error", err)
			}
			out[idx] = batch{feed: feed, rows: rows, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// fallback serves the last snapshot when nothing could be fetched.
func (i *Ingester) fallback(
	ctx context.Context,
	runID uuid.UUID,
	log *slog.Logger,
	warnings []string,
) (core.IngestResult, error) {
	reason := strings.Join(warnings, "; ")
	if reason == "" {
		reason = "no rate feeds configured"
	}

	snap, err := i.snapshots.Load(ctx)
	if err != nil && !errors.Is(err, core.ErrNoSnapshot) {
		log.Warn("failed to load rate snapshot", "error", err)
	}
	if snap == nil || len(snap.Pairs) == 0 {
		log.Error("rates degraded: no provider data and no cached snapshot", "reason", reason)
		i.emit(ctx, log, events.NewRatesDegraded(runID, reason))
		return core.IngestResult{RunID: runID, Degraded: true, Warning: reason},
			fmt.Errorf("%w: %s", core.ErrProviderUnavailable, reason)
	}

	if n, err := i.store.Count(ctx); err == nil && n == 0 {
		if err := i.store.UpsertPairs(ctx, snap.Pairs); err != nil {
			log.Warn("failed to restore snapshot into rate store", "error", err)
		}
	}

	age := snap.Age(i.now())
	res := core.IngestResult{
		RunID:       runID,
		StoredCount: len(snap.Pairs),
		Source:      snap.Source,
		Stale:       age > i.ttl,
		FromCache:   true,
		FetchedAt:   snap.FetchedAt,
		Warning: fmt.Sprintf("%s; serving cached rates fetched %s ago",
			reason, age.Truncate(time.Second)),
	}
	log.Warn("serving cached rate snapshot",
		"age", age, "stale", res.Stale, "pairs", res.StoredCount, "reason", reason)
	i.emit(ctx, log, events.NewRatesIngested(runID, snap.Source, res.StoredCount, 0, res.Stale))
	return res, nil
}

func (i *Ingester) emit(ctx context.Context, log *slog.Logger, evt events.Event) {
	if i.bus == nil {
		return
	}
	if err := i.bus.Emit(ctx, evt); err != nil {
		log.Warn("failed to emit event", "type", evt.Type(), "error", err)
	}
}

// CurrentRates returns every stored pair. Rows of the primary table win over
// rows of the crypto table with the same key.
func (i *Ingester) CurrentRates(ctx context.Context) ([]core.RatePair, error) {
	primary, err := i.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	fallback, err := i.store.ListCryptoRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list crypto rates: %w", err)
	}
	return MergeSources(primary, fallback), nil
}

// Status reports how fresh the stored rates are. The snapshot timestamp is
// preferred; once it is older than the stale-after window, or missing, the
// newest stored row is used and the result is marked Estimated.
func (i *Ingester) Status(ctx context.Context) (core.FetchStatus, error) {
	now := i.now()
	count, err := i.store.Count(ctx)
	if err != nil {
		return core.FetchStatus{}, fmt.Errorf("count pairs: %w", err)
	}
	st := core.FetchStatus{PairCount: count}

	snap, err := i.snapshots.Load(ctx)
	if err != nil && !errors.Is(err, core.ErrNoSnapshot) {
		i.logger.Warn("failed to load rate snapshot", "error", err)
	}

	switch {
	case snap != nil && snap.Age(now) <= i.staleAfter:
		st.FetchedAt = snap.FetchedAt
		st.Source = snap.Source
	default:
		latest, err := i.store.LatestUpdate(ctx)
		if err != nil {
			return core.FetchStatus{}, fmt.Errorf("latest update: %w", err)
		}
		switch {
		case !latest.IsZero():
			st.FetchedAt = latest
			st.Source = core.SourcePrimaryTable
			st.Estimated = true
		case snap != nil:
			st.FetchedAt = snap.FetchedAt
			st.Source = snap.Source
		default:
			return st, nil
		}
	}

	age := now.Sub(st.FetchedAt)
	st.Available = true
	st.MinutesSinceFetch = int(age.Minutes())
	st.IsFresh = age < i.ttl
	st.Stale = !st.IsFresh
	return st, nil
}
