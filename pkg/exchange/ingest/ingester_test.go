package ingest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/amirasaad/fxrates/infra/cache"
	infraeventbus "github.com/amirasaad/fxrates/infra/eventbus"
	"github.com/amirasaad/fxrates/infra/repository/memory"
	"github.com/amirasaad/fxrates/pkg/domain/events"
	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/provider/exchange"
	"github.com/amirasaad/fxrates/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFeed struct {
	mock.Mock
	name string
	kind exchange.FeedKind
}

func newMockFeed(name string, kind exchange.FeedKind) *mockFeed {
	return &mockFeed{name: name, kind: kind}
}

func (m *mockFeed) Name() string            { return m.name }
func (m *mockFeed) Kind() exchange.FeedKind { return m.kind }

func (m *mockFeed) Fetch(ctx context.Context) ([]core.RatePair, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]core.RatePair)
	return rows, args.Error(1)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memory.RateStore
	snapshots *cache.MemorySnapshotCache
	bus       *infraeventbus.MemoryEventBus
}

func newFixture() *fixture {
	return &fixture{
		store:     memory.NewRateStore(),
		snapshots: cache.NewMemorySnapshotCache(),
		bus:       infraeventbus.NewWithMemory(testutils.DiscardLogger()),
	}
}

func (f *fixture) ingester(feeds ...exchange.Feed) *Ingester {
	return New(f.store, f.snapshots, feeds,
		WithEventBus(f.bus),
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(testutils.DiscardLogger()),
	)
}

func TestIngest_ValidationFilter(t *testing.T) {
	f := newFixture()
	feed := newMockFeed("openexchange", exchange.FeedFiat)
	feed.On("Fetch", mock.Anything).Return([]core.RatePair{
		{From: "USD", To: "PHP", Rate: 56.2},
		{From: "USD", To: "XXX", Rate: 0},
		{From: "USD", To: "YYY", Rate: -5},
		{From: "USD", To: "ZZZ", Rate: math.NaN()},
	}, nil)

	res, err := f.ingester(feed).Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.StoredCount)
	assert.Equal(t, 3, res.Discarded)
	assert.False(t, res.FromCache)

	all, err := f.store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "USD:PHP", all[0].Key())
	feed.AssertExpectations(t)
}

func TestIngest_CacheFirst(t *testing.T) {
	f := newFixture()
	f.store = memory.NewRateStore(core.RatePair{
		From: "USD", To: "PHP", Rate: 56.2, UpdatedAt: fixedNow.Add(-10 * time.Minute),
	})
	feed := newMockFeed("openexchange", exchange.FeedFiat)

	res, err := f.ingester(feed).Ingest(context.Background())
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, core.SourceCache, res.Source)
	assert.Equal(t, 1, res.StoredCount)
	assert.False(t, res.Stale)
	feed.AssertNotCalled(t, "Fetch", mock.Anything)
}

func TestRefresh_FetchesEvenWhenPopulated(t *testing.T) {
	f := newFixture()
	f.store = memory.NewRateStore(core.RatePair{From: "USD", To: "PHP", Rate: 50})
	feed := newMockFeed("openexchange", exchange.FeedFiat)
	feed.On("Fetch", mock.Anything).Return([]core.RatePair{{From: "usd", To: "php", Rate: 56.2}}, nil)

	res, err := f.ingester(feed).Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, res.FromCache)

	p, err := f.store.GetPair(context.Background(), "USD", "PHP")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 56.2, p.Rate)
	assert.Equal(t, "openexchange", p.Source)
	assert.Equal(t, fixedNow, p.UpdatedAt)
	assert.Equal(t, fixedNow.Add(DefaultTTL), p.ExpiresAt)
}

func TestIngest_PartialFailure(t *testing.T) {
	f := newFixture()
	fiat := newMockFeed("openexchange", exchange.FeedFiat)
	fiat.On("Fetch", mock.Anything).Return(nil, errors.New("status 503"))
	crypto := newMockFeed("coingecko", exchange.FeedCrypto)
	crypto.On("Fetch", mock.Anything).Return([]core.RatePair{
		{From: "BTC", To: "PHP", Rate: 5800000},
		{From: "ETH", To: "USD", Rate: 3000},
	}, nil)

	res, err := f.ingester(fiat, crypto).Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.StoredCount)
	assert.Equal(t, "coingecko", res.Source)
	assert.Contains(t, res.Warning, "openexchange")

	cryptoRows, err := f.store.ListCryptoRates(context.Background())
	require.NoError(t, err)
	assert.Len(t, cryptoRows, 2)
}

func TestIngest_FeedPriorityAndCanonicalDirection(t *testing.T) {
	f := newFixture()
	fiat := newMockFeed("openexchange", exchange.FeedFiat)
	fiat.On("Fetch", mock.Anything).Return([]core.RatePair{
		{From: "USD", To: "PHP", Rate: 56.2},
		{From: "USD", To: "BTC", Rate: 1.0 / 60000},
	}, nil)
	crypto := newMockFeed("coingecko", exchange.FeedCrypto)
	crypto.On("Fetch", mock.Anything).Return([]core.RatePair{
		{From: "BTC", To: "USD", Rate: 59000},
		{From: "BTC", To: "PHP", Rate: 5800000},
	}, nil)

	res, err := f.ingester(fiat, crypto).Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.StoredCount)
	assert.Equal(t, "openexchange+coingecko", res.Source)

	ctx := context.Background()
	p, err := f.store.GetPair(ctx, "BTC", "USD")
	require.NoError(t, err)
	assert.Nil(t, p)
	p, err = f.store.GetPair(ctx, "USD", "BTC")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "openexchange", p.Source)

	cryptoRows, err := f.store.ListCryptoRates(ctx)
	require.NoError(t, err)
	require.Len(t, cryptoRows, 1)
	assert.Equal(t, "BTC:PHP", cryptoRows[0].Key())
}

func TestRefresh_KeepsStoredDirectionAcrossRuns(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	fiat := newMockFeed("openexchange", exchange.FeedFiat)
	fiat.On("Fetch", mock.Anything).Return([]core.RatePair{
		{From: "USD", To: "BTC", Rate: 1.0 / 60000},
	}, nil).Once()
	fiat.On("Fetch", mock.Anything).Return(nil, errors.New("status 503")).Once()
	crypto := newMockFeed("coingecko", exchange.FeedCrypto)
	crypto.On("Fetch", mock.Anything).Return([]core.RatePair{
		{From: "BTC", To: "USD", Rate: 60000},
	}, nil).Once()
	crypto.On("Fetch", mock.Anything).Return([]core.RatePair{
		{From: "BTC", To: "USD", Rate: 30000},
	}, nil).Once()

	ing := f.ingester(fiat, crypto)
	_, err := ing.Refresh(ctx)
	require.NoError(t, err)
	_, err = ing.Refresh(ctx)
	require.NoError(t, err)

	p, err := f.store.GetPair(ctx, "BTC", "USD")
	require.NoError(t, err)
	assert.Nil(t, p, "reverse direction must not be stored")

	p, err = f.store.GetPair(ctx, "USD", "BTC")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.InDelta(t, 1.0/30000, p.Rate, 1e-12)
	assert.Equal(t, "coingecko", p.Source)

	all, err := f.store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	fiat.AssertExpectations(t)
	crypto.AssertExpectations(t)
}

func TestRefresh_SnapshotCoversAllStoredRates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	fiat := newMockFeed("openexchange", exchange.FeedFiat)
	fiat.On("Fetch", mock.Anything).Return([]core.RatePair{
		{From: "USD", To: "PHP", Rate: 56.2},
	}, nil).Once()
	fiat.On("Fetch", mock.Anything).Return(nil, errors.New("status 503")).Once()
	crypto := newMockFeed("coingecko", exchange.FeedCrypto)
	crypto.On("Fetch", mock.Anything).Return([]core.RatePair{
		{From: "ETH", To: "USD", Rate: 3000},
	}, nil).Twice()

	ing := f.ingester(fiat, crypto)
	_, err := ing.Refresh(ctx)
	require.NoError(t, err)
	res, err := ing.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "coingecko", res.Source)

	snap, err := f.snapshots.Load(ctx)
	require.NoError(t, err)
	keys := make([]string, 0, len(snap.Pairs))
	for _, p := range snap.Pairs {
		keys = append(keys, p.Key())
	}
	assert.ElementsMatch(t, []string{"USD:PHP", "ETH:USD"}, keys)
}

func TestIngest_EmitsRatesIngested(t *testing.T) {
	f := newFixture()
	feed := newMockFeed("openexchange", exchange.FeedFiat)
	feed.On("Fetch", mock.Anything).Return([]core.RatePair{{From: "USD", To: "PHP", Rate: 56.2}}, nil)

	var handled int
	f.bus.Register(events.EventTypeRatesIngested, func(context.Context, events.Event) error {
		handled++
		return nil
	})

	res, err := f.ingester(feed).Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, handled)

	published := f.bus.Published()
	require.Len(t, published, 1)
	evt, ok := published[0].(*events.RatesIngested)
	require.True(t, ok)
	assert.Equal(t, res.RunID, evt.RunID)
	assert.Equal(t, 1, evt.StoredCount)

	snap, err := f.snapshots.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixedNow, snap.FetchedAt)
	assert.Len(t, snap.Pairs, 1)
}

func TestIngest_StaleFallback(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.snapshots.Save(ctx, core.Snapshot{
		FetchedAt: fixedNow.Add(-2 * time.Hour),
		Source:    "openexchange",
		Pairs:     []core.RatePair{{From: "USD", To: "PHP", Rate: 56.2}},
	}))
	feed := newMockFeed("openexchange", exchange.FeedFiat)
	feed.On("Fetch", mock.Anything).Return(nil, context.DeadlineExceeded)

	res, err := f.ingester(feed).Ingest(ctx)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.True(t, res.FromCache)
	assert.False(t, res.Degraded)
	assert.NotEmpty(t, res.Warning)
	assert.Equal(t, 1, res.StoredCount)

	p, err := f.store.GetPair(ctx, "USD", "PHP")
	require.NoError(t, err)
	require.NotNil(t, p, "snapshot restored into empty store")
	assert.Equal(t, 56.2, p.Rate)
}

func TestIngest_FreshSnapshotFallbackIsNotStale(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.snapshots.Save(ctx, core.Snapshot{
		FetchedAt: fixedNow.Add(-20 * time.Minute),
		Pairs:     []core.RatePair{{From: "USD", To: "PHP", Rate: 56.2}},
	}))
	feed := newMockFeed("openexchange", exchange.FeedFiat)
	feed.On("Fetch", mock.Anything).Return(nil, errors.New("boom"))

	res, err := f.ingester(feed).Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.NotEmpty(t, res.Warning)
}

func TestIngest_Degraded(t *testing.T) {
	f := newFixture()
	feed := newMockFeed("openexchange", exchange.FeedFiat)
	feed.On("Fetch", mock.Anything).Return(nil, errors.New("connection refused"))

	res, err := f.ingester(feed).Ingest(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Warning, "connection refused")

	published := f.bus.Published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTypeRatesDegraded.String(), published[0].Type())
}

func TestIngest_AllRowsCorruptFallsBack(t *testing.T) {
	f := newFixture()
	feed := newMockFeed("openexchange", exchange.FeedFiat)
	feed.On("Fetch", mock.Anything).Return([]core.RatePair{{From: "USD", To: "PHP", Rate: 0}}, nil)

	res, err := f.ingester(feed).Ingest(context.Background())
	require.ErrorIs(t, err, core.ErrProviderUnavailable)
	assert.True(t, res.Degraded)
	assert.Equal(t, 1, res.Discarded)
}

func TestIngest_FetchTimeout(t *testing.T) {
	f := newFixture()
	feed := newMockFeed("slow", exchange.FeedFiat)
	feed.On("Fetch", mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, context.DeadlineExceeded)

	ing := New(f.store, f.snapshots, []exchange.Feed{feed},
		WithFetchTimeout(20*time.Millisecond),
		WithLogger(testutils.DiscardLogger()))
	res, err := ing.Ingest(context.Background())
	require.ErrorIs(t, err, core.ErrProviderUnavailable)
	assert.Contains(t, res.Warning, "slow")
}

func TestCurrentRates_PrimaryWinsOverCrypto(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.store.UpsertPairs(ctx, []core.RatePair{{From: "BTC", To: "USD", Rate: 60000}}))
	require.NoError(t, f.store.UpsertCryptoRates(ctx, []core.RatePair{
		{From: "BTC", To: "USD", Rate: 1},
		{From: "ETH", To: "USD", Rate: 3000},
	}))

	rates, err := f.ingester().CurrentRates(ctx)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	for _, r := range rates {
		if r.From == "BTC" {
			assert.Equal(t, 60000.0, r.Rate)
		}
	}
}

func TestStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("unavailable", func(t *testing.T) {
		f := newFixture()
		st, err := f.ingester().Status(ctx)
		require.NoError(t, err)
		assert.False(t, st.Available)
	})

	t.Run("fresh snapshot", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.store.UpsertPairs(ctx, []core.RatePair{{From: "USD", To: "PHP", Rate: 56.2}}))
		require.NoError(t, f.snapshots.Save(ctx, core.Snapshot{
			FetchedAt: fixedNow.Add(-30 * time.Minute), Source: "openexchange",
		}))
		st, err := f.ingester().Status(ctx)
		require.NoError(t, err)
		assert.True(t, st.Available)
		assert.True(t, st.IsFresh)
		assert.False(t, st.Stale)
		assert.False(t, st.Estimated)
		assert.Equal(t, 30, st.MinutesSinceFetch)
		assert.Equal(t, int64(1), st.PairCount)
		assert.Equal(t, "openexchange", st.Source)
	})

	t.Run("estimated from stored rows", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.store.UpsertPairs(ctx, []core.RatePair{{
			From: "USD", To: "PHP", Rate: 56.2, UpdatedAt: fixedNow.Add(-3 * time.Hour),
		}}))
		require.NoError(t, f.snapshots.Save(ctx, core.Snapshot{FetchedAt: fixedNow.Add(-48 * time.Hour)}))
		st, err := f.ingester().Status(ctx)
		require.NoError(t, err)
		assert.True(t, st.Available)
		assert.True(t, st.Estimated)
		assert.True(t, st.Stale)
		assert.Equal(t, 180, st.MinutesSinceFetch)
		assert.Equal(t, core.SourcePrimaryTable, st.Source)
	})
}
