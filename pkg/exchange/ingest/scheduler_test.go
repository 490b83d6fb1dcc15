package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/provider/exchange"
	"github.com/amirasaad/fxrates/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestScheduler_TriggerThrottles(t *testing.T) {
	f := newFixture()
	c := &clock{t: fixedNow}
	feed := newMockFeed("openexchange", exchange.FeedFiat)
	feed.On("Fetch", mock.Anything).Return([]core.RatePair{{From: "USD", To: "PHP", Rate: 56.2}}, nil)

	ing := New(f.store, f.snapshots, []exchange.Feed{feed},
		WithClock(c.now), WithLogger(testutils.DiscardLogger()))
	s := NewScheduler(ing, time.Hour, testutils.DiscardLogger())
	ctx := context.Background()

	_, ran, err := s.Trigger(ctx, false)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, fixedNow, s.LastRun())

	c.t = fixedNow.Add(30 * time.Minute)
	_, ran, err = s.Trigger(ctx, false)
	require.NoError(t, err)
	assert.False(t, ran)

	_, ran, err = s.Trigger(ctx, true)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, c.t, s.LastRun())

	c.t = c.t.Add(61 * time.Minute)
	_, ran, err = s.Trigger(ctx, false)
	require.NoError(t, err)
	assert.True(t, ran)
	feed.AssertNumberOfCalls(t, "Fetch", 3)
}

func TestScheduler_FailedRunDoesNotThrottle(t *testing.T) {
	f := newFixture()
	feed := newMockFeed("openexchange", exchange.FeedFiat)
	feed.On("Fetch", mock.Anything).Return(nil, errors.New("down"))

	ing := New(f.store, f.snapshots, []exchange.Feed{feed},
		WithClock(func() time.Time { return fixedNow }), WithLogger(testutils.DiscardLogger()))
	s := NewScheduler(ing, time.Hour, testutils.DiscardLogger())

	_, ran, err := s.Trigger(context.Background(), false)
	require.ErrorIs(t, err, core.ErrProviderUnavailable)
	assert.True(t, ran)
	assert.True(t, s.LastRun().IsZero())

	_, ran, _ = s.Trigger(context.Background(), false)
	assert.True(t, ran)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	f := newFixture()
	feed := newMockFeed("openexchange", exchange.FeedFiat)
	feed.On("Fetch", mock.Anything).Return([]core.RatePair{{From: "USD", To: "PHP", Rate: 56.2}}, nil)

	ing := New(f.store, f.snapshots, []exchange.Feed{feed}, WithLogger(testutils.DiscardLogger()))
	s := NewScheduler(ing, time.Hour, testutils.DiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return !s.LastRun().IsZero() }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	feed.AssertNumberOfCalls(t, "Fetch", 1)
}
