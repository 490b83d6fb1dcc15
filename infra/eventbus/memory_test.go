package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/amirasaad/fxrates/pkg/domain/events"
	"github.com/amirasaad/fxrates/pkg/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEventBus_DispatchesByType(t *testing.T) {
	bus := NewWithMemory(testutils.DiscardLogger())

	var ingested, degraded int
	bus.Register(events.EventTypeRatesIngested, func(ctx context.Context, e events.Event) error {
		evt, ok := e.(*events.RatesIngested)
		require.True(t, ok)
		assert.Equal(t, 3, evt.StoredCount)
		ingested++
		return nil
	})
	bus.Register(events.EventTypeRatesDegraded, func(ctx context.Context, e events.Event) error {
		degraded++
		return errors.New("handler failure is logged only")
	})

	require.NoError(t, bus.Emit(context.Background(), events.NewRatesIngested(uuid.New(), "fiat", 3, 0, false)))
	require.NoError(t, bus.Emit(context.Background(), events.NewRatesDegraded(uuid.New(), "down")))

	assert.Equal(t, 1, ingested)
	assert.Equal(t, 1, degraded)
	assert.Len(t, bus.Published(), 2)

	bus.ClearPublished()
	assert.Empty(t, bus.Published())
}

func TestMemoryEventBus_PublishedIsBounded(t *testing.T) {
	bus := NewWithMemory(testutils.DiscardLogger())
	for i := range publishedLimit + 50 {
		require.NoError(t, bus.Emit(context.Background(), events.NewRatesIngested(uuid.New(), "fiat", i, 0, false)))
	}

	published := bus.Published()
	require.Len(t, published, publishedLimit)
	last, ok := published[publishedLimit-1].(*events.RatesIngested)
	require.True(t, ok)
	assert.Equal(t, publishedLimit+49, last.StoredCount)
	first, ok := published[0].(*events.RatesIngested)
	require.True(t, ok)
	assert.Equal(t, 50, first.StoredCount)
}
