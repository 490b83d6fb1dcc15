package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/fxrates/pkg/domain/events"
)

// setupEventBus registers the rate event handlers.
func (a *App) setupEventBus() {
	bus := a.Deps.EventBus
	if bus == nil {
		return
	}
	logger := a.Deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// resolved rates derived from replaced rows must not outlive them
	bus.Register(events.EventTypeRatesIngested, func(_ context.Context, e events.Event) error {
		evt, ok := e.(*events.RatesIngested)
		if !ok {
			return fmt.Errorf("unexpected event %T", e)
		}
		a.Resolver.Purge()
		logger.Info("resolver cache purged after ingestion",
			"run_id", evt.RunID, "source", evt.Source, "stored", evt.StoredCount, "stale", evt.Stale)
		return nil
	})

	bus.Register(events.EventTypeRatesDegraded, func(_ context.Context, e events.Event) error {
		evt, ok := e.(*events.RatesDegraded)
		if !ok {
			return fmt.Errorf("unexpected event %T", e)
		}
		logger.Warn("rate service degraded", "run_id", evt.RunID, "reason", evt.Reason)
		return nil
	})
}
