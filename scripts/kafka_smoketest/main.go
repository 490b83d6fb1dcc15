//go:build kafka

// Command kafka_smoketest publishes a rate event through the Kafka event bus
// and waits for it to come back, to check a local broker setup.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	infra_eventbus "github.com/amirasaad/fxrates/infra/eventbus"
	"github.com/amirasaad/fxrates/pkg/domain/events"
	"github.com/google/uuid"
)

func main() {
	if err := RunSmokeTest(); err != nil {
		os.Exit(1)
	}
}

// RunSmokeTest emits one RatesIngested event and consumes it.
func RunSmokeTest() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	brokers := strings.TrimSpace(os.Getenv("BROKERS"))
	if brokers == "" {
		brokers = "localhost:9093,localhost:9092"
	}
	groupID := strings.TrimSpace(os.Getenv("GROUP_ID"))
	if groupID == "" {
		groupID = "fxrates-smoketest"
	}

	bus, err := infra_eventbus.NewWithKafka(brokers, logger, &infra_eventbus.KafkaEventBusConfig{
		GroupID:     groupID,
		TopicPrefix: "fxrates.smoketest",
	})
	if err != nil {
		logger.Error("kafka unavailable", "error", err)
		return err
	}
	defer func() { _ = bus.Close() }()

	runID := uuid.New()
	got := make(chan struct{}, 1)
	bus.Register(events.EventTypeRatesIngested, func(_ context.Context, e events.Event) error {
		if evt, ok := e.(*events.RatesIngested); ok && evt.RunID == runID {
			got <- struct{}{}
		}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// The consumer starts at the newest offset, so give it a moment to join.
	time.Sleep(2 * time.Second)
	if err := bus.Emit(ctx, events.NewRatesIngested(runID, "smoketest", 1, 0, false)); err != nil {
		logger.Error("emit failed", "error", err)
		return err
	}
	logger.Info("produced", "run_id", runID)

	select {
	case <-got:
		logger.Info("consumed", "run_id", runID)
		return nil
	case <-ctx.Done():
		err := errors.New("timed out waiting for event")
		logger.Error("smoke test failed", "error", err)
		return err
	}
}
