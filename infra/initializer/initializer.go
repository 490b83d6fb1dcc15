package initializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/fxrates/infra"
	"github.com/amirasaad/fxrates/infra/cache"
	infra_eventbus "github.com/amirasaad/fxrates/infra/eventbus"
	"github.com/amirasaad/fxrates/infra/provider/coingecko"
	"github.com/amirasaad/fxrates/infra/provider/openexchange"
	"github.com/amirasaad/fxrates/infra/provider/saferate"
	"github.com/amirasaad/fxrates/infra/repository/rates"
	currencyfixtures "github.com/amirasaad/fxrates/internal/fixtures/currency"
	"github.com/amirasaad/fxrates/pkg/app"
	"github.com/amirasaad/fxrates/pkg/config"
	"github.com/amirasaad/fxrates/pkg/eventbus"
	"github.com/amirasaad/fxrates/pkg/provider/exchange"
	"github.com/amirasaad/fxrates/pkg/repository"
)

const startupTimeout = 30 * time.Second

// InitializeDependencies initializes all the application dependencies
func InitializeDependencies(cfg *config.App) (
	deps *app.Deps,
	err error,
) {
	deps = &app.Deps{}
	logger := setupLogger(cfg.Log)
	deps.Logger = logger

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	deps.Close = closeAll
	defer func() {
		if err != nil {
			_ = closeAll()
			deps = nil
		}
	}()

	// Initialize database
	if cfg.DB == nil {
		return nil, errors.New("database config is missing")
	}
	db, err := infra.NewDBConnection(*cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return deps, err
	}
	if sqlDB, dbErr := db.DB(); dbErr == nil {
		closers = append(closers, sqlDB.Close)
	}
	if err = infra.Migrate(db); err != nil {
		return deps, fmt.Errorf("failed to migrate database: %w", err)
	}

	deps.RateStore = rates.NewRateStore(db)
	deps.Currencies = rates.NewCurrencyStore(db)

	seed := cfg.Exchange == nil || cfg.Exchange.SeedCurrencies
	if seed {
		seedCurrencies(ctx, deps.Currencies, logger)
	}

	deps.Snapshots, err = initSnapshots(ctx, cfg.Redis, logger, &closers)
	if err != nil {
		return deps, err
	}

	deps.Feeds = initFeeds(cfg, logger)
	if len(deps.Feeds) == 0 {
		logger.Warn("No rate feeds enabled; ingestion will rely on snapshots")
	}

	if sr := cfg.SafeRate; sr != nil && sr.Enabled {
		if sr.Url == "" {
			logger.Warn("Safe-rate enabled without URL; remote tier disabled")
		} else {
			deps.SafeRate = saferate.New(saferate.Config{
				URL:     sr.Url,
				APIKey:  sr.ApiKey,
				Timeout: sr.Timeout,
			}, logger)
		}
	}

	bus, err := initEventBus(cfg, logger)
	if err != nil {
		return deps, err
	}
	if c, ok := bus.(interface{ Close() error }); ok {
		closers = append(closers, c.Close)
	}
	deps.EventBus = bus

	return deps, nil
}

// seedCurrencies loads the embedded metadata when the table is empty.
func seedCurrencies(ctx context.Context, store repository.CurrencyStore, logger *slog.Logger) {
	count, err := store.CountCurrencies(ctx)
	if err != nil {
		logger.Warn("Failed to check currency count", "error", err)
		return
	}
	if count > 0 {
		logger.Info("Skipping currency fixtures load; table not empty", "existing_count", count)
		return
	}

	metas, err := currencyfixtures.LoadCurrencyMetaCSV("")
	if err != nil {
		logger.Warn("Failed to load currency meta from CSV", "error", err)
		return
	}
	if err := store.UpsertCurrencies(ctx, metas); err != nil {
		logger.Error("Failed to seed currencies", "error", err)
		return
	}
	logger.Info("Successfully loaded currency fixtures", "registered_count", len(metas))
}

func initSnapshots(
	ctx context.Context,
	cfg *config.Redis,
	logger *slog.Logger,
	closers *[]func() error,
) (repository.SnapshotCache, error) {
	if cfg == nil || cfg.URL == "" {
		logger.Info("Using in-memory snapshot cache")
		return cache.NewMemorySnapshotCache(), nil
	}
	snaps, err := cache.NewRedisSnapshotCacheFromURL(ctx, cfg.URL, cfg.KeyPrefix, cfg.Retention, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis snapshot cache: %w", err)
	}
	*closers = append(*closers, snaps.Close)
	logger.Info("Using Redis snapshot cache", "prefix", cfg.KeyPrefix)
	return snaps, nil
}

// initFeeds returns the enabled feeds in priority order: fiat before crypto.
func initFeeds(cfg *config.App, logger *slog.Logger) []exchange.Feed {
	var feeds []exchange.Feed
	if f := cfg.Fiat; f != nil && f.Enabled {
		feeds = append(feeds, openexchange.New(openexchange.Config{
			URL:       f.ApiUrl,
			APIKey:    f.ApiKey,
			Base:      f.Base,
			RatesPath: f.RatesPath,
			Timeout:   f.Timeout,
		}, logger))
	}
	if c := cfg.Crypto; c != nil && c.Enabled {
		feeds = append(feeds, coingecko.New(coingecko.Config{
			URL:          c.ApiUrl,
			APIKey:       c.ApiKey,
			VsCurrencies: c.VsCurrencies,
			Timeout:      c.Timeout,
		}, logger))
	}
	return feeds
}

// initEventBus picks the bus driver. An explicitly chosen broker that is
// misconfigured is an error; one that is unreachable falls back to memory.
func initEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, error) {
	driver := ""
	if cfg.EventBus != nil {
		driver = strings.ToLower(strings.TrimSpace(cfg.EventBus.Driver))
	}

	switch driver {
	case "", "memory":
		return infra_eventbus.NewWithMemory(logger), nil

	case "redis":
		url := cfg.EventBus.RedisURL
		if url == "" && cfg.Redis != nil {
			url = cfg.Redis.URL
		}
		if url == "" {
			return nil, errors.New("event bus driver redis requires EVENT_BUS_REDIS_URL or REDIS_URL")
		}
		bus, err := infra_eventbus.NewWithRedis(url, logger)
		if err != nil {
			logger.Warn("Redis event bus unavailable; falling back to memory", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil
		}
		return bus, nil

	case "kafka":
		if strings.TrimSpace(cfg.EventBus.KafkaBrokers) == "" {
			return nil, errors.New("event bus driver kafka requires EVENT_BUS_KAFKA_BROKERS")
		}
		bus, err := infra_eventbus.NewWithKafka(
			cfg.EventBus.KafkaBrokers,
			logger,
			&infra_eventbus.KafkaEventBusConfig{
				GroupID:     cfg.EventBus.GroupID,
				TopicPrefix: cfg.EventBus.TopicPrefix,
			},
		)
		if err != nil {
			logger.Warn("Kafka event bus unavailable; falling back to memory", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil
		}
		return bus, nil

	default:
		return nil, fmt.Errorf("unsupported event bus driver %q", driver)
	}
}
