package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/repository"
	"github.com/redis/go-redis/v9"
)

const (
	snapshotKey    = "snapshot"
	lastUpdatedKey = "last_updated"
)

// RedisSnapshotCache stores the last rate snapshot in Redis. Entries outlive
// the rate TTL so a stale snapshot stays available when providers fail.
type RedisSnapshotCache struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
	logger    *slog.Logger
}

// NewRedisSnapshotCache creates a cache on an existing client. retention of
// zero keeps entries forever.
func NewRedisSnapshotCache(
	client *redis.Client,
	prefix string,
	retention time.Duration,
	logger *slog.Logger,
) *RedisSnapshotCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSnapshotCache{
		client:    client,
		prefix:    prefix,
		retention: retention,
		logger:    logger.With("cache", "redis"),
	}
}

// NewRedisSnapshotCacheFromURL parses a redis:// URL and pings the server.
func NewRedisSnapshotCacheFromURL(
	ctx context.Context,
	url, prefix string,
	retention time.Duration,
	logger *slog.Logger,
) (*RedisSnapshotCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisSnapshotCache(client, prefix, retention, logger), nil
}

func (r *RedisSnapshotCache) key(key string) string {
	return r.prefix + key
}

func (r *RedisSnapshotCache) Save(ctx context.Context, snap core.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		r.logger.Error("Redis snapshot marshal error", "error", err)
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(snapshotKey), data, r.retention)
		pipe.Set(ctx, r.key(lastUpdatedKey), snap.FetchedAt.Format(time.RFC3339Nano), r.retention)
		return nil
	})
	if err != nil {
		r.logger.Error("Redis snapshot set error", "error", err)
		return err
	}
	r.logger.Debug("Redis snapshot saved", "pairs", len(snap.Pairs), "fetched_at", snap.FetchedAt)
	return nil
}

func (r *RedisSnapshotCache) Load(ctx context.Context) (*core.Snapshot, error) {
	val, err := r.client.Get(ctx, r.key(snapshotKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis snapshot miss")
		return nil, core.ErrNoSnapshot
	}
	if err != nil {
		r.logger.Error("Redis snapshot get error", "error", err)
		return nil, err
	}
	var snap core.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		r.logger.Error("Redis snapshot unmarshal error", "error", err)
		return nil, err
	}
	return &snap, nil
}

func (r *RedisSnapshotCache) LastUpdated(ctx context.Context) (time.Time, error) {
	val, err := r.client.Get(ctx, r.key(lastUpdatedKey)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		r.logger.Error("Redis cache get last update error", "error", err)
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		r.logger.Error("Redis cache parse last update error", "value", val, "error", err)
		return time.Time{}, err
	}
	return ts, nil
}

// Close closes the underlying client.
func (r *RedisSnapshotCache) Close() error {
	return r.client.Close()
}

var _ repository.SnapshotCache = (*RedisSnapshotCache)(nil)
