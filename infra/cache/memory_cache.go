package cache

import (
	"context"
	"sync"
	"time"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/repository"
)

// MemorySnapshotCache keeps the last rate snapshot in process memory.
type MemorySnapshotCache struct {
	mu   sync.RWMutex
	snap *core.Snapshot
}

// NewMemorySnapshotCache creates an empty in-memory snapshot cache.
func NewMemorySnapshotCache() *MemorySnapshotCache {
	return &MemorySnapshotCache{}
}

func (c *MemorySnapshotCache) Save(_ context.Context, snap core.Snapshot) error {
	cp := snap
	cp.Pairs = append([]core.RatePair(nil), snap.Pairs...)
	c.mu.Lock()
	c.snap = &cp
	c.mu.Unlock()
	return nil
}

func (c *MemorySnapshotCache) Load(_ context.Context) (*core.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return nil, core.ErrNoSnapshot
	}
	cp := *c.snap
	cp.Pairs = append([]core.RatePair(nil), c.snap.Pairs...)
	return &cp, nil
}

func (c *MemorySnapshotCache) LastUpdated(_ context.Context) (time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return time.Time{}, nil
	}
	return c.snap.FetchedAt, nil
}

var _ repository.SnapshotCache = (*MemorySnapshotCache)(nil)
