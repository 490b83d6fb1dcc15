package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
)

// DefaultInterval is the refresh period of the scheduler.
const DefaultInterval = time.Hour

// Scheduler refreshes rates periodically and throttles manual triggers.
type Scheduler struct {
	ingester *Ingester
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	lastRun time.Time
}

// NewScheduler creates a Scheduler that refreshes every interval.
func NewScheduler(ingester *Ingester, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		ingester: ingester,
		interval: interval,
		now:      ingester.now,
		logger:   logger.With("component", "scheduler"),
	}
}

// LastRun returns the time of the last successful fetch.
func (s *Scheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Trigger refreshes rates unless a fetch succeeded less than one interval
// ago. force skips that check. ran is false when the call was throttled.
func (s *Scheduler) Trigger(ctx context.Context, force bool) (res core.IngestResult, ran bool, err error) {
	s.mu.Lock()
	last := s.lastRun
	s.mu.Unlock()
	if !force && !last.IsZero() && s.now().Sub(last) < s.interval {
		s.logger.Debug("refresh throttled", "last_run", last, "interval", s.interval)
		return core.IngestResult{}, false, nil
	}
	res, err = s.ingester.Refresh(ctx)
	s.record(res, err)
	return res, true, err
}

// Run performs a cache-first ingest, then refreshes on every tick until ctx
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if st, err := s.ingester.Status(ctx); err == nil && st.Available && !st.Estimated {
		s.mu.Lock()
		s.lastRun = st.FetchedAt
		s.mu.Unlock()
	}

	res, err := s.ingester.Ingest(ctx)
	s.record(res, err)
	if err != nil {
		s.logger.Warn("initial ingestion failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, _, err := s.Trigger(ctx, false); err != nil {
				s.logger.Warn("scheduled ingestion failed", "error", err)
			}
		}
	}
}

func (s *Scheduler) record(res core.IngestResult, err error) {
	if err != nil || res.FromCache || res.Degraded {
		return
	}
	s.mu.Lock()
	s.lastRun = res.FetchedAt
	s.mu.Unlock()
}
