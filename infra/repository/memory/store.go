// Package memory holds map-backed stores used when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/repository"
)

// RateStore is an in-memory repository.RateStore.
type RateStore struct {
	mu     sync.RWMutex
	pairs  map[string]core.RatePair
	crypto map[string]core.RatePair
}

// NewRateStore returns an empty store, optionally seeded with pairs.
func NewRateStore(seed ...core.RatePair) *RateStore {
	s := &RateStore{
		pairs:  make(map[string]core.RatePair),
		crypto: make(map[string]core.RatePair),
	}
	for _, p := range seed {
		s.pairs[p.Key()] = p
	}
	return s
}

func (s *RateStore) GetPair(_ context.Context, from, to string) (*core.RatePair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pairs[from+":"+to]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *RateStore) ListFrom(_ context.Context, from string) ([]core.RatePair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RatePair, 0)
	for _, p := range s.pairs {
		if p.From == from {
			out = append(out, p)
		}
	}
	sortPairs(out)
	return out, nil
}

func (s *RateStore) ListAll(_ context.Context) ([]core.RatePair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.pairs), nil
}

func (s *RateStore) UpsertPairs(_ context.Context, pairs []core.RatePair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pairs {
		s.pairs[p.Key()] = p
	}
	return nil
}

func (s *RateStore) UpsertCryptoRates(_ context.Context, pairs []core.RatePair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pairs {
		s.crypto[p.Key()] = p
	}
	return nil
}

func (s *RateStore) ListCryptoRates(_ context.Context) ([]core.RatePair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.crypto), nil
}

func (s *RateStore) LatestUpdate(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest time.Time
	for _, p := range s.pairs {
		if p.UpdatedAt.After(latest) {
			latest = p.UpdatedAt
		}
	}
	return latest, nil
}

func (s *RateStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.pairs)), nil
}

func values(m map[string]core.RatePair) []core.RatePair {
	out := make([]core.RatePair, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sortPairs(out)
	return out
}

func sortPairs(pairs []core.RatePair) {
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Key() < pairs[j].Key()
	})
}

// CurrencyStore is an in-memory repository.CurrencyStore.
type CurrencyStore struct {
	mu    sync.RWMutex
	metas map[string]core.CurrencyMeta
}

// NewCurrencyStore returns a store seeded with metas.
func NewCurrencyStore(metas ...core.CurrencyMeta) *CurrencyStore {
	s := &CurrencyStore{metas: make(map[string]core.CurrencyMeta)}
	for _, m := range metas {
		s.metas[m.Code] = m
	}
	return s
}

func (s *CurrencyStore) GetCurrency(_ context.Context, code string) (*core.CurrencyMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metas[code]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *CurrencyStore) ListCurrencies(_ context.Context) ([]core.CurrencyMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.CurrencyMeta, 0, len(s.metas))
	for _, m := range s.metas {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *CurrencyStore) UpsertCurrencies(_ context.Context, metas []core.CurrencyMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range metas {
		s.metas[m.Code] = m
	}
	return nil
}

func (s *CurrencyStore) CountCurrencies(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.metas)), nil
}

var (
	_ repository.RateStore     = (*RateStore)(nil)
	_ repository.CurrencyStore = (*CurrencyStore)(nil)
)
