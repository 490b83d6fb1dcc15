// Package rates stores exchange rates and currency metadata with gorm.
package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const batchSize = 200

var pairColumns = []string{"rate", "source", "updated_at", "expires_at"}

type rateRepository struct {
	db *gorm.DB
}

// NewRateStore creates a gorm-backed rate store.
func NewRateStore(db *gorm.DB) repository.RateStore {
	return &rateRepository{db: db}
}

// GetPair implements repository.RateStore.
func (r *rateRepository) GetPair(ctx context.Context, from, to string) (*core.RatePair, error) {
	var m Pair
	err := r.db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ?", from, to).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := m.toDomain()
	return &p, nil
}

// ListFrom implements repository.RateStore.
func (r *rateRepository) ListFrom(ctx context.Context, from string) ([]core.RatePair, error) {
	var rows []Pair
	if err := r.db.WithContext(ctx).
		Where("from_currency = ?", from).
		Order("to_currency").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return pairsToDomain(rows), nil
}

// ListAll implements repository.RateStore.
func (r *rateRepository) ListAll(ctx context.Context) ([]core.RatePair, error) {
	var rows []Pair
	if err := r.db.WithContext(ctx).
		Order("from_currency, to_currency").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return pairsToDomain(rows), nil
}

// UpsertPairs implements repository.RateStore.
func (r *rateRepository) UpsertPairs(ctx context.Context, pairs []core.RatePair) error {
	if len(pairs) == 0 {
		return nil
	}
	rows := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, toPairModel(p))
	}
	return r.upsert(ctx, &rows)
}

// UpsertCryptoRates implements repository.RateStore.
func (r *rateRepository) UpsertCryptoRates(ctx context.Context, pairs []core.RatePair) error {
	if len(pairs) == 0 {
		return nil
	}
	rows := make([]CryptoRate, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, CryptoRate(toPairModel(p)))
	}
	return r.upsert(ctx, &rows)
}

func (r *rateRepository) upsert(ctx context.Context, rows any) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_currency"}, {Name: "to_currency"}},
			DoUpdates: clause.AssignmentColumns(pairColumns),
		}).
		CreateInBatches(rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("upsert rates: %w", err)
	}
	return nil
}

// ListCryptoRates implements repository.RateStore.
func (r *rateRepository) ListCryptoRates(ctx context.Context) ([]core.RatePair, error) {
	var rows []CryptoRate
	if err := r.db.WithContext(ctx).
		Order("from_currency, to_currency").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]core.RatePair, 0, len(rows))
	for _, m := range rows {
		out = append(out, Pair(m).toDomain())
	}
	return out, nil
}

// LatestUpdate implements repository.RateStore.
func (r *rateRepository) LatestUpdate(ctx context.Context) (time.Time, error) {
	var m Pair
	err := r.db.WithContext(ctx).Order("updated_at DESC").Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return m.UpdatedAt, nil
}

// Count implements repository.RateStore.
func (r *rateRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Pair{}).Count(&n).Error
	return n, err
}

func pairsToDomain(rows []Pair) []core.RatePair {
	out := make([]core.RatePair, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out
}

type currencyRepository struct {
	db *gorm.DB
}

// NewCurrencyStore creates a gorm-backed currency metadata store.
func NewCurrencyStore(db *gorm.DB) repository.CurrencyStore {
	return &currencyRepository{db: db}
}

// GetCurrency implements repository.CurrencyStore.
func (r *currencyRepository) GetCurrency(ctx context.Context, code string) (*core.CurrencyMeta, error) {
	var m Currency
	err := r.db.WithContext(ctx).Where("code = ?", code).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	meta := m.toDomain()
	return &meta, nil
}

// ListCurrencies implements repository.CurrencyStore.
func (r *currencyRepository) ListCurrencies(ctx context.Context) ([]core.CurrencyMeta, error) {
	var rows []Currency
	if err := r.db.WithContext(ctx).Order("code").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]core.CurrencyMeta, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

// UpsertCurrencies implements repository.CurrencyStore.
func (r *currencyRepository) UpsertCurrencies(ctx context.Context, metas []core.CurrencyMeta) error {
	if len(metas) == 0 {
		return nil
	}
	rows := make([]Currency, 0, len(metas))
	for _, c := range metas {
		rows = append(rows, toCurrencyModel(c))
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			UpdateAll: true,
		}).
		CreateInBatches(&rows, batchSize).Error
}

// CountCurrencies implements repository.CurrencyStore.
func (r *currencyRepository) CountCurrencies(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Currency{}).Count(&n).Error
	return n, err
}
