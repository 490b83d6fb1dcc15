package rates

import (
	"time"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
)

// Pair is a row of the primary pairs table.
type Pair struct {
	FromCurrency string    `gorm:"primaryKey;type:varchar(10)"`
	ToCurrency   string    `gorm:"primaryKey;type:varchar(10)"`
	Rate         float64   `gorm:"not null"`
	Source       string    `gorm:"type:varchar(64);not null"`
	UpdatedAt    time.Time `gorm:"not null;index;autoUpdateTime:false"`
	ExpiresAt    *time.Time
}

// TableName specifies the table name for the Pair model.
func (Pair) TableName() string {
	return "pairs"
}

// CryptoRate mirrors Pair for readers of the crypto table.
type CryptoRate Pair

// TableName specifies the table name for the CryptoRate model.
func (CryptoRate) TableName() string {
	return "crypto_rates"
}

// Currency is a row of the currencies table.
type Currency struct {
	Code     string `gorm:"primaryKey;type:varchar(10)"`
	Name     string `gorm:"type:varchar(128)"`
	Type     string `gorm:"type:varchar(16)"`
	Symbol   string `gorm:"type:varchar(16)"`
	Decimals int
	Country  string `gorm:"type:varchar(128)"`
	Region   string `gorm:"type:varchar(128)"`
	Active   bool
}

// TableName specifies the table name for the Currency model.
func (Currency) TableName() string {
	return "currencies"
}

func toPairModel(p core.RatePair) Pair {
	m := Pair{
		FromCurrency: p.From,
		ToCurrency:   p.To,
		Rate:         p.Rate,
		Source:       p.Source,
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
	if !p.ExpiresAt.IsZero() {
		exp := p.ExpiresAt.UTC()
		m.ExpiresAt = &exp
	}
	return m
}

func (m Pair) toDomain() core.RatePair {
	p := core.RatePair{
		From:      m.FromCurrency,
		To:        m.ToCurrency,
		Rate:      m.Rate,
		Source:    m.Source,
		UpdatedAt: m.UpdatedAt,
	}
	if m.ExpiresAt != nil {
		p.ExpiresAt = *m.ExpiresAt
	}
	return p
}

func toCurrencyModel(c core.CurrencyMeta) Currency {
	return Currency{
		Code:     c.Code,
		Name:     c.Name,
		Type:     string(c.Type),
		Symbol:   c.Symbol,
		Decimals: c.Decimals,
		Country:  c.Country,
		Region:   c.Region,
		Active:   c.Active,
	}
}

func (m Currency) toDomain() core.CurrencyMeta {
	return core.CurrencyMeta{
		Code:     m.Code,
		Name:     m.Name,
		Type:     core.CurrencyType(m.Type),
		Symbol:   m.Symbol,
		Decimals: m.Decimals,
		Country:  m.Country,
		Region:   m.Region,
		Active:   m.Active,
	}
}
