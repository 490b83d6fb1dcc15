package infra

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/amirasaad/fxrates/infra/repository/rates"
	"github.com/amirasaad/fxrates/pkg/config"
	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDBConnection_RequiresURL(t *testing.T) {
	_, err := NewDBConnection(config.DB{}, "test")
	require.Error(t, err)
}

func TestNewDBConnection_SQLiteMigrate(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "fx.db")
	assert.True(t, IsSQLite(url))
	assert.False(t, IsSQLite("postgres://localhost/fx"))

	db, err := NewDBConnection(config.DB{Url: url, ConnMaxLife: time.Hour}, "test")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	store := rates.NewRateStore(db)
	ctx := context.Background()
	require.NoError(t, store.UpsertPairs(ctx, []core.RatePair{
		{From: "BTC", To: "PHP", Rate: 5800000, UpdatedAt: time.Now()},
	}))
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
