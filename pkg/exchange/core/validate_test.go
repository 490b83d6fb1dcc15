package core_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want bool
	}{
		{"positive", 56.2, true},
		{"tiny", 1e-300, true},
		{"zero", 0, false},
		{"negative", -5, false},
		{"nan", math.NaN(), false},
		{"positive infinity", math.Inf(1), false},
		{"negative infinity", math.Inf(-1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.ValidRate(tt.rate))
		})
	}
}

func TestParseCode(t *testing.T) {
	code, err := core.ParseCode(" php ")
	require.NoError(t, err)
	assert.Equal(t, "PHP", code)

	code, err = core.ParseCode("usdc")
	require.NoError(t, err)
	assert.Equal(t, "USDC", code)

	for _, bad := range []string{"", "X", "US-D", "ABCDEFGHIJK", "€UR"} {
		_, err := core.ParseCode(bad)
		assert.ErrorIs(t, err, core.ErrInvalidCurrencyCode, bad)
	}
}

func TestProviderError(t *testing.T) {
	cause := errors.New("timeout")
	err := fmt.Errorf("fetch: %w", &core.ProviderError{Provider: "coingecko", Err: cause})

	assert.True(t, core.IsProviderError(err))
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "provider coingecko: timeout")
	assert.False(t, core.IsProviderError(cause))
}
