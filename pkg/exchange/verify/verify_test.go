package verify_test

import (
	"context"
	"testing"

	"github.com/amirasaad/fxrates/infra/repository/memory"
	"github.com/amirasaad/fxrates/pkg/exchange/conversion"
	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/exchange/resolver"
	"github.com/amirasaad/fxrates/pkg/exchange/verify"
	"github.com/amirasaad/fxrates/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifier(pairs ...core.RatePair) *verify.Verifier {
	store := memory.NewRateStore(pairs...)
	log := testutils.DiscardLogger()
	res := resolver.New(store, resolver.WithLogger(log))
	conv := conversion.New(res, nil, log)
	return verify.New(store, res, conv, log)
}

func TestConsistency(t *testing.T) {
	v := newVerifier(
		core.RatePair{From: "USD", To: "PHP", Rate: 56.2},
		core.RatePair{From: "PHP", To: "USD", Rate: 1 / 56.2},
		core.RatePair{From: "BTC", To: "PHP", Rate: 5800000},
		core.RatePair{From: "EUR", To: "USD", Rate: 1.1},
		core.RatePair{From: "USD", To: "EUR", Rate: 1.1},
	)

	rep, err := v.Consistency(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Checked)
	assert.Equal(t, 3, rep.Consistent)
	assert.Equal(t, []string{"BTC:PHP"}, rep.OneWay)
	require.Len(t, rep.Mismatches, 2)
	assert.InDelta(t, 1.21, rep.Mismatches[0].Product, 1e-9)
	assert.False(t, rep.OK())
}

func TestConsistency_Tolerance(t *testing.T) {
	v := newVerifier(
		core.RatePair{From: "USD", To: "PHP", Rate: 56.2},
		core.RatePair{From: "PHP", To: "USD", Rate: 0.0179},
	)

	rep, err := v.Consistency(context.Background(), 0.01)
	require.NoError(t, err)
	assert.True(t, rep.OK())

	rep, err = v.Consistency(context.Background(), 0.0001)
	require.NoError(t, err)
	assert.False(t, rep.OK())
}

func TestRun(t *testing.T) {
	v := newVerifier(
		core.RatePair{From: "BTC", To: "PHP", Rate: 5800000},
		core.RatePair{From: "USD", To: "PHP", Rate: 56.2},
		core.RatePair{From: "ETH", To: "USD", Rate: 3000},
	)

	rep, err := v.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.OK())
	require.Len(t, rep.Pairs, len(verify.DefaultPairs))

	byPair := map[string]verify.PairCheck{}
	for _, p := range rep.Pairs {
		byPair[p.From+":"+p.To] = p
	}
	assert.Equal(t, core.PathDirect, byPair["BTC:PHP"].PathUsed)
	assert.NotEmpty(t, byPair["ADA:BTC"].Error)
	assert.Equal(t, core.PathDirect, byPair["ETH:USD"].PathUsed)

	require.Len(t, rep.Conversions, len(verify.DefaultConversions))
	usdPhp := rep.Conversions[1]
	require.NotNil(t, usdPhp.Result)
	assert.Equal(t, 56200.0, usdPhp.Result.ToAmount)
	ethPhp := rep.Conversions[2]
	require.NotNil(t, ethPhp.Result)
	assert.Equal(t, core.PathTriangulated, ethPhp.Result.PathUsed)
	assert.InDelta(t, 168600.0, ethPhp.Result.ToAmount, 1e-6)
}
