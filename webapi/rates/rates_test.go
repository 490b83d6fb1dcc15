package rates

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/exchange/verify"
	"github.com/amirasaad/fxrates/pkg/provider/exchange"
	"github.com/amirasaad/fxrates/pkg/testutils"
	"github.com/amirasaad/fxrates/webapi/common"
	webtestutils "github.com/amirasaad/fxrates/webapi/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RatesTestSuite struct {
	suite.Suite
	app  *fiber.App
	feed *webtestutils.StaticFeed
}

func (s *RatesTestSuite) SetupTest() {
	s.feed = &webtestutils.StaticFeed{Rows: []core.RatePair{
		{From: "USD", To: "PHP", Rate: 57},
		{From: "USD", To: "JPY", Rate: 150},
	}}
	a := webtestutils.NewApp(s.T(), webtestutils.AppOptions{
		Pairs:      webtestutils.DefaultPairs(),
		Currencies: webtestutils.DefaultCurrencies(),
		Feeds:      []exchange.Feed{s.feed},
	})
	s.app = fiber.New()
	Routes(s.app, a)
}

func (s *RatesTestSuite) get(path string) *http.Response {
	return testutils.MakeRequest(s.T(), s.app, fiber.MethodGet, path, "")
}

func (s *RatesTestSuite) TestGetRate_Direct() {
	resp := s.get("/api/rates/usd/php")
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	env := webtestutils.Decode[core.ResolvedRate](s.T(), resp)
	s.Equal(56.0, env.Data.Rate)
	s.Equal(core.PathDirect, env.Data.PathUsed)
	s.Equal("USD", env.Data.FromCurrency)
}

func (s *RatesTestSuite) TestGetRate_Inverted() {
	resp := s.get("/api/rates/PHP/USD")
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	env := webtestutils.Decode[core.ResolvedRate](s.T(), resp)
	s.InDelta(1.0/56, env.Data.Rate, 1e-12)
	s.True(env.Data.IsInverted)
	s.Equal(0.95, env.Data.QualityScore)
}

func (s *RatesTestSuite) TestGetRate_Triangulated() {
	resp := s.get("/api/rates/BTC/PHP")
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	env := webtestutils.Decode[core.ResolvedRate](s.T(), resp)
	s.InDelta(60000*56.0, env.Data.Rate, 1e-6)
	s.Equal(core.PathTriangulated, env.Data.PathUsed)
	s.Equal("USD", env.Data.Via)
}

func (s *RatesTestSuite) TestGetRate_Unavailable() {
	resp := s.get("/api/rates/XAU/KRW")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusNotFound, resp.StatusCode)
	s.Equal("application/problem+json", resp.Header.Get(fiber.HeaderContentType))
}

func (s *RatesTestSuite) TestGetRate_InvalidCode() {
	resp := s.get("/api/rates/U$D/PHP")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func (s *RatesTestSuite) TestIsAvailable() {
	env := webtestutils.Decode[AvailabilityDTO](s.T(), s.get("/api/rates/eur/php/available"))
	s.True(env.Data.Available)
	s.Equal("EUR", env.Data.From)

	env = webtestutils.Decode[AvailabilityDTO](s.T(), s.get("/api/rates/XAU/PHP/available"))
	s.False(env.Data.Available)
}

func (s *RatesTestSuite) TestListFrom() {
	env := webtestutils.Decode[[]core.RatePair](s.T(), s.get("/api/rates/USD"))
	s.Len(env.Data, 2)
}

func (s *RatesTestSuite) TestConvert() {
	resp := s.get("/api/convert?from=USD&to=PHP&amount=10.5")
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	env := webtestutils.Decode[core.ConversionResult](s.T(), resp)
	s.Equal(588.0, env.Data.ToAmount)
	s.Equal("PHP", env.Data.ToCurrency)
}

func (s *RatesTestSuite) TestConvert_Validation() {
	for _, path := range []string{
		"/api/convert?from=USD&to=PHP",
		"/api/convert?from=USD&to=PHP&amount=-1",
		"/api/convert?to=PHP&amount=1",
		"/api/convert?from=USD&to=PHP&amount=abc",
	} {
		resp := s.get(path)
		s.Equal(fiber.StatusBadRequest, resp.StatusCode, path)
		_ = resp.Body.Close()
	}
}

func (s *RatesTestSuite) TestIngestThenThrottle() {
	resp := testutils.MakeRequest(s.T(), s.app, fiber.MethodPost, "/api/rates/ingest", "")
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	env := webtestutils.Decode[IngestDTO](s.T(), resp)
	s.True(env.Data.Ran)
	s.Equal(2, env.Data.Result.StoredCount)

	rate := webtestutils.Decode[core.ResolvedRate](s.T(), s.get("/api/rates/USD/PHP"))
	s.Equal(57.0, rate.Data.Rate, "resolver cache purged after ingestion")

	resp = testutils.MakeRequest(s.T(), s.app, fiber.MethodPost, "/api/rates/ingest", "")
	env = webtestutils.Decode[IngestDTO](s.T(), resp)
	s.False(env.Data.Ran)
	s.Equal("Refresh throttled", env.Message)

	resp = testutils.MakeRequest(s.T(), s.app, fiber.MethodPost, "/api/rates/ingest?force=true", "")
	env = webtestutils.Decode[IngestDTO](s.T(), resp)
	s.True(env.Data.Ran)
}

func (s *RatesTestSuite) TestIngest_Degraded() {
	s.feed.Err = assert.AnError
	resp := testutils.MakeRequest(s.T(), s.app, fiber.MethodPost, "/api/rates/ingest", "")
	s.Equal(fiber.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()
}

func (s *RatesTestSuite) TestStatus() {
	env := webtestutils.Decode[core.FetchStatus](s.T(), s.get("/api/rates/status"))
	s.True(env.Data.Available)
	s.True(env.Data.Estimated, "no snapshot yet so freshness is read from the table")
	s.Equal(int64(3), env.Data.PairCount)
}

func (s *RatesTestSuite) TestVerify() {
	env := webtestutils.Decode[verify.Report](s.T(), s.get("/api/rates/verify"))
	s.Equal("Rates consistent", env.Message)
	s.Equal(3, env.Data.Consistency.Checked)
}

func (s *RatesTestSuite) TestListRates() {
	env := webtestutils.Decode[[]core.RatePair](s.T(), s.get("/api/rates"))
	s.Len(env.Data, 3)
}

func TestRatesTestSuite(t *testing.T) {
	suite.Run(t, new(RatesTestSuite))
}

func TestGetRate_EmptyStoreReturnsProblem(t *testing.T) {
	a := webtestutils.NewApp(t, webtestutils.AppOptions{})
	app := fiber.New()
	Routes(app, a)

	resp := testutils.MakeRequest(t, app, fiber.MethodGet, "/api/rates/USD/PHP", "")
	defer resp.Body.Close() //nolint: errcheck
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var pd common.ProblemDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pd))
	assert.Equal(t, "Rate not resolved", pd.Title)
	assert.Equal(t, "/api/rates/USD/PHP", pd.Instance)
	assert.Contains(t, pd.Detail, core.ErrRateUnavailable.Error())
}
