package statistics

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventtypes/fill"
	"github.com/thrasher-corp/backtester/log"
)

var tt = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

func curve(values ...float64) []EquityPoint {
	resp := make([]EquityPoint, len(values))
	for i := range values {
		resp[i] = EquityPoint{
			Time:   tt.AddDate(0, 0, i),
			Equity: decimal.NewFromFloat(values[i]),
			Cash:   decimal.NewFromFloat(values[i]),
		}
	}
	return resp
}

func TestAnalyzeZeroTrades(t *testing.T) {
	t.Parallel()
	m := Analyze(curve(100000, 100000, 100000), nil, Settings{InitialEquity: decimal.NewFromInt(100000)})
	require.NotNil(t, m)
	assert.Zero(t, m.TotalReturn)
	assert.Zero(t, m.MaxDrawdown)
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.TotalTrades)
	assert.True(t, m.TotalCommission.IsZero())
	assert.True(t, m.FinalEquity.Equal(decimal.NewFromInt(100000)))
	for _, name := range []string{SharpeRatioMetric, SortinoRatioMetric, CalmarRatioMetric, VolatilityMetric, WinRateMetric, ProfitFactorMetric} {
		assert.True(t, m.IsUndefined(name), name)
	}
	assert.False(t, m.IsUndefined(TotalReturnMetric))
	assert.Equal(t, float64(DefaultAnnualizationFactor), m.AnnualizationFactor)
}

func TestAnalyzeEmpty(t *testing.T) {
	t.Parallel()
	m := Analyze(nil, nil, Settings{})
	require.NotNil(t, m)
	assert.True(t, m.IsUndefined(TotalReturnMetric))
	assert.True(t, m.IsUndefined(AnnualizedReturnMetric))
	assert.Zero(t, m.Periods)
}

func TestAnalyzeReturns(t *testing.T) {
	t.Parallel()
	m := Analyze(curve(110, 99, 121), nil, Settings{
		InitialEquity:       decimal.NewFromInt(100),
		AnnualizationFactor: 3,
	})
	assert.InDelta(t, 0.21, m.TotalReturn, 1e-9)
	assert.InDelta(t, 0.1, m.MaxDrawdown, 1e-9)
	assert.InDelta(t, 0.21, m.AnnualizedReturn, 1e-9, "three periods at three per year is one year")
	assert.InDelta(t, 2.1, m.CalmarRatio, 1e-9)
	assert.Positive(t, m.SharpeRatio)
	assert.Positive(t, m.SortinoRatio)
	assert.Positive(t, m.Volatility)
	assert.False(t, m.IsUndefined(SharpeRatioMetric))
	assert.Equal(t, tt, m.StartTime)
	assert.Equal(t, tt.AddDate(0, 0, 2), m.EndTime)
	assert.Equal(t, 3, m.Periods)

	returns := []float64{0.1, -0.1, 2.0 / 9}
	mean := (returns[0] + returns[1] + returns[2]) / 3
	var sq float64
	for _, r := range returns {
		sq += (r - mean) * (r - mean)
	}
	std := math.Sqrt(sq / 2)
	assert.InDelta(t, mean/std*math.Sqrt(3), m.SharpeRatio, 1e-9)
}

func TestAnalyzeRiskFreeRate(t *testing.T) {
	t.Parallel()
	base := Analyze(curve(110, 99, 121), nil, Settings{InitialEquity: decimal.NewFromInt(100)})
	withRate := Analyze(curve(110, 99, 121), nil, Settings{InitialEquity: decimal.NewFromInt(100), RiskFreeRate: 0.05})
	assert.Less(t, withRate.SharpeRatio, base.SharpeRatio)
}

func TestAnalyzeTrades(t *testing.T) {
	t.Parallel()
	trades := []*fill.Fill{
		{Side: common.Buy, Quantity: decimal.NewFromInt(10), Commission: decimal.NewFromInt(1)},
		{Side: common.Sell, Quantity: decimal.NewFromInt(5), Commission: decimal.NewFromInt(1), ClosedQuantity: decimal.NewFromInt(5), RealisedPnL: decimal.NewFromInt(21)},
		{Side: common.Sell, Quantity: decimal.NewFromInt(5), Commission: decimal.NewFromInt(1), ClosedQuantity: decimal.NewFromInt(5), RealisedPnL: decimal.NewFromInt(-9)},
		{Side: common.Sell, Quantity: decimal.NewFromInt(1), Commission: decimal.NewFromInt(1), ClosedQuantity: decimal.NewFromInt(1), RealisedPnL: decimal.NewFromInt(1)},
		nil,
	}
	m := Analyze(curve(100, 101), trades, Settings{InitialEquity: decimal.NewFromInt(100)})
	assert.Equal(t, int64(4), m.TotalTrades)
	assert.Equal(t, int64(1), m.BuyTrades)
	assert.Equal(t, int64(3), m.SellTrades)
	assert.Equal(t, int64(3), m.ClosingTrades)
	assert.Equal(t, int64(1), m.WinningTrades, "a trade whose profit only covers commission is not a win")
	assert.InDelta(t, 1.0/3, m.WinRate, 1e-9)
	assert.InDelta(t, 2, m.ProfitFactor, 1e-9)
	assert.True(t, m.TotalCommission.Equal(decimal.NewFromInt(4)))
	assert.True(t, m.RealisedPnL.Equal(decimal.NewFromInt(13)))

	m = Analyze(curve(100, 101), trades[1:2], Settings{InitialEquity: decimal.NewFromInt(100)})
	assert.Equal(t, float64(1), m.WinRate)
	assert.True(t, m.IsUndefined(ProfitFactorMetric), "no losing trades")
}

func TestAnalyzeTotalLoss(t *testing.T) {
	t.Parallel()
	m := Analyze(curve(50, 0), nil, Settings{InitialEquity: decimal.NewFromInt(100)})
	assert.InDelta(t, -1, m.TotalReturn, 1e-9)
	assert.InDelta(t, 1, m.MaxDrawdown, 1e-9)
	assert.True(t, m.IsUndefined(AnnualizedReturnMetric))
	assert.True(t, m.IsUndefined(CalmarRatioMetric))
}

func TestAnnualizationFactorForInterval(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		interval string
		expected float64
	}{
		{"1d", 252},
		{"1D", 252},
		{"24h", 252},
		{"2d", 126},
		{"1w", 52},
		{"168h", 52},
		{"1M", 12},
		{"3mo", 4},
		{"1h", 8760},
		{"15m", 35040},
	} {
		f, err := AnnualizationFactorForInterval(tc.interval)
		require.NoError(t, err, tc.interval)
		assert.InDelta(t, tc.expected, f, 1e-9, tc.interval)
	}
	for _, bad := range []string{"", "0d", "-1h", "daily"} {
		_, err := AnnualizationFactorForInterval(bad)
		assert.ErrorIs(t, err, errInvalidInterval, bad)
	}
	assert.NoError(t, ValidateAnnualizationFactor(365))
	assert.ErrorIs(t, ValidateAnnualizationFactor(0), errInvalidAnnualizationFactor)
	assert.ErrorIs(t, ValidateAnnualizationFactor(math.Inf(1)), errInvalidAnnualizationFactor)
}

func TestSerialiseAndPrint(t *testing.T) {
	t.Parallel()
	m := Analyze(curve(100, 100), nil, Settings{InitialEquity: decimal.NewFromInt(100)})
	s, err := m.Serialise()
	require.NoError(t, err)
	assert.Contains(t, s, `"sharpe-ratio"`)
	assert.Contains(t, s, SharpeRatioMetric)

	var buf bytes.Buffer
	l := log.NewWithWriter(&buf, log.Levels{Info: true, Warn: true})
	m.PrintResults(l.SubLogger(common.Statistics))
	assert.True(t, strings.Contains(buf.String(), "Total return"))
	assert.True(t, strings.Contains(buf.String(), "Undefined metrics"))
}
