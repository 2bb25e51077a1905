package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/backtester/data"
	"github.com/thrasher-corp/backtester/eventhandlers/statistics"
)

const testYAML = `
data_provider:
  type: csv
  path: testdata/bars
  ohlcv_columns:
    close: last
execution_provider:
  initial_cash: 50000
  fill_price: next_open
  limit_order_lifetime: 2
risk_manager:
  max_drawdown: 0.2
strategy:
  type: rsi
  parameters:
    period: 7
    low: 25
symbols:
  - AAA
  - BBB
backtest:
  start_date: 2021-01-01
  end_date: 2021-06-30
  interval: 1w
output:
  directory: out
  plot_equity: true
logging:
  level: DEBUG
`

func TestGenerateDefault(t *testing.T) {
	t.Parallel()
	c := GenerateDefault()
	require.NoError(t, c.Validate())
	assert.Equal(t, defaultInitialCash, c.ExecutionProvider.InitialCash)
	assert.Equal(t, defaultCommissionRate, c.ExecutionProvider.CommissionRate)
	assert.Equal(t, defaultMaxPositionSize, c.RiskManager.MaxPositionSize)
	assert.Equal(t, defaultMaxOrderSize, c.RiskManager.MaxOrderSize)
	assert.Equal(t, defaultMaxConcentration, c.RiskManager.MaxConcentration)
	assert.Equal(t, defaultMaxDrawdown, c.RiskManager.MaxDrawdown)
	assert.Equal(t, defaultStrategy, c.Strategy.Type)
	assert.Equal(t, defaultShortWindow, c.Strategy.Parameters["short_window"])
	assert.Equal(t, defaultLongWindow, c.Strategy.Parameters["long_window"])
	assert.Equal(t, "1d", c.Backtest.Interval)
	assert.Equal(t, "next_open", c.ExecutionProvider.FillPrice)
	assert.Equal(t, "results", c.Output.Directory)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	c, err := LoadConfig([]byte(testYAML), "yaml")
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "csv", c.DataProvider.Type)
	assert.Equal(t, "testdata/bars", c.DataProvider.Path)
	assert.Equal(t, "last", c.DataProvider.OHLCVColumns.Close)
	assert.Equal(t, "open", c.DataProvider.OHLCVColumns.Open, "unset keys should use defaults")
	assert.Equal(t, data.DefaultBatchSize, c.DataProvider.BatchSize)

	assert.Equal(t, "backtest", c.ExecutionProvider.Type)
	assert.Equal(t, 50000.0, c.ExecutionProvider.InitialCash)
	assert.Equal(t, defaultCommissionRate, c.ExecutionProvider.CommissionRate)
	assert.Equal(t, "next_open", c.ExecutionProvider.FillPrice)
	assert.Equal(t, 2, c.ExecutionProvider.LimitOrderLifetime)

	assert.Equal(t, 0.2, c.RiskManager.MaxDrawdown)
	assert.Equal(t, defaultMaxOrderSize, c.RiskManager.MaxOrderSize)

	assert.Equal(t, "rsi", c.Strategy.Type)
	assert.Len(t, c.Strategy.Parameters, 2, "default strategy parameters must not leak into another strategy")
	assert.EqualValues(t, 7, c.Strategy.Parameters["period"])

	assert.Equal(t, []string{"AAA", "BBB"}, c.Symbols)
	assert.Equal(t, "out", c.Output.Directory)
	assert.True(t, c.Output.PlotEquity)
	assert.True(t, c.Output.SaveTrades)
	assert.Equal(t, "DEBUG", c.Logging.Level)

	af, err := c.Backtest.GetAnnualizationFactor()
	require.NoError(t, err)
	assert.Equal(t, 52.0, af)
}

func TestLoadConfigUnquotedDates(t *testing.T) {
	t.Parallel()
	c, err := LoadConfig([]byte(testYAML), "yaml")
	require.NoError(t, err)
	assert.Equal(t, "2021-01-01", c.Backtest.StartDate)
	assert.Equal(t, "2021-06-30", c.Backtest.EndDate)

	c, err = LoadConfig([]byte("backtest:\n  start_date: 2021-01-01T09:30:00Z\n  end_date: \"2021-02-01\"\n"), "yaml")
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	start, end, err := c.Backtest.DateRange()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 1, 9, 30, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestLoadConfigJSON(t *testing.T) {
	t.Parallel()
	c, err := LoadConfig([]byte(`{"strategy":{"type":"buy_and_hold","parameters":{"weight":0.5}},"execution_provider":{"allow_short":true}}`), "json")
	require.NoError(t, err)
	assert.Equal(t, "buy_and_hold", c.Strategy.Type)
	assert.Equal(t, 0.5, c.Strategy.Parameters["weight"])
	assert.True(t, c.ExecutionProvider.AllowShort)
	assert.Equal(t, defaultInitialCash, c.ExecutionProvider.InitialCash)

	_, err = LoadConfig([]byte("{"), "json")
	assert.Error(t, err)
}

func TestReadConfigFromFile(t *testing.T) {
	// t.Setenv cannot be used alongside t.Parallel
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))

	t.Setenv("BACKTESTER_EXECUTION_PROVIDER_INITIAL_CASH", "1234.5")
	t.Setenv("BACKTESTER_EXECUTION_PROVIDER_SLIPPAGE", "0.002")
	c, err := ReadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, c.ExecutionProvider.InitialCash, "environment should override the file")
	assert.Equal(t, 0.002, c.ExecutionProvider.Slippage, "environment should override defaults")

	_, err = ReadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveConfig(t *testing.T) {
	t.Parallel()
	for _, ext := range []string{"yaml", "json"} {
		path := filepath.Join(t.TempDir(), "config."+ext)
		c := GenerateDefault()
		c.Symbols = []string{"AAA"}
		c.Backtest.StartDate = "2020-01-01"
		c.Output.PlotDrawdown = true
		require.NoError(t, c.SaveConfig(path), ext)

		loaded, err := ReadConfigFromFile(path)
		require.NoError(t, err, ext)
		require.NoError(t, loaded.Validate(), ext)
		assert.Equal(t, c.Symbols, loaded.Symbols, ext)
		assert.Equal(t, c.Strategy.Type, loaded.Strategy.Type, ext)
		assert.EqualValues(t, defaultLongWindow, loaded.Strategy.Parameters["long_window"], ext)
		assert.Equal(t, "2020-01-01", loaded.Backtest.StartDate, ext)
		assert.True(t, loaded.Output.PlotDrawdown, ext)
		assert.Equal(t, c.RiskManager, loaded.RiskManager, ext)
	}

	err := GenerateDefault().SaveConfig(filepath.Join(t.TempDir(), "config.unknown"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		err    error
	}{
		{"no data provider", func(c *Config) { c.DataProvider.Type = "" }, errNoDataProvider},
		{"negative batch", func(c *Config) { c.DataProvider.BatchSize = -1 }, errNegativeValue},
		{"negative replay", func(c *Config) { c.DataProvider.ReplaySpeed = -1 }, errNegativeValue},
		{"no execution provider", func(c *Config) { c.ExecutionProvider.Type = "" }, errNoExecutionProvider},
		{"zero cash", func(c *Config) { c.ExecutionProvider.InitialCash = 0 }, errInitialCashZero},
		{"negative commission", func(c *Config) { c.ExecutionProvider.CommissionRate = -0.1 }, errNegativeValue},
		{"negative slippage", func(c *Config) { c.ExecutionProvider.Slippage = -0.1 }, errNegativeValue},
		{"participation", func(c *Config) { c.ExecutionProvider.MaxVolumeParticipation = 1.5 }, errFractionRange},
		{"lifetime", func(c *Config) { c.ExecutionProvider.LimitOrderLifetime = -1 }, errNegativeValue},
		{"position size", func(c *Config) { c.RiskManager.MaxPositionSize = 2 }, errFractionRange},
		{"drawdown", func(c *Config) { c.RiskManager.MaxDrawdown = -0.5 }, errFractionRange},
		{"no strategy", func(c *Config) { c.Strategy.Type = "" }, errNoStrategy},
		{"dates", func(c *Config) {
			c.Backtest.StartDate = "2021-02-01"
			c.Backtest.EndDate = "2021-01-01"
		}, errStartAfterEnd},
		{"bad date", func(c *Config) { c.Backtest.EndDate = "yesterday" }, data.ErrInvalidTimestamp},
		{"retries", func(c *Config) { c.Backtest.MaxRetries = -1 }, errNegativeValue},
		{"annualization", func(c *Config) { c.Backtest.AnnualizationFactor = -1 }, errInvalidAnnualizationValue},
		{"output", func(c *Config) { c.Output.Directory = "" }, errNoOutputDirectory},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := GenerateDefault()
			tc.mutate(c)
			assert.ErrorIs(t, c.Validate(), tc.err)
		})
	}

	c := GenerateDefault()
	c.ExecutionProvider.FillPrice = "vwap"
	assert.Error(t, c.Validate(), "unknown fill policy should fail")

	c = GenerateDefault()
	c.Backtest.Interval = "fortnightly"
	assert.Error(t, c.Validate(), "unknown interval should fail without an explicit factor")
	c.Backtest.AnnualizationFactor = 26
	assert.NoError(t, c.Validate())

	c = GenerateDefault()
	c.Logging.Level = "LOUD"
	assert.Error(t, c.Validate())

	c = GenerateDefault()
	c.Output = Output{}
	assert.NoError(t, c.Validate(), "nothing saved needs no directory")
}

func TestDateRange(t *testing.T) {
	t.Parallel()
	b := Backtest{}
	start, end, err := b.DateRange()
	require.NoError(t, err)
	assert.True(t, start.IsZero())
	assert.True(t, end.IsZero())

	b.StartDate = "2021-01-01"
	b.EndDate = "2021-01-31T12:00:00Z"
	start, end, err = b.DateRange()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2021, 1, 31, 12, 0, 0, 0, time.UTC), end)

	b.StartDate = "nope"
	_, _, err = b.DateRange()
	assert.ErrorIs(t, err, data.ErrInvalidTimestamp)
}

func TestGetAnnualizationFactor(t *testing.T) {
	t.Parallel()
	b := Backtest{}
	af, err := b.GetAnnualizationFactor()
	require.NoError(t, err)
	assert.Equal(t, float64(statistics.DefaultAnnualizationFactor), af)

	b.Interval = "1h"
	af, err = b.GetAnnualizationFactor()
	require.NoError(t, err)
	assert.Equal(t, 8760.0, af)

	b.AnnualizationFactor = 365
	af, err = b.GetAnnualizationFactor()
	require.NoError(t, err)
	assert.Equal(t, 365.0, af)
}

func TestDataSettings(t *testing.T) {
	t.Parallel()
	c := GenerateDefault()
	c.Symbols = []string{"AAA"}
	c.DataProvider.ReplaySpeed = 4
	c.DataProvider.OHLCVColumns.Volume = "qty"
	s := c.DataSettings()
	assert.Equal(t, "csv", s.Type)
	assert.Equal(t, "data", s.Path)
	assert.Equal(t, "timestamp", s.Columns.Timestamp)
	assert.Equal(t, "qty", s.Columns.Volume)
	assert.Equal(t, []string{"AAA"}, s.Symbols)
	assert.Equal(t, 4.0, s.ReplaySpeed)
}

func TestExampleConfigs(t *testing.T) {
	t.Parallel()
	paths, err := filepath.Glob(filepath.Join("examples", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, path := range paths {
		c, err := ReadConfigFromFile(path)
		require.NoError(t, err, path)
		assert.NoError(t, c.Validate(), path)
	}
}
