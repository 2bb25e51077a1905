package config

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/thrasher-corp/backtester/data"
	"github.com/thrasher-corp/backtester/eventhandlers/exchange"
	"github.com/thrasher-corp/backtester/eventhandlers/statistics"
	"github.com/thrasher-corp/backtester/log"
)

const strategyParametersKey = "strategy.parameters"

// ReadConfigFromFile loads a config from a yaml or json file. The format is
// chosen by the file extension and BACKTESTER_ prefixed environment
// variables override file values
func ReadConfigFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read config %q: %w", path, err)
	}
	return unmarshal(v)
}

// LoadConfig unmarshalls yaml or json byte data into a config struct
func LoadConfig(data []byte, format string) (*Config, error) {
	v := newViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	c := new(Config)
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		timeToStringHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(c, hooks); err != nil {
		return nil, err
	}
	return c, nil
}

// timeToStringHookFunc formats yaml timestamps, such as an unquoted
// 2021-01-01, back into strings for the date fields
func timeToStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		t, ok := data.(time.Time)
		if !ok || to.Kind() != reflect.String {
			return data, nil
		}
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly), nil
		}
		return t.Format(time.RFC3339Nano), nil
	}
}

// newViper returns a viper instance aware of every config key so that
// environment overrides apply even when the file omits a key
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range GenerateDefault().settings() {
		if k == strategyParametersKey {
			// parameters belong to a single strategy, never merged with another's
			continue
		}
		v.SetDefault(k, val)
	}
	return v
}

// GenerateDefault returns a config running the moving average crossover
// over a directory of csv files
func GenerateDefault() *Config {
	return &Config{
		DataProvider: DataProvider{
			Type:            defaultDataType,
			Path:            defaultDataPath,
			TimestampColumn: "timestamp",
			SymbolColumn:    "symbol",
			OHLCVColumns: OHLCVColumns{
				Open:   "open",
				High:   "high",
				Low:    "low",
				Close:  "close",
				Volume: "volume",
			},
			BatchSize: data.DefaultBatchSize,
		},
		ExecutionProvider: ExecutionProvider{
			Type:           defaultExecutionType,
			InitialCash:    defaultInitialCash,
			CommissionRate: defaultCommissionRate,
			FillPrice:      defaultFillPrice,
		},
		RiskManager: RiskManager{
			MaxPositionSize:  defaultMaxPositionSize,
			MaxOrderSize:     defaultMaxOrderSize,
			MaxConcentration: defaultMaxConcentration,
			MaxDrawdown:      defaultMaxDrawdown,
		},
		Strategy: Strategy{
			Type: defaultStrategy,
			Parameters: map[string]any{
				"short_window":  defaultShortWindow,
				"long_window":   defaultLongWindow,
				"position_size": defaultPositionSize,
			},
		},
		Symbols: []string{},
		Backtest: Backtest{
			Interval:   defaultInterval,
			MaxRetries: defaultMaxRetries,
		},
		Output: Output{
			Directory:      defaultOutputDirectory,
			SaveTrades:     true,
			SaveEquity:     true,
			SaveRejections: true,
			SaveAnomalies:  true,
			SaveMetrics:    true,
		},
		Logging: *log.GenDefaultSettings(),
	}
}

// settings flattens the config into viper's dotted keys
func (c *Config) settings() map[string]any {
	return map[string]any{
		"data_provider.type":                 c.DataProvider.Type,
		"data_provider.path":                 c.DataProvider.Path,
		"data_provider.driver":               c.DataProvider.Driver,
		"data_provider.dsn":                  c.DataProvider.DSN,
		"data_provider.table":                c.DataProvider.Table,
		"data_provider.timestamp_column":     c.DataProvider.TimestampColumn,
		"data_provider.symbol_column":        c.DataProvider.SymbolColumn,
		"data_provider.ohlcv_columns.open":   c.DataProvider.OHLCVColumns.Open,
		"data_provider.ohlcv_columns.high":   c.DataProvider.OHLCVColumns.High,
		"data_provider.ohlcv_columns.low":    c.DataProvider.OHLCVColumns.Low,
		"data_provider.ohlcv_columns.close":  c.DataProvider.OHLCVColumns.Close,
		"data_provider.ohlcv_columns.volume": c.DataProvider.OHLCVColumns.Volume,
		"data_provider.date_format":          c.DataProvider.DateFormat,
		"data_provider.batch_size":           c.DataProvider.BatchSize,
		"data_provider.replay_speed":         c.DataProvider.ReplaySpeed,

		"execution_provider.type":                     c.ExecutionProvider.Type,
		"execution_provider.initial_cash":             c.ExecutionProvider.InitialCash,
		"execution_provider.commission_rate":          c.ExecutionProvider.CommissionRate,
		"execution_provider.slippage":                 c.ExecutionProvider.Slippage,
		"execution_provider.fill_price":               c.ExecutionProvider.FillPrice,
		"execution_provider.max_volume_participation": c.ExecutionProvider.MaxVolumeParticipation,
		"execution_provider.limit_order_lifetime":     c.ExecutionProvider.LimitOrderLifetime,
		"execution_provider.allow_margin":             c.ExecutionProvider.AllowMargin,
		"execution_provider.allow_short":              c.ExecutionProvider.AllowShort,

		"risk_manager.max_position_size": c.RiskManager.MaxPositionSize,
		"risk_manager.max_order_size":    c.RiskManager.MaxOrderSize,
		"risk_manager.max_concentration": c.RiskManager.MaxConcentration,
		"risk_manager.max_drawdown":      c.RiskManager.MaxDrawdown,

		"strategy.type":       c.Strategy.Type,
		strategyParametersKey: c.Strategy.Parameters,

		"symbols": c.Symbols,

		"backtest.start_date":           c.Backtest.StartDate,
		"backtest.end_date":             c.Backtest.EndDate,
		"backtest.interval":             c.Backtest.Interval,
		"backtest.risk_free_rate":       c.Backtest.RiskFreeRate,
		"backtest.annualization_factor": c.Backtest.AnnualizationFactor,
		"backtest.max_retries":          c.Backtest.MaxRetries,

		"output.directory":       c.Output.Directory,
		"output.save_trades":     c.Output.SaveTrades,
		"output.save_equity":     c.Output.SaveEquity,
		"output.save_rejections": c.Output.SaveRejections,
		"output.save_anomalies":  c.Output.SaveAnomalies,
		"output.save_metrics":    c.Output.SaveMetrics,
		"output.plot_equity":     c.Output.PlotEquity,
		"output.plot_drawdown":   c.Output.PlotDrawdown,

		"logging.level":   c.Logging.Level,
		"logging.file":    c.Logging.File,
		"logging.console": c.Logging.Console,
	}
}

// SaveConfig writes the config to path, in yaml or json depending on
// the file extension
func (c *Config) SaveConfig(path string) error {
	v := viper.New()
	for k, val := range c.settings() {
		v.Set(k, val)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config %q: %w", path, err)
	}
	return nil
}

// Validate checks all config settings
func (c *Config) Validate() error {
	err := c.validateDataProvider()
	if err != nil {
		return err
	}
	err = c.validateExecutionProvider()
	if err != nil {
		return err
	}
	err = c.validateRiskManager()
	if err != nil {
		return err
	}
	if c.Strategy.Type == "" {
		return errNoStrategy
	}
	err = c.validateBacktest()
	if err != nil {
		return err
	}
	if _, err = log.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return c.validateOutput()
}

func (c *Config) validateDataProvider() error {
	if c.DataProvider.Type == "" {
		return errNoDataProvider
	}
	if c.DataProvider.BatchSize < 0 {
		return fmt.Errorf("data_provider.batch_size %w: %v", errNegativeValue, c.DataProvider.BatchSize)
	}
	if c.DataProvider.ReplaySpeed < 0 {
		return fmt.Errorf("data_provider.replay_speed %w: %v", errNegativeValue, c.DataProvider.ReplaySpeed)
	}
	return nil
}

func (c *Config) validateExecutionProvider() error {
	ep := c.ExecutionProvider
	if ep.Type == "" {
		return errNoExecutionProvider
	}
	if ep.InitialCash <= 0 {
		return fmt.Errorf("%w, received %v", errInitialCashZero, ep.InitialCash)
	}
	for name, v := range map[string]float64{
		"commission_rate": ep.CommissionRate,
		"slippage":        ep.Slippage,
	} {
		if v < 0 {
			return fmt.Errorf("execution_provider.%v %w: %v", name, errNegativeValue, v)
		}
	}
	if err := validateFraction("execution_provider.max_volume_participation", ep.MaxVolumeParticipation); err != nil {
		return err
	}
	if ep.LimitOrderLifetime < 0 {
		return fmt.Errorf("execution_provider.limit_order_lifetime %w: %v", errNegativeValue, ep.LimitOrderLifetime)
	}
	if ep.FillPrice != "" {
		if _, err := exchange.ParseFillPolicy(ep.FillPrice); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateRiskManager() error {
	for _, l := range []struct {
		name  string
		value float64
	}{
		{"risk_manager.max_position_size", c.RiskManager.MaxPositionSize},
		{"risk_manager.max_order_size", c.RiskManager.MaxOrderSize},
		{"risk_manager.max_concentration", c.RiskManager.MaxConcentration},
		{"risk_manager.max_drawdown", c.RiskManager.MaxDrawdown},
	} {
		if err := validateFraction(l.name, l.value); err != nil {
			return err
		}
	}
	return nil
}

func validateFraction(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%v %w: %v", name, errFractionRange, v)
	}
	return nil
}

func (c *Config) validateBacktest() error {
	start, end, err := c.Backtest.DateRange()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return fmt.Errorf("%w: %v %v", errStartAfterEnd, start, end)
	}
	if c.Backtest.MaxRetries < 0 {
		return fmt.Errorf("backtest.max_retries %w: %v", errNegativeValue, c.Backtest.MaxRetries)
	}
	if c.Backtest.AnnualizationFactor < 0 {
		return fmt.Errorf("%w: %v", errInvalidAnnualizationValue, c.Backtest.AnnualizationFactor)
	}
	_, err = c.Backtest.GetAnnualizationFactor()
	return err
}

func (c *Config) validateOutput() error {
	o := c.Output
	if o.Directory == "" && (o.SaveTrades || o.SaveEquity || o.SaveRejections || o.SaveAnomalies || o.SaveMetrics) {
		return errNoOutputDirectory
	}
	return nil
}

// DateRange returns the parsed start and end dates. An unset date is
// returned as the zero time and leaves that side of the range open
func (b *Backtest) DateRange() (start, end time.Time, err error) {
	if b.StartDate != "" {
		start, err = data.ParseTimestamp(b.StartDate, "")
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("backtest.start_date: %w", err)
		}
	}
	if b.EndDate != "" {
		end, err = data.ParseTimestamp(b.EndDate, "")
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("backtest.end_date: %w", err)
		}
	}
	return start, end, nil
}

// GetAnnualizationFactor returns the configured factor, or derives one
// from the bar interval when unset
func (b *Backtest) GetAnnualizationFactor() (float64, error) {
	if b.AnnualizationFactor > 0 {
		return b.AnnualizationFactor, nil
	}
	if b.Interval == "" {
		return statistics.DefaultAnnualizationFactor, nil
	}
	return statistics.AnnualizationFactorForInterval(b.Interval)
}

// DataSettings converts the data provider section into provider settings
func (c *Config) DataSettings() data.Settings {
	dp := c.DataProvider
	return data.Settings{
		Type:   dp.Type,
		Path:   dp.Path,
		Driver: dp.Driver,
		DSN:    dp.DSN,
		Table:  dp.Table,
		Columns: data.Columns{
			Timestamp: dp.TimestampColumn,
			Symbol:    dp.SymbolColumn,
			Open:      dp.OHLCVColumns.Open,
			High:      dp.OHLCVColumns.High,
			Low:       dp.OHLCVColumns.Low,
			Close:     dp.OHLCVColumns.Close,
			Volume:    dp.OHLCVColumns.Volume,
		},
		DateFormat:  dp.DateFormat,
		Symbols:     c.Symbols,
		BatchSize:   dp.BatchSize,
		ReplaySpeed: dp.ReplaySpeed,
	}
}
