package config

import (
	"errors"

	"github.com/thrasher-corp/backtester/log"
)

// EnvPrefix is prepended to every environment variable override,
// eg BACKTESTER_EXECUTION_PROVIDER_INITIAL_CASH
const EnvPrefix = "BACKTESTER"

const (
	defaultDataType         = "csv"
	defaultDataPath         = "data"
	defaultExecutionType    = "backtest"
	defaultInitialCash      = 100000.0
	defaultCommissionRate   = 0.001
	defaultFillPrice        = "next_open"
	defaultMaxPositionSize  = 0.1
	defaultMaxOrderSize     = 0.05
	defaultMaxConcentration = 0.25
	defaultMaxDrawdown      = 0.1
	defaultStrategy         = "moving_average_crossover"
	defaultShortWindow      = 10
	defaultLongWindow       = 50
	defaultPositionSize     = 0.1
	defaultInterval         = "1d"
	defaultMaxRetries       = 3
	defaultOutputDirectory  = "results"
)

var (
	errNoDataProvider            = errors.New("data provider type not set")
	errNoExecutionProvider       = errors.New("execution provider type not set")
	errNoStrategy                = errors.New("strategy type not set")
	errInitialCashZero           = errors.New("initial cash must be greater than zero")
	errNegativeValue             = errors.New("value cannot be negative")
	errFractionRange             = errors.New("value must be between 0 and 1")
	errStartAfterEnd             = errors.New("start date is after end date")
	errNoOutputDirectory         = errors.New("output directory required when saving results")
	errInvalidAnnualizationValue = errors.New("annualization factor cannot be negative")
)

// Config is everything needed to run a single backtest
type Config struct {
	DataProvider      DataProvider      `mapstructure:"data_provider"`
	ExecutionProvider ExecutionProvider `mapstructure:"execution_provider"`
	RiskManager       RiskManager       `mapstructure:"risk_manager"`
	Strategy          Strategy          `mapstructure:"strategy"`
	Symbols           []string          `mapstructure:"symbols"`
	Backtest          Backtest          `mapstructure:"backtest"`
	Output            Output            `mapstructure:"output"`
	Logging           log.Config        `mapstructure:"logging"`
}

// DataProvider selects and configures the market data source
type DataProvider struct {
	Type            string       `mapstructure:"type"`
	Path            string       `mapstructure:"path"`
	Driver          string       `mapstructure:"driver"`
	DSN             string       `mapstructure:"dsn"`
	Table           string       `mapstructure:"table"`
	TimestampColumn string       `mapstructure:"timestamp_column"`
	SymbolColumn    string       `mapstructure:"symbol_column"`
	OHLCVColumns    OHLCVColumns `mapstructure:"ohlcv_columns"`
	DateFormat      string       `mapstructure:"date_format"`
	BatchSize       int          `mapstructure:"batch_size"`
	// ReplaySpeed is the number of batches released per second, zero is unthrottled
	ReplaySpeed float64 `mapstructure:"replay_speed"`
}

// OHLCVColumns maps each bar field to its source column or key
type OHLCVColumns struct {
	Open   string `mapstructure:"open"`
	High   string `mapstructure:"high"`
	Low    string `mapstructure:"low"`
	Close  string `mapstructure:"close"`
	Volume string `mapstructure:"volume"`
}

// ExecutionProvider selects and configures order execution
type ExecutionProvider struct {
	Type                   string  `mapstructure:"type"`
	InitialCash            float64 `mapstructure:"initial_cash"`
	CommissionRate         float64 `mapstructure:"commission_rate"`
	Slippage               float64 `mapstructure:"slippage"`
	FillPrice              string  `mapstructure:"fill_price"`
	MaxVolumeParticipation float64 `mapstructure:"max_volume_participation"`
	LimitOrderLifetime     int     `mapstructure:"limit_order_lifetime"`
	AllowMargin            bool    `mapstructure:"allow_margin"`
	AllowShort             bool    `mapstructure:"allow_short"`
}

// RiskManager holds the risk gate limits as fractions of equity.
// A zero value disables a limit
type RiskManager struct {
	MaxPositionSize  float64 `mapstructure:"max_position_size"`
	MaxOrderSize     float64 `mapstructure:"max_order_size"`
	MaxConcentration float64 `mapstructure:"max_concentration"`
	MaxDrawdown      float64 `mapstructure:"max_drawdown"`
}

// Strategy names the strategy to load and its custom parameters
type Strategy struct {
	Type       string         `mapstructure:"type"`
	Parameters map[string]any `mapstructure:"parameters"`
}

// Backtest holds the run window and analysis settings
type Backtest struct {
	StartDate           string  `mapstructure:"start_date"`
	EndDate             string  `mapstructure:"end_date"`
	Interval            string  `mapstructure:"interval"`
	RiskFreeRate        float64 `mapstructure:"risk_free_rate"`
	AnnualizationFactor float64 `mapstructure:"annualization_factor"`
	MaxRetries          int     `mapstructure:"max_retries"`
}

// Output controls which run artifacts are written and where
type Output struct {
	Directory      string `mapstructure:"directory"`
	SaveTrades     bool   `mapstructure:"save_trades"`
	SaveEquity     bool   `mapstructure:"save_equity"`
	SaveRejections bool   `mapstructure:"save_rejections"`
	SaveAnomalies  bool   `mapstructure:"save_anomalies"`
	SaveMetrics    bool   `mapstructure:"save_metrics"`
	PlotEquity     bool   `mapstructure:"plot_equity"`
	PlotDrawdown   bool   `mapstructure:"plot_drawdown"`
}
