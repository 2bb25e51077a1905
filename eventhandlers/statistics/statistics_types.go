package statistics

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Names of metrics that can be reported as undefined
const (
	TotalReturnMetric      = "total_return"
	AnnualizedReturnMetric = "annualized_return"
	SharpeRatioMetric      = "sharpe_ratio"
	SortinoRatioMetric     = "sortino_ratio"
	CalmarRatioMetric      = "calmar_ratio"
	VolatilityMetric       = "volatility"
	WinRateMetric          = "win_rate"
	ProfitFactorMetric     = "profit_factor"
)

// DefaultAnnualizationFactor is the number of daily bars in a trading year
const DefaultAnnualizationFactor = 252

var (
	errInvalidInterval            = errors.New("invalid interval")
	errInvalidAnnualizationFactor = errors.New("annualization factor must be positive")
)

// EquityPoint is the ledger's valuation after a timestamp group was processed
type EquityPoint struct {
	Time   time.Time       `json:"timestamp"`
	Equity decimal.Decimal `json:"equity"`
	Cash   decimal.Decimal `json:"cash"`
}

// Settings configure the analyzer. RiskFreeRate is annual and
// AnnualizationFactor is the number of periods in a year
type Settings struct {
	InitialEquity       decimal.Decimal
	RiskFreeRate        float64
	AnnualizationFactor float64
}

// Metrics are the performance results of a run. Ratios that could not be
// calculated are zero and listed in Undefined
type Metrics struct {
	StartTime           time.Time       `json:"start-time"`
	EndTime             time.Time       `json:"end-time"`
	Periods             int             `json:"periods"`
	InitialEquity       decimal.Decimal `json:"initial-equity"`
	FinalEquity         decimal.Decimal `json:"final-equity"`
	TotalReturn         float64         `json:"total-return"`
	AnnualizedReturn    float64         `json:"annualized-return"`
	MaxDrawdown         float64         `json:"max-drawdown"`
	SharpeRatio         float64         `json:"sharpe-ratio"`
	SortinoRatio        float64         `json:"sortino-ratio"`
	CalmarRatio         float64         `json:"calmar-ratio"`
	Volatility          float64         `json:"volatility"`
	WinRate             float64         `json:"win-rate"`
	ProfitFactor        float64         `json:"profit-factor"`
	TotalTrades         int64           `json:"total-trades"`
	BuyTrades           int64           `json:"buy-trades"`
	SellTrades          int64           `json:"sell-trades"`
	ClosingTrades       int64           `json:"closing-trades"`
	WinningTrades       int64           `json:"winning-trades"`
	TotalCommission     decimal.Decimal `json:"total-commission"`
	RealisedPnL         decimal.Decimal `json:"realised-pnl"`
	RiskFreeRate        float64         `json:"risk-free-rate"`
	AnnualizationFactor float64         `json:"annualization-factor"`
	Undefined           []string        `json:"undefined,omitempty"`
}
