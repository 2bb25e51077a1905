package statistics

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
	gctmath "github.com/thrasher-corp/backtester/common/math"
	"github.com/thrasher-corp/backtester/eventtypes/fill"
	"github.com/thrasher-corp/backtester/log"
)

var intervalPattern = regexp.MustCompile(`^(\d+)(mo|M|w|W|d|D)$`)

// Analyze calculates performance metrics from the equity history and fills
// of a run. It never fails: metrics which cannot be calculated from the
// inputs are zero and named in Metrics.Undefined
func Analyze(equity []EquityPoint, trades []*fill.Fill, s Settings) *Metrics {
	af := s.AnnualizationFactor
	if af <= 0 {
		af = DefaultAnnualizationFactor
	}
	m := &Metrics{
		InitialEquity:       s.InitialEquity,
		FinalEquity:         s.InitialEquity,
		RiskFreeRate:        s.RiskFreeRate,
		AnnualizationFactor: af,
		Periods:             len(equity),
	}
	values := make([]float64, 0, len(equity)+1)
	if s.InitialEquity.IsPositive() {
		values = append(values, s.InitialEquity.InexactFloat64())
	}
	for i := range equity {
		values = append(values, equity[i].Equity.InexactFloat64())
	}
	if len(equity) > 0 {
		m.StartTime = equity[0].Time
		m.EndTime = equity[len(equity)-1].Time
		m.FinalEquity = equity[len(equity)-1].Equity
		if !s.InitialEquity.IsPositive() {
			m.InitialEquity = equity[0].Equity
		}
	}

	m.calculateReturns(values)
	m.calculateTrades(trades)
	return m
}

func (m *Metrics) undefined(name string) {
	m.Undefined = append(m.Undefined, name)
}

func (m *Metrics) calculateReturns(values []float64) {
	if len(values) < 2 || values[0] <= 0 {
		m.undefined(TotalReturnMetric)
		m.undefined(AnnualizedReturnMetric)
		m.undefined(SharpeRatioMetric)
		m.undefined(SortinoRatioMetric)
		m.undefined(CalmarRatioMetric)
		m.undefined(VolatilityMetric)
		return
	}
	first, last := values[0], values[len(values)-1]
	m.TotalReturn = last/first - 1
	m.MaxDrawdown = gctmath.MaxDrawdown(values)
	m.AnnualizedReturn = gctmath.CalculateCompoundAnnualGrowthRate(first, last, m.AnnualizationFactor, float64(len(values)-1))
	if last <= 0 {
		m.undefined(AnnualizedReturnMetric)
	}

	returns := gctmath.PeriodReturns(values)
	riskFreePerPeriod := m.RiskFreeRate / m.AnnualizationFactor
	scale := math.Sqrt(m.AnnualizationFactor)
	if std := gctmath.SampleStandardDeviation(returns); len(returns) > 1 && std > 0 {
		m.Volatility = std * scale
		m.SharpeRatio = gctmath.CalculateSharpeRatio(returns, riskFreePerPeriod) * scale
	} else {
		m.undefined(VolatilityMetric)
		m.undefined(SharpeRatioMetric)
	}
	if sortino := gctmath.CalculateSortinoRatio(returns, riskFreePerPeriod); sortino != 0 {
		m.SortinoRatio = sortino * scale
	} else {
		m.undefined(SortinoRatioMetric)
	}
	if m.MaxDrawdown > 0 && last > 0 {
		m.CalmarRatio = gctmath.CalculateCalmarRatio(m.AnnualizedReturn, m.MaxDrawdown)
	} else {
		m.undefined(CalmarRatioMetric)
	}
}

// calculateTrades counts fills. A closing trade is a fill which reduced a
// position, it wins when its realised profit exceeds its commission
func (m *Metrics) calculateTrades(trades []*fill.Fill) {
	m.TotalCommission = decimal.Zero
	m.RealisedPnL = decimal.Zero
	grossProfit, grossLoss := decimal.Zero, decimal.Zero
	for i := range trades {
		if trades[i] == nil {
			continue
		}
		m.TotalTrades++
		switch trades[i].Side {
		case common.Buy:
			m.BuyTrades++
		case common.Sell:
			m.SellTrades++
		}
		m.TotalCommission = m.TotalCommission.Add(trades[i].Commission)
		m.RealisedPnL = m.RealisedPnL.Add(trades[i].RealisedPnL)
		if !trades[i].ClosedQuantity.IsPositive() {
			continue
		}
		m.ClosingTrades++
		net := trades[i].RealisedPnL.Sub(trades[i].Commission)
		if net.IsPositive() {
			m.WinningTrades++
			grossProfit = grossProfit.Add(net)
		} else {
			grossLoss = grossLoss.Add(net.Abs())
		}
	}
	if m.ClosingTrades == 0 {
		m.undefined(WinRateMetric)
		m.undefined(ProfitFactorMetric)
		return
	}
	m.WinRate = float64(m.WinningTrades) / float64(m.ClosingTrades)
	if grossLoss.IsZero() {
		m.undefined(ProfitFactorMetric)
		return
	}
	m.ProfitFactor = grossProfit.Div(grossLoss).InexactFloat64()
}

// IsUndefined returns whether the named metric could not be calculated
func (m *Metrics) IsUndefined(name string) bool {
	for i := range m.Undefined {
		if m.Undefined[i] == name {
			return true
		}
	}
	return false
}

// Serialise outputs the metrics as indented json
func (m *Metrics) Serialise() (string, error) {
	resp, err := json.MarshalIndent(m, "", " ")
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// PrintResults logs a summary of the metrics
func (m *Metrics) PrintResults(sl *log.SubLogger) {
	log.Info(sl, common.FitStringToLimit("------------------Performance", "-", 51, false))
	log.Infof(sl, "Start: %v End: %v Periods: %v", m.StartTime.Format(time.DateTime), m.EndTime.Format(time.DateTime), m.Periods)
	log.Infof(sl, "Initial equity: %v Final equity: %v", m.InitialEquity.Round(2), m.FinalEquity.Round(2))
	log.Infof(sl, "Total return: %v%%", gctmath.RoundFloat(m.TotalReturn*100, 4))
	log.Infof(sl, "Annualized return: %v%%", gctmath.RoundFloat(m.AnnualizedReturn*100, 4))
	log.Infof(sl, "Max drawdown: %v%%", gctmath.RoundFloat(m.MaxDrawdown*100, 4))
	log.Infof(sl, "Volatility: %v%%", gctmath.RoundFloat(m.Volatility*100, 4))
	log.Infof(sl, "Sharpe ratio: %v", gctmath.RoundFloat(m.SharpeRatio, 4))
	log.Infof(sl, "Sortino ratio: %v", gctmath.RoundFloat(m.SortinoRatio, 4))
	log.Infof(sl, "Calmar ratio: %v", gctmath.RoundFloat(m.CalmarRatio, 4))
	log.Infof(sl, "Trades: %v Buys: %v Sells: %v Closing: %v", m.TotalTrades, m.BuyTrades, m.SellTrades, m.ClosingTrades)
	log.Infof(sl, "Win rate: %v%% Profit factor: %v", gctmath.RoundFloat(m.WinRate*100, 2), gctmath.RoundFloat(m.ProfitFactor, 4))
	log.Infof(sl, "Total commission: %v Realised PnL: %v", m.TotalCommission.Round(2), m.RealisedPnL.Round(2))
	if len(m.Undefined) > 0 {
		log.Warnf(sl, "Undefined metrics: %v", strings.Join(m.Undefined, ", "))
	}
}

// AnnualizationFactorForInterval returns the number of bars of the interval
// in a year. Day, week and month bars use trading calendars, intraday
// intervals use a 365 day year
func AnnualizationFactorForInterval(interval string) (float64, error) {
	interval = strings.TrimSpace(interval)
	if match := intervalPattern.FindStringSubmatch(interval); match != nil {
		n, err := strconv.ParseFloat(match[1], 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w '%v'", errInvalidInterval, interval)
		}
		switch match[2] {
		case "d", "D":
			return DefaultAnnualizationFactor / n, nil
		case "w", "W":
			return 52 / n, nil
		default:
			return 12 / n, nil
		}
	}
	d, err := time.ParseDuration(interval)
	if err != nil {
		return 0, fmt.Errorf("%w '%v': %w", errInvalidInterval, interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w '%v'", errInvalidInterval, interval)
	}
	switch {
	case d%(7*24*time.Hour) == 0:
		return 52 / float64(d/(7*24*time.Hour)), nil
	case d%(24*time.Hour) == 0:
		return DefaultAnnualizationFactor / float64(d/(24*time.Hour)), nil
	}
	return float64(365*24*time.Hour) / float64(d), nil
}

// ValidateAnnualizationFactor ensures an explicit factor is usable
func ValidateAnnualizationFactor(f float64) error {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w, received %v", errInvalidAnnualizationFactor, f)
	}
	return nil
}
