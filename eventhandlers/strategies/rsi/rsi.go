package rsi

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/backtester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
	"github.com/thrasher-corp/backtester/eventtypes/signal"
	"github.com/thrasher-corp/gct-ta/indicators"
)

const (
	// Name is the strategy name
	Name            = "rsi"
	rsiPeriodKey    = "period"
	rsiLowKey       = "low"
	rsiHighKey      = "high"
	positionSizeKey = "position_size"
	description     = `The relative strength index is a technical indicator used in the analysis of financial markets. It is intended to chart the current and historical strength or weakness of a stock or market based on the closing prices of a recent trading period`
)

var errLowAboveHigh = fmt.Errorf("%w rsi low must be below rsi high", base.ErrInvalidCustomSettings)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	base.Strategy
	rsiPeriod    int
	rsiLow       decimal.Decimal
	rsiHigh      decimal.Decimal
	positionSize decimal.Decimal
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
// be it definition of terms or to highlight its purpose
func (s *Strategy) Description() string {
	return description
}

// OnData returns a buy intent when rsi is at or below the low level and the
// symbol is not held, and sells the held position when rsi is at or above
// the high level
func (s *Strategy) OnData(snap *portfolio.Snapshot, bars []*kline.Kline) ([]*signal.Intent, error) {
	if snap == nil {
		return nil, common.ErrNilArguments
	}
	s.AppendCloses(bars)
	var resp []*signal.Intent
	for i := range bars {
		closes := s.Closes(bars[i].Symbol)
		if len(closes) <= s.rsiPeriod {
			continue
		}
		rsi := indicators.RSI(closes, s.rsiPeriod)
		latest := decimal.NewFromFloat(rsi[len(rsi)-1])
		held := snap.Quantity(bars[i].Symbol)
		switch {
		case latest.LessThanOrEqual(s.rsiLow):
			if held.IsPositive() || !bars[i].Close.IsPositive() {
				continue
			}
			qty := s.positionSize.Mul(snap.Equity).Div(bars[i].Close)
			if !qty.IsPositive() {
				continue
			}
			in := signal.NewMarket(bars[i].Symbol, common.Buy, qty, bars[i].Time)
			in.AppendReasonf("RSI at %v", latest.Round(2))
			resp = append(resp, in)
		case latest.GreaterThanOrEqual(s.rsiHigh):
			if !held.IsPositive() {
				continue
			}
			in := signal.NewMarket(bars[i].Symbol, common.Sell, held, bars[i].Time)
			in.AppendReasonf("RSI at %v", latest.Round(2))
			resp = append(resp, in)
		}
	}
	return resp, nil
}

// SetCustomSettings allows a user to modify the RSI limits in their config
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		switch k {
		case rsiHighKey:
			rsiHigh, err := base.FloatSetting(k, v)
			if err != nil || rsiHigh <= 0 || rsiHigh > 100 {
				return fmt.Errorf("%w provided rsi-high value could not be parsed: %v", base.ErrInvalidCustomSettings, v)
			}
			s.rsiHigh = decimal.NewFromFloat(rsiHigh)
		case rsiLowKey:
			rsiLow, err := base.FloatSetting(k, v)
			if err != nil || rsiLow <= 0 || rsiLow > 100 {
				return fmt.Errorf("%w provided rsi-low value could not be parsed: %v", base.ErrInvalidCustomSettings, v)
			}
			s.rsiLow = decimal.NewFromFloat(rsiLow)
		case rsiPeriodKey:
			rsiPeriod, err := base.PositiveIntSetting(k, v)
			if err != nil {
				return err
			}
			s.rsiPeriod = rsiPeriod
		case positionSizeKey:
			size, err := base.FloatSetting(k, v)
			if err != nil || size <= 0 || size > 1 {
				return fmt.Errorf("%w provided position_size must be within (0, 1]: %v", base.ErrInvalidCustomSettings, v)
			}
			s.positionSize = decimal.NewFromFloat(size)
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	if s.rsiLow.GreaterThanOrEqual(s.rsiHigh) {
		return errLowAboveHigh
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.rsiHigh = decimal.NewFromInt(70)
	s.rsiLow = decimal.NewFromInt(30)
	s.rsiPeriod = 14
	s.positionSize = decimal.NewFromFloat(0.1)
	s.ResetHistory()
}
