package movingaverage

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
	Name             = "moving_average_crossover"
	shortWindowKey   = "short_window"
	longWindowKey    = "long_window"
	positionSizeKey  = "position_size"
	useLimitOrderKey = "use_limit_orders"
	description      = `The moving average crossover buys when the short simple moving average of closes crosses above the long one and sells the held position when it crosses back below`
)

var errWindowsOutOfOrder = fmt.Errorf("%w short window must be less than long window", base.ErrInvalidCustomSettings)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	base.Strategy
	shortWindow    int
	longWindow     int
	positionSize   decimal.Decimal
	useLimitOrders bool
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

// OnData records the closes of the bars and returns an intent for every
// symbol whose averages crossed on this bar. Buys are sized to
// position_size of equity and only open from a flat or short position
func (s *Strategy) OnData(snap *portfolio.Snapshot, bars []*kline.Kline) ([]*signal.Intent, error) {
	if snap == nil {
		return nil, common.ErrNilArguments
	}
	s.AppendCloses(bars)
	var resp []*signal.Intent
	for i := range bars {
		closes := s.Closes(bars[i].Symbol)
		if len(closes) <= s.longWindow {
			continue
		}
		prevShort, short := lastTwo(indicators.MA(closes, s.shortWindow, indicators.Sma))
		prevLong, long := lastTwo(indicators.MA(closes, s.longWindow, indicators.Sma))
		held := snap.Quantity(bars[i].Symbol)
		switch {
		case prevShort <= prevLong && short > long:
			if held.IsPositive() || !bars[i].Close.IsPositive() {
				continue
			}
			if held.IsNegative() {
				resp = append(resp, s.intent(bars[i], common.Buy, held.Abs()))
			}
			qty := s.positionSize.Mul(snap.Equity).Div(bars[i].Close)
			if !qty.IsPositive() {
				continue
			}
			in := s.intent(bars[i], common.Buy, qty)
			in.AppendReasonf("short average %.4f crossed above long average %.4f", short, long)
			resp = append(resp, in)
		case prevShort >= prevLong && short < long:
			if !held.IsPositive() {
				continue
			}
			in := s.intent(bars[i], common.Sell, held)
			in.AppendReasonf("short average %.4f crossed below long average %.4f", short, long)
			resp = append(resp, in)
		}
	}
	return resp, nil
}

func (s *Strategy) intent(k *kline.Kline, side common.Side, qty decimal.Decimal) *signal.Intent {
	if s.useLimitOrders {
		return signal.NewLimit(k.Symbol, side, qty, k.Close, k.Time)
	}
	return signal.NewMarket(k.Symbol, side, qty, k.Time)
}

func lastTwo(v []float64) (prev, latest float64) {
	if len(v) < 2 {
		return 0, 0
	}
	return v[len(v)-2], v[len(v)-1]
}

// SetCustomSettings allows a user to modify the windows and position size in their config
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		var err error
		switch k {
		case shortWindowKey:
			s.shortWindow, err = base.PositiveIntSetting(k, v)
		case longWindowKey:
			s.longWindow, err = base.PositiveIntSetting(k, v)
		case positionSizeKey:
			var f float64
			f, err = base.FloatSetting(k, v)
			if err == nil && (f <= 0 || f > 1) {
				err = fmt.Errorf("%w %v must be within (0, 1], received %v", base.ErrInvalidCustomSettings, k, v)
			}
			s.positionSize = decimal.NewFromFloat(f)
		case useLimitOrderKey:
			s.useLimitOrders, err = base.BoolSetting(k, v)
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
		if err != nil {
			return err
		}
	}
	if s.shortWindow >= s.longWindow {
		return errWindowsOutOfOrder
	}
	s.SetHistoryLimit(s.longWindow + 1)
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.shortWindow = 10
	s.longWindow = 50
	s.positionSize = decimal.NewFromFloat(0.1)
	s.useLimitOrders = false
	s.ResetHistory()
	s.SetHistoryLimit(s.longWindow + 1)
}
