package buyandhold

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/backtester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
	"github.com/thrasher-corp/backtester/eventtypes/signal"
)

const (
	// Name is the strategy name
	Name        = "buy_and_hold"
	weightKey   = "weight"
	description = `Buy and hold targets a fixed weight of equity in every symbol the first time it is seen and never trades it again`
)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	weight decimal.Decimal
	seen   map[string]bool
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

// OnData returns a target weight intent for symbols seen for the first time
func (s *Strategy) OnData(snap *portfolio.Snapshot, bars []*kline.Kline) ([]*signal.Intent, error) {
	if snap == nil {
		return nil, common.ErrNilArguments
	}
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	var resp []*signal.Intent
	for i := range bars {
		if s.seen[bars[i].Symbol] {
			continue
		}
		s.seen[bars[i].Symbol] = true
		in := signal.NewTargetWeight(bars[i].Symbol, s.weight, bars[i].Time)
		in.AppendReasonf("first bar, targeting weight %v", s.weight)
		resp = append(resp, in)
	}
	return resp, nil
}

// SetCustomSettings allows a user to set the target weight
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		switch k {
		case weightKey:
			w, err := base.FloatSetting(k, v)
			if err != nil {
				return err
			}
			if w <= 0 || w > 1 {
				return fmt.Errorf("%w %v must be within (0, 1], received %v", base.ErrInvalidCustomSettings, k, v)
			}
			s.weight = decimal.NewFromFloat(w)
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	return nil
}

// SetDefaults targets all equity and forgets seen symbols
func (s *Strategy) SetDefaults() {
	s.weight = decimal.NewFromInt(1)
	s.seen = nil
}
