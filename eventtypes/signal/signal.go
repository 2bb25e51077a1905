package signal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventtypes/event"
)

// NewMarket returns a market order intent for a fixed quantity
func NewMarket(symbol string, side common.Side, quantity decimal.Decimal, t time.Time) *Intent {
	return &Intent{
		Base:      event.Base{Time: t, Symbol: symbol},
		Side:      side,
		Quantity:  quantity,
		OrderType: common.Market,
	}
}

// NewLimit returns a limit order intent for a fixed quantity
func NewLimit(symbol string, side common.Side, quantity, limitPrice decimal.Decimal, t time.Time) *Intent {
	return &Intent{
		Base:       event.Base{Time: t, Symbol: symbol},
		Side:       side,
		Quantity:   quantity,
		OrderType:  common.Limit,
		LimitPrice: limitPrice,
	}
}

// NewStop returns an intent which becomes a market order once the symbol
// trades through stopPrice
func NewStop(symbol string, side common.Side, quantity, stopPrice decimal.Decimal, t time.Time) *Intent {
	return &Intent{
		Base:      event.Base{Time: t, Symbol: symbol},
		Side:      side,
		Quantity:  quantity,
		OrderType: common.Stop,
		StopPrice: stopPrice,
	}
}

// NewStopLimit returns an intent which becomes a limit order at limitPrice
// once the symbol trades through stopPrice
func NewStopLimit(symbol string, side common.Side, quantity, stopPrice, limitPrice decimal.Decimal, t time.Time) *Intent {
	return &Intent{
		Base:       event.Base{Time: t, Symbol: symbol},
		Side:       side,
		Quantity:   quantity,
		OrderType:  common.StopLimit,
		StopPrice:  stopPrice,
		LimitPrice: limitPrice,
	}
}

// NewTargetWeight returns a market order intent which moves the position in
// symbol to weight × equity. Negative weights are short targets
func NewTargetWeight(symbol string, weight decimal.Decimal, t time.Time) *Intent {
	return &Intent{
		Base:         event.Base{Time: t, Symbol: symbol},
		TargetWeight: decimal.NullDecimal{Decimal: weight, Valid: true},
		OrderType:    common.Market,
	}
}

// IsTargetWeight returns whether the intent is expressed as a portfolio weight
func (i *Intent) IsTargetWeight() bool {
	return i.TargetWeight.Valid
}

// Validate ensures the intent can be evaluated by the risk gate
func (i *Intent) Validate() error {
	if i == nil {
		return common.ErrNilEvent
	}
	if i.Symbol == "" {
		return fmt.Errorf("%w: intent has no symbol", common.ErrNilArguments)
	}
	if !i.OrderType.IsValid() {
		return fmt.Errorf("%s %w '%v'", i.Symbol, common.ErrInvalidOrderType, i.OrderType)
	}
	if (i.OrderType == common.Limit || i.OrderType == common.StopLimit) && !i.LimitPrice.IsPositive() {
		return fmt.Errorf("%s %w", i.Symbol, errInvalidLimitPrice)
	}
	if i.OrderType.IsStop() && !i.StopPrice.IsPositive() {
		return fmt.Errorf("%s %w", i.Symbol, errInvalidStopPrice)
	}
	if i.IsTargetWeight() {
		if i.TargetWeight.Decimal.Abs().GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%s %w, received %v", i.Symbol, errInvalidTargetWeight, i.TargetWeight.Decimal)
		}
		return nil
	}
	if !i.Side.IsValid() {
		return fmt.Errorf("%s %w '%v'", i.Symbol, common.ErrInvalidSide, i.Side)
	}
	if !i.Quantity.IsPositive() {
		return fmt.Errorf("%s %w, received %v", i.Symbol, errNonPositiveQuantity, i.Quantity)
	}
	return nil
}
