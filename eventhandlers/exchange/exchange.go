package exchange

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventhandlers/exchange/slippage"
	"github.com/thrasher-corp/backtester/eventtypes/event"
	"github.com/thrasher-corp/backtester/eventtypes/fill"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
	"github.com/thrasher-corp/backtester/eventtypes/order"
)

// Setup returns a simulator using validated settings
func Setup(s Settings) (*Exchange, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.FillPrice == "" {
		s.FillPrice = DefaultFillPolicy
	}
	return &Exchange{Settings: s}, nil
}

// Validate ensures the settings can price fills
func (s *Settings) Validate() error {
	switch s.FillPrice {
	case "", FillAtClose, FillAtOpen, FillAtNextOpen:
	default:
		return fmt.Errorf("%w '%v'", errInvalidFillPolicy, s.FillPrice)
	}
	if s.CommissionRate.IsNegative() || s.Slippage.IsNegative() || s.MaxVolumeParticipation.IsNegative() || s.LimitOrderLifetime < 0 {
		return errNegativeSetting
	}
	if s.MaxVolumeParticipation.GreaterThan(decimal.NewFromInt(1)) {
		return errParticipationTooLarge
	}
	return nil
}

// ParseFillPolicy converts a config string into a FillPolicy
func ParseFillPolicy(s string) (FillPolicy, error) {
	p := FillPolicy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return DefaultFillPolicy, nil
	case FillAtClose, FillAtOpen, FillAtNextOpen:
		return p, nil
	}
	return "", fmt.Errorf("%w '%v'", errInvalidFillPolicy, s)
}

// GetSettings returns the simulator's settings
func (e *Exchange) GetSettings() Settings {
	return e.Settings
}

// ExecuteOrder fills as much of the order's remaining quantity as the bar,
// the ledger's cash and holdings allow. The fill is booked to the ledger and
// recorded against the order. Orders left with remaining quantity are still
// pending; finalising them is up to the caller
func (e *Exchange) ExecuteOrder(o *order.Order, k *kline.Kline, l Ledger) (*fill.Fill, error) {
	if o == nil || l == nil {
		return nil, common.ErrNilArguments
	}
	if o.Status != order.Pending {
		return nil, fmt.Errorf("order %v %w: %v", o.ID, errTerminalOrder, o.Status)
	}
	if k == nil || k.Symbol != o.Symbol {
		return nil, fmt.Errorf("order %v %v: %w", o.ID, o.Symbol, ErrNoBarForSymbol)
	}

	f := &fill.Fill{
		Base: event.Base{
			Offset: k.Offset,
			Time:   k.Time,
			Symbol: k.Symbol,
		},
		OrderID: o.ID,
		Side:    o.Side,
	}

	var err error
	f.MarketPrice, f.Price, err = e.priceOrder(o, k)
	if err != nil {
		return nil, err
	}
	f.Slippage = f.Price.Sub(f.MarketPrice)
	if !f.Slippage.IsZero() {
		f.AppendReasonf("slippage of %v applied to %v", f.Slippage, f.MarketPrice)
	}

	quantity, err := e.sizeFill(o, k, f, l)
	if err != nil {
		return nil, err
	}
	f.Quantity = quantity
	f.Commission = calculateCommission(f.Price, quantity, e.Settings.CommissionRate)

	if err = l.ApplyFill(f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerRejected, err)
	}
	if err = o.RecordFill(quantity); err != nil {
		return f, err
	}
	return f, nil
}

// priceOrder returns the unadjusted market price and the price the order fills at.
// Stop orders are priced as market or limit orders once triggered
func (e *Exchange) priceOrder(o *order.Order, k *kline.Kline) (market, price decimal.Decimal, err error) {
	triggeredNow := false
	if o.IsStop() && !o.Triggered {
		if !o.CheckTrigger(k.High, k.Low) {
			return decimal.Zero, decimal.Zero, fmt.Errorf("order %v stop %v low %v high %v: %w", o.ID, o.StopPrice, k.Low, k.High, ErrStopNotTriggered)
		}
		triggeredNow = true
		o.AppendReasonf("stop %v triggered at %v", o.StopPrice, k.Time)
	}
	if o.IsLimit() {
		if !k.Contains(o.LimitPrice) {
			return decimal.Zero, decimal.Zero, fmt.Errorf("order %v limit %v low %v high %v: %w", o.ID, o.LimitPrice, k.Low, k.High, ErrLimitNotReached)
		}
		return o.LimitPrice, o.LimitPrice, nil
	}
	switch {
	case triggeredNow:
		market = stopPrice(o, k)
	case o.IsStop():
		market = k.Open
	case e.Settings.FillPrice == FillAtOpen || e.Settings.FillPrice == FillAtNextOpen:
		market = k.Open
	default:
		market = k.Close
	}
	price = slippage.ApplySlippageToPrice(o.Side, market, e.Settings.Slippage)
	price = slippage.EnsurePriceFitsWithinHL(price, k.High, k.Low)
	return market, price, nil
}

// stopPrice is the price a stop order trades at on the bar that triggers it,
// the open when the bar gaps through the stop
func stopPrice(o *order.Order, k *kline.Kline) decimal.Decimal {
	if o.Side == common.Buy && k.Open.GreaterThan(o.StopPrice) ||
		o.Side == common.Sell && k.Open.LessThan(o.StopPrice) {
		return k.Open
	}
	return o.StopPrice
}

// sizeFill reduces the order's remaining quantity to what the bar volume,
// holdings and cash allow, recording every reduction on the fill
func (e *Exchange) sizeFill(o *order.Order, k *kline.Kline, f *fill.Fill, l Ledger) (decimal.Decimal, error) {
	quantity := o.Remaining()

	if e.Settings.MaxVolumeParticipation.IsPositive() {
		maxVolume := k.Volume.Mul(e.Settings.MaxVolumeParticipation).RoundDown(quantityPrecision)
		if !maxVolume.IsPositive() {
			return decimal.Zero, fmt.Errorf("order %v: %w", o.ID, ErrNoVolume)
		}
		if quantity.GreaterThan(maxVolume) {
			f.AppendReasonf("quantity reduced from %v to %v to remain within %v of bar volume", quantity, maxVolume, e.Settings.MaxVolumeParticipation)
			quantity = maxVolume
		}
	}

	switch o.Side {
	case common.Sell:
		if e.Settings.AllowShort {
			break
		}
		held := l.PositionQuantity(o.Symbol)
		if !held.IsPositive() {
			return decimal.Zero, fmt.Errorf("order %v %v: %w", o.ID, o.Symbol, ErrNoHoldingsToSell)
		}
		if quantity.GreaterThan(held) {
			f.AppendReasonf("quantity reduced from %v to held %v", quantity, held)
			quantity = held
		}
	case common.Buy:
		if e.Settings.AllowMargin {
			break
		}
		affordable := reduceQuantityToFitFunds(f.Price, quantity, l.Cash(), e.Settings.CommissionRate)
		if !affordable.IsPositive() {
			return decimal.Zero, fmt.Errorf("order %v cash %v: %w", o.ID, l.Cash(), ErrInsufficientFunds)
		}
		if !affordable.Equal(quantity) {
			f.AppendReasonf("quantity reduced from %v to %v to remain within available funds", quantity, affordable)
			quantity = affordable
		}
	}
	return quantity, nil
}

// reduceQuantityToFitFunds returns the largest quantity no greater than
// quantity whose cost including commission does not exceed funds
func reduceQuantityToFitFunds(price, quantity, funds, commissionRate decimal.Decimal) decimal.Decimal {
	if !funds.IsPositive() || !price.IsPositive() {
		return decimal.Zero
	}
	unitCost := price.Mul(decimal.NewFromInt(1).Add(commissionRate))
	if quantity.Mul(unitCost).LessThanOrEqual(funds) {
		return quantity
	}
	affordable := funds.Div(unitCost).RoundDown(quantityPrecision)
	if affordable.Mul(unitCost).GreaterThan(funds) {
		affordable = affordable.Sub(decimal.New(1, -quantityPrecision))
	}
	if affordable.IsNegative() {
		return decimal.Zero
	}
	return affordable
}

func calculateCommission(price, quantity, rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(quantity.Abs()).Mul(price)
}
