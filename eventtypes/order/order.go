package order

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
)

// Remaining returns the quantity still to be filled
func (o *Order) Remaining() decimal.Decimal {
	r := o.Quantity.Sub(o.FilledQuantity)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// IsTerminal returns whether the order can no longer be filled
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case Filled, PartiallyFilled, Rejected, Expired:
		return true
	}
	return false
}

// IsLimit returns whether the order fills at its limit price
func (o *Order) IsLimit() bool {
	return o.OrderType == common.Limit || o.OrderType == common.StopLimit
}

// IsStop returns whether the order waits on a stop price
func (o *Order) IsStop() bool {
	return o.OrderType.IsStop()
}

// CheckTrigger marks a stop order triggered when the bar's range reaches the
// stop price: at or above it for buys, at or below it for sells. Triggered
// orders stay triggered
func (o *Order) CheckTrigger(high, low decimal.Decimal) bool {
	if !o.IsStop() || o.Triggered {
		return o.Triggered
	}
	switch o.Side {
	case common.Buy:
		o.Triggered = high.GreaterThanOrEqual(o.StopPrice)
	case common.Sell:
		o.Triggered = low.LessThanOrEqual(o.StopPrice)
	}
	return o.Triggered
}

// RecordFill adds a filled quantity to the order. The order stays pending
// until it is filled or finalised
func (o *Order) RecordFill(quantity decimal.Decimal) error {
	if o.IsTerminal() {
		return fmt.Errorf("order %v %w: %v", o.ID, errOrderTerminated, o.Status)
	}
	if quantity.GreaterThan(o.Remaining()) {
		return fmt.Errorf("order %v %w: %v > %v", o.ID, errOverfill, quantity, o.Remaining())
	}
	o.FilledQuantity = o.FilledQuantity.Add(quantity)
	if o.Remaining().IsZero() {
		o.Status = Filled
	}
	return nil
}

// Finalise moves a pending order to its terminal status. Orders with any fill
// become partially filled, the rest take the supplied unfilled status
func (o *Order) Finalise(unfilled Status, reason string) {
	if o.IsTerminal() {
		return
	}
	if reason != "" {
		o.AppendReason(reason)
	}
	if o.FilledQuantity.IsPositive() {
		o.Status = PartiallyFilled
		return
	}
	o.Status = unfilled
}
