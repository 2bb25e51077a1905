package fill

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
)

// Notional returns quantity × price
func (f *Fill) Notional() decimal.Decimal {
	return f.Quantity.Mul(f.Price)
}

// SignedQuantity returns the quantity, negative for sells
func (f *Fill) SignedQuantity() decimal.Decimal {
	return f.Quantity.Mul(f.Side.Sign())
}

// CashDelta returns the change in cash caused by the fill:
// buys pay notional plus commission, sells receive notional less commission
func (f *Fill) CashDelta() decimal.Decimal {
	if f.Side == common.Buy {
		return f.Notional().Add(f.Commission).Neg()
	}
	return f.Notional().Sub(f.Commission)
}

// Validate ensures the fill can be applied to a ledger
func (f *Fill) Validate() error {
	if f == nil {
		return common.ErrNilEvent
	}
	switch {
	case f.OrderID == "":
		return errMissingOrderRef
	case !f.Side.IsValid():
		return fmt.Errorf("fill %v %w '%v'", f.OrderID, common.ErrInvalidSide, f.Side)
	case !f.Quantity.IsPositive():
		return fmt.Errorf("fill %v %w, received %v", f.OrderID, errInvalidQuantity, f.Quantity)
	case !f.Price.IsPositive():
		return fmt.Errorf("fill %v %w, received %v", f.OrderID, errInvalidPrice, f.Price)
	case f.Commission.IsNegative():
		return fmt.Errorf("fill %v %w, received %v", f.OrderID, errNegativeComission, f.Commission)
	}
	return nil
}
