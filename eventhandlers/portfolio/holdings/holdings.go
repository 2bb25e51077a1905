package holdings

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventtypes/fill"
)

// Create returns an empty holding for the symbol
func Create(symbol string) *Holding {
	return &Holding{Symbol: symbol}
}

// Update applies a fill to the holding. Same-direction additions update the
// weighted average cost, reductions and reversals realise P&L against it.
// It returns the quantity closed and the P&L realised by the fill
func (h *Holding) Update(f *fill.Fill) (closed, realised decimal.Decimal, err error) {
	if f == nil {
		return decimal.Zero, decimal.Zero, common.ErrNilEvent
	}
	if f.Symbol != h.Symbol {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %v != %v", errSymbolMismatch, f.Symbol, h.Symbol)
	}
	delta := f.SignedQuantity()
	if delta.IsZero() {
		return decimal.Zero, decimal.Zero, errZeroQuantity
	}
	h.Timestamp = f.GetTime()
	h.TotalFees = h.TotalFees.Add(f.Commission)
	switch f.Side {
	case common.Buy:
		h.BoughtAmount = h.BoughtAmount.Add(f.Quantity)
		h.BoughtValue = h.BoughtValue.Add(f.Notional())
	case common.Sell:
		h.SoldAmount = h.SoldAmount.Add(f.Quantity)
		h.SoldValue = h.SoldValue.Add(f.Notional())
	}
	closed, realised = h.apply(delta, f.Price)
	h.LastPrice = f.Price
	return closed, realised, nil
}

func (h *Holding) apply(delta, price decimal.Decimal) (closed, realised decimal.Decimal) {
	if h.Quantity.IsZero() || h.Quantity.Sign() == delta.Sign() {
		newQty := h.Quantity.Add(delta)
		h.AverageCost = h.Quantity.Abs().Mul(h.AverageCost).
			Add(delta.Abs().Mul(price)).
			Div(newQty.Abs())
		h.Quantity = newQty
		return decimal.Zero, decimal.Zero
	}

	closed = decimal.Min(delta.Abs(), h.Quantity.Abs())
	direction := decimal.NewFromInt(int64(h.Quantity.Sign()))
	realised = price.Sub(h.AverageCost).Mul(closed).Mul(direction)
	h.RealisedPnL = h.RealisedPnL.Add(realised)

	newQty := h.Quantity.Add(delta)
	switch {
	case newQty.IsZero():
		h.AverageCost = decimal.Zero
	case newQty.Sign() != h.Quantity.Sign():
		// reversal, the remainder opens a new position at the fill price
		h.AverageCost = price
	}
	h.Quantity = newQty
	return closed, realised
}

// UpdateValue marks the holding to the latest price without realising P&L
func (h *Holding) UpdateValue(price decimal.Decimal) {
	h.LastPrice = price
}

// MarketValue returns the signed value of the position at the last price
func (h *Holding) MarketValue() decimal.Decimal {
	return h.Quantity.Mul(h.LastPrice)
}

// Exposure returns the absolute value of the position at the last price
func (h *Holding) Exposure() decimal.Decimal {
	return h.MarketValue().Abs()
}

// UnrealisedPnL returns the open P&L of the position at the last price
func (h *Holding) UnrealisedPnL() decimal.Decimal {
	return h.LastPrice.Sub(h.AverageCost).Mul(h.Quantity)
}

// IsFlat returns whether there is no open quantity
func (h *Holding) IsFlat() bool {
	return h.Quantity.IsZero()
}
