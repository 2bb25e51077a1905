package risk

import (
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/backtester/eventtypes/order"
	"github.com/thrasher-corp/backtester/eventtypes/signal"
)

// Validate ensures every limit is a fraction between 0 and 1
func (l *Limits) Validate() error {
	one := decimal.NewFromInt(1)
	for name, v := range map[Limit]decimal.Decimal{
		LimitMaxPositionSize:  l.MaxPositionSize,
		LimitMaxOrderSize:     l.MaxOrderSize,
		LimitMaxConcentration: l.MaxConcentration,
		LimitMaxDrawdown:      l.MaxDrawdown,
	} {
		if v.IsNegative() || v.GreaterThan(one) {
			return fmt.Errorf("%w: %v %v", errLimitRange, name, v)
		}
	}
	return nil
}

// sizing tracks the part of an order which reduces the current position and
// the part which increases risk, so checks only clamp what adds exposure
type sizing struct {
	current  decimal.Decimal
	side     common.Side
	quantity decimal.Decimal
	reduce   decimal.Decimal
	increase decimal.Decimal
}

func newSizing(current decimal.Decimal, side common.Side, quantity decimal.Decimal) sizing {
	s := sizing{current: current, side: side}
	s.setReducible(quantity)
	return s
}

func (s *sizing) setReducible(quantity decimal.Decimal) {
	s.quantity = quantity
	s.reduce = decimal.Zero
	if !s.current.IsZero() && s.current.Sign() != s.side.Sign().Sign() {
		s.reduce = decimal.Min(quantity, s.current.Abs())
	}
	s.increase = quantity.Sub(s.reduce)
}

// heldSameSide is the existing position size the increasing part adds to
func (s *sizing) heldSameSide() decimal.Decimal {
	if s.current.Sign() == s.side.Sign().Sign() {
		return s.current.Abs()
	}
	return decimal.Zero
}

// capIncrease limits the risk-increasing part of the order so the resulting
// absolute position does not exceed maxAbs
func (s *sizing) capIncrease(maxAbs decimal.Decimal) bool {
	allowed := maxAbs.Sub(s.heldSameSide()).RoundDown(quantityPrecision)
	if allowed.IsNegative() {
		allowed = decimal.Zero
	}
	if s.increase.LessThanOrEqual(allowed) {
		return false
	}
	s.increase = allowed
	s.quantity = s.reduce.Add(allowed)
	return true
}

// EvaluateOrder goes through a standard list of evaluations to make to ensure that
// we are in a position to follow through with an order
func (r *Risk) EvaluateOrder(intent *signal.Intent, snap *portfolio.Snapshot) *Decision {
	d := &Decision{Intent: intent}
	if snap == nil {
		return d.reject(LimitValidation, errNilSnapshot.Error())
	}
	if err := intent.Validate(); err != nil {
		return d.reject(LimitValidation, err.Error())
	}

	var price decimal.Decimal
	switch intent.OrderType {
	case common.Limit, common.StopLimit:
		price = intent.LimitPrice
	case common.Stop:
		price = intent.StopPrice
	default:
		var ok bool
		price, ok = snap.Price(intent.Symbol)
		if !ok || !price.IsPositive() {
			return d.reject(LimitPrice, fmt.Sprintf("no price available for %v", intent.Symbol))
		}
	}
	equity := snap.Equity
	current := snap.Quantity(intent.Symbol)

	side, requested := intent.Side, intent.Quantity
	if intent.IsTargetWeight() {
		if !equity.IsPositive() {
			return d.reject(LimitEquity, fmt.Sprintf("cannot size target weight against equity %v", equity))
		}
		target := intent.TargetWeight.Decimal.Mul(equity).Div(price)
		delta := target.Sub(current)
		if delta.IsZero() {
			return d.reject(LimitTargetWeight, fmt.Sprintf("%v already at target weight %v", intent.Symbol, intent.TargetWeight.Decimal))
		}
		side = common.Buy
		if delta.IsNegative() {
			side = common.Sell
		}
		requested = delta.Abs()
	}

	sz := newSizing(current, side, requested)
	if side == common.Sell && !r.AllowShort {
		if !current.IsPositive() {
			return d.reject(LimitShortSelling, fmt.Sprintf("no %v holdings to sell and short selling is disabled", intent.Symbol))
		}
		if sz.increase.IsPositive() {
			d.resize(LimitShortSelling, sz.quantity, sz.reduce, "sell reduced to held quantity as short selling is disabled")
			sz.setReducible(sz.reduce)
		}
	}

	if sz.increase.IsPositive() && !equity.IsPositive() {
		return d.reject(LimitEquity, fmt.Sprintf("cannot increase risk with equity %v", equity))
	}

	// 1. position size
	if sz.increase.IsPositive() && r.Limits.MaxPositionSize.IsPositive() {
		before := sz.quantity
		maxAbs := r.Limits.MaxPositionSize.Mul(equity).Div(price)
		if sz.capIncrease(maxAbs) {
			d.resize(LimitMaxPositionSize, before, sz.quantity,
				fmt.Sprintf("position value limited to %v of equity", r.Limits.MaxPositionSize))
		}
	}

	// 2. order size
	if r.Limits.MaxOrderSize.IsPositive() && equity.IsPositive() {
		maxQty := r.Limits.MaxOrderSize.Mul(equity).Div(price).RoundDown(quantityPrecision)
		if sz.quantity.GreaterThan(maxQty) {
			d.resize(LimitMaxOrderSize, sz.quantity, maxQty,
				fmt.Sprintf("order notional limited to %v of equity", r.Limits.MaxOrderSize))
			sz.setReducible(maxQty)
		}
	}

	// 3. concentration, only meaningful when other symbols carry exposure
	one := decimal.NewFromInt(1)
	if sz.increase.IsPositive() &&
		r.Limits.MaxConcentration.IsPositive() &&
		r.Limits.MaxConcentration.LessThan(one) {
		others := snap.TotalExposure().Sub(snap.Exposure(intent.Symbol))
		if others.IsPositive() {
			before := sz.quantity
			c := r.Limits.MaxConcentration
			maxExposure := c.Mul(others).Div(one.Sub(c))
			if sz.capIncrease(maxExposure.Div(price)) {
				d.resize(LimitMaxConcentration, before, sz.quantity,
					fmt.Sprintf("%v exposure limited to %v of total exposure", intent.Symbol, c))
			}
		}
	}

	// 4. drawdown
	if sz.increase.IsPositive() && r.Limits.MaxDrawdown.IsPositive() {
		if dd := snap.Drawdown(); dd.GreaterThan(r.Limits.MaxDrawdown) {
			return d.reject(LimitMaxDrawdown,
				fmt.Sprintf("drawdown %v exceeds limit %v, only liquidating orders are allowed", dd.StringFixed(4), r.Limits.MaxDrawdown))
		}
	}

	if !sz.quantity.IsPositive() {
		limit := LimitValidation
		if len(d.Adjustments) > 0 {
			limit = d.Adjustments[len(d.Adjustments)-1].Limit
		}
		return d.reject(limit, "no compliant quantity remains after resizing")
	}

	o := &order.Order{
		Base:              intent.CloneBase(),
		ID:                r.orderID(),
		Side:              side,
		OrderType:         intent.OrderType,
		RequestedQuantity: requested,
		Quantity:          sz.quantity,
		LimitPrice:        intent.LimitPrice,
		StopPrice:         intent.StopPrice,
		Status:            order.Pending,
	}
	d.Order = o
	if len(d.Adjustments) == 0 {
		d.Outcome = Accepted
		return d
	}
	d.Outcome = Resized
	for i := range d.Adjustments {
		o.AppendReason(d.Adjustments[i].Reason)
	}
	d.Limit = d.Adjustments[len(d.Adjustments)-1].Limit
	d.Reason = o.GetReason()
	return d
}

func (r *Risk) orderID() string {
	if r.NewOrderID != nil {
		return r.NewOrderID()
	}
	id, err := uuid.NewV4()
	if err != nil {
		return ""
	}
	return id.String()
}

func (d *Decision) reject(l Limit, reason string) *Decision {
	d.Outcome = Rejected
	d.Order = nil
	d.Limit = l
	d.Reason = reason
	return d
}

func (d *Decision) resize(l Limit, from, to decimal.Decimal, reason string) {
	d.Adjustments = append(d.Adjustments, Adjustment{
		Limit:  l,
		From:   from,
		To:     to,
		Reason: fmt.Sprintf("%s: %v to %v", reason, from, to),
	})
}

// IsRejected returns whether the intent was refused
func (d *Decision) IsRejected() bool {
	return d.Outcome == Rejected
}
