package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio/holdings"
	"github.com/thrasher-corp/backtester/eventtypes/fill"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
)

// Setup returns a ledger holding only the initial cash
func Setup(initialCash decimal.Decimal, allowMargin, allowShort bool) (*Portfolio, error) {
	if !initialCash.IsPositive() {
		return nil, fmt.Errorf("%w, received %v", ErrInitialFundsZero, initialCash)
	}
	p := &Portfolio{
		initialCash: initialCash,
		allowMargin: allowMargin,
		allowShort:  allowShort,
	}
	p.Reset()
	return p, nil
}

// Reset returns the ledger to its initial cash
func (p *Portfolio) Reset() {
	p.cash = p.initialCash
	p.holdings = make(map[string]*holdings.Holding)
	p.lastPrices = make(map[string]decimal.Decimal)
	p.peakEquity = p.initialCash
	p.totalCommission = decimal.Zero
	p.realisedPnL = decimal.Zero
	p.fillCount = 0
}

// ApplyFill books a fill against cash and the symbol's holding. The fill is
// stamped with the quantity it closed and the P&L it realised. When the fill
// would violate a ledger invariant nothing is changed and the error is returned
func (p *Portfolio) ApplyFill(f *fill.Fill) error {
	if err := f.Validate(); err != nil {
		return err
	}
	newCash := p.cash.Add(f.CashDelta())
	if newCash.IsNegative() && !p.allowMargin {
		return fmt.Errorf("%w: order %v cash %v change %v", ErrNegativeCash, f.OrderID, p.cash, f.CashDelta())
	}
	h, ok := p.holdings[f.Symbol]
	if !ok {
		h = holdings.Create(f.Symbol)
	}
	if !p.allowShort && h.Quantity.Add(f.SignedQuantity()).IsNegative() {
		return fmt.Errorf("%w: order %v holding %v sell %v", ErrShortPosition, f.OrderID, h.Quantity, f.Quantity)
	}

	closed, realised, err := h.Update(f)
	if err != nil {
		return err
	}
	if last, ok := p.lastPrices[f.Symbol]; ok {
		h.UpdateValue(last)
	}
	p.holdings[f.Symbol] = h
	p.cash = newCash
	p.totalCommission = p.totalCommission.Add(f.Commission)
	p.realisedPnL = p.realisedPnL.Add(realised)
	p.fillCount++
	f.ClosedQuantity = closed
	f.RealisedPnL = realised
	return nil
}

// MarkToMarket revalues holdings at the bars' close prices. Cash is untouched
func (p *Portfolio) MarkToMarket(bars []*kline.Kline) error {
	for i := range bars {
		if bars[i] == nil {
			return errNilBar
		}
		p.lastPrices[bars[i].Symbol] = bars[i].Close
		if h, ok := p.holdings[bars[i].Symbol]; ok {
			h.UpdateValue(bars[i].Close)
		}
		if bars[i].Time.After(p.lastTime) {
			p.lastTime = bars[i].Time
		}
	}
	p.UpdatePeak()
	return nil
}

// UpdatePeak raises the high-water mark to the current equity. Fills do not
// move the peak as they can be valued against a stale price until the next
// mark to market
func (p *Portfolio) UpdatePeak() {
	if e := p.Equity(); e.GreaterThan(p.peakEquity) {
		p.peakEquity = e
	}
}

// Cash returns the ledger's cash balance
func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

// InitialCash returns the cash the ledger started with
func (p *Portfolio) InitialCash() decimal.Decimal {
	return p.initialCash
}

// PositionQuantity returns the signed quantity held in symbol
func (p *Portfolio) PositionQuantity(symbol string) decimal.Decimal {
	if h, ok := p.holdings[symbol]; ok {
		return h.Quantity
	}
	return decimal.Zero
}

// AllowsMargin returns whether cash may go negative
func (p *Portfolio) AllowsMargin() bool {
	return p.allowMargin
}

// AllowsShort returns whether positions may go negative
func (p *Portfolio) AllowsShort() bool {
	return p.allowShort
}

// FillCount returns how many fills have been applied
func (p *Portfolio) FillCount() int64 {
	return p.fillCount
}

// Equity returns cash plus every holding at its last known price
func (p *Portfolio) Equity() decimal.Decimal {
	equity := p.cash
	for _, h := range p.holdings {
		equity = equity.Add(h.MarketValue())
	}
	return equity
}

// Snapshot returns a deep copy of the ledger's current state
func (p *Portfolio) Snapshot() *Snapshot {
	s := &Snapshot{
		Time:            p.lastTime,
		InitialCash:     p.initialCash,
		Cash:            p.cash,
		PeakEquity:      p.peakEquity,
		RealisedPnL:     p.realisedPnL,
		TotalCommission: p.totalCommission,
		Positions:       make(map[string]holdings.Holding, len(p.holdings)),
		LastPrices:      make(map[string]decimal.Decimal, len(p.lastPrices)),
	}
	s.Equity = p.Equity()
	for sym, h := range p.holdings {
		s.Positions[sym] = *h
		s.UnrealisedPnL = s.UnrealisedPnL.Add(h.UnrealisedPnL())
	}
	for sym, price := range p.lastPrices {
		s.LastPrices[sym] = price
	}
	return s
}

// CheckInvariants verifies the ledger's cash and position constraints
func (p *Portfolio) CheckInvariants() error {
	if p.cash.IsNegative() && !p.allowMargin {
		return fmt.Errorf("%w: cash %v", ErrNegativeCash, p.cash)
	}
	if p.allowShort {
		return nil
	}
	for sym, h := range p.holdings {
		if h.Quantity.IsNegative() {
			return fmt.Errorf("%w: %v %v", ErrShortPosition, sym, h.Quantity)
		}
	}
	return nil
}
