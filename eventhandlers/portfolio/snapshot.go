package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio/holdings"
)

// Quantity returns the signed quantity held in symbol
func (s *Snapshot) Quantity(symbol string) decimal.Decimal {
	if h, ok := s.Positions[symbol]; ok {
		return h.Quantity
	}
	return decimal.Zero
}

// Position returns the holding for symbol and whether one exists
func (s *Snapshot) Position(symbol string) (holdings.Holding, bool) {
	h, ok := s.Positions[symbol]
	return h, ok
}

// Price returns the last known close for symbol
func (s *Snapshot) Price(symbol string) (decimal.Decimal, bool) {
	p, ok := s.LastPrices[symbol]
	return p, ok
}

// Drawdown returns the decline of equity from its running peak as a fraction
func (s *Snapshot) Drawdown() decimal.Decimal {
	if !s.PeakEquity.IsPositive() || s.Equity.GreaterThanOrEqual(s.PeakEquity) {
		return decimal.Zero
	}
	return s.PeakEquity.Sub(s.Equity).Div(s.PeakEquity)
}

// Exposure returns the absolute market value held in symbol
func (s *Snapshot) Exposure(symbol string) decimal.Decimal {
	if h, ok := s.Positions[symbol]; ok {
		return h.Exposure()
	}
	return decimal.Zero
}

// TotalExposure returns the sum of absolute market values across symbols
func (s *Snapshot) TotalExposure() decimal.Decimal {
	total := decimal.Zero
	for _, h := range s.Positions {
		total = total.Add(h.Exposure())
	}
	return total
}

// Symbols returns the symbols with a known price, sorted
func (s *Snapshot) Symbols() []string {
	resp := make([]string, 0, len(s.LastPrices))
	for sym := range s.LastPrices {
		resp = append(resp, sym)
	}
	sort.Strings(resp)
	return resp
}
