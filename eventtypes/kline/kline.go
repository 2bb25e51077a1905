package kline

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/eventtypes/event"
)

// New returns a bar from float values, mainly for tests and generated data
func New(symbol string, t time.Time, open, high, low, closePrice, volume float64) *Kline {
	return &Kline{
		Base: event.Base{
			Time:   t,
			Symbol: symbol,
		},
		Open:   decimal.NewFromFloat(open),
		High:   decimal.NewFromFloat(high),
		Low:    decimal.NewFromFloat(low),
		Close:  decimal.NewFromFloat(closePrice),
		Volume: decimal.NewFromFloat(volume),
	}
}

// ClosePrice returns the closing price of a kline
func (k *Kline) ClosePrice() decimal.Decimal {
	return k.Close
}

// HighPrice returns the high price of a kline
func (k *Kline) HighPrice() decimal.Decimal {
	return k.High
}

// LowPrice returns the low price of a kline
func (k *Kline) LowPrice() decimal.Decimal {
	return k.Low
}

// OpenPrice returns the open price of a kline
func (k *Kline) OpenPrice() decimal.Decimal {
	return k.Open
}

// Contains returns whether price traded within the bar's low and high
func (k *Kline) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(k.Low) && price.LessThanOrEqual(k.High)
}

// Validate ensures the bar is well formed
func (k *Kline) Validate() error {
	switch {
	case k.Symbol == "":
		return fmt.Errorf("%w: %w", ErrInvalidBar, errEmptySymbol)
	case k.Time.IsZero():
		return fmt.Errorf("%w %s: %w", ErrInvalidBar, k.Symbol, errZeroTimestamp)
	case !k.Open.IsPositive(), !k.High.IsPositive(), !k.Low.IsPositive(), !k.Close.IsPositive():
		return fmt.Errorf("%w %s %v: %w", ErrInvalidBar, k.Symbol, k.Time, errNonPositivePrice)
	case k.High.LessThan(k.Low):
		return fmt.Errorf("%w %s %v: %w high %v low %v", ErrInvalidBar, k.Symbol, k.Time, errHighBelowLow, k.High, k.Low)
	case !k.Contains(k.Open), !k.Contains(k.Close):
		return fmt.Errorf("%w %s %v: %w", ErrInvalidBar, k.Symbol, k.Time, errPriceOutsideRange)
	case k.Volume.IsNegative():
		return fmt.Errorf("%w %s %v: %w", ErrInvalidBar, k.Symbol, k.Time, errNegativeVolume)
	}
	return nil
}

// Less orders bars by timestamp, breaking ties by symbol
func Less(a, b *Kline) bool {
	if !a.Time.Equal(b.Time) {
		return a.Time.Before(b.Time)
	}
	return a.Symbol < b.Symbol
}

// SortBySymbol orders a group of same-timestamp bars deterministically
func SortBySymbol(bars []*Kline) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Symbol < bars[j].Symbol
	})
}
