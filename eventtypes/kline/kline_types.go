package kline

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/eventtypes/event"
)

var (
	// ErrInvalidBar is wrapped by every bar validation failure
	ErrInvalidBar = errors.New("invalid bar")

	errEmptySymbol       = errors.New("empty symbol")
	errZeroTimestamp     = errors.New("zero timestamp")
	errNonPositivePrice  = errors.New("non-positive price")
	errHighBelowLow      = errors.New("high is below low")
	errPriceOutsideRange = errors.New("price outside of high/low range")
	errNegativeVolume    = errors.New("negative volume")
)

// Kline is a single OHLCV bar for one symbol at one timestamp.
// It is never modified once it has been produced by a data provider
type Kline struct {
	event.Base
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}
