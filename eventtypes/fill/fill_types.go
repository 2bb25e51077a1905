package fill

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventtypes/event"
)

var (
	errMissingOrderRef   = errors.New("fill has no order reference")
	errInvalidQuantity   = errors.New("fill quantity must be positive")
	errInvalidPrice      = errors.New("fill price must be positive")
	errNegativeComission = errors.New("fill commission cannot be negative")
)

// Fill details the result of executing all or part of an order against a
// single bar. Time is the timestamp of the bar the fill was priced from
type Fill struct {
	event.Base
	OrderID     string          `json:"order-id"`
	Side        common.Side     `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	MarketPrice decimal.Decimal `json:"market-price"`
	Slippage    decimal.Decimal `json:"slippage"`
	Commission  decimal.Decimal `json:"commission"`
	// ClosedQuantity and RealisedPnL are stamped by the ledger when the fill
	// reduces or reverses an existing position
	ClosedQuantity decimal.Decimal `json:"closed-quantity"`
	RealisedPnL    decimal.Decimal `json:"realised-pnl"`
}
