package signal

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventtypes/event"
)

var (
	errNonPositiveQuantity = errors.New("quantity must be greater than zero")
	errInvalidLimitPrice   = errors.New("limit orders require a positive limit price")
	errInvalidStopPrice    = errors.New("stop orders require a positive stop price")
	errInvalidTargetWeight = errors.New("target weight must be between -1 and 1")
)

// Intent is a strategy's request to trade. It is consumed once by the risk
// gate and either discarded or converted into an order.
// Either Quantity or TargetWeight is used: when TargetWeight is valid the risk
// gate derives the side and quantity needed to reach that fraction of equity
type Intent struct {
	event.Base
	Side         common.Side         `json:"side"`
	Quantity     decimal.Decimal     `json:"quantity"`
	TargetWeight decimal.NullDecimal `json:"target-weight"`
	OrderType    common.OrderType    `json:"order-type"`
	LimitPrice   decimal.Decimal     `json:"limit-price"`
	StopPrice    decimal.Decimal     `json:"stop-price"`
}
