package order

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventtypes/event"
)

// Status is the lifecycle state of an order
type Status string

const (
	// Pending orders have been approved by the risk gate and await execution
	Pending Status = "PENDING"
	// Filled orders have been completely filled
	Filled Status = "FILLED"
	// PartiallyFilled orders reached a terminal state with some quantity unfilled
	PartiallyFilled Status = "PARTIALLY FILLED"
	// Rejected orders were refused by the execution simulator and never filled
	Rejected Status = "REJECTED"
	// Expired limit orders were never reached within their lifetime and were dropped
	Expired Status = "EXPIRED"
)

var (
	errOverfill        = errors.New("fill quantity exceeds remaining order quantity")
	errOrderTerminated = errors.New("order already in a terminal state")
)

// Order is a risk-approved intent. Execution transitions it from pending to
// a terminal status; one or more fills may contribute to it
type Order struct {
	event.Base
	ID                string           `json:"id"`
	Side              common.Side      `json:"side"`
	OrderType         common.OrderType `json:"order-type"`
	RequestedQuantity decimal.Decimal  `json:"requested-quantity"`
	Quantity          decimal.Decimal  `json:"quantity"`
	LimitPrice        decimal.Decimal  `json:"limit-price"`
	StopPrice         decimal.Decimal  `json:"stop-price"`
	FilledQuantity    decimal.Decimal  `json:"filled-quantity"`
	Status            Status           `json:"status"`
	// Triggered is set once a stop order's stop price has traded
	Triggered bool `json:"triggered"`
	// BarsRemaining is how many further bars a pending order may wait for a fill
	BarsRemaining int `json:"-"`
}
