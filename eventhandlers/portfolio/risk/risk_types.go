package risk

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/eventtypes/order"
	"github.com/thrasher-corp/backtester/eventtypes/signal"
)

// Outcome is the result of evaluating an intent
type Outcome string

// Limit names the constraint that triggered a decision
type Limit string

// resized quantities are truncated so the capped notional never exceeds its limit
const quantityPrecision = 8

const (
	// Accepted intents become orders unchanged
	Accepted Outcome = "ACCEPTED"
	// Resized intents become orders with a reduced quantity
	Resized Outcome = "RESIZED"
	// Rejected intents never become orders
	Rejected Outcome = "REJECTED"

	// LimitNone is recorded for accepted orders
	LimitNone Limit = ""
	// LimitValidation is recorded when the intent itself is malformed
	LimitValidation Limit = "validation"
	// LimitPrice is recorded when no reference price is known for the symbol
	LimitPrice Limit = "price"
	// LimitEquity is recorded when risk cannot be sized against non-positive equity
	LimitEquity Limit = "equity"
	// LimitTargetWeight is recorded when a target weight needs no trade
	LimitTargetWeight Limit = "target_weight"
	// LimitShortSelling is recorded when a sell would open a short position while shorting is disabled
	LimitShortSelling Limit = "short_selling"
	// LimitMaxPositionSize caps the value of the resulting position relative to equity
	LimitMaxPositionSize Limit = "max_position_size"
	// LimitMaxOrderSize caps the notional of a single order relative to equity
	LimitMaxOrderSize Limit = "max_order_size"
	// LimitMaxConcentration caps one symbol's share of total exposure
	LimitMaxConcentration Limit = "max_concentration"
	// LimitMaxDrawdown blocks risk-increasing orders while drawdown exceeds the threshold
	LimitMaxDrawdown Limit = "max_drawdown"
)

var (
	errNilSnapshot = errors.New("nil portfolio snapshot")
	errLimitRange  = errors.New("risk limits must be between 0 and 1")
)

// Limits are fractions of equity. A zero limit disables its check
type Limits struct {
	MaxPositionSize  decimal.Decimal `json:"max-position-size"`
	MaxOrderSize     decimal.Decimal `json:"max-order-size"`
	MaxConcentration decimal.Decimal `json:"max-concentration"`
	MaxDrawdown      decimal.Decimal `json:"max-drawdown"`
}

// Risk is the gate every intent passes before reaching the execution simulator.
// It reads snapshots only and never changes ledger state
type Risk struct {
	Limits     Limits
	AllowShort bool
	// NewOrderID returns the ID for each accepted or resized order
	NewOrderID func() string
}

// Adjustment records a single check that changed an order's quantity
type Adjustment struct {
	Limit  Limit           `json:"limit"`
	From   decimal.Decimal `json:"from"`
	To     decimal.Decimal `json:"to"`
	Reason string          `json:"reason"`
}

// Decision is the auditable result of evaluating an intent.
// Order is nil when the intent is rejected
type Decision struct {
	Outcome     Outcome        `json:"outcome"`
	Intent      *signal.Intent `json:"intent"`
	Order       *order.Order   `json:"order,omitempty"`
	Limit       Limit          `json:"limit"`
	Reason      string         `json:"reason"`
	Adjustments []Adjustment   `json:"adjustments,omitempty"`
}
