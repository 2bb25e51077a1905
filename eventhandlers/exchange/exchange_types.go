package exchange

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/eventtypes/fill"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
	"github.com/thrasher-corp/backtester/eventtypes/order"
)

// FillPolicy selects which bar price market orders fill at
type FillPolicy string

const (
	// FillAtClose fills market orders at the close of the bar the decision was made on
	FillAtClose FillPolicy = "close"
	// FillAtOpen fills market orders at the open of the bar they are executed against
	FillAtOpen FillPolicy = "open"
	// FillAtNextOpen defers market orders to the open of the symbol's next bar
	FillAtNextOpen FillPolicy = "next_open"
	// DefaultFillPolicy is used when no fill price policy is configured
	DefaultFillPolicy = FillAtNextOpen

	// BacktestType is the execution provider type of the simulator
	BacktestType = "backtest"

	quantityPrecision = 8
)

var (
	// ErrNoBarForSymbol is an execution failure, the order cannot be priced
	ErrNoBarForSymbol = errors.New("no bar available for order symbol")
	// ErrLimitNotReached is returned when a limit price did not trade during the bar
	ErrLimitNotReached = errors.New("limit price not within bar range")
	// ErrStopNotTriggered is returned when a stop order's stop price did not trade during the bar
	ErrStopNotTriggered = errors.New("stop price not reached")
	// ErrInsufficientFunds is returned when no quantity of a buy is affordable
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNoHoldingsToSell is returned when a sell has nothing to sell and shorting is disabled
	ErrNoHoldingsToSell = errors.New("no holdings to sell")
	// ErrNoVolume is returned when the bar has no volume left to participate in
	ErrNoVolume = errors.New("no volume available")
	// ErrLedgerRejected wraps a ledger invariant violation raised while booking a fill
	ErrLedgerRejected = errors.New("ledger rejected fill")
	// ErrUnknownExecutionProvider is returned for unregistered execution provider types
	ErrUnknownExecutionProvider = errors.New("unknown execution provider type")
	// ErrProviderAlreadyRegistered is returned when registering a type twice
	ErrProviderAlreadyRegistered = errors.New("execution provider already registered")

	errInvalidFillPolicy     = errors.New("invalid fill price policy")
	errNegativeSetting       = errors.New("execution settings cannot be negative")
	errParticipationTooLarge = errors.New("max volume participation cannot exceed 1")
	errTerminalOrder         = errors.New("order is not pending")
	errNilFactory            = errors.New("nil execution provider factory")
)

// Ledger is what the simulator needs from the portfolio ledger to book fills
type Ledger interface {
	Cash() decimal.Decimal
	PositionQuantity(symbol string) decimal.Decimal
	ApplyFill(*fill.Fill) error
}

// ExecutionHandler turns an order into a fill against a bar. A live adapter
// implementing it is a drop-in substitute for the simulator
type ExecutionHandler interface {
	ExecuteOrder(*order.Order, *kline.Kline, Ledger) (*fill.Fill, error)
	GetSettings() Settings
}

// Settings configure how the simulator prices and sizes fills
type Settings struct {
	CommissionRate         decimal.Decimal
	Slippage               decimal.Decimal
	FillPrice              FillPolicy
	MaxVolumeParticipation decimal.Decimal
	// LimitOrderLifetime is how many further bars an unfilled limit order
	// stays pending. Zero drops it after the bar it was placed on
	LimitOrderLifetime int
	AllowMargin        bool
	AllowShort         bool
}

// Exchange is the backtest execution simulator
type Exchange struct {
	Settings Settings
}

// Factory builds an execution handler from settings
type Factory func(Settings) (ExecutionHandler, error)

// Registry maps an execution provider type to its factory
type Registry struct {
	factories map[string]Factory
}
