package portfolio

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio/holdings"
)

var (
	// ErrNegativeCash is a ledger invariant violation: a fill would take cash
	// below zero while margin is disabled
	ErrNegativeCash = errors.New("fill would result in negative cash")
	// ErrShortPosition is a ledger invariant violation: a fill would open a
	// short position while short selling is disabled
	ErrShortPosition = errors.New("fill would result in a short position")
	// ErrInitialFundsZero is returned when a portfolio is set up without cash
	ErrInitialFundsZero = errors.New("initial funds must be greater than zero")

	errNilBar = errors.New("nil bar received")
)

// Portfolio is the ledger of cash and holdings for a run. It is the single
// source of truth for position and cash state and is only mutated by fills
// and mark-to-market updates from the engine's single run loop
type Portfolio struct {
	initialCash     decimal.Decimal
	cash            decimal.Decimal
	allowMargin     bool
	allowShort      bool
	holdings        map[string]*holdings.Holding
	lastPrices      map[string]decimal.Decimal
	lastTime        time.Time
	peakEquity      decimal.Decimal
	totalCommission decimal.Decimal
	realisedPnL     decimal.Decimal
	fillCount       int64
}

// Snapshot is a read-only copy of the ledger at a point in time. Changing it
// has no effect on the ledger it came from
type Snapshot struct {
	Time            time.Time                   `json:"timestamp"`
	InitialCash     decimal.Decimal             `json:"initial-cash"`
	Cash            decimal.Decimal             `json:"cash"`
	Equity          decimal.Decimal             `json:"equity"`
	PeakEquity      decimal.Decimal             `json:"peak-equity"`
	RealisedPnL     decimal.Decimal             `json:"realised-pnl"`
	UnrealisedPnL   decimal.Decimal             `json:"unrealised-pnl"`
	TotalCommission decimal.Decimal             `json:"total-commission"`
	Positions       map[string]holdings.Holding `json:"positions"`
	LastPrices      map[string]decimal.Decimal  `json:"last-prices"`
}
