package holdings

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	errSymbolMismatch = errors.New("fill symbol does not match holding")
	errZeroQuantity   = errors.New("cannot apply zero quantity")
)

// Holding is the position in a single symbol. Quantity is signed: positive
// for long, negative for short. It is only changed by applying fills
type Holding struct {
	Symbol      string          `json:"symbol"`
	Timestamp   time.Time       `json:"timestamp"`
	Quantity    decimal.Decimal `json:"quantity"`
	AverageCost decimal.Decimal `json:"average-cost"`
	LastPrice   decimal.Decimal `json:"last-price"`
	RealisedPnL decimal.Decimal `json:"realised-pnl"`
	TotalFees   decimal.Decimal `json:"total-fees"`

	BoughtAmount decimal.Decimal `json:"bought-amount"`
	BoughtValue  decimal.Decimal `json:"bought-value"`
	SoldAmount   decimal.Decimal `json:"sold-amount"`
	SoldValue    decimal.Decimal `json:"sold-value"`
}
