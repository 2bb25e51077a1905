package engine

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/data"
	"github.com/thrasher-corp/backtester/eventhandlers/exchange"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio/risk"
	"github.com/thrasher-corp/backtester/eventhandlers/statistics"
	"github.com/thrasher-corp/backtester/eventhandlers/strategies"
	"github.com/thrasher-corp/backtester/eventtypes/fill"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
	"github.com/thrasher-corp/backtester/eventtypes/order"
	"github.com/thrasher-corp/backtester/eventtypes/signal"
	"github.com/thrasher-corp/backtester/log"
)

const (
	defaultRetryBaseDelay = 100 * time.Millisecond
	defaultRetryMaxDelay  = 5 * time.Second

	// RiskStage marks rejections made by the risk gate
	RiskStage = "RISK"
)

var (
	// ErrFatal wraps every error which aborts a run. The partial result is
	// still returned alongside it
	ErrFatal = errors.New("fatal engine error")
	// ErrRunCancelled is returned when the run context is cancelled between steps
	ErrRunCancelled = errors.New("backtest run cancelled")

	errNilConfig        = errors.New("unable to setup backtester with nil config")
	errRunAlreadyRan    = errors.New("backtest has already been run")
	errStrategyPanic    = errors.New("strategy panicked")
	errNilIntent        = errors.New("strategy returned a nil intent")
	errOutOfOrderBar    = errors.New("bar is older than the current timestamp")
	errDuplicateBar     = errors.New("duplicate bar for symbol and timestamp")
	errNegativeRetries  = errors.New("max retries cannot be negative")
	errInvalidDateRange = errors.New("start date is after end date")
)

// orderNamespace seeds deterministic order IDs so identical runs produce
// identical order references
var orderNamespace = uuid.NewV5(uuid.NamespaceURL, "github.com/thrasher-corp/backtester/order")

// RiskGate evaluates strategy intents against a read-only snapshot
type RiskGate interface {
	EvaluateOrder(*signal.Intent, *portfolio.Snapshot) *risk.Decision
}

// Settings control the run loop itself. Zero delays use the default backoff
type Settings struct {
	StartDate           time.Time
	EndDate             time.Time
	MaxRetries          int
	RetryBaseDelay      time.Duration
	RetryMaxDelay       time.Duration
	RiskFreeRate        float64
	AnnualizationFactor float64
}

// BackTest is the orchestrator of a single run. It owns the event loop and
// is the only caller of the ledger, gate, strategy and simulator
type BackTest struct {
	settings  Settings
	provider  data.Provider
	strategy  strategies.Handler
	exchange  exchange.ExecutionHandler
	risk      RiskGate
	portfolio *portfolio.Portfolio

	sl        *log.SubLogger
	dataLog   *log.SubLogger
	stratLog  *log.SubLogger
	riskLog   *log.SubLogger
	exchLog   *log.SubLogger
	portLog   *log.SubLogger
	statsLog  *log.SubLogger
	orderSeq  uint64
	hasRan    bool
	groupTime time.Time
	group     []*kline.Kline
	// pending holds next_open market orders and resting limit orders
	pending []*order.Order
	result  *RunResult
}

// RunResult is the history of a run. It is complete only when the data
// stream was exhausted without a fatal error or cancellation
type RunResult struct {
	RunID         string                   `json:"run-id"`
	Strategy      string                   `json:"strategy"`
	StartTime     time.Time                `json:"start-time"`
	EndTime       time.Time                `json:"end-time"`
	BarsProcessed int64                    `json:"bars-processed"`
	Steps         int64                    `json:"steps"`
	Trades        []*fill.Fill             `json:"trades"`
	Equity        []statistics.EquityPoint `json:"equity"`
	Rejections    []Rejection              `json:"rejections"`
	Anomalies     []Anomaly                `json:"anomalies"`
	Orders        []*order.Order           `json:"orders"`
	Metrics       *statistics.Metrics      `json:"metrics"`
	Fatal         bool                     `json:"fatal"`
	FatalErr      string                   `json:"fatal-error,omitempty"`
	Cancelled     bool                     `json:"cancelled"`
	Complete      bool                     `json:"complete"`
}

// Rejection is an intent the risk gate refused
type Rejection struct {
	Time      time.Time        `json:"timestamp"`
	Symbol    string           `json:"symbol"`
	Stage     string           `json:"stage"`
	Side      common.Side      `json:"side"`
	OrderType common.OrderType `json:"order-type"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Limit     risk.Limit       `json:"limit"`
	Reason    string           `json:"reason"`
}

// Anomaly is a recorded, non-fatal problem. The step it happened in carried on
type Anomaly struct {
	Time    time.Time          `json:"timestamp"`
	Kind    common.AnomalyKind `json:"kind"`
	Symbol  string             `json:"symbol,omitempty"`
	OrderID string             `json:"order-id,omitempty"`
	Source  string             `json:"source,omitempty"`
	Line    int64              `json:"line,omitempty"`
	Reason  string             `json:"reason"`
}
