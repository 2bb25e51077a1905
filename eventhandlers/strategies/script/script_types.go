package script

import (
	"errors"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/thrasher-corp/backtester/eventhandlers/strategies/base"
)

const (
	// Name is the strategy name
	Name = "script"

	pathKey    = "path"
	sourceKey  = "source"
	timeoutKey = "timeout"
	historyKey = "history"

	// DefaultTimeout bounds a single evaluation of the script
	DefaultTimeout = 5 * time.Second
	// DefaultHistory is the number of closes per symbol handed to the script
	DefaultHistory = 200

	description = `Runs a tengo script once per bar. The script reads the bar, the position and a history of closes and answers by setting side and quantity, or weight`
)

// script inputs
const (
	varSymbol   = "symbol"
	varTime     = "time"
	varOpen     = "open"
	varHigh     = "high"
	varLow      = "low"
	varClose    = "close"
	varVolume   = "volume"
	varPosition = "position"
	varCash     = "cash"
	varEquity   = "equity"
	varCloses   = "closes"
)

// script outputs
const (
	varSide       = "side"
	varQuantity   = "quantity"
	varWeight     = "weight"
	varOrderType  = "order_type"
	varLimitPrice = "limit_price"
	varStopPrice  = "stop_price"
)

var (
	errNoScript       = errors.New("script strategy requires a path or source")
	errBothSources    = errors.New("script strategy accepts a path or a source, not both")
	errNotCompiled    = errors.New("script has not been compiled")
	errScriptRun      = errors.New("script evaluation failed")
	errInvalidOutputs = errors.New("script produced an invalid order")
)

// Strategy evaluates a compiled tengo script for every bar
type Strategy struct {
	base.Strategy
	path     string
	source   []byte
	timeout  time.Duration
	history  int
	compiled *tengo.Compiled
}
