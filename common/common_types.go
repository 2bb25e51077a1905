package common

import (
	"errors"
)

// Side is the direction of an order intent, order or fill
type Side string

// OrderType dictates how an order is priced by the execution simulator
type OrderType string

// AnomalyKind classifies a recorded, non-fatal run anomaly
type AnomalyKind string

const (
	// Buy increases a long position or reduces a short position
	Buy Side = "BUY"
	// Sell reduces a long position or increases a short position
	Sell Side = "SELL"
	// DoNothing is an explicit signal for the backtester to not perform an action
	// based upon indicator results
	DoNothing Side = "DO NOTHING"
	// CouldNotBuy is flagged when a BUY signal is raised in the strategy phase, but the
	// risk gate or execution simulator cannot place an order
	CouldNotBuy Side = "COULD NOT BUY"
	// CouldNotSell is flagged when a SELL signal is raised in the strategy phase, but the
	// risk gate or execution simulator cannot place an order
	CouldNotSell Side = "COULD NOT SELL"

	// Market orders fill at the configured bar price
	Market OrderType = "MARKET"
	// Limit orders fill at their limit price when it trades within the bar's range
	Limit OrderType = "LIMIT"
	// Stop orders become market orders once the bar trades through their stop price
	Stop OrderType = "STOP"
	// StopLimit orders become limit orders once the bar trades through their stop price
	StopLimit OrderType = "STOP_LIMIT"

	// DataAnomaly is a malformed, duplicate or out-of-order bar
	DataAnomaly AnomalyKind = "DATA"
	// StrategyAnomaly is an error or panic raised by strategy logic
	StrategyAnomaly AnomalyKind = "STRATEGY"
	// ExecutionAnomaly is an order the simulator could not price
	ExecutionAnomaly AnomalyKind = "EXECUTION"
	// ProviderAnomaly is a transient data provider failure that was retried
	ProviderAnomaly AnomalyKind = "PROVIDER"

	// Backtester is the default sub-logger name for the run loop
	Backtester = "BACKTESTER"
	// Data sub-logger name
	Data = "DATA"
	// Strategy sub-logger name
	Strategy = "STRATEGY"
	// Risk sub-logger name
	Risk = "RISK"
	// Exchange sub-logger name
	Exchange = "EXCHANGE"
	// Portfolio sub-logger name
	Portfolio = "PORTFOLIO"
	// Statistics sub-logger name
	Statistics = "STATISTICS"
	// Report sub-logger name
	Report = "REPORT"
	// Config sub-logger name
	Config = "CONFIG"
)

var (
	// ErrNilArguments is a common error response to highlight that nils were passed in
	// when they should not have been
	ErrNilArguments = errors.New("received nil argument(s)")
	// ErrNilEvent is a common error for whenever a nil event occurs when it shouldn't have
	ErrNilEvent = errors.New("nil event received")
	// ErrInvalidDataType occurs when an invalid data type is defined in the config
	ErrInvalidDataType = errors.New("invalid datatype received")
	// ErrInvalidSide is returned when a side is neither buy nor sell
	ErrInvalidSide = errors.New("invalid order side")
	// ErrInvalidOrderType is returned for unsupported order types
	ErrInvalidOrderType = errors.New("invalid order type")

	errUnrecognisedSide      = errors.New("unrecognised side")
	errUnrecognisedOrderType = errors.New("unrecognised order type")
)

// SubLoggerNames lists every sub-logger the backtester writes to
var SubLoggerNames = []string{
	Backtester,
	Data,
	Strategy,
	Risk,
	Exchange,
	Portfolio,
	Statistics,
	Report,
	Config,
}
