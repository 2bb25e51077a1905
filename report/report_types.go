package report

import (
	"errors"
	"time"

	"github.com/thrasher-corp/backtester/eventhandlers/statistics"
)

// Artifact file names written into the output directory
const (
	TradesFile     = "trades.csv"
	EquityFile     = "equity.csv"
	RejectionsFile = "rejections.csv"
	AnomaliesFile  = "anomalies.csv"
	MetricsFile    = "metrics.json"
)

var (
	errNilResult   = errors.New("nil run result")
	errNoDirectory = errors.New("no output directory set")
)

// Meta describes the run the artifacts belong to
type Meta struct {
	RunID         string    `json:"run-id"`
	Strategy      string    `json:"strategy,omitempty"`
	StartTime     time.Time `json:"start-time"`
	EndTime       time.Time `json:"end-time"`
	Steps         int64     `json:"steps"`
	BarsProcessed int64     `json:"bars-processed"`
	Trades        int       `json:"trades"`
	Rejections    int       `json:"rejections"`
	Anomalies     int       `json:"anomalies"`
	Complete      bool      `json:"complete"`
	Cancelled     bool      `json:"cancelled"`
	Fatal         bool      `json:"fatal"`
	FatalErr      string    `json:"fatal-error,omitempty"`
	Plots         Plots     `json:"plots"`
}

// Plots records which charts were requested. Charts are rendered by
// external tooling from the csv artifacts
type Plots struct {
	Equity   bool `json:"equity"`
	Drawdown bool `json:"drawdown"`
}

type metricsOutput struct {
	Meta    Meta                `json:"meta"`
	Metrics *statistics.Metrics `json:"metrics"`
}
