package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
)

const (
	// MemoryType is the provider type of the in-memory provider
	MemoryType = "memory"
	// CSVType is the provider type of the csv file provider
	CSVType = "csv"
	// DatabaseType is the provider type of the sql provider
	DatabaseType = "db"
	// JSONLType is the provider type of the json-lines provider
	JSONLType = "jsonl"
	// ParquetType is the provider type of the parquet provider
	ParquetType = "parquet"

	// DefaultBatchSize is the number of bars a provider returns per batch
	// when none is configured
	DefaultBatchSize = 500

	// UnixFormat parses timestamps as seconds since the epoch
	UnixFormat = "unix"
	// UnixMilliFormat parses timestamps as milliseconds since the epoch
	UnixMilliFormat = "unixmilli"
)

var (
	// ErrEndOfData is returned by a provider once its stream is exhausted
	ErrEndOfData = errors.New("end of data")
	// ErrUnknownProviderType is returned for unregistered data provider types
	ErrUnknownProviderType = fmt.Errorf("%w: unknown data provider type", common.ErrInvalidDataType)
	// ErrProviderAlreadyRegistered is returned when registering a type twice
	ErrProviderAlreadyRegistered = errors.New("data provider already registered")
	// ErrMissingColumn is returned when a source lacks a mapped column
	ErrMissingColumn = errors.New("missing mapped column")
	// ErrInvalidTimestamp is returned when a timestamp cannot be parsed
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrInvalidPrice is returned when a price or volume cannot be parsed
	ErrInvalidPrice = errors.New("invalid price")
	// ErrNoPath is returned when a file based provider has no path
	ErrNoPath = errors.New("data path not set")

	errNilProvider = errors.New("nil data provider")
	errNilFactory  = errors.New("nil data provider factory")
)

// Provider supplies bars in batches. Implementations return ErrEndOfData
// once there is nothing left to read
type Provider interface {
	NextBatch(ctx context.Context) (Batch, error)
	Close() error
}

// Batch is the unit a provider hands to the engine
type Batch struct {
	Bars     []*kline.Kline
	Rejected []RejectedRecord
}

// RejectedRecord is a source record that could not be turned into a bar
type RejectedRecord struct {
	Source string
	Line   int64
	Symbol string
	Reason string
}

// Columns maps bar fields onto source column or key names
type Columns struct {
	Timestamp string `mapstructure:"timestamp"`
	Symbol    string `mapstructure:"symbol"`
	Open      string `mapstructure:"open"`
	High      string `mapstructure:"high"`
	Low       string `mapstructure:"low"`
	Close     string `mapstructure:"close"`
	Volume    string `mapstructure:"volume"`
}

// Settings configure a provider. Fields not relevant to a provider type are
// ignored by it
type Settings struct {
	Type        string
	Path        string
	Driver      string
	DSN         string
	Table       string
	Columns     Columns
	DateFormat  string
	Symbols     []string
	BatchSize   int
	ReplaySpeed float64
	// Bars feeds the memory provider
	Bars []*kline.Kline
}

// Factory builds a provider from settings
type Factory func(Settings) (Provider, error)

// Registry maps a data provider type to its factory
type Registry struct {
	factories map[string]Factory
}

// Memory replays a fixed slice of bars in the order given
type Memory struct {
	bars      []*kline.Kline
	batchSize int
	offset    int
}

// Throttled delays each batch of the wrapped provider to hold a replay speed
type Throttled struct {
	Provider
	limiter limiter
}

type limiter interface {
	Wait(ctx context.Context) error
}

// SymbolFilter reports whether a symbol was requested. An empty filter
// accepts everything
type SymbolFilter map[string]struct{}
