package data

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/eventtypes/event"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
	"golang.org/x/time/rate"
)

var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.DateTime,
	time.DateOnly,
	"2006-01-02T15:04:05",
}

// GetBatchSize returns the configured batch size or the default
func (s *Settings) GetBatchSize() int {
	if s.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return s.BatchSize
}

// WithDefaults fills unmapped columns with their lower case field names
func (c Columns) WithDefaults() Columns {
	if c.Timestamp == "" {
		c.Timestamp = "timestamp"
	}
	if c.Symbol == "" {
		c.Symbol = "symbol"
	}
	if c.Open == "" {
		c.Open = "open"
	}
	if c.High == "" {
		c.High = "high"
	}
	if c.Low == "" {
		c.Low = "low"
	}
	if c.Close == "" {
		c.Close = "close"
	}
	if c.Volume == "" {
		c.Volume = "volume"
	}
	return c
}

// OHLCV returns the price and volume columns in bar order
func (c Columns) OHLCV() [5]string {
	return [5]string{c.Open, c.High, c.Low, c.Close, c.Volume}
}

// NewSymbolFilter builds a filter from requested symbols
func NewSymbolFilter(symbols []string) SymbolFilter {
	f := make(SymbolFilter, len(symbols))
	for i := range symbols {
		s := strings.TrimSpace(symbols[i])
		if s != "" {
			f[s] = struct{}{}
		}
	}
	return f
}

// Allows reports whether bars for the symbol should be emitted
func (f SymbolFilter) Allows(symbol string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[symbol]
	return ok
}

// SymbolFromPath returns the file stem, which names the symbol of a per symbol file
func SymbolFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseTimestamp converts a source value into a UTC time. The format is a
// Go layout, UnixFormat, UnixMilliFormat or empty to try common layouts
func ParseTimestamp(value, format string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}
	switch strings.ToLower(format) {
	case UnixFormat, UnixMilliFormat:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w '%v': %w", ErrInvalidTimestamp, value, err)
		}
		return FromEpoch(n, format), nil
	case "":
		for i := range fallbackLayouts {
			if t, err := time.Parse(fallbackLayouts[i], value); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w '%v': no known layout matched", ErrInvalidTimestamp, value)
	}
	t, err := time.Parse(format, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w '%v': %w", ErrInvalidTimestamp, value, err)
	}
	return t.UTC(), nil
}

// FromEpoch converts an integer timestamp. Milliseconds are assumed only for
// UnixMilliFormat
func FromEpoch(n int64, format string) time.Time {
	if strings.EqualFold(format, UnixMilliFormat) {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// ParseBar builds a bar from textual prices. The bar is not validated, that
// is left to the engine so invalid bars surface as anomalies
func ParseBar(symbol string, t time.Time, ohlcv [5]string) (*kline.Kline, error) {
	var values [5]decimal.Decimal
	for i := range ohlcv {
		v, err := decimal.NewFromString(strings.TrimSpace(ohlcv[i]))
		if err != nil {
			return nil, fmt.Errorf("%w '%v': %w", ErrInvalidPrice, ohlcv[i], err)
		}
		values[i] = v
	}
	return &kline.Kline{
		Base: event.Base{
			Time:   t,
			Symbol: symbol,
		},
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}

// NewMemory returns a provider over bars
func NewMemory(bars []*kline.Kline, batchSize int) *Memory {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Memory{bars: bars, batchSize: batchSize}
}

// NextBatch returns the next slice of bars
func (m *Memory) NextBatch(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	if m.offset >= len(m.bars) {
		return Batch{}, ErrEndOfData
	}
	end := min(m.offset+m.batchSize, len(m.bars))
	resp := Batch{Bars: make([]*kline.Kline, 0, end-m.offset)}
	for _, b := range m.bars[m.offset:end] {
		// nil bars are passed on for the consumer to report
		if b == nil {
			resp.Bars = append(resp.Bars, nil)
			continue
		}
		c := *b
		resp.Bars = append(resp.Bars, &c)
	}
	m.offset = end
	return resp, nil
}

// Close resets the memory provider
func (m *Memory) Close() error {
	m.offset = len(m.bars)
	return nil
}

// Throttle wraps p so that at most replaySpeed batches are read per second.
// A non-positive speed returns p unchanged
func Throttle(p Provider, replaySpeed float64) Provider {
	if p == nil || replaySpeed <= 0 {
		return p
	}
	return &Throttled{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(replaySpeed), 1),
	}
}

// NextBatch waits for the limiter before reading from the wrapped provider
func (t *Throttled) NextBatch(ctx context.Context) (Batch, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return Batch{}, err
	}
	return t.Provider.NextBatch(ctx)
}
