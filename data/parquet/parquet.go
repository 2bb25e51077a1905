package parquet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/data"
	"github.com/thrasher-corp/backtester/eventtypes/event"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
)

var errNoFiles = errors.New("no parquet files found")

// BarRecord is one row of a bar parquet file. Files without a symbol
// column take the file stem as their symbol
type BarRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"`
	Symbol    string  `parquet:"symbol,optional"`
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// Provider replays parquet files. Files in a directory are merged by
// timestamp then symbol, rows keep their order within a file
type Provider struct {
	paths     []string
	filter    data.SymbolFilter
	batchSize int
	files     [][]*kline.Kline
	loaded    bool
}

// New lists the parquet files at s.Path
func New(s data.Settings) (data.Provider, error) {
	if s.Path == "" {
		return nil, data.ErrNoPath
	}
	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, err
	}
	paths := []string{s.Path}
	if info.IsDir() {
		paths, err = filepath.Glob(filepath.Join(s.Path, "*.parquet"))
		if err != nil {
			return nil, err
		}
		sort.Strings(paths)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %v", errNoFiles, s.Path)
	}
	return &Provider{
		paths:     paths,
		filter:    data.NewSymbolFilter(s.Symbols),
		batchSize: s.GetBatchSize(),
	}, nil
}

// NextBatch returns up to the batch size of bars. Every file is read on the
// first call
func (p *Provider) NextBatch(ctx context.Context) (data.Batch, error) {
	if err := ctx.Err(); err != nil {
		return data.Batch{}, err
	}
	if !p.loaded {
		p.loaded = true
		for i := range p.paths {
			bars, err := p.load(p.paths[i])
			if err != nil {
				return data.Batch{}, err
			}
			if len(bars) > 0 {
				p.files = append(p.files, bars)
			}
		}
	}
	var resp data.Batch
	for len(resp.Bars) < p.batchSize {
		next := -1
		for i := range p.files {
			if len(p.files[i]) == 0 {
				continue
			}
			if next == -1 || kline.Less(p.files[i][0], p.files[next][0]) {
				next = i
			}
		}
		if next == -1 {
			break
		}
		resp.Bars = append(resp.Bars, p.files[next][0])
		p.files[next] = p.files[next][1:]
	}
	if len(resp.Bars) == 0 {
		return data.Batch{}, data.ErrEndOfData
	}
	return resp, nil
}

func (p *Provider) load(path string) ([]*kline.Kline, error) {
	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	stem := data.SymbolFromPath(path)
	resp := make([]*kline.Kline, 0, len(records))
	for i := range records {
		symbol := strings.TrimSpace(records[i].Symbol)
		if symbol == "" {
			symbol = stem
		}
		if !p.filter.Allows(symbol) {
			continue
		}
		resp = append(resp, records[i].toKline(symbol))
	}
	return resp, nil
}

func (r *BarRecord) toKline(symbol string) *kline.Kline {
	return &kline.Kline{
		Base: event.Base{
			Time:   time.UnixMilli(r.Timestamp).UTC(),
			Symbol: symbol,
		},
		Open:   decimal.NewFromFloat(r.Open),
		High:   decimal.NewFromFloat(r.High),
		Low:    decimal.NewFromFloat(r.Low),
		Close:  decimal.NewFromFloat(r.Close),
		Volume: decimal.NewFromFloat(r.Volume),
	}
}

// Close drops any unread bars
func (p *Provider) Close() error {
	p.files = nil
	p.loaded = true
	return nil
}
