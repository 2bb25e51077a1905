package jsonl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/buger/jsonparser"
	"github.com/thrasher-corp/backtester/data"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
)

const maxLineSize = 1 << 20

var (
	errUnexpectedType = errors.New("unexpected json type")
	errNoSymbol       = errors.New("record has no symbol")
)

// Provider reads one bar per line from a json-lines file. Lines are emitted
// in file order
type Provider struct {
	file       *os.File
	scanner    *bufio.Scanner
	path       string
	symbol     string
	columns    data.Columns
	dateFormat string
	filter     data.SymbolFilter
	batchSize  int
	line       int64
	done       bool
}

// New opens the json-lines file at s.Path. Records without a symbol key
// take the file stem as their symbol
func New(s data.Settings) (data.Provider, error) {
	if s.Path == "" {
		return nil, data.ErrNoPath
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Provider{
		file:       f,
		scanner:    scanner,
		path:       s.Path,
		symbol:     data.SymbolFromPath(s.Path),
		columns:    s.Columns.WithDefaults(),
		dateFormat: s.DateFormat,
		filter:     data.NewSymbolFilter(s.Symbols),
		batchSize:  s.GetBatchSize(),
	}, nil
}

// NextBatch parses up to the batch size of lines
func (p *Provider) NextBatch(ctx context.Context) (data.Batch, error) {
	if p.done {
		return data.Batch{}, data.ErrEndOfData
	}
	if err := ctx.Err(); err != nil {
		return data.Batch{}, err
	}
	var resp data.Batch
	for len(resp.Bars) < p.batchSize {
		if !p.scanner.Scan() {
			p.done = true
			if err := p.scanner.Err(); err != nil {
				return resp, fmt.Errorf("%v line %v: %w", p.path, p.line+1, err)
			}
			break
		}
		p.line++
		line := p.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		k, symbol, err := p.parse(line)
		if err != nil {
			resp.Rejected = append(resp.Rejected, data.RejectedRecord{
				Source: p.path,
				Line:   p.line,
				Symbol: symbol,
				Reason: err.Error(),
			})
			continue
		}
		if k != nil {
			resp.Bars = append(resp.Bars, k)
		}
	}
	if len(resp.Bars) == 0 && len(resp.Rejected) == 0 {
		return data.Batch{}, data.ErrEndOfData
	}
	return resp, nil
}

func (p *Provider) parse(line []byte) (*kline.Kline, string, error) {
	symbol, err := jsonparser.GetString(line, p.columns.Symbol)
	switch {
	case errors.Is(err, jsonparser.KeyPathNotFoundError):
		symbol = p.symbol
	case err != nil:
		return nil, "", err
	}
	if symbol == "" {
		return nil, "", errNoSymbol
	}
	if !p.filter.Allows(symbol) {
		return nil, symbol, nil
	}
	t, err := p.timestamp(line)
	if err != nil {
		return nil, symbol, err
	}
	var ohlcv [5]string
	cols := p.columns.OHLCV()
	for i := range cols {
		v, dataType, _, err := jsonparser.Get(line, cols[i])
		if err != nil {
			return nil, symbol, fmt.Errorf("%w '%v': %w", data.ErrMissingColumn, cols[i], err)
		}
		if dataType != jsonparser.Number && dataType != jsonparser.String {
			return nil, symbol, fmt.Errorf("%v %w %v", cols[i], errUnexpectedType, dataType)
		}
		ohlcv[i] = string(v)
	}
	k, err := data.ParseBar(symbol, t, ohlcv)
	return k, symbol, err
}

func (p *Provider) timestamp(line []byte) (time.Time, error) {
	v, dataType, _, err := jsonparser.Get(line, p.columns.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w '%v': %w", data.ErrMissingColumn, p.columns.Timestamp, err)
	}
	switch dataType {
	case jsonparser.Number:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w '%s': %w", data.ErrInvalidTimestamp, v, err)
		}
		return data.FromEpoch(n, p.dateFormat), nil
	case jsonparser.String:
		return data.ParseTimestamp(string(v), p.dateFormat)
	}
	return time.Time{}, fmt.Errorf("%v %w %v", p.columns.Timestamp, errUnexpectedType, dataType)
}

// Close closes the file
func (p *Provider) Close() error {
	p.done = true
	return p.file.Close()
}
