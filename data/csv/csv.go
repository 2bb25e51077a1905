package csv

import (
	"container/heap"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/thrasher-corp/backtester/data"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// New opens the csv source at s.Path. A directory is read as one
// <SYMBOL>.csv file per symbol, a file must carry a symbol column unless its
// stem is the symbol
func New(s data.Settings) (data.Provider, error) {
	return Open(s)
}

// Open is New returning the concrete provider
func Open(s data.Settings) (*Provider, error) {
	if s.Path == "" {
		return nil, data.ErrNoPath
	}
	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, err
	}
	filter := data.NewSymbolFilter(s.Symbols)
	columns := s.Columns.WithDefaults()

	var paths []string
	if info.IsDir() {
		paths, err = filepath.Glob(filepath.Join(s.Path, "*.csv"))
		if err != nil {
			return nil, err
		}
		sort.Strings(paths)
	} else {
		paths = []string{s.Path}
	}

	p := &Provider{batchSize: s.GetBatchSize()}
	for i := range paths {
		symbol := data.SymbolFromPath(paths[i])
		if info.IsDir() && !filter.Allows(symbol) {
			continue
		}
		fs, err := openStream(len(p.streams), paths[i], columns, s.DateFormat, filter)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		if _, ok := fs.header[strings.ToLower(columns.Symbol)]; ok {
			fs.symbol = ""
		} else {
			fs.symbol = symbol
		}
		if fs.symbol != "" && !filter.Allows(fs.symbol) {
			_ = fs.file.Close()
			continue
		}
		p.streams = append(p.streams, fs)
	}
	if len(p.streams) == 0 {
		return nil, fmt.Errorf("%w in %v", errNoFiles, s.Path)
	}
	return p, nil
}

func openStream(index int, path string, columns data.Columns, dateFormat string, filter data.SymbolFilter) (*fileStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.ReuseRecord = true
	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%v: %w", path, errEmptyFile)
		}
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	fs := &fileStream{
		index:      index,
		path:       path,
		file:       f,
		reader:     r,
		columns:    columns,
		dateFormat: dateFormat,
		filter:     filter,
		header:     make(map[string]int, len(header)),
		line:       1,
	}
	for i := range header {
		name := strings.ToLower(strings.TrimSpace(header[i]))
		if _, ok := fs.header[name]; ok {
			_ = f.Close()
			return nil, fmt.Errorf("%v %w '%v'", path, errDuplicateHeader, header[i])
		}
		fs.header[name] = i
	}
	ohlcv := columns.OHLCV()
	required := append([]string{columns.Timestamp}, ohlcv[:]...)
	for i := range required {
		if _, ok := fs.header[strings.ToLower(required[i])]; !ok {
			_ = f.Close()
			return nil, fmt.Errorf("%v %w '%v'", path, data.ErrMissingColumn, required[i])
		}
	}
	return fs, nil
}

// advance reads rows until it holds the next bar or the file ends. Rows that
// cannot be parsed are returned as rejections
func (fs *fileStream) advance() []data.RejectedRecord {
	var rejected []data.RejectedRecord
	fs.head = nil
	for !fs.done {
		record, err := fs.reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fs.done = true
				break
			}
			fs.line++
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rejected = append(rejected, fs.reject("", err))
				continue
			}
			fs.done = true
			rejected = append(rejected, fs.reject("", err))
			break
		}
		fs.line++
		k, symbol, err := fs.parse(record)
		if err != nil {
			rejected = append(rejected, fs.reject(symbol, err))
			continue
		}
		if k == nil {
			continue
		}
		fs.head = k
		break
	}
	return rejected
}

// parse returns a nil bar without error for rows of unrequested symbols
func (fs *fileStream) parse(record []string) (*kline.Kline, string, error) {
	symbol := fs.symbol
	if symbol == "" {
		v, err := fs.field(record, fs.columns.Symbol)
		if err != nil {
			return nil, "", err
		}
		symbol = strings.TrimSpace(v)
	}
	if !fs.filter.Allows(symbol) {
		return nil, symbol, nil
	}
	ts, err := fs.field(record, fs.columns.Timestamp)
	if err != nil {
		return nil, symbol, err
	}
	t, err := data.ParseTimestamp(ts, fs.dateFormat)
	if err != nil {
		return nil, symbol, err
	}
	var ohlcv [5]string
	cols := fs.columns.OHLCV()
	for i := range cols {
		ohlcv[i], err = fs.field(record, cols[i])
		if err != nil {
			return nil, symbol, err
		}
	}
	k, err := data.ParseBar(symbol, t, ohlcv)
	return k, symbol, err
}

func (fs *fileStream) field(record []string, column string) (string, error) {
	i, ok := fs.header[strings.ToLower(column)]
	if !ok || i >= len(record) {
		return "", fmt.Errorf("%w '%v'", data.ErrMissingColumn, column)
	}
	return record[i], nil
}

func (fs *fileStream) reject(symbol string, err error) data.RejectedRecord {
	return data.RejectedRecord{
		Source: fs.path,
		Line:   fs.line,
		Symbol: symbol,
		Reason: err.Error(),
	}
}

// NextBatch returns up to the batch size of bars merged across files
func (p *Provider) NextBatch(ctx context.Context) (data.Batch, error) {
	if err := ctx.Err(); err != nil {
		return data.Batch{}, err
	}
	var resp data.Batch
	if !p.started {
		p.started = true
		for i := range p.streams {
			resp.Rejected = append(resp.Rejected, p.streams[i].advance()...)
			if p.streams[i].head != nil {
				p.heads = append(p.heads, p.streams[i])
			}
		}
		heap.Init(&p.heads)
	}
	for len(resp.Bars) < p.batchSize && p.heads.Len() > 0 {
		fs := p.heads[0]
		resp.Bars = append(resp.Bars, fs.head)
		resp.Rejected = append(resp.Rejected, fs.advance()...)
		if fs.head == nil {
			heap.Pop(&p.heads)
			continue
		}
		heap.Fix(&p.heads, 0)
	}
	if len(resp.Bars) == 0 && len(resp.Rejected) == 0 {
		return data.Batch{}, data.ErrEndOfData
	}
	return resp, nil
}

// Close closes every open file
func (p *Provider) Close() error {
	var errs []error
	for i := range p.streams {
		if p.streams[i].file == nil {
			continue
		}
		if err := p.streams[i].file.Close(); err != nil {
			errs = append(errs, err)
		}
		p.streams[i].file = nil
		p.streams[i].done = true
	}
	p.heads = nil
	return errors.Join(errs...)
}

func (h streamHeap) Len() int { return len(h) }

func (h streamHeap) Less(i, j int) bool {
	a, b := h[i].head, h[j].head
	if !a.Time.Equal(b.Time) {
		return a.Time.Before(b.Time)
	}
	if a.Symbol != b.Symbol {
		return a.Symbol < b.Symbol
	}
	return h[i].index < h[j].index
}

func (h streamHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *streamHeap) Push(x any) { *h = append(*h, x.(*fileStream)) }

func (h *streamHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}
