package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/data"
	"github.com/thrasher-corp/backtester/eventtypes/event"
	"github.com/thrasher-corp/backtester/eventtypes/kline"

	// sql drivers
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// New opens a database connection for s.Driver. The query runs on the first
// call to NextBatch
func New(s data.Settings) (data.Provider, error) {
	return Open(s)
}

// Open is New returning the concrete provider
func Open(s data.Settings) (*Provider, error) {
	driver := strings.ToLower(s.Driver)
	switch driver {
	case "":
		driver = SQLite3
	case SQLite3, Postgres:
	case "postgresql":
		driver = Postgres
	default:
		return nil, fmt.Errorf("%w '%v'", errUnsupportedDriver, s.Driver)
	}
	dsn := s.DSN
	if dsn == "" {
		dsn = s.Path
	}
	if dsn == "" {
		return nil, errNoDSN
	}
	if s.Table == "" {
		return nil, errNoTable
	}
	query, args, err := buildQuery(driver, s.Table, s.Columns.WithDefaults(), s.Symbols)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	return &Provider{
		db:         db,
		driver:     driver,
		query:      query,
		args:       args,
		dateFormat: s.DateFormat,
		batchSize:  s.GetBatchSize(),
	}, nil
}

func buildQuery(driver, table string, c data.Columns, symbols []string) (string, []any, error) {
	ohlcv := c.OHLCV()
	cols := append([]string{c.Timestamp, c.Symbol}, ohlcv[:]...)
	for _, id := range append(cols, table) {
		if !identifier.MatchString(id) {
			return "", nil, fmt.Errorf("%w '%v'", errInvalidIdentifier, id)
		}
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	var args []any
	filter := data.NewSymbolFilter(symbols)
	if len(filter) > 0 {
		placeholders := make([]string, 0, len(filter))
		for i := range symbols {
			if _, ok := filter[strings.TrimSpace(symbols[i])]; !ok {
				continue
			}
			delete(filter, strings.TrimSpace(symbols[i]))
			args = append(args, strings.TrimSpace(symbols[i]))
			if driver == Postgres {
				placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
			} else {
				placeholders = append(placeholders, "?")
			}
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(c.Symbol)
		sb.WriteString(" IN (")
		sb.WriteString(strings.Join(placeholders, ", "))
		sb.WriteString(")")
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(c.Timestamp)
	sb.WriteString(", ")
	sb.WriteString(c.Symbol)
	return sb.String(), args, nil
}

// NextBatch scans up to the batch size of rows
func (p *Provider) NextBatch(ctx context.Context) (data.Batch, error) {
	if p.done {
		return data.Batch{}, data.ErrEndOfData
	}
	if err := ctx.Err(); err != nil {
		return data.Batch{}, err
	}
	if p.rows == nil {
		rows, err := p.db.QueryContext(ctx, p.query, p.args...)
		if err != nil {
			return data.Batch{}, err
		}
		p.rows = rows
	}
	var resp data.Batch
	for len(resp.Bars) < p.batchSize {
		if !p.rows.Next() {
			p.done = true
			if err := p.rows.Err(); err != nil {
				return resp, err
			}
			break
		}
		p.line++
		var values [7]any
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := p.rows.Scan(dest...); err != nil {
			return resp, err
		}
		k, err := p.toBar(values)
		if err != nil {
			resp.Rejected = append(resp.Rejected, data.RejectedRecord{
				Source: p.driver,
				Line:   p.line,
				Symbol: asString(values[1]),
				Reason: err.Error(),
			})
			continue
		}
		resp.Bars = append(resp.Bars, k)
	}
	if len(resp.Bars) == 0 && len(resp.Rejected) == 0 {
		return data.Batch{}, data.ErrEndOfData
	}
	return resp, nil
}

func (p *Provider) toBar(values [7]any) (*kline.Kline, error) {
	t, err := p.toTime(values[0])
	if err != nil {
		return nil, err
	}
	k := &kline.Kline{
		Base: event.Base{
			Time:   t,
			Symbol: strings.TrimSpace(asString(values[1])),
		},
	}
	prices := []*decimal.Decimal{&k.Open, &k.High, &k.Low, &k.Close, &k.Volume}
	for i := range prices {
		*prices[i], err = toDecimal(values[i+2])
		if err != nil {
			return nil, err
		}
	}
	return k, nil
}

func (p *Provider) toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case int64:
		return data.FromEpoch(t, p.dateFormat), nil
	case float64:
		return data.FromEpoch(int64(t), p.dateFormat), nil
	case string:
		return data.ParseTimestamp(t, p.dateFormat)
	case []byte:
		return data.ParseTimestamp(string(t), p.dateFormat)
	case nil:
		return time.Time{}, fmt.Errorf("%w: null", data.ErrInvalidTimestamp)
	}
	return time.Time{}, fmt.Errorf("%w %T", errUnsupportedValue, v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch d := v.(type) {
	case float64:
		return decimal.NewFromFloat(d), nil
	case int64:
		return decimal.NewFromInt(d), nil
	case string:
		r, err := decimal.NewFromString(strings.TrimSpace(d))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w '%v': %w", data.ErrInvalidPrice, d, err)
		}
		return r, nil
	case []byte:
		return toDecimal(string(d))
	case nil:
		return decimal.Zero, fmt.Errorf("%w: null", data.ErrInvalidPrice)
	}
	return decimal.Zero, fmt.Errorf("%w %T", errUnsupportedValue, v)
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// Close releases the query and the connection
func (p *Provider) Close() error {
	p.done = true
	if p.rows != nil {
		if err := p.rows.Close(); err != nil {
			_ = p.db.Close()
			return err
		}
	}
	return p.db.Close()
}
