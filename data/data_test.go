package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
)

var tt = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

type countingLimiter struct {
	calls int
	err   error
}

func (c *countingLimiter) Wait(context.Context) error {
	c.calls++
	return c.err
}

func testBars(n int) []*kline.Kline {
	resp := make([]*kline.Kline, n)
	for i := range resp {
		resp[i] = kline.New("AAPL", tt.AddDate(0, 0, i), 1, 2, 0.5, 1.5, 100)
	}
	return resp
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		value, format string
		expected      time.Time
		err           error
	}{
		{"2021-01-04", "", tt, nil},
		{"2021-01-04 00:00:00", "", tt, nil},
		{"2021-01-04T00:00:00Z", "", tt, nil},
		{"2021-01-04T02:00:00+02:00", "", tt, nil},
		{"1609718400", UnixFormat, tt, nil},
		{"1609718400000", UnixMilliFormat, tt, nil},
		{"04/01/2021", "02/01/2006", tt, nil},
		{"yesterday", "", time.Time{}, ErrInvalidTimestamp},
		{"", UnixFormat, time.Time{}, ErrInvalidTimestamp},
		{"16097x", UnixFormat, time.Time{}, ErrInvalidTimestamp},
		{"2021-01-04", "02/01/2006", time.Time{}, ErrInvalidTimestamp},
	} {
		tc := tc
		t.Run(tc.value+tc.format, func(t *testing.T) {
			t.Parallel()
			ts, err := ParseTimestamp(tc.value, tc.format)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expected.Equal(ts), ts.String())
			assert.Equal(t, time.UTC, ts.Location())
		})
	}
}

func TestParseBar(t *testing.T) {
	t.Parallel()
	k, err := ParseBar("AAPL", tt, [5]string{"1", "2.5", " 0.5", "2", "1000"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", k.Symbol)
	assert.True(t, k.High.Equal(decimal.NewFromFloat(2.5)))
	assert.True(t, k.Low.Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, k.Volume.Equal(decimal.NewFromInt(1000)))

	_, err = ParseBar("AAPL", tt, [5]string{"1", "two", "0.5", "2", "1000"})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestColumnsWithDefaults(t *testing.T) {
	t.Parallel()
	c := Columns{Timestamp: "Date", Close: "Adj Close"}.WithDefaults()
	assert.Equal(t, "Date", c.Timestamp)
	assert.Equal(t, "symbol", c.Symbol)
	assert.Equal(t, [5]string{"open", "high", "low", "Adj Close", "volume"}, c.OHLCV())
}

func TestSymbolFilter(t *testing.T) {
	t.Parallel()
	assert.True(t, NewSymbolFilter(nil).Allows("AAPL"))
	f := NewSymbolFilter([]string{" AAPL ", ""})
	assert.True(t, f.Allows("AAPL"))
	assert.False(t, f.Allows("MSFT"))
	assert.Equal(t, "MSFT", SymbolFromPath("/tmp/data/MSFT.csv"))
}

func TestMemory(t *testing.T) {
	t.Parallel()
	bars := testBars(5)
	m := NewMemory(bars, 2)
	var got []*kline.Kline
	for {
		b, err := m.NextBatch(context.Background())
		if errors.Is(err, ErrEndOfData) {
			break
		}
		require.NoError(t, err)
		assert.LessOrEqual(t, len(b.Bars), 2)
		got = append(got, b.Bars...)
	}
	require.Len(t, got, 5)
	for i := range got {
		assert.Equal(t, bars[i].Time, got[i].Time)
		assert.NotSame(t, bars[i], got[i], "bars are copied")
	}
	assert.NoError(t, m.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory(bars, 0).NextBatch(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	b, err := NewMemory([]*kline.Kline{bars[0], nil, bars[1]}, 0).NextBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, b.Bars, 3, "nil bars must reach the consumer")
	assert.Nil(t, b.Bars[1])
}

func TestThrottle(t *testing.T) {
	t.Parallel()
	m := NewMemory(testBars(1), 1)
	assert.Same(t, m, Throttle(m, 0), "zero replay speed is unthrottled")
	assert.Nil(t, Throttle(nil, 1))

	p := Throttle(m, 1000)
	th, ok := p.(*Throttled)
	require.True(t, ok)
	l := &countingLimiter{}
	th.limiter = l
	_, err := p.NextBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, l.calls)

	l.err = context.DeadlineExceeded
	_, err = p.NextBatch(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestThrottleRealLimiter(t *testing.T) {
	t.Parallel()
	p := Throttle(NewMemory(testBars(3), 1), 1000)
	for i := 0; i < 3; i++ {
		_, err := p.NextBatch(context.Background())
		require.NoError(t, err)
	}
	_, err := p.NextBatch(context.Background())
	assert.ErrorIs(t, err, ErrEndOfData)
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	p, err := r.New(Settings{Type: "Memory", Bars: testBars(2)})
	require.NoError(t, err)
	b, err := p.NextBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, b.Bars, 2)

	_, err = r.New(Settings{Type: "live"})
	assert.ErrorIs(t, err, ErrUnknownProviderType)
	assert.ErrorIs(t, err, common.ErrInvalidDataType)

	assert.NotPanics(t, func() { NewRegistry() })
	assert.ErrorIs(t, r.Register(MemoryType, nil), ErrProviderAlreadyRegistered)
	assert.ErrorIs(t, r.Register("nil", nil), errNilFactory)
	require.NoError(t, r.Register("nothing", func(Settings) (Provider, error) { return nil, nil }))
	_, err = r.New(Settings{Type: "nothing"})
	assert.ErrorIs(t, err, errNilProvider)
	assert.Equal(t, []string{MemoryType, "nothing"}, r.Types())
}
