package kline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var tt = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

func TestPrices(t *testing.T) {
	t.Parallel()
	k := New("AAPL", tt, 10, 12, 9, 11, 1000)
	assert.True(t, k.OpenPrice().Equal(decimal.NewFromInt(10)))
	assert.True(t, k.HighPrice().Equal(decimal.NewFromInt(12)))
	assert.True(t, k.LowPrice().Equal(decimal.NewFromInt(9)))
	assert.True(t, k.ClosePrice().Equal(decimal.NewFromInt(11)))
	assert.True(t, k.Contains(decimal.NewFromInt(9)))
	assert.True(t, k.Contains(decimal.NewFromInt(12)))
	assert.False(t, k.Contains(decimal.NewFromFloat(12.01)))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	for _, ti := range []struct {
		name     string
		bar      *Kline
		expected error
	}{
		{"valid", New("AAPL", tt, 10, 12, 9, 11, 1000), nil},
		{"no symbol", New("", tt, 10, 12, 9, 11, 1000), errEmptySymbol},
		{"no time", New("AAPL", time.Time{}, 10, 12, 9, 11, 1000), errZeroTimestamp},
		{"zero price", New("AAPL", tt, 0, 12, 9, 11, 1000), errNonPositivePrice},
		{"high below low", New("AAPL", tt, 10, 8, 9, 11, 1000), errHighBelowLow},
		{"close outside", New("AAPL", tt, 10, 12, 9, 13, 1000), errPriceOutsideRange},
		{"negative volume", New("AAPL", tt, 10, 12, 9, 11, -1), errNegativeVolume},
	} {
		test := ti
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			err := test.bar.Validate()
			if test.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, test.expected)
			assert.ErrorIs(t, err, ErrInvalidBar)
		})
	}
}

func TestOrdering(t *testing.T) {
	t.Parallel()
	a := New("MSFT", tt, 1, 1, 1, 1, 1)
	b := New("AAPL", tt, 1, 1, 1, 1, 1)
	c := New("AAPL", tt.Add(time.Hour), 1, 1, 1, 1, 1)
	assert.True(t, Less(b, a))
	assert.True(t, Less(a, c))
	assert.False(t, Less(c, b))

	bars := []*Kline{a, b}
	SortBySymbol(bars)
	assert.Equal(t, "AAPL", bars[0].Symbol)
}
