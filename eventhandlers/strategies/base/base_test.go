package base

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
)

func TestCloses(t *testing.T) {
	t.Parallel()
	var s Strategy
	tt := time.Now()
	s.AppendCloses([]*kline.Kline{
		kline.New("AAPL", tt, 1, 2, 0.5, 1, 1),
		nil,
		kline.New("MSFT", tt, 1, 2, 0.5, 1.5, 1),
	})
	s.SetHistoryLimit(2)
	s.AppendCloses([]*kline.Kline{kline.New("AAPL", tt, 1, 2, 0.5, 2, 1)})
	s.AppendCloses([]*kline.Kline{kline.New("AAPL", tt, 1, 3, 0.5, 3, 1)})
	assert.Equal(t, []float64{2, 3}, s.Closes("AAPL"))
	assert.Equal(t, []float64{1.5}, s.Closes("MSFT"))
	assert.Empty(t, s.Closes("TSLA"))

	c := s.Closes("AAPL")
	c[0] = 100
	assert.Equal(t, []float64{2, 3}, s.Closes("AAPL"), "closes are copied")

	s.ResetHistory()
	assert.Empty(t, s.Closes("AAPL"))
}

func TestSettings(t *testing.T) {
	t.Parallel()
	for _, v := range []any{float64(2), float32(2), 2, int64(2), " 2 "} {
		f, err := FloatSetting("k", v)
		require.NoError(t, err)
		assert.Equal(t, float64(2), f)
	}
	_, err := FloatSetting("k", true)
	assert.ErrorIs(t, err, ErrInvalidCustomSettings)

	i, err := PositiveIntSetting("k", float64(10))
	require.NoError(t, err)
	assert.Equal(t, 10, i)
	_, err = PositiveIntSetting("k", 1.5)
	assert.ErrorIs(t, err, ErrInvalidCustomSettings)
	_, err = PositiveIntSetting("k", 0)
	assert.ErrorIs(t, err, ErrInvalidCustomSettings)

	s, err := StringSetting("k", "v")
	require.NoError(t, err)
	assert.Equal(t, "v", s)
	_, err = StringSetting("k", 1)
	assert.ErrorIs(t, err, ErrInvalidCustomSettings)

	b, err := BoolSetting("k", "true")
	require.NoError(t, err)
	assert.True(t, b)
	_, err = BoolSetting("k", 1)
	assert.ErrorIs(t, err, ErrInvalidCustomSettings)
}
