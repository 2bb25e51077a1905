package signal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/thrasher-corp/backtester/common"
)

var tt = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

func TestValidate(t *testing.T) {
	t.Parallel()
	var nilIntent *Intent
	assert.ErrorIs(t, nilIntent.Validate(), common.ErrNilEvent)

	i := NewMarket("", common.Buy, decimal.NewFromInt(1), tt)
	assert.ErrorIs(t, i.Validate(), common.ErrNilArguments)

	i = NewMarket("AAPL", common.DoNothing, decimal.NewFromInt(1), tt)
	assert.ErrorIs(t, i.Validate(), common.ErrInvalidSide)

	i = NewMarket("AAPL", common.Buy, decimal.Zero, tt)
	assert.ErrorIs(t, i.Validate(), errNonPositiveQuantity)

	i = NewMarket("AAPL", common.Buy, decimal.NewFromInt(100), tt)
	assert.NoError(t, i.Validate())

	i.OrderType = "TRAILING_STOP"
	assert.ErrorIs(t, i.Validate(), common.ErrInvalidOrderType)

	i = NewLimit("AAPL", common.Sell, decimal.NewFromInt(1), decimal.Zero, tt)
	assert.ErrorIs(t, i.Validate(), errInvalidLimitPrice)

	i = NewLimit("AAPL", common.Sell, decimal.NewFromInt(1), decimal.NewFromInt(50), tt)
	assert.NoError(t, i.Validate())
	assert.Equal(t, common.Limit, i.OrderType)
}

func TestValidateStops(t *testing.T) {
	t.Parallel()
	i := NewStop("AAPL", common.Sell, decimal.NewFromInt(1), decimal.Zero, tt)
	assert.ErrorIs(t, i.Validate(), errInvalidStopPrice)

	i = NewStop("AAPL", common.Sell, decimal.NewFromInt(1), decimal.NewFromInt(45), tt)
	assert.NoError(t, i.Validate())
	assert.Equal(t, common.Stop, i.OrderType)
	assert.True(t, i.LimitPrice.IsZero())

	i = NewStopLimit("AAPL", common.Buy, decimal.NewFromInt(1), decimal.NewFromInt(55), decimal.Zero, tt)
	assert.ErrorIs(t, i.Validate(), errInvalidLimitPrice)

	i = NewStopLimit("AAPL", common.Buy, decimal.NewFromInt(1), decimal.Zero, decimal.NewFromInt(56), tt)
	assert.ErrorIs(t, i.Validate(), errInvalidStopPrice)

	i = NewStopLimit("AAPL", common.Buy, decimal.NewFromInt(1), decimal.NewFromInt(55), decimal.NewFromInt(56), tt)
	assert.NoError(t, i.Validate())
	assert.Equal(t, common.StopLimit, i.OrderType)
}

func TestTargetWeight(t *testing.T) {
	t.Parallel()
	i := NewTargetWeight("AAPL", decimal.NewFromFloat(0.5), tt)
	assert.True(t, i.IsTargetWeight())
	assert.NoError(t, i.Validate(), "side and quantity are derived later")

	i = NewTargetWeight("AAPL", decimal.NewFromFloat(-1.5), tt)
	assert.ErrorIs(t, i.Validate(), errInvalidTargetWeight)
}
