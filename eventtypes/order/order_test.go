package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/backtester/common"
)

func newOrder(qty int64) *Order {
	return &Order{
		ID:        "1",
		Side:      common.Buy,
		OrderType: common.Market,
		Quantity:  decimal.NewFromInt(qty),
		Status:    Pending,
	}
}

func TestRecordFill(t *testing.T) {
	t.Parallel()
	o := newOrder(100)
	require.NoError(t, o.RecordFill(decimal.NewFromInt(40)))
	assert.Equal(t, Pending, o.Status)
	assert.True(t, o.Remaining().Equal(decimal.NewFromInt(60)))

	assert.ErrorIs(t, o.RecordFill(decimal.NewFromInt(61)), errOverfill)

	require.NoError(t, o.RecordFill(decimal.NewFromInt(60)))
	assert.Equal(t, Filled, o.Status)
	assert.True(t, o.IsTerminal())
	assert.ErrorIs(t, o.RecordFill(decimal.NewFromInt(1)), errOrderTerminated)
}

func TestFinalise(t *testing.T) {
	t.Parallel()
	o := newOrder(100)
	o.Finalise(Expired, "limit price not reached")
	assert.Equal(t, Expired, o.Status)
	assert.Equal(t, "limit price not reached", o.GetReason())

	o = newOrder(100)
	require.NoError(t, o.RecordFill(decimal.NewFromInt(10)))
	o.Finalise(Rejected, "insufficient cash")
	assert.Equal(t, PartiallyFilled, o.Status)

	o.Finalise(Rejected, "ignored")
	assert.Equal(t, PartiallyFilled, o.Status, "terminal orders do not change")
}

func TestHelpers(t *testing.T) {
	t.Parallel()
	o := newOrder(1)
	assert.False(t, o.IsLimit())
	assert.False(t, o.IsStop())
	o.OrderType = common.StopLimit
	assert.True(t, o.IsLimit())
	assert.True(t, o.IsStop())
	o.OrderType = common.Market
	o.FilledQuantity = decimal.NewFromInt(2)
	assert.True(t, o.Remaining().IsZero())
}

func TestCheckTrigger(t *testing.T) {
	t.Parallel()
	o := newOrder(1)
	assert.False(t, o.CheckTrigger(decimal.NewFromInt(100), decimal.NewFromInt(1)), "market orders have no trigger")

	o.OrderType = common.Stop
	o.StopPrice = decimal.NewFromInt(55)
	assert.False(t, o.CheckTrigger(decimal.NewFromInt(54), decimal.NewFromInt(50)))
	assert.True(t, o.CheckTrigger(decimal.NewFromInt(55), decimal.NewFromInt(50)), "buy stops trigger at the stop price")
	assert.True(t, o.CheckTrigger(decimal.NewFromInt(50), decimal.NewFromInt(49)), "triggered orders stay triggered")

	o = newOrder(1)
	o.Side = common.Sell
	o.OrderType = common.StopLimit
	o.StopPrice = decimal.NewFromInt(45)
	assert.False(t, o.CheckTrigger(decimal.NewFromInt(50), decimal.NewFromInt(46)))
	assert.True(t, o.CheckTrigger(decimal.NewFromInt(50), decimal.NewFromInt(44)))
	assert.True(t, o.Triggered)
}
