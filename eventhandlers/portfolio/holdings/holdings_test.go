package holdings

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventtypes/event"
	"github.com/thrasher-corp/backtester/eventtypes/fill"
)

const testSymbol = "AAPL"

var tt = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

func newFill(side common.Side, qty, price int64) *fill.Fill {
	return &fill.Fill{
		Base:     event.Base{Time: tt, Symbol: testSymbol},
		OrderID:  "1",
		Side:     side,
		Quantity: decimal.NewFromInt(qty),
		Price:    decimal.NewFromInt(price),
	}
}

func TestUpdateWeightedAverage(t *testing.T) {
	t.Parallel()
	h := Create(testSymbol)
	_, _, err := h.Update(newFill(common.Buy, 100, 50))
	require.NoError(t, err)
	_, _, err = h.Update(newFill(common.Buy, 100, 60))
	require.NoError(t, err)
	assert.True(t, h.Quantity.Equal(decimal.NewFromInt(200)))
	assert.True(t, h.AverageCost.Equal(decimal.NewFromInt(55)), h.AverageCost.String())
	assert.True(t, h.BoughtAmount.Equal(decimal.NewFromInt(200)))
	assert.True(t, h.BoughtValue.Equal(decimal.NewFromInt(11000)))
}

func TestUpdateRealises(t *testing.T) {
	t.Parallel()
	h := Create(testSymbol)
	_, _, err := h.Update(newFill(common.Buy, 100, 50))
	require.NoError(t, err)

	closed, realised, err := h.Update(newFill(common.Sell, 40, 60))
	require.NoError(t, err)
	assert.True(t, closed.Equal(decimal.NewFromInt(40)))
	assert.True(t, realised.Equal(decimal.NewFromInt(400)))
	assert.True(t, h.Quantity.Equal(decimal.NewFromInt(60)))
	assert.True(t, h.AverageCost.Equal(decimal.NewFromInt(50)), "reductions keep the average cost")

	closed, realised, err = h.Update(newFill(common.Sell, 60, 40))
	require.NoError(t, err)
	assert.True(t, closed.Equal(decimal.NewFromInt(60)))
	assert.True(t, realised.Equal(decimal.NewFromInt(-600)))
	assert.True(t, h.IsFlat())
	assert.True(t, h.AverageCost.IsZero())
	assert.True(t, h.RealisedPnL.Equal(decimal.NewFromInt(-200)))
}

func TestUpdateReversal(t *testing.T) {
	t.Parallel()
	h := Create(testSymbol)
	_, _, err := h.Update(newFill(common.Buy, 100, 50))
	require.NoError(t, err)
	closed, realised, err := h.Update(newFill(common.Sell, 150, 40))
	require.NoError(t, err)
	assert.True(t, closed.Equal(decimal.NewFromInt(100)))
	assert.True(t, realised.Equal(decimal.NewFromInt(-1000)))
	assert.True(t, h.Quantity.Equal(decimal.NewFromInt(-50)))
	assert.True(t, h.AverageCost.Equal(decimal.NewFromInt(40)))

	// short covered at a lower price is a gain
	closed, realised, err = h.Update(newFill(common.Buy, 50, 30))
	require.NoError(t, err)
	assert.True(t, closed.Equal(decimal.NewFromInt(50)))
	assert.True(t, realised.Equal(decimal.NewFromInt(500)))
	assert.True(t, h.IsFlat())
}

func TestUpdateErrors(t *testing.T) {
	t.Parallel()
	h := Create(testSymbol)
	_, _, err := h.Update(nil)
	assert.ErrorIs(t, err, common.ErrNilEvent)

	f := newFill(common.Buy, 1, 1)
	f.Symbol = "MSFT"
	_, _, err = h.Update(f)
	assert.ErrorIs(t, err, errSymbolMismatch)

	_, _, err = h.Update(newFill(common.Buy, 0, 1))
	assert.ErrorIs(t, err, errZeroQuantity)
}

func TestValuation(t *testing.T) {
	t.Parallel()
	h := Create(testSymbol)
	_, _, err := h.Update(newFill(common.Sell, 10, 100))
	require.NoError(t, err)
	h.UpdateValue(decimal.NewFromInt(90))
	assert.True(t, h.MarketValue().Equal(decimal.NewFromInt(-900)))
	assert.True(t, h.Exposure().Equal(decimal.NewFromInt(900)))
	assert.True(t, h.UnrealisedPnL().Equal(decimal.NewFromInt(100)))
}
