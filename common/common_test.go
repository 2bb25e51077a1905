package common

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSideFromString(t *testing.T) {
	t.Parallel()
	for _, ti := range []struct {
		in       string
		expected Side
	}{
		{"buy", Buy},
		{" LONG ", Buy},
		{"sell", Sell},
		{"short", Sell},
		{"", DoNothing},
		{"hold", DoNothing},
	} {
		test := ti
		t.Run(test.in, func(t *testing.T) {
			t.Parallel()
			s, err := SideFromString(test.in)
			require.NoError(t, err)
			assert.Equal(t, test.expected, s)
		})
	}
	_, err := SideFromString("sideways")
	assert.ErrorIs(t, err, errUnrecognisedSide)
}

func TestOrderTypeFromString(t *testing.T) {
	t.Parallel()
	ot, err := OrderTypeFromString("")
	require.NoError(t, err)
	assert.Equal(t, Market, ot)

	ot, err = OrderTypeFromString("limit")
	require.NoError(t, err)
	assert.Equal(t, Limit, ot)

	ot, err = OrderTypeFromString("stop")
	require.NoError(t, err)
	assert.Equal(t, Stop, ot)
	assert.True(t, ot.IsStop())

	ot, err = OrderTypeFromString(" stop-limit ")
	require.NoError(t, err)
	assert.Equal(t, StopLimit, ot)
	assert.True(t, ot.IsStop())
	assert.False(t, Limit.IsStop())

	_, err = OrderTypeFromString("trailing")
	assert.ErrorIs(t, err, errUnrecognisedOrderType)
	assert.False(t, OrderType("trailing").IsValid())
	assert.True(t, StopLimit.IsValid())
}

func TestSideHelpers(t *testing.T) {
	t.Parallel()
	assert.True(t, Buy.IsValid())
	assert.False(t, DoNothing.IsValid())
	assert.True(t, Buy.Sign().Equal(decimal.NewFromInt(1)))
	assert.True(t, Sell.Sign().Equal(decimal.NewFromInt(-1)))
	assert.True(t, DoNothing.Sign().IsZero())
	assert.Equal(t, CouldNotSell, Sell.CouldNot())
	assert.Equal(t, DoNothing, CouldNotBuy.CouldNot())
}

func TestFitStringToLimit(t *testing.T) {
	t.Parallel()
	for _, ti := range []struct {
		str      string
		sep      string
		limit    int
		expected string
		upper    bool
	}{
		{
			str:      "good",
			sep:      " ",
			limit:    5,
			expected: "GOOD ",
			upper:    true,
		},
		{
			str:      "negative limit",
			sep:      " ",
			limit:    -1,
			expected: "negative limit",
		},
		{
			str:      "long spacer",
			sep:      "--",
			limit:    14,
			expected: "long spacer---",
		},
		{
			str:      "zero limit",
			sep:      "--",
			limit:    0,
			expected: "",
		},
		{
			str:      "over limit",
			sep:      "--",
			limit:    6,
			expected: "ove...",
		},
		{
			str:      "hi",
			sep:      " ",
			limit:    1,
			expected: "h",
		},
	} {
		test := ti
		t.Run(test.str, func(t *testing.T) {
			t.Parallel()
			result := FitStringToLimit(test.str, test.sep, test.limit, test.upper)
			assert.Equal(t, test.expected, result)
		})
	}
}
