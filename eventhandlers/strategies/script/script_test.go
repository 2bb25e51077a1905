package script

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio/holdings"
	"github.com/thrasher-corp/backtester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
)

var tt = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

const crossScript = `
math := import("math")
if len(closes) >= 3 {
	prev := closes[len(closes)-2]
	if close > prev && position == 0.0 {
		side = "buy"
		quantity = math.floor(equity * 0.1 / close)
	} else if close < prev && position > 0 {
		side = "sell"
		quantity = position
	}
}
`

func snapshot(held int64) *portfolio.Snapshot {
	s := &portfolio.Snapshot{
		Cash:      decimal.NewFromInt(1000),
		Equity:    decimal.NewFromInt(1000),
		Positions: map[string]holdings.Holding{},
	}
	if held != 0 {
		s.Positions["AAPL"] = holdings.Holding{Symbol: "AAPL", Quantity: decimal.NewFromInt(held)}
	}
	return s
}

func bar(day int, c float64) []*kline.Kline {
	return []*kline.Kline{kline.New("AAPL", tt.AddDate(0, 0, day), c, c, c, c, 10)}
}

func newStrategy(t *testing.T, settings map[string]any) *Strategy {
	t.Helper()
	s := &Strategy{}
	s.SetDefaults()
	require.NoError(t, s.SetCustomSettings(settings))
	return s
}

func TestName(t *testing.T) {
	t.Parallel()
	s := Strategy{}
	assert.Equal(t, Name, s.Name())
	assert.NotEmpty(t, s.Description())
}

func TestSetCustomSettings(t *testing.T) {
	t.Parallel()
	s := Strategy{}
	s.SetDefaults()
	assert.ErrorIs(t, s.SetCustomSettings(nil), errNoScript)
	assert.ErrorIs(t, s.SetCustomSettings(map[string]any{sourceKey: "side = "}), base.ErrInvalidCustomSettings)
	assert.ErrorIs(t, s.SetCustomSettings(map[string]any{"lol": 1}), base.ErrInvalidCustomSettings)
	assert.ErrorIs(t, s.SetCustomSettings(map[string]any{timeoutKey: "-1s", sourceKey: "a := 1"}), base.ErrInvalidCustomSettings)

	s.SetDefaults()
	path := filepath.Join(t.TempDir(), "strategy.tengo")
	require.NoError(t, os.WriteFile(path, []byte(crossScript), 0o600))
	require.NoError(t, s.SetCustomSettings(map[string]any{pathKey: path, historyKey: 3, timeoutKey: "1s"}))
	assert.Equal(t, time.Second, s.timeout)
	assert.NotNil(t, s.compiled)

	assert.ErrorIs(t, s.SetCustomSettings(map[string]any{sourceKey: "a := 1"}), errBothSources)

	s.SetDefaults()
	assert.ErrorIs(t, s.SetCustomSettings(map[string]any{pathKey: filepath.Join(t.TempDir(), "missing")}), os.ErrNotExist)
}

func TestOnData(t *testing.T) {
	t.Parallel()
	s := newStrategy(t, map[string]any{sourceKey: crossScript})

	_, err := s.OnData(nil, nil)
	assert.ErrorIs(t, err, common.ErrNilArguments)

	intents, err := s.OnData(snapshot(0), bar(0, 10))
	require.NoError(t, err)
	assert.Empty(t, intents)
	intents, err = s.OnData(snapshot(0), bar(1, 10))
	require.NoError(t, err)
	assert.Empty(t, intents)

	intents, err = s.OnData(snapshot(0), bar(2, 20))
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, common.Buy, intents[0].Side)
	assert.True(t, intents[0].Quantity.Equal(decimal.NewFromInt(5)), intents[0].Quantity.String())
	assert.Equal(t, tt.AddDate(0, 0, 2), intents[0].Time)

	intents, err = s.OnData(snapshot(5), bar(3, 15))
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, common.Sell, intents[0].Side)
	assert.True(t, intents[0].Quantity.Equal(decimal.NewFromInt(5)))
}

func TestOnDataOutputs(t *testing.T) {
	t.Parallel()
	s := newStrategy(t, map[string]any{sourceKey: `weight = 0.25`})
	intents, err := s.OnData(snapshot(0), bar(0, 10))
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.True(t, intents[0].IsTargetWeight())
	assert.True(t, intents[0].TargetWeight.Decimal.Equal(decimal.NewFromFloat(0.25)))

	s = newStrategy(t, map[string]any{sourceKey: `side = "buy"; quantity = 2; order_type = "limit"; limit_price = close - 1`})
	intents, err = s.OnData(snapshot(0), bar(0, 10))
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, common.Limit, intents[0].OrderType)
	assert.True(t, intents[0].LimitPrice.Equal(decimal.NewFromInt(9)))

	s = newStrategy(t, map[string]any{sourceKey: `side = "sell"; quantity = 2; order_type = "stop"; stop_price = close - 2`})
	intents, err = s.OnData(snapshot(0), bar(0, 10))
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, common.Stop, intents[0].OrderType)
	assert.True(t, intents[0].StopPrice.Equal(decimal.NewFromInt(8)))

	s = newStrategy(t, map[string]any{sourceKey: `side = "buy"; quantity = 2; order_type = "stop_limit"; stop_price = 12; limit_price = 12.5`})
	intents, err = s.OnData(snapshot(0), bar(0, 10))
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, common.StopLimit, intents[0].OrderType)
	assert.True(t, intents[0].StopPrice.Equal(decimal.NewFromInt(12)))
	assert.True(t, intents[0].LimitPrice.Equal(decimal.NewFromFloat(12.5)))

	s = newStrategy(t, map[string]any{sourceKey: `side = "buy"; quantity = 2; order_type = "stop"`})
	_, err = s.OnData(snapshot(0), bar(0, 10))
	assert.ErrorIs(t, err, errInvalidOutputs, "a stop needs a stop price")

	s = newStrategy(t, map[string]any{sourceKey: `side = "sideways"`})
	_, err = s.OnData(snapshot(0), bar(0, 10))
	assert.ErrorIs(t, err, errInvalidOutputs)

	s = newStrategy(t, map[string]any{sourceKey: `side = "buy"`})
	_, err = s.OnData(snapshot(0), bar(0, 10))
	assert.ErrorIs(t, err, errInvalidOutputs, "a buy needs a quantity")

	s = newStrategy(t, map[string]any{sourceKey: `a := 0; x := 1 / a`})
	_, err = s.OnData(snapshot(0), bar(0, 10))
	assert.ErrorIs(t, err, errScriptRun)

	s = newStrategy(t, map[string]any{sourceKey: `for {}`, timeoutKey: "50ms"})
	_, err = s.OnData(snapshot(0), bar(0, 10))
	assert.ErrorIs(t, err, errScriptRun)

	var empty Strategy
	_, err = empty.OnData(snapshot(0), bar(0, 10))
	assert.ErrorIs(t, err, errNotCompiled)
}

func TestOnDataUnreferencedInputs(t *testing.T) {
	t.Parallel()
	s := newStrategy(t, map[string]any{sourceKey: `if close > 5 { side = "sell"; quantity = 3 }`})
	intents, err := s.OnData(snapshot(3), bar(0, 10))
	require.NoError(t, err, "inputs the script never reads must not be set")
	require.Len(t, intents, 1)
	assert.Equal(t, common.Sell, intents[0].Side)
	assert.True(t, intents[0].Quantity.Equal(decimal.NewFromInt(3)))

	s = newStrategy(t, map[string]any{sourceKey: `a := 1`})
	intents, err = s.OnData(snapshot(0), bar(0, 10))
	require.NoError(t, err)
	assert.Empty(t, intents, "no outputs means no order")
}
