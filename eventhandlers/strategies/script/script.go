package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/backtester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
	"github.com/thrasher-corp/backtester/eventtypes/signal"
)

var inputs = map[string]any{
	varSymbol:   "",
	varTime:     "",
	varOpen:     0.0,
	varHigh:     0.0,
	varLow:      0.0,
	varClose:    0.0,
	varVolume:   0.0,
	varPosition: 0.0,
	varCash:     0.0,
	varEquity:   0.0,
	varCloses:   []any{},
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

// SetDefaults clears the loaded script
func (s *Strategy) SetDefaults() {
	s.path = ""
	s.source = nil
	s.compiled = nil
	s.timeout = DefaultTimeout
	s.history = DefaultHistory
	s.ResetHistory()
	s.SetHistoryLimit(s.history)
}

// SetCustomSettings loads and compiles the script named by path or source
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		var err error
		switch k {
		case pathKey:
			s.path, err = base.StringSetting(k, v)
		case sourceKey:
			var src string
			src, err = base.StringSetting(k, v)
			s.source = []byte(src)
		case timeoutKey:
			var d string
			d, err = base.StringSetting(k, v)
			if err == nil {
				s.timeout, err = time.ParseDuration(d)
				if err == nil && s.timeout <= 0 {
					err = fmt.Errorf("%w timeout must be positive", base.ErrInvalidCustomSettings)
				}
			}
		case historyKey:
			s.history, err = base.PositiveIntSetting(k, v)
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
		if err != nil {
			return fmt.Errorf("%w %v: %w", base.ErrInvalidCustomSettings, k, err)
		}
	}
	s.SetHistoryLimit(s.history)
	return s.load()
}

func (s *Strategy) load() error {
	switch {
	case s.path != "" && len(s.source) > 0:
		return fmt.Errorf("%w %w", base.ErrInvalidCustomSettings, errBothSources)
	case s.path != "":
		code, err := os.ReadFile(s.path)
		if err != nil {
			return fmt.Errorf("%w %w", base.ErrInvalidCustomSettings, err)
		}
		return s.compile(code)
	case len(s.source) > 0:
		return s.compile(s.source)
	}
	return fmt.Errorf("%w %w", base.ErrInvalidCustomSettings, errNoScript)
}

func (s *Strategy) compile(code []byte) error {
	sc := tengo.NewScript(code)
	sc.SetImports(stdlib.GetModuleMap("math", "text", "times"))
	for name, v := range inputs {
		if err := sc.Add(name, v); err != nil {
			return err
		}
	}
	for name, v := range map[string]any{
		varSide:       "",
		varQuantity:   0.0,
		varWeight:     nil,
		varOrderType:  string(common.Market),
		varLimitPrice: 0.0,
		varStopPrice:  0.0,
	} {
		if err := sc.Add(name, v); err != nil {
			return err
		}
	}
	compiled, err := sc.Compile()
	if err != nil {
		return fmt.Errorf("%w %w", base.ErrInvalidCustomSettings, err)
	}
	s.compiled = compiled
	return nil
}

// OnData runs the script once per bar and converts its outputs into intents
func (s *Strategy) OnData(snap *portfolio.Snapshot, bars []*kline.Kline) ([]*signal.Intent, error) {
	if snap == nil {
		return nil, common.ErrNilArguments
	}
	if s.compiled == nil {
		return nil, errNotCompiled
	}
	s.AppendCloses(bars)
	var resp []*signal.Intent
	for i := range bars {
		in, err := s.evaluate(snap, bars[i])
		if err != nil {
			return resp, fmt.Errorf("%v %v: %w", bars[i].Symbol, bars[i].Time, err)
		}
		if in != nil {
			resp = append(resp, in)
		}
	}
	return resp, nil
}

func (s *Strategy) evaluate(snap *portfolio.Snapshot, k *kline.Kline) (*signal.Intent, error) {
	c := s.compiled.Clone()
	closes := s.Closes(k.Symbol)
	history := make([]any, len(closes))
	for i := range closes {
		history[i] = closes[i]
	}
	for name, v := range map[string]any{
		varSymbol:   k.Symbol,
		varTime:     k.Time.UTC().Format(time.RFC3339),
		varOpen:     k.Open.InexactFloat64(),
		varHigh:     k.High.InexactFloat64(),
		varLow:      k.Low.InexactFloat64(),
		varClose:    k.Close.InexactFloat64(),
		varVolume:   k.Volume.InexactFloat64(),
		varPosition: snap.Quantity(k.Symbol).InexactFloat64(),
		varCash:     snap.Cash.InexactFloat64(),
		varEquity:   snap.Equity.InexactFloat64(),
		varCloses:   history,
	} {
		// only globals the script references exist in the compiled script
		if !c.IsDefined(name) {
			continue
		}
		if err := c.Set(name, v); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := c.RunContext(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: exceeded %v", errScriptRun, s.timeout)
		}
		return nil, fmt.Errorf("%w: %w", errScriptRun, err)
	}
	return readIntent(c, k)
}

// readIntent converts the script's outputs. A defined weight takes priority
// over side and quantity, an empty side means no order
func readIntent(c *tengo.Compiled, k *kline.Kline) (*signal.Intent, error) {
	if w := c.Get(varWeight); !w.IsUndefined() {
		in := signal.NewTargetWeight(k.Symbol, decimal.NewFromFloat(w.Float()), k.Time)
		in.AppendReason("script set weight")
		return in, in.Validate()
	}
	side, err := common.SideFromString(c.Get(varSide).String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidOutputs, err)
	}
	if side == common.DoNothing {
		return nil, nil
	}
	orderType, err := common.OrderTypeFromString(c.Get(varOrderType).String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidOutputs, err)
	}
	qty := decimal.NewFromFloat(c.Get(varQuantity).Float())
	limit := decimal.NewFromFloat(c.Get(varLimitPrice).Float())
	stop := decimal.NewFromFloat(c.Get(varStopPrice).Float())
	var in *signal.Intent
	switch orderType {
	case common.Limit:
		in = signal.NewLimit(k.Symbol, side, qty, limit, k.Time)
	case common.Stop:
		in = signal.NewStop(k.Symbol, side, qty, stop, k.Time)
	case common.StopLimit:
		in = signal.NewStopLimit(k.Symbol, side, qty, stop, limit, k.Time)
	default:
		in = signal.NewMarket(k.Symbol, side, qty, k.Time)
	}
	in.AppendReason("script signal")
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidOutputs, err)
	}
	return in, nil
}
