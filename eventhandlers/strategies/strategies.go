package strategies

import (
	"fmt"
	"strings"

	"github.com/thrasher-corp/backtester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/backtester/eventhandlers/strategies/buyandhold"
	"github.com/thrasher-corp/backtester/eventhandlers/strategies/movingaverage"
	"github.com/thrasher-corp/backtester/eventhandlers/strategies/rsi"
	"github.com/thrasher-corp/backtester/eventhandlers/strategies/script"
)

// LoadStrategyByName returns a fresh strategy with default settings
func LoadStrategyByName(name string) (Handler, error) {
	strats := GetStrategies()
	for i := range strats {
		if !strings.EqualFold(name, strats[i].Name()) {
			continue
		}
		strats[i].SetDefaults()
		return strats[i], nil
	}
	return nil, fmt.Errorf("strategy '%v' %w", name, base.ErrStrategyNotFound)
}

// GetStrategies returns a new instance of every strategy
func GetStrategies() []Handler {
	return []Handler{
		new(movingaverage.Strategy),
		new(rsi.Strategy),
		new(buyandhold.Strategy),
		new(script.Strategy),
	}
}

// Setup loads a strategy and applies its parameters
func Setup(name string, parameters map[string]any) (Handler, error) {
	s, err := LoadStrategyByName(name)
	if err != nil {
		return nil, err
	}
	if err = s.SetCustomSettings(parameters); err != nil {
		return nil, fmt.Errorf("%v: %w", s.Name(), err)
	}
	return s, nil
}
