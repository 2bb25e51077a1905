package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/config"
	"github.com/thrasher-corp/backtester/data"
	"github.com/thrasher-corp/backtester/data/csv"
	"github.com/thrasher-corp/backtester/data/database"
	"github.com/thrasher-corp/backtester/data/jsonl"
	"github.com/thrasher-corp/backtester/data/parquet"
	"github.com/thrasher-corp/backtester/eventhandlers/exchange"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio/risk"
	"github.com/thrasher-corp/backtester/eventhandlers/strategies"
	"github.com/thrasher-corp/backtester/log"
)

// NewDataRegistry returns a registry holding every built in data provider
func NewDataRegistry() (*data.Registry, error) {
	r := data.NewRegistry()
	for providerType, f := range map[string]data.Factory{
		data.CSVType:      csv.New,
		data.DatabaseType: database.New,
		data.JSONLType:    jsonl.New,
		data.ParquetType:  parquet.New,
	} {
		if err := r.Register(providerType, f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewFromConfig validates a run config and builds every component of the
// run from it through the data and execution provider registries
func NewFromConfig(cfg *config.Config, logger *log.Logger) (*BackTest, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	setupLog := logger.SubLogger(common.Config)
	log.Infoln(setupLog, "loading config...")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start, end, err := cfg.Backtest.DateRange()
	if err != nil {
		return nil, err
	}
	af, err := cfg.Backtest.GetAnnualizationFactor()
	if err != nil {
		return nil, err
	}

	strategy, err := strategies.Setup(cfg.Strategy.Type, cfg.Strategy.Parameters)
	if err != nil {
		return nil, err
	}
	log.Infof(setupLog, "strategy %v: %v", strategy.Name(), strategy.Description())

	ep := cfg.ExecutionProvider
	fillPolicy, err := exchange.ParseFillPolicy(ep.FillPrice)
	if err != nil {
		return nil, err
	}
	exch, err := exchange.NewRegistry().New(ep.Type, exchange.Settings{
		CommissionRate:         decimal.NewFromFloat(ep.CommissionRate),
		Slippage:               decimal.NewFromFloat(ep.Slippage),
		FillPrice:              fillPolicy,
		MaxVolumeParticipation: decimal.NewFromFloat(ep.MaxVolumeParticipation),
		LimitOrderLifetime:     ep.LimitOrderLifetime,
		AllowMargin:            ep.AllowMargin,
		AllowShort:             ep.AllowShort,
	})
	if err != nil {
		return nil, err
	}

	ledger, err := portfolio.Setup(decimal.NewFromFloat(ep.InitialCash), ep.AllowMargin, ep.AllowShort)
	if err != nil {
		return nil, err
	}
	gate := &risk.Risk{
		Limits: risk.Limits{
			MaxPositionSize:  decimal.NewFromFloat(cfg.RiskManager.MaxPositionSize),
			MaxOrderSize:     decimal.NewFromFloat(cfg.RiskManager.MaxOrderSize),
			MaxConcentration: decimal.NewFromFloat(cfg.RiskManager.MaxConcentration),
			MaxDrawdown:      decimal.NewFromFloat(cfg.RiskManager.MaxDrawdown),
		},
		AllowShort: ep.AllowShort,
	}
	if err = gate.Limits.Validate(); err != nil {
		return nil, err
	}

	registry, err := NewDataRegistry()
	if err != nil {
		return nil, err
	}
	provider, err := registry.New(cfg.DataSettings())
	if err != nil {
		return nil, err
	}
	log.Infof(setupLog, "data provider %v loaded from %v", cfg.DataProvider.Type, cfg.DataProvider.Path)

	bt, err := New(Settings{
		StartDate:           start,
		EndDate:             end,
		MaxRetries:          cfg.Backtest.MaxRetries,
		RiskFreeRate:        cfg.Backtest.RiskFreeRate,
		AnnualizationFactor: af,
	}, provider, strategy, exch, gate, ledger, logger)
	if err != nil {
		if closeErr := provider.Close(); closeErr != nil {
			return nil, fmt.Errorf("%w, could not close data provider: %w", err, closeErr)
		}
		return nil, err
	}
	return bt, nil
}
