package strategies

import (
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/backtester/eventtypes/fill"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
	"github.com/thrasher-corp/backtester/eventtypes/order"
	"github.com/thrasher-corp/backtester/eventtypes/signal"
)

// Handler is the contract a strategy implements. OnData is called once per
// timestamp group with a read-only snapshot and the group's bars sorted by
// symbol. Intents are evaluated in the order returned
type Handler interface {
	Name() string
	Description() string
	OnData(*portfolio.Snapshot, []*kline.Kline) ([]*signal.Intent, error)
	SetCustomSettings(map[string]any) error
	SetDefaults()
}

// Starter is implemented by strategies which need the opening snapshot
// before the first bar
type Starter interface {
	OnStart(*portfolio.Snapshot) error
}

// Stopper is implemented by strategies which run once the stream has ended
// or the run was stopped
type Stopper interface {
	OnStop(*portfolio.Snapshot) error
}

// OrderUpdater is told whenever one of the strategy's orders is placed,
// triggered or reaches a terminal status. The order is a copy
type OrderUpdater interface {
	OnOrderUpdate(*order.Order)
}

// TradeHandler is told of every fill booked to the ledger. The fill is a copy
type TradeHandler interface {
	OnTrade(*fill.Fill)
}
