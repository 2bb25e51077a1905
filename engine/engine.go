package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/backtester/common"
	"github.com/thrasher-corp/backtester/data"
	"github.com/thrasher-corp/backtester/eventhandlers/exchange"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio"
	"github.com/thrasher-corp/backtester/eventhandlers/portfolio/risk"
	"github.com/thrasher-corp/backtester/eventhandlers/statistics"
	"github.com/thrasher-corp/backtester/eventhandlers/strategies"
	"github.com/thrasher-corp/backtester/eventtypes/fill"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
	"github.com/thrasher-corp/backtester/eventtypes/order"
	"github.com/thrasher-corp/backtester/eventtypes/signal"
	"github.com/thrasher-corp/backtester/log"
)

// New returns a backtester ready to run. Every log line of the run goes to
// sub loggers of logger, a nil logger discards them
func New(s Settings, provider data.Provider, strategy strategies.Handler, exch exchange.ExecutionHandler, gate RiskGate, ledger *portfolio.Portfolio, logger *log.Logger) (*BackTest, error) {
	if provider == nil || strategy == nil || exch == nil || gate == nil || ledger == nil {
		return nil, common.ErrNilArguments
	}
	if s.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: %v", errNegativeRetries, s.MaxRetries)
	}
	if !s.StartDate.IsZero() && !s.EndDate.IsZero() && s.StartDate.After(s.EndDate) {
		return nil, fmt.Errorf("%w: %v %v", errInvalidDateRange, s.StartDate, s.EndDate)
	}
	if s.RetryBaseDelay <= 0 {
		s.RetryBaseDelay = defaultRetryBaseDelay
	}
	if s.RetryMaxDelay <= 0 {
		s.RetryMaxDelay = defaultRetryMaxDelay
	}
	if s.AnnualizationFactor <= 0 {
		s.AnnualizationFactor = statistics.DefaultAnnualizationFactor
	}
	if logger == nil {
		logger = log.Discard()
	}
	bt := &BackTest{
		settings:  s,
		provider:  provider,
		strategy:  strategy,
		exchange:  exch,
		risk:      gate,
		portfolio: ledger,
		sl:        logger.SubLogger(common.Backtester),
		dataLog:   logger.SubLogger(common.Data),
		stratLog:  logger.SubLogger(common.Strategy),
		riskLog:   logger.SubLogger(common.Risk),
		exchLog:   logger.SubLogger(common.Exchange),
		portLog:   logger.SubLogger(common.Portfolio),
		statsLog:  logger.SubLogger(common.Statistics),
	}
	if r, ok := gate.(*risk.Risk); ok && r.NewOrderID == nil {
		r.NewOrderID = bt.nextOrderID
	}
	return bt, nil
}

// nextOrderID derives the ID from the order's sequence within the run
func (bt *BackTest) nextOrderID() string {
	bt.orderSeq++
	return uuid.NewV5(orderNamespace, strconv.FormatUint(bt.orderSeq, 10)).String()
}

// Run replays the data stream to its end through the strategy, risk gate,
// simulator and ledger. On a fatal error or cancellation the partial result
// is returned along with an error wrapping ErrFatal or ErrRunCancelled
func (bt *BackTest) Run(ctx context.Context) (*RunResult, error) {
	if bt.hasRan {
		return nil, errRunAlreadyRan
	}
	bt.hasRan = true
	runID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	bt.result = &RunResult{
		RunID:    runID.String(),
		Strategy: bt.strategy.Name(),
	}
	log.Infof(bt.sl, "starting run %v using strategy %v", bt.result.RunID, bt.strategy.Name())
	if s, ok := bt.strategy.(strategies.Starter); ok {
		bt.callHook("start", func() error { return s.OnStart(bt.portfolio.Snapshot()) })
	}

	runErr := bt.loop(ctx)
	if closeErr := bt.provider.Close(); closeErr != nil {
		log.Errorf(bt.dataLog, "could not close data provider: %v", closeErr)
	}
	bt.expirePending("run ended before the order could be filled")
	if s, ok := bt.strategy.(strategies.Stopper); ok {
		bt.callHook("stop", func() error { return s.OnStop(bt.portfolio.Snapshot()) })
	}

	switch {
	case runErr == nil:
		bt.result.Complete = true
	case errors.Is(runErr, ErrRunCancelled):
		bt.result.Cancelled = true
		log.Warnf(bt.sl, "run %v cancelled after %v steps", bt.result.RunID, bt.result.Steps)
	default:
		runErr = fatal(runErr)
		bt.result.Fatal = true
		bt.result.FatalErr = runErr.Error()
		log.Errorf(bt.sl, "run %v aborted after %v steps: %v", bt.result.RunID, bt.result.Steps, runErr)
	}

	bt.result.Metrics = statistics.Analyze(bt.result.Equity, bt.result.Trades, statistics.Settings{
		InitialEquity:       bt.portfolio.InitialCash(),
		RiskFreeRate:        bt.settings.RiskFreeRate,
		AnnualizationFactor: bt.settings.AnnualizationFactor,
	})
	log.Infof(bt.statsLog, "run %v processed %v bars in %v steps, %v fills, %v rejections, %v anomalies",
		bt.result.RunID,
		bt.result.BarsProcessed,
		bt.result.Steps,
		len(bt.result.Trades),
		len(bt.result.Rejections),
		len(bt.result.Anomalies))
	return bt.result, runErr
}

func (bt *BackTest) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrRunCancelled, err)
		}
		batch, err := bt.nextBatch(ctx)
		endOfData := errors.Is(err, data.ErrEndOfData)
		if err != nil && !endOfData {
			return err
		}
		bt.recordRejected(batch.Rejected)
		for i := range batch.Bars {
			if err = bt.addBar(ctx, batch.Bars[i]); err != nil {
				return err
			}
		}
		if endOfData {
			break
		}
	}
	return bt.processGroup(ctx)
}

// nextBatch fetches the next batch, retrying provider failures with
// exponential backoff until MaxRetries is exhausted
func (bt *BackTest) nextBatch(ctx context.Context) (data.Batch, error) {
	for attempt := 0; ; attempt++ {
		batch, err := bt.provider.NextBatch(ctx)
		if err == nil || errors.Is(err, data.ErrEndOfData) {
			return batch, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return data.Batch{}, fmt.Errorf("%w: %w", ErrRunCancelled, ctxErr)
		}
		if attempt >= bt.settings.MaxRetries {
			return data.Batch{}, fmt.Errorf("%w: data provider failed after %v retries: %w", ErrFatal, attempt, err)
		}
		delay := bt.backoff(attempt)
		bt.addAnomaly(Anomaly{
			Time:   bt.groupTime,
			Kind:   common.ProviderAnomaly,
			Reason: fmt.Sprintf("attempt %v failed: %v", attempt+1, err),
		})
		log.Warnf(bt.dataLog, "data provider error, retrying in %v: %v", delay, err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return data.Batch{}, fmt.Errorf("%w: %w", ErrRunCancelled, ctx.Err())
		case <-timer.C:
		}
	}
}

func (bt *BackTest) backoff(attempt int) time.Duration {
	if attempt > 30 {
		return bt.settings.RetryMaxDelay
	}
	d := bt.settings.RetryBaseDelay << attempt
	if d <= 0 || d > bt.settings.RetryMaxDelay {
		return bt.settings.RetryMaxDelay
	}
	return d
}

func (bt *BackTest) recordRejected(records []data.RejectedRecord) {
	for i := range records {
		bt.addAnomaly(Anomaly{
			Time:   bt.groupTime,
			Kind:   common.DataAnomaly,
			Symbol: records[i].Symbol,
			Source: records[i].Source,
			Line:   records[i].Line,
			Reason: records[i].Reason,
		})
		log.Warnf(bt.dataLog, "%v line %v skipped: %v", records[i].Source, records[i].Line, records[i].Reason)
	}
}

// addBar places a bar in the timestamp group being collected. A bar with a
// later timestamp closes the current group, which is processed first.
// Malformed, out of order and duplicate bars are skipped as data anomalies
func (bt *BackTest) addBar(ctx context.Context, k *kline.Kline) error {
	if k == nil {
		bt.dataAnomaly(nil, common.ErrNilEvent)
		return nil
	}
	if err := k.Validate(); err != nil {
		bt.dataAnomaly(k, err)
		return nil
	}
	if !bt.inDateRange(k.Time) {
		log.Debugf(bt.dataLog, "%v %v outside of the run's date range, skipping", k.Symbol, k.Time)
		return nil
	}
	switch {
	case k.Time.After(bt.groupTime):
		if err := bt.processGroup(ctx); err != nil {
			return err
		}
		bt.groupTime = k.Time
	case k.Time.Before(bt.groupTime):
		bt.dataAnomaly(k, fmt.Errorf("%w: %v before %v", errOutOfOrderBar, k.Time, bt.groupTime))
		return nil
	default:
		for i := range bt.group {
			if bt.group[i].Symbol == k.Symbol {
				bt.dataAnomaly(k, errDuplicateBar)
				return nil
			}
		}
	}
	bt.group = append(bt.group, k)
	return nil
}

func (bt *BackTest) inDateRange(t time.Time) bool {
	if !bt.settings.StartDate.IsZero() && t.Before(bt.settings.StartDate) {
		return false
	}
	return bt.settings.EndDate.IsZero() || !t.After(bt.settings.EndDate)
}

func (bt *BackTest) processGroup(ctx context.Context) error {
	if len(bt.group) == 0 {
		return nil
	}
	bars := bt.group
	bt.group = nil
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRunCancelled, err)
	}
	return bt.step(bars)
}

// step processes one timestamp group in a fixed order: pending orders,
// mark-to-market, snapshot, strategy, then each intent through the risk
// gate and simulator in emission order, and finally the post-step valuation
func (bt *BackTest) step(bars []*kline.Kline) error {
	kline.SortBySymbol(bars)
	t := bars[0].Time
	bySymbol := make(map[string]*kline.Kline, len(bars))
	for i := range bars {
		bySymbol[bars[i].Symbol] = bars[i]
	}
	bt.result.Steps++
	bt.result.BarsProcessed += int64(len(bars))
	if bt.result.StartTime.IsZero() {
		bt.result.StartTime = t
	}
	bt.result.EndTime = t

	if err := bt.executePending(bySymbol); err != nil {
		return err
	}
	if err := bt.portfolio.MarkToMarket(bars); err != nil {
		return fatal(err)
	}

	intents := bt.runStrategy(bt.portfolio.Snapshot(), bars)
	for i := range intents {
		if err := bt.processIntent(intents[i], bySymbol); err != nil {
			return err
		}
	}

	if err := bt.portfolio.CheckInvariants(); err != nil {
		return fatal(err)
	}
	bt.portfolio.UpdatePeak()
	snap := bt.portfolio.Snapshot()
	bt.result.Equity = append(bt.result.Equity, statistics.EquityPoint{
		Time:   t,
		Equity: snap.Equity,
		Cash:   snap.Cash,
	})
	log.Debugf(bt.sl, "%v equity %v cash %v", t, snap.Equity, snap.Cash)
	return nil
}

// runStrategy isolates strategy failures to the step. Any error or panic
// discards the step's intents and is recorded as an anomaly
func (bt *BackTest) runStrategy(snap *portfolio.Snapshot, bars []*kline.Kline) []*signal.Intent {
	intents, err := bt.callStrategy(snap, copyBars(bars))
	if err != nil {
		bt.addAnomaly(Anomaly{
			Time:   bt.groupTime,
			Kind:   common.StrategyAnomaly,
			Reason: err.Error(),
		})
		log.Errorf(bt.stratLog, "%v at %v: %v", bt.strategy.Name(), bt.groupTime, err)
		return nil
	}
	return intents
}

func (bt *BackTest) callStrategy(snap *portfolio.Snapshot, bars []*kline.Kline) (intents []*signal.Intent, err error) {
	defer func() {
		if r := recover(); r != nil {
			intents = nil
			err = fmt.Errorf("%w: %v", errStrategyPanic, r)
		}
	}()
	return bt.strategy.OnData(snap, bars)
}

// callHook runs an optional strategy callback. Errors and panics are
// recorded as strategy anomalies and never stop the run
func (bt *BackTest) callHook(name string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", errStrategyPanic, r)
			}
		}()
		return fn()
	}()
	if err == nil {
		return
	}
	bt.addAnomaly(Anomaly{
		Time:   bt.groupTime,
		Kind:   common.StrategyAnomaly,
		Reason: fmt.Sprintf("%v: %v", name, err),
	})
	log.Errorf(bt.stratLog, "%v %v at %v: %v", bt.strategy.Name(), name, bt.groupTime, err)
}

// orderUpdated passes a copy of o to strategies tracking their orders
func (bt *BackTest) orderUpdated(o *order.Order) {
	u, ok := bt.strategy.(strategies.OrderUpdater)
	if !ok {
		return
	}
	c := *o
	c.Reasons = append([]string(nil), o.Reasons...)
	bt.callHook("order update", func() error {
		u.OnOrderUpdate(&c)
		return nil
	})
}

// traded passes a copy of f to strategies tracking their fills
func (bt *BackTest) traded(f *fill.Fill) {
	h, ok := bt.strategy.(strategies.TradeHandler)
	if !ok {
		return
	}
	c := *f
	c.Reasons = append([]string(nil), f.Reasons...)
	bt.callHook("trade", func() error {
		h.OnTrade(&c)
		return nil
	})
}

// copyBars hands the strategy its own copies so the stream's bars cannot be altered
func copyBars(bars []*kline.Kline) []*kline.Kline {
	resp := make([]*kline.Kline, len(bars))
	for i := range bars {
		k := *bars[i]
		k.Reasons = append([]string(nil), bars[i].Reasons...)
		resp[i] = &k
	}
	return resp
}

func (bt *BackTest) processIntent(in *signal.Intent, bySymbol map[string]*kline.Kline) error {
	if in == nil {
		bt.addAnomaly(Anomaly{
			Time:   bt.groupTime,
			Kind:   common.StrategyAnomaly,
			Reason: errNilIntent.Error(),
		})
		return nil
	}
	if in.Time.IsZero() {
		in.Time = bt.groupTime
	}
	d := bt.risk.EvaluateOrder(in, bt.portfolio.Snapshot())
	if d == nil || d.IsRejected() || d.Order == nil {
		r := Rejection{
			Time:      bt.groupTime,
			Symbol:    in.Symbol,
			Stage:     RiskStage,
			Side:      in.Side,
			OrderType: in.OrderType,
			Quantity:  in.Quantity,
		}
		if d != nil {
			r.Limit = d.Limit
			r.Reason = d.Reason
		}
		bt.result.Rejections = append(bt.result.Rejections, r)
		log.Debugf(bt.riskLog, "%v %v %v, rejected by %v: %v", r.Time, r.Symbol, r.Side.CouldNot(), r.Limit, r.Reason)
		return nil
	}

	o := d.Order
	if o.ID == "" {
		o.ID = bt.nextOrderID()
	}
	if d.Outcome == risk.Resized {
		log.Infof(bt.riskLog, "%v %v %v resized by %v: %v", o.Time, o.Symbol, o.Side, d.Limit, d.Reason)
	}
	bt.result.Orders = append(bt.result.Orders, o)
	bt.orderUpdated(o)

	switch {
	case o.IsStop():
		// the decision bar has already traded, stops watch from the next bar
		o.BarsRemaining = bt.exchange.GetSettings().LimitOrderLifetime + 1
		o.AppendReasonf("waiting for stop price %v", o.StopPrice)
		bt.pending = append(bt.pending, o)
		return nil
	case o.OrderType == common.Market && bt.exchange.GetSettings().FillPrice == exchange.FillAtNextOpen:
		o.AppendReason("deferred to the next open")
		bt.pending = append(bt.pending, o)
		return nil
	}
	return bt.execute(o, bySymbol[o.Symbol], true)
}

// executePending runs orders waiting on a later bar. Orders whose symbol has
// no bar in the group keep waiting
func (bt *BackTest) executePending(bySymbol map[string]*kline.Kline) error {
	if len(bt.pending) == 0 {
		return nil
	}
	queued := bt.pending
	bt.pending = nil
	for i := range queued {
		k, ok := bySymbol[queued[i].Symbol]
		if !ok {
			bt.pending = append(bt.pending, queued[i])
			continue
		}
		if err := bt.execute(queued[i], k, false); err != nil {
			bt.pending = append(bt.pending, queued[i+1:]...)
			return err
		}
	}
	return nil
}

// execute sends an order to the simulator against a bar. placed is true on
// the bar the order was created on. Execution failures leave the order
// unfilled and are recorded as anomalies, a ledger rejection is fatal
func (bt *BackTest) execute(o *order.Order, k *kline.Kline, placed bool) error {
	wasTriggered := o.Triggered
	f, err := bt.exchange.ExecuteOrder(o, k, bt.portfolio)
	if o.Triggered && !wasTriggered {
		log.Debugf(bt.exchLog, "%v %v stop order %v triggered at %v", bt.groupTime, o.Symbol, o.ID, o.StopPrice)
		if err != nil {
			bt.orderUpdated(o)
		}
	}
	switch {
	case err == nil:
	case errors.Is(err, exchange.ErrLimitNotReached), errors.Is(err, exchange.ErrStopNotTriggered):
		bt.holdOrder(o, placed)
		return nil
	case errors.Is(err, exchange.ErrLedgerRejected), f != nil:
		return fatal(err)
	default:
		o.Finalise(order.Rejected, err.Error())
		bt.addAnomaly(Anomaly{
			Time:    bt.groupTime,
			Kind:    common.ExecutionAnomaly,
			Symbol:  o.Symbol,
			OrderID: o.ID,
			Reason:  err.Error(),
		})
		log.Warnf(bt.exchLog, "%v %v %v order %v unfilled: %v", bt.groupTime, o.Symbol, o.Side, o.ID, err)
		bt.orderUpdated(o)
		return nil
	}

	bt.result.Trades = append(bt.result.Trades, f)
	log.Infof(bt.exchLog, "%v %v %v %v @ %v commission %v",
		f.Time,
		f.Symbol,
		f.Side,
		f.Quantity,
		f.Price,
		f.Commission)
	log.Debugf(bt.portLog, "%v cash %v equity %v", f.Time, bt.portfolio.Cash(), bt.portfolio.Equity())
	if o.Status == order.Pending {
		o.Finalise(order.Rejected, fmt.Sprintf("%v of %v left unfilled", o.Remaining(), o.Quantity))
	}
	bt.traded(f)
	bt.orderUpdated(o)
	return nil
}

// holdOrder keeps an unreached limit or untriggered stop order pending for
// the configured number of further bars of its symbol, then expires it
func (bt *BackTest) holdOrder(o *order.Order, placed bool) {
	if placed {
		o.BarsRemaining = bt.exchange.GetSettings().LimitOrderLifetime
	} else {
		o.BarsRemaining--
	}
	if o.BarsRemaining <= 0 {
		reason := fmt.Sprintf("limit price %v not reached", o.LimitPrice)
		if o.IsStop() && !o.Triggered {
			reason = fmt.Sprintf("stop price %v not reached", o.StopPrice)
		}
		o.Finalise(order.Expired, reason)
		log.Debugf(bt.exchLog, "%v %v %v order %v expired", bt.groupTime, o.Symbol, o.OrderType, o.ID)
		bt.orderUpdated(o)
		return
	}
	bt.pending = append(bt.pending, o)
}

func (bt *BackTest) expirePending(reason string) {
	for i := range bt.pending {
		bt.pending[i].Finalise(order.Expired, reason)
		bt.orderUpdated(bt.pending[i])
	}
	bt.pending = nil
}

func (bt *BackTest) dataAnomaly(k *kline.Kline, err error) {
	a := Anomaly{
		Time:   bt.groupTime,
		Kind:   common.DataAnomaly,
		Reason: err.Error(),
	}
	if k != nil {
		a.Time = k.Time
		a.Symbol = k.Symbol
	}
	bt.addAnomaly(a)
	log.Warnf(bt.dataLog, "skipping bar: %v", err)
}

func (bt *BackTest) addAnomaly(a Anomaly) {
	bt.result.Anomalies = append(bt.result.Anomalies, a)
}

func fatal(err error) error {
	if errors.Is(err, ErrFatal) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFatal, err)
}
