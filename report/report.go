package report

import (
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common/file"
	"github.com/thrasher-corp/backtester/config"
	"github.com/thrasher-corp/backtester/engine"
	"github.com/thrasher-corp/backtester/log"
)

// WriteResults writes every artifact enabled in o into dir and returns the
// paths written. Partial results of cancelled or aborted runs are written
// the same way, their state is recorded in the metrics meta section
func WriteResults(dir string, r *engine.RunResult, o *config.Output, sl *log.SubLogger) ([]string, error) {
	if r == nil || o == nil {
		return nil, errNilResult
	}
	if dir == "" {
		return nil, errNoDirectory
	}
	var written []string
	for _, a := range []struct {
		enabled bool
		name    string
		rows    func(*engine.RunResult) [][]string
	}{
		{o.SaveTrades, TradesFile, tradeRows},
		{o.SaveEquity, EquityFile, equityRows},
		{o.SaveRejections, RejectionsFile, rejectionRows},
		{o.SaveAnomalies, AnomaliesFile, anomalyRows},
	} {
		if !a.enabled {
			continue
		}
		path := filepath.Join(dir, a.name)
		if err := file.WriteAsCSV(path, a.rows(r)); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if o.SaveMetrics {
		out := metricsOutput{
			Meta:    newMeta(r, o),
			Metrics: r.Metrics,
		}
		b, err := json.MarshalIndent(out, "", " ")
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, MetricsFile)
		if err = file.Write(path, b); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	for i := range written {
		log.Infof(sl, "wrote %v", written[i])
	}
	return written, nil
}

func newMeta(r *engine.RunResult, o *config.Output) Meta {
	return Meta{
		RunID:         r.RunID,
		Strategy:      r.Strategy,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Steps:         r.Steps,
		BarsProcessed: r.BarsProcessed,
		Trades:        len(r.Trades),
		Rejections:    len(r.Rejections),
		Anomalies:     len(r.Anomalies),
		Complete:      r.Complete,
		Cancelled:     r.Cancelled,
		Fatal:         r.Fatal,
		FatalErr:      r.FatalErr,
		Plots: Plots{
			Equity:   o.PlotEquity,
			Drawdown: o.PlotDrawdown,
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func tradeRows(r *engine.RunResult) [][]string {
	rows := [][]string{{
		"timestamp", "order_id", "symbol", "side", "quantity", "price", "market_price",
		"slippage", "commission", "closed_quantity", "realised_pnl", "reasons",
	}}
	for _, f := range r.Trades {
		rows = append(rows, []string{
			formatTime(f.Time),
			f.OrderID,
			f.Symbol,
			string(f.Side),
			f.Quantity.String(),
			f.Price.String(),
			f.MarketPrice.String(),
			f.Slippage.String(),
			f.Commission.String(),
			f.ClosedQuantity.String(),
			f.RealisedPnL.String(),
			strings.Join(f.Reasons, "; "),
		})
	}
	return rows
}

// equityRows includes the running drawdown from peak equity
func equityRows(r *engine.RunResult) [][]string {
	rows := [][]string{{"timestamp", "equity", "cash", "drawdown"}}
	var peak decimal.Decimal
	if r.Metrics != nil {
		peak = r.Metrics.InitialEquity
	}
	for _, e := range r.Equity {
		if e.Equity.GreaterThan(peak) {
			peak = e.Equity
		}
		drawdown := decimal.Zero
		if peak.IsPositive() {
			drawdown = peak.Sub(e.Equity).Div(peak)
		}
		rows = append(rows, []string{
			formatTime(e.Time),
			e.Equity.String(),
			e.Cash.String(),
			drawdown.StringFixed(6),
		})
	}
	return rows
}

func rejectionRows(r *engine.RunResult) [][]string {
	rows := [][]string{{"timestamp", "symbol", "stage", "side", "order_type", "quantity", "limit", "reason"}}
	for _, rej := range r.Rejections {
		rows = append(rows, []string{
			formatTime(rej.Time),
			rej.Symbol,
			rej.Stage,
			string(rej.Side),
			string(rej.OrderType),
			rej.Quantity.String(),
			string(rej.Limit),
			rej.Reason,
		})
	}
	return rows
}

func anomalyRows(r *engine.RunResult) [][]string {
	rows := [][]string{{"timestamp", "kind", "symbol", "order_id", "source", "line", "reason"}}
	for _, a := range r.Anomalies {
		line := ""
		if a.Line > 0 {
			line = strconv.FormatInt(a.Line, 10)
		}
		rows = append(rows, []string{
			formatTime(a.Time),
			string(a.Kind),
			a.Symbol,
			a.OrderID,
			a.Source,
			line,
			a.Reason,
		})
	}
	return rows
}
