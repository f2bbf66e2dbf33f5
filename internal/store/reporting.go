package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/arduino-trader/pkg/formulas"
)

// GetPerformanceMetrics summarizes every trade closed within the last `days` days:
// win rate, total P&L, average win/loss, profit factor, per-strategy and per-ticker
// breakdowns, the single best and worst trade, and a per-exit-date P&L series.
func (d *DB) GetPerformanceMetrics(days int) (*PerformanceMetrics, error) {
	cutoff := ""
	if days > 0 {
		cutoff = formatTime(timeNow().AddDate(0, 0, -days))
	}

	query := `SELECT ` + tradeColumns + ` FROM trades WHERE status = 'closed'`
	args := []interface{}{}
	if cutoff != "" {
		query += ` AND exit_date >= ?`
		args = append(args, cutoff)
	}
	query += ` ORDER BY exit_date ASC`

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get performance metrics: %w", err)
	}
	defer rows.Close()

	trades, err := scanTrades(rows)
	if err != nil {
		return nil, err
	}

	metrics := &PerformanceMetrics{
		ByStrategy: make(map[string]StrategyBreakdown),
		ByTicker:   make(map[string]TickerBreakdown),
	}

	var wins, losses []float64
	byDate := make(map[string]float64)
	strategyWins := make(map[string]int)

	for i := range trades {
		t := trades[i]
		if t.PnLDollars == nil {
			continue
		}
		pnl := *t.PnLDollars
		metrics.TotalTrades++
		metrics.TotalPnL += pnl

		if pnl >= 0 {
			wins = append(wins, pnl)
		} else {
			losses = append(losses, pnl)
		}

		sb := metrics.ByStrategy[string(t.Strategy)]
		sb.Count++
		sb.TotalPnL += pnl
		if pnl >= 0 {
			strategyWins[string(t.Strategy)]++
		}
		metrics.ByStrategy[string(t.Strategy)] = sb

		tb := metrics.ByTicker[t.Ticker]
		tb.Count++
		tb.TotalPnL += pnl
		metrics.ByTicker[t.Ticker] = tb

		if t.ExitDate != nil {
			key := t.ExitDate.Format("2006-01-02")
			byDate[key] += pnl
		}

		if metrics.BestTrade == nil || pnl > *metrics.BestTrade.PnLDollars {
			tc := t
			metrics.BestTrade = &tc
		}
		if metrics.WorstTrade == nil || pnl < *metrics.WorstTrade.PnLDollars {
			tc := t
			metrics.WorstTrade = &tc
		}
	}

	if metrics.TotalTrades > 0 {
		metrics.WinRate = float64(len(wins)) / float64(metrics.TotalTrades) * 100
	}
	for name, sb := range metrics.ByStrategy {
		if sb.Count > 0 {
			sb.WinRate = float64(strategyWins[name]) / float64(sb.Count) * 100
			metrics.ByStrategy[name] = sb
		}
	}
	if len(wins) > 0 {
		metrics.AvgWin = stat.Mean(wins, nil)
	}
	if len(losses) > 0 {
		metrics.AvgLoss = stat.Mean(losses, nil)
	}
	grossLoss := -sumFloat(losses)
	if grossLoss > 0 {
		metrics.ProfitFactor = sumFloat(wins) / grossLoss
	} else if sumFloat(wins) > 0 {
		metrics.ProfitFactor = sumFloat(wins)
	}

	dates := make([]string, 0, len(byDate))
	for k := range byDate {
		dates = append(dates, k)
	}
	sort.Strings(dates)
	for _, date := range dates {
		metrics.PnLByExitDate = append(metrics.PnLByExitDate, DatedPnL{Date: date, PnL: byDate[date]})
	}

	if len(metrics.PnLByExitDate) >= 2 {
		equity := make([]float64, len(metrics.PnLByExitDate)+1)
		equity[0] = 100000
		for i, p := range metrics.PnLByExitDate {
			equity[i+1] = equity[i] + p.PnL
		}
		metrics.MaxDrawdownPct = formulas.CalculateMaxDrawdown(equity)
		metrics.SharpeRatio = formulas.CalculateSharpeFromPrices(equity, 0.02)
	}

	return metrics, nil
}

// GetEquityCurve returns the starting paper balance, its current value after every
// closed trade's P&L, and the cumulative point series ordered by exit date.
func (d *DB) GetEquityCurve() (*EquityCurve, error) {
	startBalance := 100000.0
	if v, ok, err := d.GetConfig("paper_balance"); err == nil && ok {
		fmt.Sscanf(v, "%f", &startBalance)
	}

	rows, err := d.conn.Query(`
		SELECT exit_date, pnl_dollars FROM trades
		WHERE status = 'closed' AND exit_date IS NOT NULL AND pnl_dollars IS NOT NULL
		ORDER BY exit_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("get equity curve: %w", err)
	}
	defer rows.Close()

	curve := &EquityCurve{StartingBalance: startBalance, CurrentValue: startBalance}
	running := startBalance
	for rows.Next() {
		var exitDate string
		var pnl float64
		if err := rows.Scan(&exitDate, &pnl); err != nil {
			return nil, fmt.Errorf("scan equity point: %w", err)
		}
		running += pnl
		curve.Points = append(curve.Points, EquityPoint{Date: parseTime(exitDate).Format("2006-01-02"), Value: running})
	}
	curve.CurrentValue = running
	return curve, rows.Err()
}

// BuildPerformanceContext renders a pre-formatted multi-section text blob: recent
// performance, the per-strategy breakdown, and active learned rules (no per-ticker
// breakdown is rendered). It is injected
// verbatim into the selection and reflection prompts.
func (d *DB) BuildPerformanceContext() (string, error) {
	metrics, err := d.GetPerformanceMetrics(30)
	if err != nil {
		return "", err
	}
	rules, err := d.GetActiveRules()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== PERFORMANCE (last 30 days) ===\n")
	fmt.Fprintf(&b, "Total trades: %d | Win rate: %.1f%% | Total P&L: $%.2f\n", metrics.TotalTrades, metrics.WinRate, metrics.TotalPnL)
	fmt.Fprintf(&b, "Avg win: $%.2f | Avg loss: $%.2f | Profit factor: %.2f\n", metrics.AvgWin, metrics.AvgLoss, metrics.ProfitFactor)

	if len(metrics.ByStrategy) > 0 {
		b.WriteString("\n=== BY STRATEGY ===\n")
		names := make([]string, 0, len(metrics.ByStrategy))
		for n := range metrics.ByStrategy {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			sb := metrics.ByStrategy[n]
			fmt.Fprintf(&b, "%s: %d trades, %.1f%% win rate, $%.2f total\n", n, sb.Count, sb.WinRate, sb.TotalPnL)
		}
	}

	if len(rules) > 0 {
		b.WriteString("\n=== LEARNED RULES ===\n")
		for _, r := range rules {
			fmt.Fprintf(&b, "[%s, confidence %.2f] %s\n", r.Category, r.Confidence, r.RuleText)
		}
	}

	return b.String(), nil
}

func sumFloat(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

// timeNow returns time.Now and cannot be overridden; reporting queries are not pinned to
// the pipeline's injected clock since they serve ad hoc operator reads.
func timeNow() time.Time { return time.Now() }
