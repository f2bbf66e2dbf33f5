package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by single-record lookups that find nothing.
var ErrNotFound = errors.New("not found")

// InsertTrade inserts a new open trade and returns its assigned id. Inserts are never
// partial: a failure here means the trade did not happen.
func (d *DB) InsertTrade(draft TradeDraft) (int64, error) {
	res, err := d.conn.Exec(`
		INSERT INTO trades (
			ticker, strategy, direction, sector,
			strike, strike_sell, strike_buy, spread_width, expiry, dte, contracts,
			entry_price, entry_date, entry_spot, entry_iv, entry_delta,
			max_profit, max_loss, market_scan_id, ai_rationale, ai_confidence, model_used,
			stop_loss_price, profit_target_price, status
		) VALUES (?, ?, 'short', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'open')`,
		draft.Ticker, draft.Strategy, draft.Sector,
		draft.Strike, nullFloat64Ptr(draft.StrikeSell), nullFloat64Ptr(draft.StrikeBuy), nullFloat64Ptr(draft.SpreadWidth),
		draft.Expiry, draft.DTE, draft.Contracts,
		draft.EntryPrice, formatTime(draft.EntryDate), draft.EntrySpot, draft.EntryIV, draft.EntryDelta,
		draft.MaxProfit, draft.MaxLoss, nullInt64Ptr(draft.MarketScanID), draft.AIRationale, draft.AIConfidence, draft.ModelUsed,
		draft.StopLossPrice, draft.ProfitTargetPrice,
	)
	if err != nil {
		return 0, fmt.Errorf("insert trade: %w", err)
	}
	return res.LastInsertId()
}

// CloseTrade transitions an open trade to closed. Closes are never partial: a failure
// fetching the mid must happen before this call, leaving the trade open for the next
// tick.
func (d *DB) CloseTrade(id int64, exit ExitData) error {
	res, err := d.conn.Exec(`
		UPDATE trades SET
			exit_price = ?, exit_date = ?, exit_spot = ?, exit_reason = ?,
			pnl_dollars = ?, pnl_percent = ?, status = 'closed'
		WHERE id = ? AND status = 'open'`,
		exit.ExitPrice, formatTime(exit.ExitDate), exit.ExitSpot, string(exit.ExitReason),
		exit.PnLDollars, exit.PnLPercent, id,
	)
	if err != nil {
		return fmt.Errorf("close trade %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close trade %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("close trade %d: %w", id, ErrNotFound)
	}
	return nil
}

const tradeColumns = `
	id, ticker, strategy, direction, sector,
	strike, strike_sell, strike_buy, spread_width, expiry, dte, contracts,
	entry_price, entry_date, entry_spot, entry_iv, entry_delta,
	exit_price, exit_date, exit_spot, exit_reason,
	pnl_dollars, pnl_percent, max_profit, max_loss,
	market_scan_id, ai_rationale, ai_confidence, model_used,
	stop_loss_price, profit_target_price, status`

// GetOpenTrades returns every trade currently open.
func (d *DB) GetOpenTrades() ([]Trade, error) {
	rows, err := d.conn.Query(`SELECT `+tradeColumns+` FROM trades WHERE status = 'open' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("get open trades: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

// GetClosedTrades returns the most recently closed trades, newest first, up to limit.
func (d *DB) GetClosedTrades(limit int) ([]Trade, error) {
	rows, err := d.conn.Query(`SELECT `+tradeColumns+` FROM trades WHERE status = 'closed' ORDER BY exit_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get closed trades: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

// GetTrade returns a single trade by id.
func (d *DB) GetTrade(id int64) (*Trade, error) {
	row := d.conn.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)
	t, err := scanTradeRow(row)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetAllTrades returns the most recent trades regardless of status, up to limit.
func (d *DB) GetAllTrades(limit int) ([]Trade, error) {
	rows, err := d.conn.Query(`SELECT `+tradeColumns+` FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get all trades: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

// GetTradesByTicker returns the most recent trades for a ticker, up to limit.
func (d *DB) GetTradesByTicker(ticker string, limit int) ([]Trade, error) {
	rows, err := d.conn.Query(`SELECT `+tradeColumns+` FROM trades WHERE ticker = ? ORDER BY id DESC LIMIT ?`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("get trades by ticker: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

func scanTrades(rows *sql.Rows) ([]Trade, error) {
	var out []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// rowScanner abstracts over *sql.Row and *sql.Rows so scanTrade can serve both.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(rs rowScanner) (*Trade, error) {
	var t Trade
	var strategy, direction, entryDate string
	var strikeSell, strikeBuy, spreadWidth sql.NullFloat64
	var exitPrice, exitSpot, pnlDollars, pnlPercent sql.NullFloat64
	var exitDate, exitReason sql.NullString
	var marketScanID sql.NullInt64
	var status string

	err := rs.Scan(
		&t.ID, &t.Ticker, &strategy, &direction, &t.Sector,
		&t.Strike, &strikeSell, &strikeBuy, &spreadWidth, &t.Expiry, &t.DTE, &t.Contracts,
		&t.EntryPrice, &entryDate, &t.EntrySpot, &t.EntryIV, &t.EntryDelta,
		&exitPrice, &exitDate, &exitSpot, &exitReason,
		&pnlDollars, &pnlPercent, &t.MaxProfit, &t.MaxLoss,
		&marketScanID, &t.AIRationale, &t.AIConfidence, &t.ModelUsed,
		&t.StopLossPrice, &t.ProfitTargetPrice, &status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan trade: %w", err)
	}

	t.Strategy = Strategy(strategy)
	t.Direction = direction
	t.Status = TradeStatus(status)
	t.EntryDate = parseTime(entryDate)

	if strikeSell.Valid {
		v := strikeSell.Float64
		t.StrikeSell = &v
	}
	if strikeBuy.Valid {
		v := strikeBuy.Float64
		t.StrikeBuy = &v
	}
	if spreadWidth.Valid {
		v := spreadWidth.Float64
		t.SpreadWidth = &v
	}
	if exitPrice.Valid {
		v := exitPrice.Float64
		t.ExitPrice = &v
	}
	if exitSpot.Valid {
		v := exitSpot.Float64
		t.ExitSpot = &v
	}
	if pnlDollars.Valid {
		v := pnlDollars.Float64
		t.PnLDollars = &v
	}
	if pnlPercent.Valid {
		v := pnlPercent.Float64
		t.PnLPercent = &v
	}
	if exitDate.Valid {
		v := parseTime(exitDate.String)
		t.ExitDate = &v
	}
	if exitReason.Valid {
		v := ExitReason(exitReason.String)
		t.ExitReason = &v
	}
	if marketScanID.Valid {
		v := marketScanID.Int64
		t.MarketScanID = &v
	}

	return &t, nil
}

func scanTradeRow(row *sql.Row) (*Trade, error) {
	return scanTrade(row)
}

// formatTime renders t as RFC3339 for storage.
func formatTime(t time.Time) string { return t.Format(time.RFC3339) }

// parseTime tolerates a small set of timestamp formats, newest-format first, matching
// the defensive multi-format fallback chain the teacher's repositories use.
func parseTime(s string) time.Time {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05.999",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nullFloat64Ptr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt64Ptr(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func marshalJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
