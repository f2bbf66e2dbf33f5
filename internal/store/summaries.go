package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// UpsertDailySummary replaces the summary for s.SummaryDate if one exists, or inserts a
// new one.
func (d *DB) UpsertDailySummary(s DailySummary) error {
	_, err := d.conn.Exec(`
		INSERT INTO daily_summaries (
			summary_date, opens, closes, wins, losses, total_pnl, account_value, capital_at_risk, reflection
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(summary_date) DO UPDATE SET
			opens = excluded.opens,
			closes = excluded.closes,
			wins = excluded.wins,
			losses = excluded.losses,
			total_pnl = excluded.total_pnl,
			account_value = excluded.account_value,
			capital_at_risk = excluded.capital_at_risk,
			reflection = CASE WHEN excluded.reflection = '' THEN daily_summaries.reflection ELSE excluded.reflection END`,
		s.SummaryDate, s.Opens, s.Closes, s.Wins, s.Losses, s.TotalPnL, s.AccountValue, s.CapitalAtRisk, s.Reflection,
	)
	if err != nil {
		return fmt.Errorf("upsert daily summary: %w", err)
	}
	return nil
}

// SetReflection writes Phase 5's reflection text onto today's summary without
// disturbing the counts Phase 4 already wrote.
func (d *DB) SetReflection(date, reflection string) error {
	_, err := d.conn.Exec(`
		INSERT INTO daily_summaries (summary_date, reflection) VALUES (?, ?)
		ON CONFLICT(summary_date) DO UPDATE SET reflection = excluded.reflection`,
		date, reflection,
	)
	if err != nil {
		return fmt.Errorf("set reflection: %w", err)
	}
	return nil
}

// GetDailySummaries returns the most recent summaries, newest first, up to limit.
func (d *DB) GetDailySummaries(limit int) ([]DailySummary, error) {
	rows, err := d.conn.Query(`
		SELECT id, summary_date, opens, closes, wins, losses, total_pnl, account_value, capital_at_risk, reflection
		FROM daily_summaries ORDER BY summary_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get daily summaries: %w", err)
	}
	defer rows.Close()

	var out []DailySummary
	for rows.Next() {
		var s DailySummary
		if err := rows.Scan(&s.ID, &s.SummaryDate, &s.Opens, &s.Closes, &s.Wins, &s.Losses, &s.TotalPnL, &s.AccountValue, &s.CapitalAtRisk, &s.Reflection); err != nil {
			return nil, fmt.Errorf("scan daily summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetDailySummary returns the summary for a single date, if any.
func (d *DB) GetDailySummary(date string) (*DailySummary, error) {
	row := d.conn.QueryRow(`
		SELECT id, summary_date, opens, closes, wins, losses, total_pnl, account_value, capital_at_risk, reflection
		FROM daily_summaries WHERE summary_date = ?`, date)
	var s DailySummary
	err := row.Scan(&s.ID, &s.SummaryDate, &s.Opens, &s.Closes, &s.Wins, &s.Losses, &s.TotalPnL, &s.AccountValue, &s.CapitalAtRisk, &s.Reflection)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get daily summary: %w", err)
	}
	return &s, nil
}
