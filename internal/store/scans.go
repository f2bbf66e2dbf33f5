package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// UpsertMarketScan replaces the scan for scan.ScanDate if one exists, or inserts a new
// one. Exactly one scan exists per date; re-running an earlier phase replaces it.
func (d *DB) UpsertMarketScan(scan MarketScan) (int64, error) {
	trending := marshalJSON(scan.TrendingTickers)
	momentum := marshalJSON(scan.SectorMomentum)
	cautions := marshalJSON(scan.CautionFlags)
	candidates := marshalJSON(scan.CandidatePool)
	picks := marshalJSON(scan.SelectedPicks)

	_, err := d.conn.Exec(`
		INSERT INTO market_scans (
			scan_date, market_mood, trending_tickers, sector_momentum, caution_flags,
			raw_text, vix, spy, candidate_pool, selected_picks, sentiment_model, analysis_model
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scan_date) DO UPDATE SET
			market_mood = excluded.market_mood,
			trending_tickers = excluded.trending_tickers,
			sector_momentum = excluded.sector_momentum,
			caution_flags = excluded.caution_flags,
			raw_text = excluded.raw_text,
			vix = excluded.vix,
			spy = excluded.spy,
			candidate_pool = excluded.candidate_pool,
			selected_picks = excluded.selected_picks,
			sentiment_model = excluded.sentiment_model,
			analysis_model = excluded.analysis_model`,
		scan.ScanDate, string(scan.MarketMood), trending, momentum, cautions,
		scan.RawText, scan.VIX, scan.SPY, candidates, picks, scan.SentimentModel, scan.AnalysisModel,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert market scan: %w", err)
	}

	var id int64
	if err := d.conn.QueryRow(`SELECT id FROM market_scans WHERE scan_date = ?`, scan.ScanDate).Scan(&id); err != nil {
		return 0, fmt.Errorf("reload market scan id: %w", err)
	}
	return id, nil
}

// SetSelectedPicks persists Phase 2's picks onto an existing scan without touching
// its other fields.
func (d *DB) SetSelectedPicks(scanDate string, picks []TradePick) error {
	res, err := d.conn.Exec(`UPDATE market_scans SET selected_picks = ? WHERE scan_date = ?`, marshalJSON(picks), scanDate)
	if err != nil {
		return fmt.Errorf("set selected picks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const scanColumns = `
	id, scan_date, market_mood, trending_tickers, sector_momentum, caution_flags,
	raw_text, vix, spy, candidate_pool, selected_picks, sentiment_model, analysis_model`

// GetMarketScan returns the scan for a specific date, if any.
func (d *DB) GetMarketScan(date string) (*MarketScan, error) {
	row := d.conn.QueryRow(`SELECT `+scanColumns+` FROM market_scans WHERE scan_date = ?`, date)
	return scanMarketScan(row)
}

// GetLatestMarketScan returns the most recent scan, if any.
func (d *DB) GetLatestMarketScan() (*MarketScan, error) {
	row := d.conn.QueryRow(`SELECT ` + scanColumns + ` FROM market_scans ORDER BY scan_date DESC LIMIT 1`)
	return scanMarketScan(row)
}

func scanMarketScan(row *sql.Row) (*MarketScan, error) {
	var s MarketScan
	var mood, trending, momentum, cautions, candidates, picks string

	err := row.Scan(
		&s.ID, &s.ScanDate, &mood, &trending, &momentum, &cautions,
		&s.RawText, &s.VIX, &s.SPY, &candidates, &picks, &s.SentimentModel, &s.AnalysisModel,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan market scan: %w", err)
	}

	s.MarketMood = MarketMood(mood)
	_ = json.Unmarshal([]byte(trending), &s.TrendingTickers)
	_ = json.Unmarshal([]byte(momentum), &s.SectorMomentum)
	_ = json.Unmarshal([]byte(cautions), &s.CautionFlags)
	_ = json.Unmarshal([]byte(candidates), &s.CandidatePool)
	_ = json.Unmarshal([]byte(picks), &s.SelectedPicks)

	return &s, nil
}
