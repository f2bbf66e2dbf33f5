package store

import (
	"fmt"
)

// InsertTradeReview appends a review. Invariant: at most one review per trade; callers
// must check GetTradeReviews first and skip if one is present.
func (d *DB) InsertTradeReview(r TradeReview) (int64, error) {
	res, err := d.conn.Exec(`
		INSERT INTO trade_reviews (trade_id, raw_text, lesson, what_worked, what_failed, should_repeat, model_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TradeID, r.RawText, r.Lesson, r.WhatWorked, r.WhatFailed, boolToInt(r.ShouldRepeat), r.ModelUsed, formatTime(r.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert trade review: %w", err)
	}
	return res.LastInsertId()
}

// GetTradeReviews returns every review for a trade (normally zero or one).
func (d *DB) GetTradeReviews(tradeID int64) ([]TradeReview, error) {
	rows, err := d.conn.Query(`
		SELECT id, trade_id, raw_text, lesson, what_worked, what_failed, should_repeat, model_used, created_at
		FROM trade_reviews WHERE trade_id = ? ORDER BY id`, tradeID)
	if err != nil {
		return nil, fmt.Errorf("get trade reviews: %w", err)
	}
	defer rows.Close()

	var out []TradeReview
	for rows.Next() {
		var r TradeReview
		var shouldRepeat int
		var createdAt string
		if err := rows.Scan(&r.ID, &r.TradeID, &r.RawText, &r.Lesson, &r.WhatWorked, &r.WhatFailed, &shouldRepeat, &r.ModelUsed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan trade review: %w", err)
		}
		r.ShouldRepeat = shouldRepeat != 0
		r.CreatedAt = parseTime(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// HasReview reports whether a trade already has a review, for Phase 5's skip-if-present
// rule.
func (d *DB) HasReview(tradeID int64) (bool, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM trade_reviews WHERE trade_id = ?`, tradeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has review: %w", err)
	}
	return n > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
