package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// InsertLearnedRule inserts a rule at the lifecycle-start confidence of 0.5 (callers
// should set r.Confidence = 0.5 and r.Active = true before calling) and returns its id.
func (d *DB) InsertLearnedRule(r LearnedRule) (int64, error) {
	res, err := d.conn.Exec(`
		INSERT INTO learned_rules (rule_text, category, source_trade_ids, confidence, times_applied, times_helpful, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RuleText, string(r.Category), marshalJSON(r.SourceTradeIDs), r.Confidence, r.TimesApplied, r.TimesHelpful, boolToInt(r.Active), formatTime(r.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert learned rule: %w", err)
	}
	return res.LastInsertId()
}

const ruleColumns = `id, rule_text, category, source_trade_ids, confidence, times_applied, times_helpful, active, created_at`

// GetActiveRules returns every rule with active = true, used to build the performance
// context injected into selection/review prompts.
func (d *DB) GetActiveRules() ([]LearnedRule, error) {
	rows, err := d.conn.Query(`SELECT ` + ruleColumns + ` FROM learned_rules WHERE active = 1 ORDER BY confidence DESC`)
	if err != nil {
		return nil, fmt.Errorf("get active rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func scanRules(rows *sql.Rows) ([]LearnedRule, error) {
	var out []LearnedRule
	for rows.Next() {
		var r LearnedRule
		var category, sourceIDs, createdAt string
		var active int
		if err := rows.Scan(&r.ID, &r.RuleText, &category, &sourceIDs, &r.Confidence, &r.TimesApplied, &r.TimesHelpful, &active, &createdAt); err != nil {
			return nil, fmt.Errorf("scan learned rule: %w", err)
		}
		r.Category = RuleCategory(category)
		r.Active = active != 0
		r.CreatedAt = parseTime(createdAt)
		_ = json.Unmarshal([]byte(sourceIDs), &r.SourceTradeIDs)
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateRuleEffectiveness increments times_applied (always) and times_helpful (if
// wasHelpful), then recomputes confidence from the helpful ratio: confidence rises
// above 0.7-helpful and falls below 0.3-helpful, per the rule lifecycle.
func (d *DB) UpdateRuleEffectiveness(id int64, wasHelpful bool) error {
	row := d.conn.QueryRow(`SELECT times_applied, times_helpful FROM learned_rules WHERE id = ?`, id)
	var applied, helpful int
	if err := row.Scan(&applied, &helpful); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load rule %d: %w", id, err)
	}

	applied++
	if wasHelpful {
		helpful++
	}

	ratio := float64(helpful) / float64(applied)
	confidence := 0.5
	switch {
	case ratio >= 0.7:
		confidence = 0.5 + (ratio-0.7)*(0.5/0.3)
	case ratio <= 0.3:
		confidence = 0.5 * (ratio / 0.3)
	default:
		confidence = 0.5
	}
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	_, err := d.conn.Exec(`
		UPDATE learned_rules SET times_applied = ?, times_helpful = ?, confidence = ? WHERE id = ?`,
		applied, helpful, confidence, id,
	)
	if err != nil {
		return fmt.Errorf("update rule effectiveness %d: %w", id, err)
	}
	return nil
}

// PruneWeakRules deactivates every rule applied at least 10 times with under 25%
// helpfulness. Idempotent: re-running is a no-op once rules are already inactive.
// Scheduled weekly per spec §3/§4.7.
func (d *DB) PruneWeakRules() (int64, error) {
	res, err := d.conn.Exec(`
		UPDATE learned_rules SET active = 0
		WHERE active = 1 AND times_applied >= 10 AND (CAST(times_helpful AS REAL) / times_applied) < 0.25`)
	if err != nil {
		return 0, fmt.Errorf("prune weak rules: %w", err)
	}
	return res.RowsAffected()
}
