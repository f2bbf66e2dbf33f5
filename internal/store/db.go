package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// DB wraps the trader's single SQLite database file, matching the teacher's
// connection-pool settings and pragma string.
type DB struct {
	conn *sql.DB
	path string
	log  zerolog.Logger
}

// Open creates the parent directory if needed, opens the database with WAL and
// foreign-key pragmas, verifies connectivity, and applies the additive migrations.
func Open(dbPath string, log zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{conn: conn, path: dbPath, log: log.With().Str("component", "store").Logger()}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

// Conn returns the underlying *sql.DB.
func (d *DB) Conn() *sql.DB { return d.conn }

// Close closes the underlying connection pool.
func (d *DB) Close() error { return d.conn.Close() }

// isReady reports whether the store has completed migration and can serve the
// monitor and reporting queries.
func (d *DB) isReady() bool {
	if d.conn == nil {
		return false
	}
	return d.conn.Ping() == nil
}

// IsReady is the exported form of isReady, used by the Control Surface to report a
// degraded state when the store is unavailable.
func (d *DB) IsReady() bool { return d.isReady() }

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT NOT NULL,
		strategy TEXT NOT NULL,
		direction TEXT NOT NULL DEFAULT 'short',
		sector TEXT NOT NULL DEFAULT 'Unknown',
		strike REAL NOT NULL,
		strike_sell REAL,
		strike_buy REAL,
		spread_width REAL,
		expiry TEXT NOT NULL,
		dte INTEGER NOT NULL,
		contracts INTEGER NOT NULL,
		entry_price REAL NOT NULL,
		entry_date TEXT NOT NULL,
		entry_spot REAL NOT NULL,
		entry_iv REAL NOT NULL DEFAULT 0,
		entry_delta REAL NOT NULL DEFAULT 0,
		exit_price REAL,
		exit_date TEXT,
		exit_spot REAL,
		exit_reason TEXT,
		pnl_dollars REAL,
		pnl_percent REAL,
		max_profit REAL NOT NULL DEFAULT 0,
		max_loss REAL NOT NULL DEFAULT 0,
		market_scan_id INTEGER,
		ai_rationale TEXT,
		ai_confidence REAL NOT NULL DEFAULT 0,
		model_used TEXT,
		stop_loss_price REAL NOT NULL,
		profit_target_price REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'open'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades(ticker)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_sector ON trades(sector)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_exit_date ON trades(exit_date)`,
	`CREATE TABLE IF NOT EXISTS market_scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_date TEXT NOT NULL UNIQUE,
		market_mood TEXT NOT NULL DEFAULT 'neutral',
		trending_tickers TEXT NOT NULL DEFAULT '[]',
		sector_momentum TEXT NOT NULL DEFAULT '{}',
		caution_flags TEXT NOT NULL DEFAULT '[]',
		raw_text TEXT NOT NULL DEFAULT '',
		vix REAL NOT NULL DEFAULT 0,
		spy REAL NOT NULL DEFAULT 0,
		candidate_pool TEXT NOT NULL DEFAULT '[]',
		selected_picks TEXT NOT NULL DEFAULT '[]',
		sentiment_model TEXT NOT NULL DEFAULT '',
		analysis_model TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS trade_reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_id INTEGER NOT NULL,
		raw_text TEXT NOT NULL DEFAULT '',
		lesson TEXT NOT NULL DEFAULT '',
		what_worked TEXT NOT NULL DEFAULT '',
		what_failed TEXT NOT NULL DEFAULT '',
		should_repeat INTEGER NOT NULL DEFAULT 0,
		model_used TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_trade_id ON trade_reviews(trade_id)`,
	`CREATE TABLE IF NOT EXISTS daily_summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		summary_date TEXT NOT NULL UNIQUE,
		opens INTEGER NOT NULL DEFAULT 0,
		closes INTEGER NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		total_pnl REAL NOT NULL DEFAULT 0,
		account_value REAL NOT NULL DEFAULT 0,
		capital_at_risk REAL NOT NULL DEFAULT 0,
		reflection TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS learned_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rule_text TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'general',
		source_trade_ids TEXT NOT NULL DEFAULT '[]',
		confidence REAL NOT NULL DEFAULT 0.5,
		times_applied INTEGER NOT NULL DEFAULT 0,
		times_helpful INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rules_active ON learned_rules(active)`,
	`CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

var defaultConfig = map[string]string{
	"enabled":               "false",
	"paper_balance":         "100000",
	"max_positions":         "5",
	"max_daily_risk_pct":    "20",
	"max_margin_pct":        "70",
	"max_per_sector":        "2",
	"stop_loss_multiplier":  "2",
	"profit_target_pct":     "50",
	"min_dte":               "1",
	"max_dte":               "45",
	"manage_dte":            "21",
	"allowed_strategies":    `["short_put","credit_spread","covered_call"]`,
	"min_spread_width":      "5",
	"monitor_interval_sec":  "30",
	"morning_scan_time":     "06:00",
	"analysis_time":         "07:00",
	"execution_time":        "09:31",
	"eod_review_time":       "16:01",
	"reflection_time":       "16:30",
	"deepseek_model":        "deepseek-r1:70b",
	"grok_model":            "grok-4",
}

// migrate creates any missing tables/indexes and seeds default configuration if
// absent. Schema evolution is additive: existing columns are never renamed or
// repurposed; new columns, tables, and indexes are always added via
// CREATE TABLE/INDEX IF NOT EXISTS statements appended to the migrations slice.
func (d *DB) migrate() error {
	for _, stmt := range migrations {
		if _, err := d.conn.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration %q: %w", stmt, err)
		}
	}

	for key, value := range defaultConfig {
		_, err := d.conn.Exec(
			`INSERT INTO config (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
			key, value,
		)
		if err != nil {
			return fmt.Errorf("seed config %q: %w", key, err)
		}
	}

	d.log.Info().Int("statements", len(migrations)).Msg("database migrated")
	return nil
}
