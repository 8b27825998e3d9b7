package database

// schemas maps database names to their embedded DDL. Each schema is the
// single source of truth for that database and is safe to re-apply.
var schemas = map[string]string{
	"momentor": momentorSchema,
	"cache":    cacheSchema,
}

// Schema returns the embedded DDL for a database name. Repository tests use
// it to migrate in-memory databases.
func Schema(name string) string {
	return schemas[name]
}

// momentorSchema holds runs, their computed artifacts, and the user-confirmed
// actual state. Decimal amounts are stored as TEXT to preserve exact values.
const momentorSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    run_date        TIMESTAMP NOT NULL,
    trigger_type    TEXT NOT NULL CHECK (trigger_type IN ('auto', 'manual', 'test')),
    status          TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed')),
    total_capital   TEXT NOT NULL,
    uninvested_cash TEXT NOT NULL DEFAULT '0',
    residual_cash   TEXT NOT NULL DEFAULT '0',
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_status_date ON runs (status, run_date DESC);

CREATE TABLE IF NOT EXISTS run_allocations (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id        TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    symbol        TEXT NOT NULL,
    name          TEXT NOT NULL DEFAULT '',
    percentage    TEXT NOT NULL,
    target_amount TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_allocations_run ON run_allocations (run_id);

CREATE TABLE IF NOT EXISTS cashflow_moves (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    symbol      TEXT NOT NULL,
    action      TEXT NOT NULL CHECK (action IN ('BUY', 'SELL')),
    shares      INTEGER NOT NULL,
    value       TEXT NOT NULL,
    order_index INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cashflow_moves_run ON cashflow_moves (run_id, order_index);

CREATE TABLE IF NOT EXISTS swap_moves (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    from_symbol TEXT,
    to_symbol   TEXT,
    shares_from INTEGER,
    shares_to   INTEGER,
    value       TEXT NOT NULL,
    order_index INTEGER NOT NULL,
    CHECK (from_symbol IS NOT NULL OR to_symbol IS NOT NULL)
);
CREATE INDEX IF NOT EXISTS idx_swap_moves_run ON swap_moves (run_id, order_index);

CREATE TABLE IF NOT EXISTS positions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id       TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    symbol       TEXT NOT NULL,
    shares       INTEGER NOT NULL,
    avg_price    TEXT NOT NULL,
    total_value  TEXT NOT NULL,
    confirmed_at TIMESTAMP NOT NULL,
    UNIQUE (run_id, symbol)
);

CREATE TABLE IF NOT EXISTS cash (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id       TEXT NOT NULL UNIQUE REFERENCES runs (id) ON DELETE CASCADE,
    amount       TEXT NOT NULL,
    confirmed_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS scheduler_logs (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    run_date TIMESTAMP NOT NULL,
    status   TEXT NOT NULL,
    error    TEXT
);
`

// cacheSchema holds ephemeral market data. Safe to delete at any time.
const cacheSchema = `
CREATE TABLE IF NOT EXISTS price_cache (
    symbol     TEXT PRIMARY KEY,
    price      TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS history_cache (
    cache_key  TEXT PRIMARY KEY,
    payload    BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`
