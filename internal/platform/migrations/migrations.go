// Package migrations applies the database schema used by the postgres store.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// statements are executed in order at startup. Every statement is idempotent
// so Apply can run on each boot. Monetary columns are canonical decimal text.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS fincore_ledger_accounts (
		id         TEXT PRIMARY KEY,
		owner      TEXT NOT NULL,
		currency   TEXT NOT NULL,
		balance    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS fincore_ledger_accounts_owner_currency
		ON fincore_ledger_accounts (lower(owner), upper(currency))`,
	`CREATE TABLE IF NOT EXISTS fincore_ledger_entries (
		id         TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES fincore_ledger_accounts(id),
		kind       TEXT NOT NULL,
		amount     TEXT NOT NULL,
		balance    TEXT NOT NULL,
		reference  TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS fincore_ledger_entries_account
		ON fincore_ledger_entries (account_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS fincore_rate_feeds (
		id          TEXT PRIMARY KEY,
		base_asset  TEXT NOT NULL,
		quote_asset TEXT NOT NULL,
		pair        TEXT NOT NULL,
		source      TEXT NOT NULL DEFAULT '',
		active      BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS fincore_rate_feeds_pair
		ON fincore_rate_feeds (upper(pair))`,
	`CREATE TABLE IF NOT EXISTS fincore_rate_snapshots (
		id           TEXT PRIMARY KEY,
		feed_id      TEXT NOT NULL REFERENCES fincore_rate_feeds(id),
		rate         TEXT NOT NULL,
		source       TEXT NOT NULL DEFAULT '',
		collected_at TIMESTAMPTZ NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS fincore_rate_snapshots_feed
		ON fincore_rate_snapshots (feed_id, collected_at DESC)`,
	`CREATE TABLE IF NOT EXISTS fincore_journal_records (
		id         TEXT PRIMARY KEY,
		run_id     TEXT NOT NULL UNIQUE,
		pipeline   TEXT NOT NULL,
		state      TEXT NOT NULL,
		payload    BYTEA,
		error      TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		settled_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS fincore_journal_records_pipeline
		ON fincore_journal_records (pipeline, created_at DESC)`,
}

// Apply runs all schema statements against the database in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
