// Package migrations applies the relational schema in order. Statements are
// idempotent so Apply can run at every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'individual',
		status TEXT NOT NULL DEFAULT 'active',
		company_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fuel_balances (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		fuel_kind TEXT NOT NULL,
		quantity NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, fuel_kind)
	)`,
	`CREATE TABLE IF NOT EXISTS coupons (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		fuel_kind TEXT NOT NULL,
		quantity NUMERIC(14,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		description TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ,
		created_by TEXT NOT NULL,
		redeemed_by TEXT,
		redeemed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		vehicle_id TEXT NOT NULL DEFAULT '',
		merchant_id TEXT NOT NULL DEFAULT '',
		employee_id TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		fuel_kind TEXT NOT NULL,
		quantity NUMERIC(14,2) NOT NULL,
		amount_value NUMERIC(14,2) NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		registration TEXT NOT NULL UNIQUE,
		owner_id TEXT NOT NULL,
		company_id TEXT NOT NULL DEFAULT '',
		fuel_kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		approved_by TEXT,
		approved_at TIMESTAMPTZ,
		reject_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS merchants (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		station_name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		pending_balance NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS withdrawals (
		id TEXT PRIMARY KEY,
		merchant_id TEXT NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		processed_by TEXT,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		processed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS audit_entries (
		id BIGSERIAL PRIMARY KEY,
		occurred_at TIMESTAMPTZ NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL,
		method TEXT NOT NULL,
		status INT NOT NULL,
		remote_addr TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT ''
	)`,
}

// Apply executes every migration statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
