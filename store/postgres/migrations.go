package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Arcana store.
var Migrations = migrate.NewGroup("arcana")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_arcana_entitlements",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS arcana_entitlements (
    user_id          TEXT PRIMARY KEY,
    balance          INT NOT NULL DEFAULT 0,
    total_purchases  INT NOT NULL DEFAULT 0,
    free_trial_used  BOOLEAN NOT NULL DEFAULT FALSE,
    quick_quota_used INT NOT NULL DEFAULT 0,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_arcana_ent_purchases ON arcana_entitlements (total_purchases);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS arcana_entitlements`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_arcana_sessions",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS arcana_sessions (
    user_id     TEXT PRIMARY KEY,
    id          TEXT NOT NULL DEFAULT '',
    tier_slug   TEXT NOT NULL DEFAULT '',
    settled     BOOLEAN NOT NULL DEFAULT FALSE,
    method      TEXT NOT NULL DEFAULT '',
    question    TEXT,
    is_package  BOOLEAN NOT NULL DEFAULT FALSE,
    payment_ref TEXT NOT NULL DEFAULT '',
    dispatching BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_arcana_sessions_id ON arcana_sessions (id);
CREATE INDEX IF NOT EXISTS idx_arcana_sessions_updated ON arcana_sessions (updated_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS arcana_sessions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_arcana_payments",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS arcana_payments (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL DEFAULT '',
    tier_slug       TEXT NOT NULL DEFAULT '',
    payment_ref     TEXT NOT NULL DEFAULT '',
    amount_cents    BIGINT NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    session_id      TEXT NOT NULL DEFAULT '',
    orphan          BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_arcana_payments_ref ON arcana_payments (payment_ref);
CREATE INDEX IF NOT EXISTS idx_arcana_payments_user ON arcana_payments (user_id);
CREATE INDEX IF NOT EXISTS idx_arcana_payments_orphan ON arcana_payments (orphan, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS arcana_payments`)
				return err
			},
		},
	)
}
