package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var DB *pgxpool.Pool

func ConnectDB() {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		log.Fatalf("unable to parse pgx config: %v", err)
	}

	DB, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatalf("unable to create pgx pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := DB.Ping(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	log.Printf("Connected to database at %s:%s/%s", os.Getenv("PG_HOST"), os.Getenv("PG_PORT"), os.Getenv("PG_DATABASE"))
}

// schema is the full DDL for the ledger. Every statement is idempotent
// so EnsureSchema can run on every boot.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                UUID PRIMARY KEY,
	email             TEXT UNIQUE NOT NULL,
	username          TEXT NOT NULL,
	password          TEXT NOT NULL,
	is_admin          BOOLEAN NOT NULL DEFAULT FALSE,
	credits           BIGINT NOT NULL DEFAULT 20 CHECK (credits >= 0),
	earned_lifetime   BIGINT NOT NULL DEFAULT 20,
	spent_lifetime    BIGINT NOT NULL DEFAULT 0,
	received_lifetime BIGINT NOT NULL DEFAULT 0,
	rank              TEXT NOT NULL DEFAULT '',
	course_credits    DOUBLE PRECISION NOT NULL DEFAULT 4.25,
	frozen            BOOLEAN NOT NULL DEFAULT FALSE,
	timeout_until     TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS system_accounts (
	kind    TEXT PRIMARY KEY,
	balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0)
);
INSERT INTO system_accounts (kind, balance) VALUES ('class_bank', 0)
ON CONFLICT (kind) DO NOTHING;

CREATE TABLE IF NOT EXISTS global_stats (
	id                SMALLINT PRIMARY KEY CHECK (id = 1),
	contributor_count BIGINT NOT NULL DEFAULT 0,
	score_sum         DOUBLE PRECISION NOT NULL DEFAULT 0,
	score_sum_sq      DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS transactions (
	id           UUID PRIMARY KEY,
	from_account TEXT NOT NULL,
	to_account   TEXT NOT NULL,
	amount       BIGINT NOT NULL,
	reason       TEXT NOT NULL DEFAULT '',
	tx_type      TEXT NOT NULL,
	message      TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS transactions_from_idx ON transactions (from_account, created_at DESC);

CREATE TABLE IF NOT EXISTS items (
	id        UUID PRIMARY KEY,
	name      TEXT NOT NULL,
	cost      BIGINT NOT NULL,
	kind      TEXT NOT NULL,
	threshold BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS inventory (
	account_id  UUID NOT NULL REFERENCES accounts(id),
	item_id     UUID NOT NULL REFERENCES items(id),
	acquired_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (account_id, item_id)
);

CREATE TABLE IF NOT EXISTS auctions (
	id                UUID PRIMARY KEY,
	seller_id         UUID REFERENCES accounts(id),
	item_name         TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'active',
	current_bid       BIGINT,
	highest_bidder_id UUID REFERENCES accounts(id),
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	settled_at        TIMESTAMPTZ
);
`

// EnsureSchema creates every ledger table if missing.
func EnsureSchema(ctx context.Context) error {
	if _, err := DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
