package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	if err := client.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

// Migrate creates the legacy auth schema when it does not exist yet.
// Column names and the email/username unique constraints must match
// what the game server reads; the constraints are also what closes the
// pre-check/insert race during registration.
func (p *PostgresClient) Migrate(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS battlenet_accounts (
			id SERIAL PRIMARY KEY,
			email VARCHAR(320) NOT NULL,
			sha_pass_hash CHAR(64) NOT NULL,
			is_temp_password BOOLEAN NOT NULL DEFAULT FALSE,
			temp_password VARCHAR(16),
			CONSTRAINT battlenet_accounts_email_key UNIQUE (email)
		);
	`)
	if err != nil {
		return fmt.Errorf("create battlenet_accounts table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS account (
			id SERIAL PRIMARY KEY,
			username VARCHAR(32) NOT NULL,
			sha_pass_hash CHAR(40) NOT NULL,
			email VARCHAR(320) NOT NULL,
			battlenet_account INT NOT NULL,
			coins INT NOT NULL DEFAULT 0,
			CONSTRAINT account_username_key UNIQUE (username)
		);
	`)
	if err != nil {
		return fmt.Errorf("create account table: %w", err)
	}

	// Older deployments predate the coins column.
	p.Pool.Exec(ctx, "ALTER TABLE account ADD COLUMN IF NOT EXISTS coins INT NOT NULL DEFAULT 0;")

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS account_access (
			id INT NOT NULL,
			gmlevel INT NOT NULL,
			"RealmID" INT NOT NULL DEFAULT -1
		);
	`)
	if err != nil {
		return fmt.Errorf("create account_access table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT NOT NULL,
			email VARCHAR(320) NOT NULL,
			CONSTRAINT users_telegram_email_key UNIQUE (telegram_id, email)
		);
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS users_telegram_id_idx ON users (telegram_id);")
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
