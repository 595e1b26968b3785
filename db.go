package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
	_ "rsc.io/sqlite"
)

// DbConfig contains necessary for database configuration information
type DbConfig struct {
	// Driver is "sqlite3" (rsc.io/sqlite, cgo) or "sqlite" (modernc.org/sqlite, pure go)
	Driver       string `env:"DRIVER" envDefault:"sqlite3"`
	Conn         string `env:"CONN" envDefault:":memory:"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"1"`
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) NOT NULL,
		platform VARCHAR(32) NOT NULL DEFAULT '',
		platform_user_id VARCHAR(64) NOT NULL DEFAULT '',
		gold BIGINT NOT NULL DEFAULT 0 CHECK (gold >= 0),
		experience_multiplier REAL NOT NULL DEFAULT 1,
		PRIMARY KEY (id)
	)`,
	`CREATE TABLE IF NOT EXISTS restrictions (
		id VARCHAR(36) NOT NULL,
		restricted_user_id VARCHAR(36) NOT NULL REFERENCES users(id),
		type VARCHAR(16) NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL,
		created_at_ms BIGINT NOT NULL,
		PRIMARY KEY (id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_items (
		id VARCHAR(36) NOT NULL,
		user_id VARCHAR(36) NOT NULL REFERENCES users(id),
		base_item_id VARCHAR(64) NOT NULL,
		item_rank INT NOT NULL DEFAULT 0,
		PRIMARY KEY (id)
	)`,
	`CREATE TABLE IF NOT EXISTS characters (
		id VARCHAR(36) NOT NULL,
		user_id VARCHAR(36) NOT NULL REFERENCES users(id),
		name VARCHAR(64) NOT NULL DEFAULT '',
		experience BIGINT NOT NULL DEFAULT 0,
		level INT NOT NULL DEFAULT 1,
		kills INT NOT NULL DEFAULT 0,
		deaths INT NOT NULL DEFAULT 0,
		assists INT NOT NULL DEFAULT 0,
		play_time_ns BIGINT NOT NULL DEFAULT 0,
		rating_value REAL NOT NULL DEFAULT 0,
		rating_deviation REAL NOT NULL DEFAULT 0,
		rating_volatility REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (id)
	)`,
	`CREATE TABLE IF NOT EXISTS equipped_items (
		character_id VARCHAR(36) NOT NULL REFERENCES characters(id),
		slot VARCHAR(16) NOT NULL,
		user_item_id VARCHAR(36) NOT NULL REFERENCES user_items(id),
		PRIMARY KEY (character_id, slot)
	)`,
	`CREATE TABLE IF NOT EXISTS reconciled_rounds (
		id VARCHAR(36) NOT NULL,
		reconciled_at BIGINT NOT NULL,
		PRIMARY KEY (id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_characters_user_id ON characters(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_items_user_id ON user_items(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_restrictions_user_id ON restrictions(restricted_user_id)`,
}

// all statements are idempotent so migrate can run on every start
func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, stmt := range migrations {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %w", err)
		}
	}

	return tx.Commit()
}

// NewDB build sql.DB instance from db config
func NewDB(cfg DbConfig) (*sql.DB, error) {
	Log("open db driver=%v conn=%v", cfg.Driver, cfg.Conn)
	db, err := sql.Open(cfg.Driver, cfg.Conn)
	if err != nil {
		return nil, fmt.Errorf("Failed to open database: %w", err)
	}
	// in-memory databases live per connection, so keep a single one by default
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("Failed to ping database: %w", err)
	}
	return db, nil
}
