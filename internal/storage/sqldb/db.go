// Package sqldb stores crawled articles, their replies and crawl run records
// in PostgreSQL or SQLite through sqlx.
package sqldb

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"ptt_crawler/internal/config"
)

const (
	postgresDriver = "postgres"
	sqliteDriver   = "sqlite3"
)

// Open connects to the configured database and creates missing tables.
func Open(ctx context.Context, cfg config.StorageConfig) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = sqlx.ConnectContext(ctx, postgresDriver, cfg.Database.DSN())
	case config.DriverSQLite:
		db, err = sqlx.ConnectContext(ctx, sqliteDriver, cfg.Path+"?_foreign_keys=on&_busy_timeout=5000")
		if err == nil {
			db.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	timestamp := "TIMESTAMP"
	if db.DriverName() == postgresDriver {
		timestamp = "TIMESTAMPTZ"
	}

	for _, stmt := range []string{
		fmt.Sprintf(createArticles, timestamp),
		fmt.Sprintf(createReplies, timestamp),
		fmt.Sprintf(createCrawlRuns, timestamp),
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

const createArticles = `
	CREATE TABLE IF NOT EXISTS articles (
		board         TEXT NOT NULL,
		article_id    TEXT NOT NULL,
		category      TEXT NOT NULL,
		title         TEXT NOT NULL,
		author_id     TEXT NOT NULL,
		author_name   TEXT,
		published_at  %[1]s,
		ip            TEXT,
		content       TEXT NOT NULL,
		push_count    INTEGER NOT NULL,
		neutral_count INTEGER NOT NULL,
		boo_count     INTEGER NOT NULL,
		crawled_at    %[1]s NOT NULL,
		PRIMARY KEY (board, article_id)
	)`

const createReplies = `
	CREATE TABLE IF NOT EXISTS replies (
		board      TEXT NOT NULL,
		article_id TEXT NOT NULL,
		seq        INTEGER NOT NULL,
		reply_type TEXT NOT NULL,
		author_id  TEXT NOT NULL,
		ip         TEXT,
		replied_at %[1]s,
		content    TEXT NOT NULL,
		PRIMARY KEY (board, article_id, seq),
		FOREIGN KEY (board, article_id) REFERENCES articles (board, article_id) ON DELETE CASCADE
	)`

const createCrawlRuns = `
	CREATE TABLE IF NOT EXISTS crawl_runs (
		run_id     TEXT PRIMARY KEY,
		board      TEXT NOT NULL,
		first_page INTEGER NOT NULL,
		last_page  INTEGER NOT NULL,
		articles   INTEGER NOT NULL,
		replies    INTEGER NOT NULL,
		saved      INTEGER NOT NULL,
		published  INTEGER NOT NULL,
		errors     INTEGER NOT NULL,
		started_at %[1]s NOT NULL,
		duration   BIGINT NOT NULL
	)`
