package sqldb

import (
	"context"

	"github.com/jmoiron/sqlx"

	"ptt_crawler/internal/domain"
)

type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) Record(ctx context.Context, stats *domain.CrawlStats) error {
	query := `
		INSERT INTO crawl_runs (
			run_id, board, first_page, last_page, articles, replies,
			saved, published, errors, started_at, duration
		) VALUES (
			:run_id, :board, :first_page, :last_page, :articles, :replies,
			:saved, :published, :errors, :started_at, :duration
		)`

	_, err := sqlx.NamedExecContext(ctx, executor(ctx, s.db), query, stats)
	return err
}

// Recent returns the latest runs of board, newest first.
func (s *RunStore) Recent(ctx context.Context, board string, limit int) ([]domain.CrawlStats, error) {
	query := s.db.Rebind(`
		SELECT run_id, board, first_page, last_page, articles, replies,
			saved, published, errors, started_at, duration
		FROM crawl_runs
		WHERE board = ?
		ORDER BY started_at DESC
		LIMIT ?`)

	var runs []domain.CrawlStats
	err := s.db.SelectContext(ctx, &runs, query, board, limit)
	return runs, err
}
