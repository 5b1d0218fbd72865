package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/google/uuid"

	"ptt_crawler/internal/domain"
)

type Source interface {
	PageCount(ctx context.Context, board domain.BoardName) (int, error)
	CrawlRange(ctx context.Context, board domain.BoardName, first, last int) ([]domain.Article, error)
	CrawlURL(ctx context.Context, url string) (*domain.Article, error)
}

type ArticleStore interface {
	Upsert(ctx context.Context, article *domain.Article) error
	ReplaceReplies(ctx context.Context, article *domain.Article) error
}

type RunStore interface {
	Record(ctx context.Context, stats *domain.CrawlStats) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, runID uuid.UUID, article *domain.Article) error
	Close() error
}
