package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ptt_crawler/internal/domain"
	"ptt_crawler/internal/source/ptt"
)

// Job selects what a run crawls. Bounds follows ptt.ResolveRange: empty for
// every page, one value for that page through the newest, two for a span.
type Job struct {
	Board  domain.BoardName
	Bounds []int
}

// CrawlService runs crawls and hands every article to the configured sinks.
// Stores, runs, txManager and publisher may each be nil.
type CrawlService struct {
	source    Source
	articles  ArticleStore
	runs      RunStore
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
	job       Job
}

func NewCrawlService(
	source Source,
	articles ArticleStore,
	runs RunStore,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
	job Job,
) *CrawlService {
	return &CrawlService{
		source:    source,
		articles:  articles,
		runs:      runs,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("board", job.Board.String()),
		job:       job,
	}
}

// Run crawls the job's page range and delivers the articles to the sinks in
// crawl order. Sink failures are counted in the stats, not returned.
func (s *CrawlService) Run(ctx context.Context) (*domain.CrawlResult, error) {
	startTime := time.Now()

	pageCount, err := s.source.PageCount(ctx, s.job.Board)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	first, last, err := ptt.ResolveRange(pageCount, s.job.Bounds)
	if err != nil {
		return nil, err
	}

	s.logger.Info("starting crawl",
		"page_count", pageCount,
		"first", first,
		"last", last,
	)

	articles, err := s.source.CrawlRange(ctx, s.job.Board, first, last)
	if err != nil {
		return nil, fmt.Errorf("crawl range: %w", err)
	}

	stats := domain.CrawlStats{
		RunID:     uuid.New(),
		Board:     s.job.Board.String(),
		FirstPage: first,
		LastPage:  last,
		StartedAt: startTime,
	}
	return s.deliver(ctx, stats, articles)
}

// CrawlURL crawls a single article and delivers it like Run does.
func (s *CrawlService) CrawlURL(ctx context.Context, url string) (*domain.CrawlResult, error) {
	startTime := time.Now()

	article, err := s.source.CrawlURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("crawl url: %w", err)
	}

	stats := domain.CrawlStats{
		RunID:     uuid.New(),
		Board:     article.Meta.Board.String(),
		StartedAt: startTime,
	}
	return s.deliver(ctx, stats, []domain.Article{*article})
}

func (s *CrawlService) deliver(ctx context.Context, stats domain.CrawlStats, articles []domain.Article) (*domain.CrawlResult, error) {
	logger := s.logger.With("run_id", stats.RunID)

	for i := range articles {
		article := &articles[i]
		stats.Articles++
		stats.Replies += len(article.Replies)

		if s.articles != nil {
			if err := s.saveArticle(ctx, article); err != nil {
				logger.Warn("save failed", "id", article.Meta.ID, "error", err)
				stats.Errors++
			} else {
				stats.Saved++
			}
		}

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, stats.RunID, article); err != nil {
				logger.Warn("publish failed", "id", article.Meta.ID, "error", err)
				stats.Errors++
			} else {
				stats.Published++
			}
		}
	}

	stats.Duration = time.Since(stats.StartedAt)
	result := &domain.CrawlResult{Stats: stats, Articles: articles}

	if s.runs != nil {
		if err := s.runs.Record(ctx, &result.Stats); err != nil {
			return result, fmt.Errorf("record run: %w", err)
		}
	}

	logger.Info("crawl completed",
		"articles", stats.Articles,
		"replies", stats.Replies,
		"saved", stats.Saved,
		"published", stats.Published,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)

	return result, nil
}

func (s *CrawlService) saveArticle(ctx context.Context, article *domain.Article) error {
	save := func(ctx context.Context) error {
		if err := s.articles.Upsert(ctx, article); err != nil {
			return fmt.Errorf("upsert article: %w", err)
		}
		if err := s.articles.ReplaceReplies(ctx, article); err != nil {
			return fmt.Errorf("replace replies: %w", err)
		}
		return nil
	}

	if s.txManager == nil {
		return save(ctx)
	}
	return s.txManager.WithTransaction(ctx, save)
}
