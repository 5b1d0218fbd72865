//go:build integration

package sqldb

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"ptt_crawler/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect(postgresDriver, connStr)
	s.Require().NoError(err)
	s.db = db

	s.Require().NoError(Migrate(s.ctx, s.db))
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM replies")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM articles")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM crawl_runs")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) TestArticleStore_Upsert_Insert() {
	store := NewArticleStore(s.db)

	err := store.Upsert(s.ctx, sampleArticle("M.1181801925.A.86E", 0))
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM articles WHERE board = $1 AND article_id = $2", "Soft_Job", "M.1181801925.A.86E")
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestArticleStore_Upsert_Overwrites() {
	store := NewArticleStore(s.db)
	article := sampleArticle("M.1.A.001", 0)

	s.Require().NoError(store.Upsert(s.ctx, article))

	article.Meta.Title = "Updated Title"
	other := netip.MustParseAddr("1.2.3.4")
	article.Meta.IP = &other
	s.Require().NoError(store.Upsert(s.ctx, article))

	var row struct {
		Title string `db:"title"`
		IP    string `db:"ip"`
	}
	err := s.db.GetContext(s.ctx, &row, "SELECT title, ip FROM articles WHERE article_id = $1", "M.1.A.001")
	s.NoError(err)
	s.Equal("Updated Title", row.Title)
	s.Equal("1.2.3.4", row.IP)
}

func (s *PostgresIntegrationSuite) TestArticleStore_PublishedAtKeepsInstant() {
	store := NewArticleStore(s.db)
	article := sampleArticle("M.2.A.002", 0)

	s.Require().NoError(store.Upsert(s.ctx, article))

	var published time.Time
	err := s.db.GetContext(s.ctx, &published, "SELECT published_at FROM articles WHERE article_id = $1", "M.2.A.002")
	s.NoError(err)
	s.True(article.Meta.Date.Equal(published))
}

func (s *PostgresIntegrationSuite) TestArticleStore_ReplaceReplies_InTransaction() {
	store := NewArticleStore(s.db)
	tm := NewTransactionManager(s.db)
	article := sampleArticle("M.3.A.003", replyBatchSize*2+1)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := store.Upsert(ctx, article); err != nil {
			return err
		}
		return store.ReplaceReplies(ctx, article)
	})
	s.Require().NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM replies WHERE article_id = $1", "M.3.A.003")
	s.NoError(err)
	s.Equal(replyBatchSize*2+1, count)

	article.Replies = article.Replies[:1]
	s.Require().NoError(store.ReplaceReplies(s.ctx, article))

	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM replies WHERE article_id = $1", "M.3.A.003")
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestTransactionManager_Rollback() {
	store := NewArticleStore(s.db)
	tm := NewTransactionManager(s.db)
	article := sampleArticle("M.4.A.004", 2)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := store.Upsert(ctx, article); err != nil {
			return err
		}
		_, err := executor(ctx, s.db).ExecContext(ctx, "SELECT * FROM no_such_table")
		return err
	})
	s.Error(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM articles")
	s.NoError(err)
	s.Equal(0, count)
}

func (s *PostgresIntegrationSuite) TestRunStore_Record() {
	store := NewRunStore(s.db)
	stats := &domain.CrawlStats{
		RunID:     uuid.New(),
		Board:     "Gossiping",
		FirstPage: 39000,
		LastPage:  39001,
		Articles:  38,
		Replies:   2047,
		Saved:     38,
		Published: 38,
		StartedAt: time.Now().UTC().Truncate(time.Microsecond),
		Duration:  12 * time.Second,
	}

	s.Require().NoError(store.Record(s.ctx, stats))

	runs, err := store.Recent(s.ctx, "Gossiping", 5)
	s.NoError(err)
	s.Require().Len(runs, 1)
	s.Equal(stats.RunID, runs[0].RunID)
	s.Equal(stats.Replies, runs[0].Replies)
	s.Equal(stats.Duration, runs[0].Duration)
	s.True(stats.StartedAt.Equal(runs[0].StartedAt))
}
