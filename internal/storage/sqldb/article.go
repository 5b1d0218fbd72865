package sqldb

import (
	"context"
	"net/netip"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"ptt_crawler/internal/domain"
)

// replyBatchSize keeps each insert below the bind variable limits of both
// drivers.
const replyBatchSize = 500

type ArticleStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db, now: time.Now}
}

// Upsert writes the article row keyed by board and id, overwriting any
// earlier copy.
func (s *ArticleStore) Upsert(ctx context.Context, article *domain.Article) error {
	query := `
		INSERT INTO articles (
			board, article_id, category, title, author_id, author_name,
			published_at, ip, content, push_count, neutral_count, boo_count, crawled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (board, article_id) DO UPDATE SET
			category = EXCLUDED.category,
			title = EXCLUDED.title,
			author_id = EXCLUDED.author_id,
			author_name = EXCLUDED.author_name,
			published_at = EXCLUDED.published_at,
			ip = EXCLUDED.ip,
			content = EXCLUDED.content,
			push_count = EXCLUDED.push_count,
			neutral_count = EXCLUDED.neutral_count,
			boo_count = EXCLUDED.boo_count,
			crawled_at = EXCLUDED.crawled_at`

	exec := executor(ctx, s.db)
	meta := article.Meta
	_, err := exec.ExecContext(ctx, exec.Rebind(query),
		meta.Board.String(),
		meta.ID,
		meta.Category,
		meta.Title,
		meta.AuthorID,
		meta.AuthorName,
		meta.Date,
		ipString(meta.IP),
		article.Content,
		article.ReplyCount.Push,
		article.ReplyCount.Neutral,
		article.ReplyCount.Boo,
		s.now().UTC(),
	)
	return err
}

// ReplaceReplies swaps the stored replies of an article for article.Replies,
// keeping their order in seq.
func (s *ArticleStore) ReplaceReplies(ctx context.Context, article *domain.Article) error {
	exec := executor(ctx, s.db)
	board := article.Meta.Board.String()

	_, err := exec.ExecContext(ctx,
		exec.Rebind("DELETE FROM replies WHERE board = ? AND article_id = ?"),
		board, article.Meta.ID,
	)
	if err != nil {
		return err
	}

	for start := 0; start < len(article.Replies); start += replyBatchSize {
		end := min(start+replyBatchSize, len(article.Replies))

		var sb strings.Builder
		sb.WriteString("INSERT INTO replies (board, article_id, seq, reply_type, author_id, ip, replied_at, content) VALUES ")
		valueArgs := make([]interface{}, 0, (end-start)*8)

		for i := start; i < end; i++ {
			if i > start {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?)")
			r := article.Replies[i]
			valueArgs = append(valueArgs,
				board,
				article.Meta.ID,
				i,
				r.Type.String(),
				r.AuthorID,
				ipString(r.IP),
				r.Date,
				r.Content,
			)
		}

		if _, err := exec.ExecContext(ctx, exec.Rebind(sb.String()), valueArgs...); err != nil {
			return err
		}
	}
	return nil
}

func ipString(ip *netip.Addr) *string {
	if ip == nil {
		return nil
	}
	s := ip.String()
	return &s
}
