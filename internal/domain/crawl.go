package domain

import (
	"time"

	"github.com/google/uuid"
)

// CrawlStats holds statistics about one crawl run.
type CrawlStats struct {
	RunID     uuid.UUID     `db:"run_id" json:"run_id"`
	Board     string        `db:"board" json:"board"`
	FirstPage int           `db:"first_page" json:"first_page"`
	LastPage  int           `db:"last_page" json:"last_page"`
	Articles  int           `db:"articles" json:"articles"`
	Replies   int           `db:"replies" json:"replies"`
	Saved     int           `db:"saved" json:"saved"`
	Published int           `db:"published" json:"published"`
	Errors    int           `db:"errors" json:"errors"`
	StartedAt time.Time     `db:"started_at" json:"started_at"`
	Duration  time.Duration `db:"duration" json:"duration"`
}

// CrawlResult is the outcome of one crawl run: the articles in crawl order
// and the run statistics.
type CrawlResult struct {
	Stats    CrawlStats
	Articles []Article
}
